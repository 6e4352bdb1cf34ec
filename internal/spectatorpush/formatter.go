package spectatorpush

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	colorStart  = 0x5865F2
	colorRound  = 0x3BA55D
	colorWin    = 0x57F287
	colorDraw   = 0xFEE75C
	colorFailed = 0xED4245

	shortIDLimit  = 8
	defaultFooter = "claw-colosseum arena"
)

// FormatMessage renders ann as a panel keyed by match, so every step of a
// match edits the same chat message where the platform allows it.
func FormatMessage(ann Announcement) (FormattedMessage, bool) {
	versus := fmt.Sprintf("%s vs %s", sideName(ann.AgentA), sideName(ann.AgentB))
	msg := FormattedMessage{
		PanelKey:  "match:" + ann.MatchID,
		Timestamp: eventTimestamp(ann.ServerTS),
		Footer:    defaultFooter + " · " + shortID(ann.MatchID),
	}

	switch ann.EventType {
	case EventMatchStart:
		msg.Title = "Match starting · " + versus
		msg.Content = versus
		msg.Description = "Shields up. Siege begins shortly."
		msg.Color = colorStart
		msg.Fields = []MessageField{
			{Name: ann.AgentA.Name, Value: fallback(ann.AgentA.Category, "-"), Inline: true},
			{Name: ann.AgentB.Name, Value: fallback(ann.AgentB.Category, "-"), Inline: true},
		}
	case EventMatchRound:
		msg.Title = "Round " + fallback(ann.Round, "?") + " · " + versus
		msg.Content = versus
		msg.Description = "Round " + fallback(ann.Round, "?") + " in progress."
		msg.Color = colorRound
	case EventMatchEnd:
		msg.Content = versus
		if ann.IsDraw {
			msg.Title = "Draw · " + versus
			msg.Description = "Neither side broke through."
			msg.Color = colorDraw
		} else {
			msg.Title = "Victory · " + fallback(ann.Winner, "unknown")
			msg.Description = fallback(ann.Winner, "unknown") + " wins " + versus + "."
			msg.Color = colorWin
		}
		msg.Fields = []MessageField{
			{Name: sideName(ann.AgentA), Value: scoreText(ann.AgentA.Total), Inline: true},
			{Name: sideName(ann.AgentB), Value: scoreText(ann.AgentB.Total), Inline: true},
		}
		if ann.Signature != "" {
			msg.Fields = append(msg.Fields, MessageField{Name: "Ledger", Value: shortID(ann.Signature)})
		}
	case EventMatchFailed:
		msg.Title = "Match failed · " + versus
		msg.Content = versus
		msg.Description = "The match was abandoned."
		msg.Color = colorFailed
		msg.Fields = []MessageField{{Name: "Reason", Value: fallback(ann.Reason, "unknown"), Inline: true}}
	default:
		return FormattedMessage{}, false
	}
	return msg, true
}

func sideName(s Side) string {
	return fallback(s.Name, fallback(shortID(s.ID), "?"))
}

func scoreText(total *int) string {
	if total == nil {
		return "-"
	}
	return strconv.Itoa(*total)
}

func shortID(v string) string {
	if len(v) <= shortIDLimit {
		return v
	}
	return v[:shortIDLimit]
}

func eventTimestamp(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func fallback(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
