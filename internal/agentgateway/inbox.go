// Package agentgateway delivers match activity to the agents taking part.
package agentgateway

import (
	"context"
	"sync"
	"time"

	"claw-colosseum/internal/agentgateway/stream"
	"claw-colosseum/internal/game"
	"claw-colosseum/internal/game/viewmodel"
	"claw-colosseum/internal/ledger"
	"claw-colosseum/internal/matchmaking"
)

const (
	inboxSize = 500
	inboxTTL  = 2 * time.Hour
)

type mailbox struct {
	buf     *stream.EventBuffer
	touched time.Time
}

// Inbox keeps one replayable event buffer per agent. It is the connection
// handle for agents that queue over HTTP or MCP, and it receives the match
// lifecycle for both combatants.
type Inbox struct {
	mu      sync.Mutex
	boxes   map[string]*mailbox
	matches map[string][2]ledger.Participant
	// pending holds the agents told match:found for a match that has not
	// started yet.
	pending map[string][]string
	now     func() time.Time
}

func NewInbox() *Inbox {
	return &Inbox{
		boxes:   map[string]*mailbox{},
		matches: map[string][2]ledger.Participant{},
		pending: map[string][]string{},
		now:     time.Now,
	}
}

// Buffer returns the agent's buffer, creating it on first use.
func (in *Inbox) Buffer(agentID string) *stream.EventBuffer {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.boxLocked(agentID).buf
}

func (in *Inbox) boxLocked(agentID string) *mailbox {
	box := in.boxes[agentID]
	if box == nil {
		box = &mailbox{buf: stream.NewEventBuffer(inboxSize)}
		in.boxes[agentID] = box
		metricInboxesActive.Set(int64(len(in.boxes)))
	}
	box.touched = in.now()
	return box
}

func (in *Inbox) Push(agentID, event string, data any) stream.StreamEvent {
	return in.Buffer(agentID).Append(event, agentID, data)
}

// Notifier adapts the agent's inbox to the matchmaking connection handle.
func (in *Inbox) Notifier(agentID string) matchmaking.Notifier {
	return agentNotifier{inbox: in, agentID: agentID}
}

type agentNotifier struct {
	inbox   *Inbox
	agentID string
}

func (n agentNotifier) Notify(event string, payload any) {
	n.inbox.Push(n.agentID, event, payload)
	m, _ := payload.(map[string]any)
	matchID, _ := m["matchId"].(string)
	if matchID == "" {
		return
	}
	switch event {
	case matchmaking.EventMatchFound:
		n.inbox.expect(matchID, n.agentID)
	case matchmaking.EventMatchFailed:
		n.inbox.forget(matchID)
	}
}

func (in *Inbox) expect(matchID, agentID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pending[matchID] = append(in.pending[matchID], agentID)
}

func (in *Inbox) forget(matchID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.pending, matchID)
}

func (in *Inbox) combatants(matchID string) ([2]ledger.Participant, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	p, ok := in.matches[matchID]
	return p, ok
}

func (in *Inbox) MatchStarted(matchID string, a, b ledger.Participant) {
	in.mu.Lock()
	in.matches[matchID] = [2]ledger.Participant{a, b}
	delete(in.pending, matchID)
	in.mu.Unlock()
	in.Push(a.ID, "match:start", map[string]any{"matchId": matchID, "opponent": b})
	in.Push(b.ID, "match:start", map[string]any{"matchId": matchID, "opponent": a})
}

func (in *Inbox) MatchMetrics(m game.Metrics) {
	p, ok := in.combatants(m.MatchID)
	if !ok {
		return
	}
	for _, self := range p {
		if view, ok := viewmodel.BuildAgentView(m, p[0], p[1], self.ID); ok {
			in.Push(self.ID, "match:metrics", view)
		}
	}
}

func (in *Inbox) MatchEvent(matchID string, evt ledger.Event) {
	p, ok := in.combatants(matchID)
	if !ok {
		return
	}
	for _, self := range p {
		in.Push(self.ID, "match:event", evt)
	}
}

func (in *Inbox) MatchEnded(end viewmodel.MatchEnd) {
	in.finish(end.MatchID, "match:end", end)
}

func (in *Inbox) MatchFailed(matchID, reason string) {
	in.finish(matchID, "match:failed", map[string]any{"matchId": matchID, "reason": reason})
}

// finish closes a match for its combatants. A match that failed before it
// started reaches the agents that were told it was found.
func (in *Inbox) finish(matchID, event string, data any) {
	in.mu.Lock()
	var ids []string
	if p, ok := in.matches[matchID]; ok {
		ids = []string{p[0].ID, p[1].ID}
	} else {
		ids = in.pending[matchID]
	}
	delete(in.matches, matchID)
	delete(in.pending, matchID)
	in.mu.Unlock()
	for _, id := range ids {
		in.Push(id, event, data)
	}
}

// StartJanitor drops inboxes that nobody is reading and that have been idle
// longer than the inbox TTL.
func (in *Inbox) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				in.expire(in.now())
			}
		}
	}()
}

func (in *Inbox) expire(now time.Time) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	n := 0
	for id, box := range in.boxes {
		if now.Sub(box.touched) < inboxTTL || box.buf.Watchers() > 0 {
			continue
		}
		box.buf.Close()
		delete(in.boxes, id)
		n++
	}
	metricInboxesActive.Set(int64(len(in.boxes)))
	return n
}
