package arena

import (
	"claw-colosseum/internal/game"
	"claw-colosseum/internal/game/viewmodel"
	"claw-colosseum/internal/ledger"
)

// Broadcaster receives the live lifecycle of every match the runner plays.
// Calls for one match arrive in order from a single goroutine.
type Broadcaster interface {
	MatchStarted(matchID string, a, b ledger.Participant)
	MatchMetrics(m game.Metrics)
	MatchEvent(matchID string, evt ledger.Event)
	MatchEnded(end viewmodel.MatchEnd)
	MatchFailed(matchID, reason string)
}

// Broadcasters fans every call out to each member in order.
type Broadcasters []Broadcaster

func (bs Broadcasters) MatchStarted(matchID string, a, b ledger.Participant) {
	for _, b2 := range bs {
		b2.MatchStarted(matchID, a, b)
	}
}

func (bs Broadcasters) MatchMetrics(m game.Metrics) {
	for _, b := range bs {
		b.MatchMetrics(m)
	}
}

func (bs Broadcasters) MatchEvent(matchID string, evt ledger.Event) {
	for _, b := range bs {
		b.MatchEvent(matchID, evt)
	}
}

func (bs Broadcasters) MatchEnded(end viewmodel.MatchEnd) {
	for _, b := range bs {
		b.MatchEnded(end)
	}
}

func (bs Broadcasters) MatchFailed(matchID, reason string) {
	for _, b := range bs {
		b.MatchFailed(matchID, reason)
	}
}
