// Package viewmodel shapes engine state for the outside world: a neutral
// view for spectators and a first-person view for each combatant.
package viewmodel

import (
	"math"

	"claw-colosseum/internal/game"
	"claw-colosseum/internal/ledger"
)

type CombatantView struct {
	AgentID   string  `json:"agentId"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Health    float64 `json:"health"`
	Integrity float64 `json:"integrity"`
	Speed     float64 `json:"speed"`
}

type MatchView struct {
	MatchID string        `json:"matchId"`
	Stage   game.Stage    `json:"stage"`
	Round   ledger.Round  `json:"round"`
	AgentA  CombatantView `json:"agentA"`
	AgentB  CombatantView `json:"agentB"`
}

// AgentView is the same snapshot seen from one side.
type AgentView struct {
	MatchID  string        `json:"matchId"`
	Stage    game.Stage    `json:"stage"`
	Round    ledger.Round  `json:"round"`
	You      CombatantView `json:"you"`
	Opponent CombatantView `json:"opponent"`
}

// MatchEnd is published once a match has been judged and persisted.
type MatchEnd struct {
	MatchID    string         `json:"matchId"`
	Winner     *string        `json:"winner"`
	WinnerName string         `json:"winnerName,omitempty"`
	IsDraw     bool           `json:"isDraw"`
	Scores     []ledger.Score `json:"scores"`
	MoltFile   string         `json:"moltFile"`
	Signature  string         `json:"signature"`
}

func BuildMatchView(m game.Metrics, a, b ledger.Participant) MatchView {
	return MatchView{
		MatchID: m.MatchID,
		Stage:   m.Stage,
		Round:   m.Round,
		AgentA:  combatant(a, m.AgentA),
		AgentB:  combatant(b, m.AgentB),
	}
}

// BuildAgentView returns false when agentID is not one of the combatants.
func BuildAgentView(m game.Metrics, a, b ledger.Participant, agentID string) (AgentView, bool) {
	view := AgentView{MatchID: m.MatchID, Stage: m.Stage, Round: m.Round}
	switch agentID {
	case a.ID:
		view.You, view.Opponent = combatant(a, m.AgentA), combatant(b, m.AgentB)
	case b.ID:
		view.You, view.Opponent = combatant(b, m.AgentB), combatant(a, m.AgentA)
	default:
		return AgentView{}, false
	}
	return view, true
}

func combatant(p ledger.Participant, v game.Vitals) CombatantView {
	return CombatantView{
		AgentID:   p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Health:    round1(v.Health),
		Integrity: round1(v.Integrity),
		Speed:     round1(v.Speed),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
