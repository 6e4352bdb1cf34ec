package game

import (
	"claw-colosseum/internal/ledger"
	"claw-colosseum/internal/shield"
)

type Stage string

const (
	StagePreMatch Stage = "PRE_MATCH"
	StageSiegeA   Stage = "SIEGE_A"
	StageSiegeB   Stage = "SIEGE_B"
	StageCounter  Stage = "COUNTER"
	StageJudgment Stage = "JUDGMENT"
	StageDone     Stage = "DONE"
	StageFailed   Stage = "FAILED"
)

// next is the only legal transition out of each running stage.
var next = map[Stage]Stage{
	StagePreMatch: StageSiegeA,
	StageSiegeA:   StageSiegeB,
	StageSiegeB:   StageCounter,
	StageCounter:  StageJudgment,
	StageJudgment: StageDone,
}

// Round maps a stage to the ledger round it records under.
func (s Stage) Round() ledger.Round {
	switch s {
	case StagePreMatch:
		return ledger.RoundPreMatch
	case StageSiegeA, StageSiegeB:
		return ledger.RoundSiege
	case StageCounter:
		return ledger.RoundCounter
	default:
		return ledger.RoundJudgment
	}
}

const (
	StartHealth      = 100.0
	StartIntegrity   = 100.0
	StartSpeed       = 50.0
	BaseAttackPower  = 30.0
	AttackPowerRange = 20.0
	maxStat          = 100.0
)

// Combatant is the mutable per-match state of one agent. Health and integrity
// never drop below zero; speed only grows and never passes 100.
type Combatant struct {
	AgentID     string
	Name        string
	Category    string
	Shield      shield.Config
	Health      float64
	Integrity   float64
	AttackPower float64
	Speed       float64
}

func NewCombatant(agentID, name, category string, sh shield.Config, attackPower float64) *Combatant {
	return &Combatant{
		AgentID:     agentID,
		Name:        name,
		Category:    category,
		Shield:      sh,
		Health:      StartHealth,
		Integrity:   StartIntegrity,
		AttackPower: attackPower,
		Speed:       StartSpeed,
	}
}

func (c *Combatant) takeDamage(amount float64) {
	c.Health = clampLow(c.Health - amount)
}

func (c *Combatant) addSpeed(bonus float64) {
	if bonus <= 0 {
		return
	}
	c.Speed += bonus
	if c.Speed > maxStat {
		c.Speed = maxStat
	}
}

func (c *Combatant) participant() ledger.Participant {
	return ledger.Participant{ID: c.AgentID, Name: c.Name, Category: c.Category}
}

func clampLow(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

type Vitals struct {
	Health    float64 `json:"health"`
	Integrity float64 `json:"integrity"`
	Speed     float64 `json:"speed"`
}

func (c *Combatant) vitals() Vitals {
	return Vitals{Health: c.Health, Integrity: c.Integrity, Speed: c.Speed}
}

// Metrics is the live snapshot published at every stage boundary. It is
// never written to the ledger.
type Metrics struct {
	MatchID string       `json:"matchId"`
	Stage   Stage        `json:"stage"`
	Round   ledger.Round `json:"round"`
	AgentA  Vitals       `json:"agentA"`
	AgentB  Vitals       `json:"agentB"`
}

type Result struct {
	Scores   []ledger.Score   `json:"scores"`
	Winner   *string          `json:"winner"`
	Artifact *ledger.Artifact `json:"-"`
}
