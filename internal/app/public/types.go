package public

import (
	"time"

	"claw-colosseum/internal/ledger"
)

type AgentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MatchDetail struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	AgentA        AgentRef       `json:"agentA"`
	AgentB        AgentRef       `json:"agentB"`
	Winner        *AgentRef      `json:"winner"`
	Scores        []ledger.Score `json:"scores"`
	FailureReason string         `json:"failureReason,omitempty"`
	HasMolt       bool           `json:"hasMolt"`
	CreatedAt     time.Time      `json:"createdAt"`
	StartedAt     *time.Time     `json:"startedAt"`
	EndedAt       *time.Time     `json:"endedAt"`
}

type MatchSummary struct {
	ID        string     `json:"id"`
	AgentA    string     `json:"agentA"`
	AgentB    string     `json:"agentB"`
	Winner    *string    `json:"winner"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"startedAt"`
}

type MatchListInput struct {
	Status string
	Limit  int
}

type LeaderboardInput struct {
	Category string
	Limit    int
}
