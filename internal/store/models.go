package store

import (
	"math"
	"time"

	"claw-colosseum/internal/ledger"
	"claw-colosseum/internal/shield"
)

const (
	DefaultRating = 1200
	// RatingK is the fixed rating swing applied to both sides of a decisive match.
	RatingK = 32
)

type Agent struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Rating    int            `json:"eloRating"`
	Wins      int            `json:"wins"`
	Losses    int            `json:"losses"`
	Shield    *shield.Config `json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
}

// WinRate is the rounded win percentage, 0 before any decisive match.
func (a Agent) WinRate() int {
	return winRate(a.Wins, a.Losses)
}

func winRate(wins, losses int) int {
	if wins+losses == 0 {
		return 0
	}
	return int(math.Round(float64(wins) / float64(wins+losses) * 100))
}

type MatchStatus string

const (
	MatchPending    MatchStatus = "PENDING"
	MatchInProgress MatchStatus = "IN_PROGRESS"
	MatchCompleted  MatchStatus = "COMPLETED"
	MatchFailed     MatchStatus = "FAILED"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchInProgress, MatchCompleted, MatchFailed:
		return true
	}
	return false
}

type Match struct {
	ID            string
	AgentAID      string
	AgentBID      string
	AgentAName    string
	AgentBName    string
	Status        MatchStatus
	WinnerID      *string
	WinnerName    *string
	Scores        []ledger.Score
	MoltFilePath  string
	FailureReason string
	CreatedAt     time.Time
	StartedAt     *time.Time
	EndedAt       *time.Time
}

// MatchResult is what the runner persists when a match finishes.
type MatchResult struct {
	MatchID      string
	Scores       []ledger.Score
	WinnerID     *string
	MoltFilePath string
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Rating   int    `json:"eloRating"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	WinRate  int    `json:"winRate"`
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalAgents      int             `json:"totalAgents"`
	TotalMatches     int             `json:"totalMatches"`
	CompletedMatches int             `json:"completedMatches"`
	Categories       []CategoryCount `json:"categories"`
}
