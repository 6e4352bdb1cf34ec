package agent

import (
	"time"

	"claw-colosseum/internal/shield"
)

type RegisterInput struct {
	Name     string
	Category string
}

type RegisterResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	EloRating int    `json:"eloRating"`
	Message   string `json:"message"`
}

type RecentMatch struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"startedAt"`
}

type AgentResponse struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Category      string        `json:"category"`
	EloRating     int           `json:"eloRating"`
	Wins          int           `json:"wins"`
	Losses        int           `json:"losses"`
	WinRate       int           `json:"winRate"`
	HasShield     bool          `json:"hasShield"`
	RecentMatches []RecentMatch `json:"recentMatches"`
}

type ShieldResponse struct {
	Message         string          `json:"message"`
	Protocol        shield.Protocol `json:"protocol"`
	Strength        int             `json:"strength"`
	Valid           bool            `json:"valid"`
	Vulnerabilities []string        `json:"vulnerabilities"`
}
