// Package queue is the join/leave/status surface over the matchmaking pool.
// HTTP, WebSocket and MCP callers all go through it.
package queue

import (
	"context"
	"errors"
	"strings"

	"claw-colosseum/internal/matchmaking"
	"claw-colosseum/internal/store"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrAgentNotFound  = errors.New("agent_not_found")
)

type AgentStore interface {
	GetAgent(ctx context.Context, id string) (*store.Agent, error)
}

type Pool interface {
	Enqueue(e matchmaking.Entrant, conn matchmaking.Notifier) (matchmaking.Ticket, error)
	Dequeue(agentID string) bool
	Status() matchmaking.Status
}

// Mailboxes supplies a connection handle for agents that join without a
// live socket.
type Mailboxes interface {
	Notifier(agentID string) matchmaking.Notifier
}

type LeaveResult struct {
	AgentID string `json:"agentId"`
	Removed bool   `json:"removed"`
}

type Service struct {
	agents AgentStore
	pool   Pool
	boxes  Mailboxes
}

func NewService(agents AgentStore, pool Pool, boxes Mailboxes) *Service {
	return &Service{agents: agents, pool: pool, boxes: boxes}
}

// Join loads the agent's current rating and category and enqueues it. A nil
// conn routes notifications to the agent's mailbox.
func (s *Service) Join(ctx context.Context, agentID string, conn matchmaking.Notifier) (matchmaking.Ticket, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return matchmaking.Ticket{}, ErrInvalidRequest
	}
	a, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return matchmaking.Ticket{}, ErrAgentNotFound
		}
		return matchmaking.Ticket{}, err
	}
	if conn == nil && s.boxes != nil {
		conn = s.boxes.Notifier(a.ID)
	}
	return s.pool.Enqueue(matchmaking.Entrant{
		AgentID:     a.ID,
		DisplayName: a.Name,
		Category:    a.Category,
		Rating:      a.Rating,
	}, conn)
}

func (s *Service) Leave(agentID string) (LeaveResult, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return LeaveResult{}, ErrInvalidRequest
	}
	return LeaveResult{AgentID: agentID, Removed: s.pool.Dequeue(agentID)}, nil
}

func (s *Service) Status() matchmaking.Status {
	st := s.pool.Status()
	if st.Agents == nil {
		st.Agents = []matchmaking.StatusEntry{}
	}
	return st
}
