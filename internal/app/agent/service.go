package agent

import (
	"context"
	"errors"
	"strings"

	"claw-colosseum/internal/shield"
	"claw-colosseum/internal/store"
)

const (
	maxNameLen     = 64
	recentMatchCap = 5
)

// Store is the persistence this service relies on.
type Store interface {
	CreateAgent(ctx context.Context, name, category string) (*store.Agent, error)
	GetAgent(ctx context.Context, id string) (*store.Agent, error)
	SetShield(ctx context.Context, agentID string, cfg shield.Config) error
	ListAgentMatches(ctx context.Context, agentID string, limit int) ([]store.Match, error)
}

type Service struct {
	store Store
}

func NewService(st Store) *Service {
	return &Service{store: st}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResponse, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if name == "" || category == "" || len(name) > maxNameLen {
		return nil, ErrInvalidRequest
	}
	a, err := s.store.CreateAgent(ctx, name, category)
	if err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return &RegisterResponse{
		ID:        a.ID,
		Name:      a.Name,
		Category:  a.Category,
		EloRating: a.Rating,
		Message:   "Agent registered successfully",
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*AgentResponse, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.ListAgentMatches(ctx, a.ID, recentMatchCap)
	if err != nil {
		return nil, err
	}
	recent := make([]RecentMatch, 0, len(matches))
	for _, m := range matches {
		recent = append(recent, RecentMatch{ID: m.ID, Status: string(m.Status), StartedAt: m.StartedAt})
	}
	return &AgentResponse{
		ID:            a.ID,
		Name:          a.Name,
		Category:      a.Category,
		EloRating:     a.Rating,
		Wins:          a.Wins,
		Losses:        a.Losses,
		WinRate:       a.WinRate(),
		HasShield:     a.Shield != nil,
		RecentMatches: recent,
	}, nil
}

// SubmitShield generates a fresh shield for the protocol and stores it on the
// agent, replacing any previous one.
func (s *Service) SubmitShield(ctx context.Context, agentID, protocol string) (*ShieldResponse, error) {
	p, err := shield.ParseProtocol(protocol)
	if err != nil {
		return nil, ErrInvalidProtocol
	}
	if _, err := s.load(ctx, agentID); err != nil {
		return nil, err
	}
	cfg, err := shield.Create(p)
	if err != nil {
		return nil, err
	}
	v := shield.Validate(cfg)
	if err := s.store.SetShield(ctx, agentID, cfg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return &ShieldResponse{
		Message:         "Shield configured successfully",
		Protocol:        cfg.Protocol,
		Strength:        v.Strength,
		Valid:           v.Valid,
		Vulnerabilities: v.Vulnerabilities,
	}, nil
}

func (s *Service) load(ctx context.Context, id string) (*store.Agent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidRequest
	}
	a, err := s.store.GetAgent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return a, nil
}
