package public

import (
	"context"
	"errors"
	"os"
	"strings"

	"claw-colosseum/internal/ledger"
	"claw-colosseum/internal/store"
)

// Store is the read side the public API needs.
type Store interface {
	GetMatch(ctx context.Context, matchID string) (*store.Match, error)
	ListMatches(ctx context.Context, status store.MatchStatus, limit int) ([]store.Match, error)
	ListLeaderboard(ctx context.Context, category string, limit int) ([]store.LeaderboardEntry, error)
	Stats(ctx context.Context) (store.Stats, error)
}

type Service struct {
	store Store
}

func NewService(st Store) *Service {
	return &Service{store: st}
}

func (s *Service) Match(ctx context.Context, id string) (*MatchDetail, error) {
	m, err := s.loadMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &MatchDetail{
		ID:            m.ID,
		Status:        string(m.Status),
		AgentA:        AgentRef{ID: m.AgentAID, Name: m.AgentAName},
		AgentB:        AgentRef{ID: m.AgentBID, Name: m.AgentBName},
		Scores:        m.Scores,
		FailureReason: m.FailureReason,
		HasMolt:       m.MoltFilePath != "",
		CreatedAt:     m.CreatedAt,
		StartedAt:     m.StartedAt,
		EndedAt:       m.EndedAt,
	}
	if out.Scores == nil {
		out.Scores = []ledger.Score{}
	}
	if m.WinnerID != nil {
		ref := AgentRef{ID: *m.WinnerID}
		if m.WinnerName != nil {
			ref.Name = *m.WinnerName
		}
		out.Winner = &ref
	}
	return out, nil
}

func (s *Service) Matches(ctx context.Context, in MatchListInput) ([]MatchSummary, error) {
	status := store.MatchStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if status != "" && !status.Valid() {
		return nil, ErrInvalidRequest
	}
	rows, err := s.store.ListMatches(ctx, status, in.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]MatchSummary, 0, len(rows))
	for _, m := range rows {
		out = append(out, MatchSummary{
			ID:        m.ID,
			AgentA:    m.AgentAName,
			AgentB:    m.AgentBName,
			Winner:    m.WinnerName,
			Status:    string(m.Status),
			StartedAt: m.StartedAt,
		})
	}
	return out, nil
}

func (s *Service) Leaderboard(ctx context.Context, in LeaderboardInput) ([]store.LeaderboardEntry, error) {
	rows, err := s.store.ListLeaderboard(ctx, strings.ToLower(strings.TrimSpace(in.Category)), in.Limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []store.LeaderboardEntry{}
	}
	return rows, nil
}

func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return store.Stats{}, err
	}
	if st.Categories == nil {
		st.Categories = []store.CategoryCount{}
	}
	return st, nil
}

// Molt loads the stored artifact of a finished match.
func (s *Service) Molt(ctx context.Context, matchID string) (*ledger.Artifact, error) {
	m, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.MoltFilePath == "" {
		return nil, ErrMoltNotFound
	}
	a, err := ledger.LoadArtifact(m.MoltFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrMoltNotFound
		}
		return nil, err
	}
	return a, nil
}

// VerifyMolt re-checks the stored artifact's chain and signature.
func (s *Service) VerifyMolt(ctx context.Context, matchID string) (ledger.Report, error) {
	a, err := s.Molt(ctx, matchID)
	if err != nil {
		return ledger.Report{}, err
	}
	r := ledger.Inspect(a)
	r.MatchID = matchID
	return r, nil
}

func (s *Service) loadMatch(ctx context.Context, id string) (*store.Match, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidRequest
	}
	m, err := s.store.GetMatch(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}
