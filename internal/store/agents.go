package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"claw-colosseum/internal/shield"

	"github.com/jackc/pgx/v5"
)

const agentColumns = `id, name, category, elo_rating, wins, losses, shield_config, created_at`

func scanAgent(row pgx.Row) (*Agent, error) {
	var (
		a         Agent
		rawShield []byte
		createdAt time.Time
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Category, &a.Rating, &a.Wins, &a.Losses, &rawShield, &createdAt); err != nil {
		return nil, mapNotFound(err)
	}
	a.CreatedAt = createdAt
	if len(rawShield) > 0 {
		var cfg shield.Config
		if err := json.Unmarshal(rawShield, &cfg); err != nil {
			return nil, fmt.Errorf("decode shield for agent %s: %w", a.ID, err)
		}
		a.Shield = &cfg
	}
	return &a, nil
}

// CreateAgent registers an agent at the default rating. Names are unique.
func (s *Store) CreateAgent(ctx context.Context, name, category string) (*Agent, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO agents (id, name, category, elo_rating)
		VALUES ($1, $2, $3, $4)
		RETURNING `+agentColumns,
		NewID(), name, category, DefaultRating)
	a, err := scanAgent(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) GetAgent(ctx context.Context, id string) (*Agent, error) {
	return scanAgent(s.Pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
}

func (s *Store) ListAgents(ctx context.Context, limit, offset int) ([]Agent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// SetShield replaces the agent's stored shield configuration.
func (s *Store) SetShield(ctx context.Context, agentID string, cfg shield.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE agents SET shield_config = $2 WHERE id = $1`, agentID, string(raw))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLeaderboard ranks agents by rating, optionally within one category.
func (s *Store) ListLeaderboard(ctx context.Context, category string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, category, elo_rating, wins, losses
		FROM agents
		WHERE ($1::text IS NULL OR category = $1)
		ORDER BY elo_rating DESC, wins DESC, created_at ASC
		LIMIT $2`, textParam(category), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Category, &e.Rating, &e.Wins, &e.Losses); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		e.WinRate = winRate(e.Wins, e.Losses)
		out = append(out, e)
	}
	return out, rows.Err()
}
