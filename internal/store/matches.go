package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const matchSelect = `
	SELECT m.id, m.agent_a_id, m.agent_b_id, a.name, b.name, m.status,
	       m.winner_id, w.name, m.scores, m.molt_file_path, m.failure_reason,
	       m.created_at, m.started_at, m.ended_at
	FROM matches m
	JOIN agents a ON a.id = m.agent_a_id
	JOIN agents b ON b.id = m.agent_b_id
	LEFT JOIN agents w ON w.id = m.winner_id`

func scanMatch(row pgx.Row) (*Match, error) {
	var (
		m          Match
		status     string
		winnerID   pgtype.Text
		winnerName pgtype.Text
		rawScores  []byte
		moltPath   pgtype.Text
		reason     pgtype.Text
		createdAt  pgtype.Timestamptz
		startedAt  pgtype.Timestamptz
		endedAt    pgtype.Timestamptz
	)
	if err := row.Scan(&m.ID, &m.AgentAID, &m.AgentBID, &m.AgentAName, &m.AgentBName, &status,
		&winnerID, &winnerName, &rawScores, &moltPath, &reason,
		&createdAt, &startedAt, &endedAt); err != nil {
		return nil, mapNotFound(err)
	}
	m.Status = MatchStatus(status)
	m.WinnerID = textPtrVal(winnerID)
	m.WinnerName = textPtrVal(winnerName)
	m.MoltFilePath = textVal(moltPath)
	m.FailureReason = textVal(reason)
	m.CreatedAt = createdAt.Time
	m.StartedAt = timePtrVal(startedAt)
	m.EndedAt = timePtrVal(endedAt)
	if len(rawScores) > 0 {
		if err := json.Unmarshal(rawScores, &m.Scores); err != nil {
			return nil, fmt.Errorf("decode scores for match %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

// CreateMatch records a freshly paired match as PENDING.
func (s *Store) CreateMatch(ctx context.Context, matchID, agentAID, agentBID string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO matches (id, agent_a_id, agent_b_id, status)
		VALUES ($1, $2, $3, $4)`, matchID, agentAID, agentBID, string(MatchPending))
	return err
}

func (s *Store) GetMatch(ctx context.Context, matchID string) (*Match, error) {
	return scanMatch(s.Pool.QueryRow(ctx, matchSelect+` WHERE m.id = $1`, matchID))
}

// ListMatches returns the most recent matches, newest first, optionally
// filtered by status.
func (s *Store) ListMatches(ctx context.Context, status MatchStatus, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, matchSelect+`
		WHERE ($1::text IS NULL OR m.status = $1)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2`, textParam(string(status)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// ListAgentMatches returns the agent's most recent matches on either side.
func (s *Store) ListAgentMatches(ctx context.Context, agentID string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.Pool.Query(ctx, matchSelect+`
		WHERE m.agent_a_id = $1 OR m.agent_b_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// MarkMatchInProgress moves a PENDING match to IN_PROGRESS.
func (s *Store) MarkMatchInProgress(ctx context.Context, matchID string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE matches SET status = $2, started_at = now()
		WHERE id = $1 AND status = $3`,
		matchID, string(MatchInProgress), string(MatchPending))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.transitionMiss(ctx, s.Pool, matchID)
	}
	return nil
}

// CompleteMatch stores the final scores, winner and artifact path, and
// applies the rating change in the same transaction.
func (s *Store) CompleteMatch(ctx context.Context, res MatchResult) error {
	rawScores, err := json.Marshal(res.Scores)
	if err != nil {
		return err
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var agentA, agentB string
	err = tx.QueryRow(ctx, `
		UPDATE matches
		SET status = $2, winner_id = $3, scores = $4, molt_file_path = $5, ended_at = now()
		WHERE id = $1 AND status = $6
		RETURNING agent_a_id, agent_b_id`,
		res.MatchID, string(MatchCompleted), res.WinnerID, string(rawScores), textParam(res.MoltFilePath),
		string(MatchInProgress)).Scan(&agentA, &agentB)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.transitionMiss(ctx, tx, res.MatchID)
		}
		return err
	}
	if res.WinnerID != nil {
		loser := agentA
		if *res.WinnerID == agentA {
			loser = agentB
		}
		if err := applyMatchResult(ctx, tx, *res.WinnerID, loser, RatingK); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// applyMatchResult credits the winner and debits the loser by k rating
// points. Draws never reach here.
func applyMatchResult(ctx context.Context, tx pgx.Tx, winnerID, loserID string, k int) error {
	if _, err := tx.Exec(ctx,
		`UPDATE agents SET wins = wins + 1, elo_rating = elo_rating + $2 WHERE id = $1`, winnerID, k); err != nil {
		return fmt.Errorf("credit winner: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE agents SET losses = losses + 1, elo_rating = elo_rating - $2 WHERE id = $1`, loserID, k); err != nil {
		return fmt.Errorf("debit loser: %w", err)
	}
	return nil
}

// FailMatch marks a PENDING or IN_PROGRESS match FAILED with a reason.
func (s *Store) FailMatch(ctx context.Context, matchID, reason string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE matches SET status = $2, failure_reason = $3, ended_at = now()
		WHERE id = $1 AND status IN ($4, $5)`,
		matchID, string(MatchFailed), textParam(reason), string(MatchPending), string(MatchInProgress))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.transitionMiss(ctx, s.Pool, matchID)
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// transitionMiss tells an unknown match apart from one in the wrong status.
func (s *Store) transitionMiss(ctx context.Context, q querier, matchID string) error {
	var status string
	if err := q.QueryRow(ctx, `SELECT status FROM matches WHERE id = $1`, matchID).Scan(&status); err != nil {
		return mapNotFound(err)
	}
	return fmt.Errorf("%w: match %s is %s", ErrInvalidTransition, matchID, status)
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	out := Stats{Categories: []CategoryCount{}}
	err := s.Pool.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM agents),
		       (SELECT count(*) FROM matches),
		       (SELECT count(*) FROM matches WHERE status = $1)`,
		string(MatchCompleted)).Scan(&out.TotalAgents, &out.TotalMatches, &out.CompletedMatches)
	if err != nil {
		return Stats{}, err
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT category, count(*) FROM agents GROUP BY category ORDER BY count(*) DESC, category`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return Stats{}, err
		}
		out.Categories = append(out.Categories, c)
	}
	return out, rows.Err()
}
