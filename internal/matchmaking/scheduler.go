// Package matchmaking owns the waiting pool and pairs agents into matches.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	EventQueueJoined = "queue:joined"
	EventQueueLeft   = "queue:left"
	EventMatchFound  = "match:found"
	EventMatchFailed = "match:failed"

	ReasonQueueUnavailable = "queue_unavailable"
)

var ErrInvalidEntrant = errors.New("invalid_entrant")

// Notifier is the connection handle of a queued agent.
type Notifier interface {
	Notify(event string, payload any)
}

// MatchStore persists freshly paired matches.
type MatchStore interface {
	CreateMatch(ctx context.Context, matchID, agentAID, agentBID string) error
	FailMatch(ctx context.Context, matchID, reason string) error
}

// JobSubmitter hands a paired match to whoever runs it.
type JobSubmitter interface {
	Submit(ctx context.Context, job Job) error
}

type Entrant struct {
	AgentID     string `json:"agentId"`
	DisplayName string `json:"name"`
	Category    string `json:"category"`
	Rating      int    `json:"rating"`
}

type Job struct {
	MatchID  string    `json:"matchId"`
	A        Entrant   `json:"agentA"`
	B        Entrant   `json:"agentB"`
	Forced   bool      `json:"forced"`
	PairedAt time.Time `json:"pairedAt"`
}

type Ticket struct {
	AgentID              string `json:"agentId"`
	Position             int    `json:"position"`
	EstimatedWaitSeconds int    `json:"estimatedWait"`
	AlreadyQueued        bool   `json:"alreadyQueued"`
}

type StatusEntry struct {
	AgentID  string `json:"agentId"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Position int    `json:"position"`
}

type Status struct {
	TotalWaiting int           `json:"total"`
	Agents       []StatusEntry `json:"agents"`
}

type waitingAgent struct {
	Entrant
	queuedAt time.Time
	conn     Notifier
}

// Scheduler is the only owner of the waiting pool. All access goes through
// its methods; the pool itself is never handed out.
type Scheduler struct {
	cfg     Config
	matches MatchStore
	jobs    JobSubmitter

	now        func() time.Time
	newMatchID func() string

	mu   sync.Mutex
	pool []*waitingAgent
}

func NewScheduler(cfg Config, matches MatchStore, jobs JobSubmitter) *Scheduler {
	return &Scheduler{
		cfg:        cfg.withDefaults(),
		matches:    matches,
		jobs:       jobs,
		now:        time.Now,
		newMatchID: uuid.NewString,
	}
}

// Enqueue adds an agent to the pool. An agent already waiting keeps its spot
// and gets its current position back.
func (s *Scheduler) Enqueue(e Entrant, conn Notifier) (Ticket, error) {
	if e.AgentID == "" {
		return Ticket{}, ErrInvalidEntrant
	}
	s.mu.Lock()
	if idx := s.indexLocked(e.AgentID); idx >= 0 {
		s.mu.Unlock()
		return newTicket(e.AgentID, idx+1, true), nil
	}
	s.pool = append(s.pool, &waitingAgent{Entrant: e, queuedAt: s.now(), conn: conn})
	position := len(s.pool)
	metricQueueWaiting.Set(int64(position))
	s.mu.Unlock()

	metricQueueJoinsTotal.Add(1)
	notify(conn, EventQueueJoined, map[string]any{"position": position, "agentId": e.AgentID})
	log.Info().Str("agent_id", e.AgentID).Str("category", e.Category).Int("position", position).Msg("agent joined queue")
	return newTicket(e.AgentID, position, false), nil
}

func newTicket(agentID string, position int, already bool) Ticket {
	wait := (position - 1) * 5
	if wait < 5 {
		wait = 5
	}
	return Ticket{AgentID: agentID, Position: position, EstimatedWaitSeconds: wait, AlreadyQueued: already}
}

// Dequeue removes the agent if present and reports whether it was.
func (s *Scheduler) Dequeue(agentID string) bool {
	s.mu.Lock()
	idx := s.indexLocked(agentID)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	w := s.pool[idx]
	s.pool = append(s.pool[:idx], s.pool[idx+1:]...)
	metricQueueWaiting.Set(int64(len(s.pool)))
	s.mu.Unlock()

	metricQueueLeavesTotal.Add(1)
	notify(w.conn, EventQueueLeft, map[string]any{"agentId": agentID})
	log.Info().Str("agent_id", agentID).Msg("agent left queue")
	return true
}

// Position returns the 1-based queue position of agentID.
func (s *Scheduler) Position(agentID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(agentID)
	return idx + 1, idx >= 0
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pool)
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Status{TotalWaiting: len(s.pool), Agents: make([]StatusEntry, 0, len(s.pool))}
	for i, w := range s.pool {
		out.Agents = append(out.Agents, StatusEntry{
			AgentID:  w.AgentID,
			Name:     w.DisplayName,
			Category: w.Category,
			Position: i + 1,
		})
	}
	return out
}

func (s *Scheduler) indexLocked(agentID string) int {
	for i, w := range s.pool {
		if w.AgentID == agentID {
			return i
		}
	}
	return -1
}

// Tick runs one pairing pass and creates at most one match.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	s.mu.Lock()
	if len(s.pool) < 2 {
		s.mu.Unlock()
		return nil
	}
	ordered := append([]*waitingAgent(nil), s.pool...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].queuedAt.Before(ordered[j].queuedAt) })
	pick, ok := selectPair(ordered, now, s.cfg)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	a, b := ordered[pick.anchor], ordered[pick.opponent]
	s.removeLocked(a.AgentID)
	s.removeLocked(b.AgentID)
	metricQueueWaiting.Set(int64(len(s.pool)))
	s.mu.Unlock()

	job := Job{MatchID: s.newMatchID(), A: a.Entrant, B: b.Entrant, Forced: pick.forced, PairedAt: now}
	if err := s.matches.CreateMatch(ctx, job.MatchID, a.AgentID, b.AgentID); err != nil {
		s.restore(a, b)
		return fmt.Errorf("create match %s: %w", job.MatchID, err)
	}

	metricPairingsTotal.Add(1)
	if pick.forced {
		metricForcedPairingsTotal.Add(1)
	}
	notify(a.conn, EventMatchFound, map[string]any{"matchId": job.MatchID, "opponent": b.DisplayName})
	notify(b.conn, EventMatchFound, map[string]any{"matchId": job.MatchID, "opponent": a.DisplayName})

	if err := s.jobs.Submit(ctx, job); err != nil {
		metricJobsFailedTotal.Add(1)
		if ferr := s.matches.FailMatch(ctx, job.MatchID, ReasonQueueUnavailable); ferr != nil {
			log.Error().Err(ferr).Str("match_id", job.MatchID).Msg("mark unqueued match failed")
		}
		failed := map[string]any{"matchId": job.MatchID, "reason": ReasonQueueUnavailable}
		notify(a.conn, EventMatchFailed, failed)
		notify(b.conn, EventMatchFailed, failed)
		return fmt.Errorf("submit match %s: %w", job.MatchID, err)
	}
	log.Info().
		Str("match_id", job.MatchID).
		Str("agent_a_id", a.AgentID).
		Str("agent_b_id", b.AgentID).
		Bool("forced", pick.forced).
		Msg("match created")
	return nil
}

func (s *Scheduler) removeLocked(agentID string) {
	if idx := s.indexLocked(agentID); idx >= 0 {
		s.pool = append(s.pool[:idx], s.pool[idx+1:]...)
	}
}

// restore puts a pair back after a failed match creation, keeping their
// original queue times. Agents that re-joined meanwhile are left alone.
func (s *Scheduler) restore(agents ...*waitingAgent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range agents {
		if s.indexLocked(w.AgentID) >= 0 {
			continue
		}
		s.pool = append(s.pool, w)
	}
	sort.SliceStable(s.pool, func(i, j int) bool { return s.pool[i].queuedAt.Before(s.pool[j].queuedAt) })
	metricQueueWaiting.Set(int64(len(s.pool)))
}

// Start ticks on the configured interval until ctx is done. Tick errors and
// panics are logged and the loop keeps going.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.safeTick(ctx)
			}
		}
	}()
}

func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metricTickErrorsTotal.Add(1)
			log.Error().Interface("panic", r).Msg("matchmaking tick panicked")
		}
	}()
	if err := s.Tick(ctx); err != nil {
		metricTickErrorsTotal.Add(1)
		log.Error().Err(err).Msg("matchmaking tick failed")
	}
}

func notify(conn Notifier, event string, payload any) {
	if conn == nil {
		return
	}
	conn.Notify(event, payload)
}
