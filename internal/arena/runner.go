// Package arena plays paired matches end to end: it loads the agents, drives
// the engine with pacing, writes the ledger artifact and records the result.
package arena

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"sync"
	"time"

	"claw-colosseum/internal/game"
	"claw-colosseum/internal/game/viewmodel"
	"claw-colosseum/internal/ledger"
	"claw-colosseum/internal/matchmaking"
	"claw-colosseum/internal/shield"
	"claw-colosseum/internal/store"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ReasonAgentMissing   = "agent_missing"
	ReasonStoreError     = "store_error"
	ReasonEngineError    = "engine_error"
	ReasonArtifactError  = "artifact_error"
	ReasonCanceled       = "canceled"
	failureWriteDeadline = 5 * time.Second
)

var tracer = otel.Tracer("claw-colosseum/arena")

// Store is what the runner needs from persistence.
type Store interface {
	GetAgent(ctx context.Context, id string) (*store.Agent, error)
	MarkMatchInProgress(ctx context.Context, matchID string) error
	CompleteMatch(ctx context.Context, res store.MatchResult) error
	FailMatch(ctx context.Context, matchID, reason string) error
}

type Config struct {
	MoltDir       string
	PreMatchDelay time.Duration
	PhaseDelay    time.Duration
}

type Runner struct {
	cfg      Config
	store    Store
	executor game.Executor
	out      Broadcaster

	mu  sync.Mutex
	rng *rand.Rand

	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(cfg Config, st Store, exec game.Executor, out ...Broadcaster) *Runner {
	if exec == nil {
		exec = game.NewSimulatedExecutor(nil)
	}
	return &Runner{
		cfg:      cfg,
		store:    st,
		executor: exec,
		out:      Broadcasters(out),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    sleepCtx,
	}
}

// stageError carries the failure reason recorded on the match.
type stageError struct {
	reason string
	err    error
}

func (e *stageError) Error() string { return e.reason + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func fail(reason string, err error) error { return &stageError{reason: reason, err: err} }

// Run plays one job. It matches matchmaking.JobHandler. Any failure marks
// the match FAILED and is announced before the error is returned.
func (r *Runner) Run(ctx context.Context, job matchmaking.Job) error {
	ctx, span := tracer.Start(ctx, "match")
	span.SetAttributes(
		attribute.String("match.id", job.MatchID),
		attribute.String("match.agent_a", job.A.AgentID),
		attribute.String("match.agent_b", job.B.AgentID),
	)
	defer span.End()

	start := time.Now()
	metricMatchesRunning.Add(1)
	defer metricMatchesRunning.Add(-1)

	err := r.play(ctx, job)
	metricLastMatchMS.Set(time.Since(start).Milliseconds())
	if err == nil {
		metricMatchesCompleted.Add(1)
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metricMatchesFailed.Add(1)
	reason := ReasonEngineError
	var se *stageError
	if errors.As(err, &se) {
		reason = se.reason
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = ReasonCanceled
	}
	r.markFailed(ctx, job.MatchID, reason)
	return err
}

func (r *Runner) play(ctx context.Context, job matchmaking.Job) error {
	a, err := r.combatant(ctx, job.A.AgentID)
	if err != nil {
		return err
	}
	b, err := r.combatant(ctx, job.B.AgentID)
	if err != nil {
		return err
	}

	if err := r.store.MarkMatchInProgress(ctx, job.MatchID); err != nil {
		return fail(ReasonStoreError, fmt.Errorf("mark in progress: %w", err))
	}
	metricMatchesStarted.Add(1)
	pa := ledger.Participant{ID: a.AgentID, Name: a.Name, Category: a.Category}
	pb := ledger.Participant{ID: b.AgentID, Name: b.Name, Category: b.Category}
	r.out.MatchStarted(job.MatchID, pa, pb)
	log.Info().
		Str("match_id", job.MatchID).
		Str("agent_a_id", a.AgentID).
		Str("agent_b_id", b.AgentID).
		Float64("attack_a", a.AttackPower).
		Float64("attack_b", b.AttackPower).
		Msg("match started")

	eng, err := game.NewEngine(job.MatchID, a, b, shield.NewSimulator(r.newRand()), r.executor)
	if err != nil {
		return fail(ReasonEngineError, err)
	}

	var current game.Stage
	for em, err := range eng.Emissions(ctx) {
		if err != nil {
			return fail(ReasonEngineError, err)
		}
		if em.Stage != current {
			if current != "" {
				if err := r.sleep(ctx, r.delayAfter(current)); err != nil {
					return err
				}
			}
			current = em.Stage
			log.Debug().Str("match_id", job.MatchID).Str("phase", string(current)).Msg("stage")
		}
		switch {
		case em.Metrics != nil:
			r.out.MatchMetrics(*em.Metrics)
		case em.Event != nil:
			r.out.MatchEvent(job.MatchID, *em.Event)
		}
	}

	res := eng.Result()
	if res == nil || res.Artifact == nil {
		return fail(ReasonEngineError, errors.New("match ended without a result"))
	}
	path, err := ledger.WriteArtifact(r.cfg.MoltDir, res.Artifact)
	if err != nil {
		return fail(ReasonArtifactError, err)
	}
	if err := r.store.CompleteMatch(ctx, store.MatchResult{
		MatchID:      job.MatchID,
		Scores:       res.Scores,
		WinnerID:     res.Winner,
		MoltFilePath: path,
	}); err != nil {
		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			log.Error().Err(rerr).Str("match_id", job.MatchID).Str("molt_path", path).Msg("remove orphaned artifact")
		}
		return fail(ReasonStoreError, fmt.Errorf("complete match: %w", err))
	}

	end := viewmodel.MatchEnd{
		MatchID:   job.MatchID,
		Winner:    res.Winner,
		IsDraw:    res.Winner == nil,
		Scores:    res.Scores,
		MoltFile:  ledger.FileName(job.MatchID),
		Signature: res.Artifact.Signature,
	}
	if res.Winner != nil {
		end.WinnerName = pa.Name
		if *res.Winner == pb.ID {
			end.WinnerName = pb.Name
		}
	}
	r.out.MatchEnded(end)
	log.Info().
		Str("match_id", job.MatchID).
		Str("winner", end.WinnerName).
		Bool("draw", end.IsDraw).
		Str("molt_path", path).
		Msg("match completed")
	return nil
}

// combatant loads an agent and arms it. Agents without a stored shield get a
// fresh AES-256 one.
func (r *Runner) combatant(ctx context.Context, agentID string) (*game.Combatant, error) {
	agent, err := r.store.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fail(ReasonAgentMissing, fmt.Errorf("agent %s: %w", agentID, err))
		}
		return nil, fail(ReasonStoreError, fmt.Errorf("load agent %s: %w", agentID, err))
	}
	var sh shield.Config
	if agent.Shield != nil {
		sh = *agent.Shield
	} else if sh, err = shield.Create(shield.ProtocolAES256); err != nil {
		return nil, fail(ReasonEngineError, err)
	}
	r.mu.Lock()
	power := game.BaseAttackPower + r.rng.Float64()*game.AttackPowerRange
	r.mu.Unlock()
	return game.NewCombatant(agent.ID, agent.Name, agent.Category, sh, power), nil
}

func (r *Runner) newRand() *rand.Rand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rand.New(rand.NewSource(r.rng.Int63()))
}

func (r *Runner) delayAfter(stage game.Stage) time.Duration {
	if stage == game.StagePreMatch {
		return r.cfg.PreMatchDelay
	}
	return r.cfg.PhaseDelay
}

// markFailed records the failure even when ctx is already canceled.
func (r *Runner) markFailed(ctx context.Context, matchID, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteDeadline)
	defer cancel()
	if err := r.store.FailMatch(ctx, matchID, reason); err != nil && !errors.Is(err, store.ErrInvalidTransition) {
		log.Error().Err(err).Str("match_id", matchID).Msg("mark match failed")
	}
	r.out.MatchFailed(matchID, reason)
	log.Warn().Str("match_id", matchID).Str("reason", reason).Msg("match failed")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
