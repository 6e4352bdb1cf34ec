package game

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"claw-colosseum/internal/ledger"
	"claw-colosseum/internal/shield"
)

var (
	ErrMatchFinished    = errors.New("match_finished")
	ErrMatchAborted     = errors.New("match_aborted")
	ErrMissingCombatant = errors.New("missing_combatant")
)

const (
	DefaultSiegeBudget   = 5 * time.Second
	DefaultCounterBudget = 10 * time.Second

	invalidShieldPenalty = 5
	counterHitDamage     = 20.0
	counterMissDamage    = 5.0
	speedBonusBase       = 30.0
	speedBonusPerMS      = 200.0

	encryptionWeight = 0.4
	attackWeight     = 0.3
	speedWeight      = 0.3
)

var tracer = otel.Tracer("claw-colosseum/game")

// Sink receives everything the engine emits, in order. Implementations must
// not block for long; pacing belongs to the caller driving Step.
type Sink interface {
	Metrics(m Metrics)
	Event(evt ledger.Event)
}

type nopSink struct{}

func (nopSink) Metrics(Metrics) {}
func (nopSink) Event(ledger.Event) {}

// Engine runs one match through its fixed stage sequence. Step is synchronous
// and does no pacing, so tests can drive a match stage by stage.
type Engine struct {
	MatchID  string
	A        *Combatant
	B        *Combatant
	Ledger   *ledger.Ledger
	Sim      *shield.Simulator
	Executor Executor
	Sink     Sink

	SiegeBudget   time.Duration
	CounterBudget time.Duration

	stage  Stage
	result *Result
}

func NewEngine(matchID string, a, b *Combatant, sim *shield.Simulator, exec Executor) (*Engine, error) {
	if a == nil || b == nil {
		return nil, ErrMissingCombatant
	}
	if sim == nil {
		sim = shield.NewSimulator(nil)
	}
	if exec == nil {
		exec = NewSimulatedExecutor(nil)
	}
	return &Engine{
		MatchID:       matchID,
		A:             a,
		B:             b,
		Ledger:        ledger.New(matchID, a.participant(), b.participant()),
		Sim:           sim,
		Executor:      exec,
		Sink:          nopSink{},
		SiegeBudget:   DefaultSiegeBudget,
		CounterBudget: DefaultCounterBudget,
		stage:         StagePreMatch,
	}, nil
}

func (e *Engine) Stage() Stage { return e.stage }

// Result is nil until the judgment stage has completed.
func (e *Engine) Result() *Result { return e.result }

// Step executes the current stage and advances to the next one. A failed
// stage leaves the engine in StageFailed; it is never retried.
func (e *Engine) Step(ctx context.Context) error {
	switch e.stage {
	case StageDone:
		return ErrMatchFinished
	case StageFailed:
		return ErrMatchAborted
	}
	if err := ctx.Err(); err != nil {
		e.stage = StageFailed
		return err
	}

	stage := e.stage
	ctx, span := tracer.Start(ctx, "match.stage", trace.WithAttributes(
		attribute.String("match.id", e.MatchID),
		attribute.String("match.stage", string(stage)),
	))
	defer span.End()

	e.publishMetrics(stage)

	var err error
	switch stage {
	case StagePreMatch:
		err = e.preMatch()
	case StageSiegeA:
		err = e.siege(stage, e.A, e.B)
	case StageSiegeB:
		err = e.siege(stage, e.B, e.A)
	case StageCounter:
		err = e.counter(ctx)
	case StageJudgment:
		err = e.judge()
	}
	if err != nil {
		e.stage = StageFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", stage, err)
	}
	metricStagesCompleted.Add(1)
	e.stage = next[stage]
	return nil
}

// Run steps until the match is done, checking ctx between stages.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "match.run", trace.WithAttributes(attribute.String("match.id", e.MatchID)))
	defer span.End()
	for e.stage != StageDone {
		if err := e.Step(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
	return e.result, nil
}

func (e *Engine) sink() Sink {
	if e.Sink == nil {
		return nopSink{}
	}
	return e.Sink
}

func (e *Engine) publishMetrics(stage Stage) {
	e.sink().Metrics(Metrics{
		MatchID: e.MatchID,
		Stage:   stage,
		Round:   stage.Round(),
		AgentA:  e.A.vitals(),
		AgentB:  e.B.vitals(),
	})
}

func (e *Engine) record(round ledger.Round, actor string, action ledger.Action, payload any) error {
	evt, err := e.Ledger.Append(round, actor, action, payload)
	if err != nil {
		return err
	}
	e.sink().Event(evt)
	return nil
}

func (e *Engine) preMatch() error {
	validations := make([]shield.Validation, 2)
	for i, c := range []*Combatant{e.A, e.B} {
		v := shield.Validate(c.Shield)
		validations[i] = v
		if err := e.record(ledger.RoundPreMatch, c.AgentID, ledger.ActionShieldSubmitted, map[string]any{
			"protocol":        c.Shield.Protocol,
			"strength":        v.Strength,
			"valid":           v.Valid,
			"vulnerabilities": v.Vulnerabilities,
		}); err != nil {
			return err
		}
	}
	for i, c := range []*Combatant{e.A, e.B} {
		if v := validations[i]; !v.Valid {
			c.takeDamage(float64(invalidShieldPenalty * len(v.Vulnerabilities)))
		}
	}
	return nil
}

func (e *Engine) siege(stage Stage, attacker, defender *Combatant) error {
	round := stage.Round()
	if err := e.record(round, attacker.AgentID, ledger.ActionRoundStart, map[string]any{
		"attacker": attacker.AgentID,
		"defender": defender.AgentID,
	}); err != nil {
		return err
	}

	out := e.Sim.SimulateBreach(attacker.AttackPower, defender.Shield, e.SiegeBudget)
	defender.takeDamage(out.DamageDealt)
	defender.Integrity = shield.ComputeIntegrity(defender.Shield, out.DamageDealt)
	attacker.addSpeed(SpeedBonus(out.TimeMS))

	if err := e.record(round, attacker.AgentID, ledger.ActionAttackExecuted, map[string]any{
		"target":   defender.AgentID,
		"damage":   out.DamageDealt,
		"breached": out.Breached,
		"attempts": out.Attempts,
		"timeMs":   out.TimeMS,
	}); err != nil {
		return err
	}
	e.publishMetrics(stage)
	return nil
}

// SpeedBonus rewards fast breaches: 30 points at 0ms, nothing past 6s.
func SpeedBonus(timeMS int64) float64 {
	return math.Max(0, speedBonusBase-float64(timeMS)/speedBonusPerMS)
}

func (e *Engine) counter(ctx context.Context) error {
	if err := e.record(ledger.RoundCounter, ledger.ActorSystem, ledger.ActionRoundStart, map[string]any{
		"message": "Both agents attacking simultaneously",
	}); err != nil {
		return err
	}

	budget := e.CounterBudget
	if budget <= 0 {
		budget = DefaultCounterBudget
	}
	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	// Both calls always run to completion; an error only fails its own side.
	var (
		g          errgroup.Group
		hitA, hitB bool
	)
	g.Go(func() error {
		hitA = e.attempt(cctx, e.A, e.B)
		return nil
	})
	g.Go(func() error {
		hitB = e.attempt(cctx, e.B, e.A)
		return nil
	})
	_ = g.Wait()

	toB := counterDamage(hitA)
	toA := counterDamage(hitB)
	e.A.takeDamage(toA)
	e.B.takeDamage(toB)
	e.A.Integrity = clampLow(e.A.Integrity - toA)
	e.B.Integrity = clampLow(e.B.Integrity - toB)

	steps := []struct {
		actor   string
		action  ledger.Action
		payload map[string]any
	}{
		{e.A.AgentID, ledger.ActionAttackExecuted, map[string]any{"target": e.B.AgentID, "damage": toB, "breached": hitA}},
		{e.B.AgentID, ledger.ActionAttackExecuted, map[string]any{"target": e.A.AgentID, "damage": toA, "breached": hitB}},
		{e.A.AgentID, ledger.ActionIntegrityUpdate, map[string]any{"integrity": e.A.Integrity}},
		{e.B.AgentID, ledger.ActionIntegrityUpdate, map[string]any{"integrity": e.B.Integrity}},
	}
	for _, s := range steps {
		if err := e.record(ledger.RoundCounter, s.actor, s.action, s.payload); err != nil {
			return err
		}
	}
	e.publishMetrics(StageCounter)
	return nil
}

func (e *Engine) attempt(ctx context.Context, self, opp *Combatant) bool {
	res, err := e.Executor.Attempt(ctx, AttemptRequest{
		AgentID:          self.AgentID,
		AttackPower:      self.AttackPower,
		OpponentStrength: opp.Shield.Strength,
	})
	if err != nil {
		metricExecutorFailures.Add(1)
		log.Warn().Err(err).Str("match_id", e.MatchID).Str("agent_id", self.AgentID).Msg("counter attempt failed")
		return false
	}
	return res.Success
}

func counterDamage(hit bool) float64 {
	if hit {
		return counterHitDamage
	}
	return counterMissDamage
}

func (e *Engine) judge() error {
	scores, winner := Judge(e.A, e.B)
	if err := e.record(ledger.RoundJudgment, ledger.ActorJudge, ledger.ActionScoresCalculated, map[string]any{
		"agentA": scores[0],
		"agentB": scores[1],
	}); err != nil {
		return err
	}
	if err := e.record(ledger.RoundJudgment, ledger.ActorJudge, ledger.ActionWinnerDeclared, map[string]any{
		"winner": winner,
		"isDraw": winner == nil,
	}); err != nil {
		return err
	}
	art, err := e.Ledger.Export(scores, winner)
	if err != nil {
		return err
	}
	e.result = &Result{Scores: scores, Winner: winner, Artifact: art}
	return nil
}

// Judge scores both combatants. The winner is the strictly higher total; a
// tie returns a nil winner.
func Judge(a, b *Combatant) ([]ledger.Score, *string) {
	sa := score(a, b)
	sb := score(b, a)
	var winner *string
	switch {
	case sa.Total > sb.Total:
		id := a.AgentID
		winner = &id
	case sb.Total > sa.Total:
		id := b.AgentID
		winner = &id
	}
	return []ledger.Score{sa, sb}, winner
}

func score(self, opp *Combatant) ledger.Score {
	s := ledger.Score{
		AgentID:    self.AgentID,
		Encryption: int(math.Round(self.Integrity * encryptionWeight)),
		Attack:     int(math.Round((StartHealth - opp.Health) * attackWeight)),
		Speed:      int(math.Round(self.Speed * speedWeight)),
	}
	s.Total = s.Encryption + s.Attack + s.Speed
	return s
}

// Emission is one item produced while a stage runs: either a metrics
// snapshot or a ledger event.
type Emission struct {
	Stage   Stage
	Metrics *Metrics
	Event   *ledger.Event
}

type collector struct {
	stage Stage
	buf   []Emission
}

func (c *collector) Metrics(m Metrics) {
	c.buf = append(c.buf, Emission{Stage: c.stage, Metrics: &m})
}

func (c *collector) Event(evt ledger.Event) {
	c.buf = append(c.buf, Emission{Stage: c.stage, Event: &evt})
}

// Emissions drives the match lazily. A stage runs only when the consumer asks
// for more, and its emissions are yielded in order exactly once. A failing
// stage yields its partial emissions and then the error. Breaking out of the
// loop parks the engine at the next stage boundary.
func (e *Engine) Emissions(ctx context.Context) iter.Seq2[Emission, error] {
	return func(yield func(Emission, error) bool) {
		prev := e.Sink
		defer func() { e.Sink = prev }()
		for e.stage != StageDone {
			c := &collector{stage: e.stage}
			e.Sink = c
			err := e.Step(ctx)
			for _, em := range c.buf {
				if !yield(em, nil) {
					return
				}
			}
			if err != nil {
				yield(Emission{Stage: c.stage}, err)
				return
			}
		}
	}
}
