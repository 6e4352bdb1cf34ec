package spectatorpush

import (
	"context"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"time"

	"claw-colosseum/internal/game"
	"claw-colosseum/internal/game/viewmodel"
	"claw-colosseum/internal/ledger"
	"claw-colosseum/internal/spectatorpush/platforms"

	"github.com/rs/zerolog/log"
)

type matchState struct {
	a, b  Side
	stage game.Stage
}

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// Manager turns runner callbacks into webhook posts. Callbacks never block:
// a full dispatch shard drops the announcement.
type Manager struct {
	cfg      Config
	adapters map[string]platforms.Adapter
	now      func() time.Time

	shards []chan pushJob
	retryQ *retryQueue
	done   chan struct{}

	mu           sync.Mutex
	started      bool
	matches      map[string]*matchState
	breakerByKey map[string]breakerState
}

func NewManager(cfg Config) *Manager {
	client := platforms.NewHTTPClient(cfg.RequestTimeout)
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}
	if cfg.ConfigReload <= 0 {
		cfg.ConfigReload = time.Second
	}

	m := &Manager{
		cfg: cfg,
		adapters: map[string]platforms.Adapter{
			"discord": platforms.NewDiscordAdapter(client),
			"feishu":  platforms.NewFeishuAdapter(client),
		},
		now:          time.Now,
		shards:       make([]chan pushJob, cfg.Workers),
		done:         make(chan struct{}),
		matches:      map[string]*matchState{},
		breakerByKey: map[string]breakerState{},
	}
	for i := range m.shards {
		m.shards[i] = make(chan pushJob, cfg.DispatchBuffer)
	}
	m.retryQ = newRetryQueue(m.dispatch, m.done)
	return m
}

// Start launches one worker per shard. It is a no-op when pushing is
// disabled or already started.
func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		return
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for _, shard := range m.shards {
		go m.worker(ctx, shard)
	}
	if m.cfg.ConfigPath != "" {
		go m.watchConfigLoop(ctx)
	}
	go func() {
		<-ctx.Done()
		close(m.done)
	}()
	log.Info().Int("targets", len(m.currentTargets())).Int("workers", len(m.shards)).Msg("spectator push started")
}

func (m *Manager) MatchStarted(matchID string, a, b ledger.Participant) {
	if !m.cfg.Enabled {
		return
	}
	st := &matchState{a: side(a), b: side(b), stage: game.StagePreMatch}
	m.mu.Lock()
	m.matches[matchID] = st
	m.mu.Unlock()
	m.announce(Announcement{EventType: EventMatchStart, MatchID: matchID, AgentA: st.a, AgentB: st.b})
}

// MatchMetrics announces each stage change once. Vitals updates within a
// stage are not pushed.
func (m *Manager) MatchMetrics(metrics game.Metrics) {
	if !m.cfg.Enabled {
		return
	}
	m.mu.Lock()
	st := m.matches[metrics.MatchID]
	if st == nil || st.stage == metrics.Stage {
		m.mu.Unlock()
		return
	}
	st.stage = metrics.Stage
	a, b := st.a, st.b
	m.mu.Unlock()

	switch metrics.Stage {
	case game.StagePreMatch, game.StageDone, game.StageFailed:
		return
	}
	m.announce(Announcement{
		EventType: EventMatchRound,
		MatchID:   metrics.MatchID,
		AgentA:    a,
		AgentB:    b,
		Round:     string(metrics.Stage),
	})
}

func (m *Manager) MatchEvent(string, ledger.Event) {}

func (m *Manager) MatchEnded(end viewmodel.MatchEnd) {
	if !m.cfg.Enabled {
		return
	}
	a, b := m.forget(end.MatchID)
	for _, s := range end.Scores {
		total := s.Total
		switch s.AgentID {
		case a.ID:
			a.Total = &total
		case b.ID:
			b.Total = &total
		}
	}
	m.announce(Announcement{
		EventType: EventMatchEnd,
		MatchID:   end.MatchID,
		AgentA:    a,
		AgentB:    b,
		Winner:    end.WinnerName,
		IsDraw:    end.IsDraw,
		Signature: end.Signature,
	})
}

func (m *Manager) MatchFailed(matchID, reason string) {
	if !m.cfg.Enabled {
		return
	}
	a, b := m.forget(matchID)
	m.announce(Announcement{EventType: EventMatchFailed, MatchID: matchID, AgentA: a, AgentB: b, Reason: reason})
}

func (m *Manager) forget(matchID string) (Side, Side) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.matches[matchID]
	delete(m.matches, matchID)
	if st == nil {
		return Side{}, Side{}
	}
	return st.a, st.b
}

func (m *Manager) announce(ann Announcement) {
	if ann.ServerTS == 0 {
		ann.ServerTS = m.now().UnixMilli()
	}
	targets := MatchTargets(m.currentTargets(), ann)
	if len(targets) == 0 {
		return
	}
	formatted, ok := FormatMessage(ann)
	if !ok {
		return
	}
	for _, t := range targets {
		if !m.dispatch(pushJob{Target: t, Formatted: formatted, Terminal: ann.terminal()}) {
			metricPushDroppedTotal.Add(1)
		}
	}
}

// dispatch routes a job to the shard owning its target and panel, so edits
// of one panel are sent in order.
func (m *Manager) dispatch(job pushJob) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(job.key() + "|" + job.Formatted.PanelKey))
	shard := m.shards[int(h.Sum32()%uint32(len(m.shards)))]
	select {
	case <-m.done:
		return false
	case shard <- job:
		metricPushQueuedTotal.Add(1)
		return true
	default:
		return false
	}
}

func (m *Manager) currentTargets() []PushTarget {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PushTarget, len(m.cfg.Targets))
	copy(out, m.cfg.Targets)
	return out
}

func (m *Manager) watchConfigLoop(ctx context.Context) {
	lastRaw := ""
	if raw, err := os.ReadFile(m.cfg.ConfigPath); err == nil {
		lastRaw = strings.TrimSpace(string(raw))
	}
	ticker := time.NewTicker(m.cfg.ConfigReload)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			raw, err := os.ReadFile(m.cfg.ConfigPath)
			if err != nil {
				metricPushConfigReloadError.Add(1)
				continue
			}
			next := strings.TrimSpace(string(raw))
			if next == lastRaw {
				continue
			}
			targets, err := parseTargetsJSON(next)
			if err != nil {
				metricPushConfigReloadError.Add(1)
				log.Warn().Err(err).Str("path", m.cfg.ConfigPath).Msg("spectator push config rejected")
				continue
			}
			m.mu.Lock()
			m.cfg.Targets = targets
			m.mu.Unlock()
			lastRaw = next
			metricPushConfigReloadTotal.Add(1)
			log.Info().Int("targets", len(targets)).Msg("spectator push config reloaded")
		}
	}
}

func side(p ledger.Participant) Side {
	return Side{ID: p.ID, Name: p.Name, Category: p.Category}
}
