// Package spectatorgateway fans live match activity out to spectators.
package spectatorgateway

import (
	"sync"

	"claw-colosseum/internal/agentgateway/stream"
	"claw-colosseum/internal/game"
	"claw-colosseum/internal/game/viewmodel"
	"claw-colosseum/internal/ledger"
)

const (
	EventMatchStart   = "match:start"
	EventMatchMetrics = "match:metrics"
	EventMatchEvent   = "match:event"
	EventMatchEnd     = "match:end"
	EventMatchFailed  = "match:failed"
)

type topic struct {
	buf     *stream.EventBuffer
	a, b    ledger.Participant
	live    *viewmodel.MatchView
	running bool
}

// Hub keeps one topic per match. Topics hold no backlog: a spectator sees
// what happens after it subscribes, plus the last metrics snapshot through
// LiveState.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
}

func NewHub() *Hub {
	return &Hub{topics: map[string]*topic{}}
}

func (h *Hub) topicLocked(matchID string) *topic {
	t := h.topics[matchID]
	if t == nil {
		t = &topic{buf: stream.NewLiveBuffer()}
		h.topics[matchID] = t
	}
	return t
}

func (h *Hub) acquire(matchID string) *stream.EventBuffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.topicLocked(matchID).buf
}

// release drops an idle topic that a spectator opened before the match began.
func (h *Hub) release(matchID string, buf *stream.EventBuffer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topics[matchID]
	if t == nil || t.buf != buf || t.running || buf.Watchers() > 0 {
		return
	}
	delete(h.topics, matchID)
}

// Subscribe follows a match until cancel is called or the match ends, at
// which point the channel is closed.
func (h *Hub) Subscribe(matchID string) (<-chan stream.StreamEvent, func()) {
	buf := h.acquire(matchID)
	ch := buf.Subscribe()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			buf.Unsubscribe(ch)
			h.release(matchID, buf)
		})
	}
}

// LiveState is the latest snapshot of a running match.
func (h *Hub) LiveState(matchID string) (viewmodel.MatchView, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := h.topics[matchID]
	if t == nil || t.live == nil {
		return viewmodel.MatchView{}, false
	}
	return *t.live, true
}

func (h *Hub) MatchStarted(matchID string, a, b ledger.Participant) {
	h.mu.Lock()
	t := h.topicLocked(matchID)
	if !t.running {
		metricLiveMatches.Add(1)
	}
	t.a, t.b, t.running = a, b, true
	h.mu.Unlock()
	t.buf.Append(EventMatchStart, matchID, map[string]any{"matchId": matchID, "agentA": a, "agentB": b})
}

func (h *Hub) MatchMetrics(m game.Metrics) {
	h.mu.Lock()
	t := h.topics[m.MatchID]
	if t == nil {
		h.mu.Unlock()
		return
	}
	view := viewmodel.BuildMatchView(m, t.a, t.b)
	t.live = &view
	h.mu.Unlock()
	t.buf.Append(EventMatchMetrics, m.MatchID, view)
}

func (h *Hub) MatchEvent(matchID string, evt ledger.Event) {
	h.publish(matchID, EventMatchEvent, evt)
}

func (h *Hub) MatchEnded(end viewmodel.MatchEnd) {
	h.finish(end.MatchID, EventMatchEnd, end)
}

func (h *Hub) MatchFailed(matchID, reason string) {
	h.finish(matchID, EventMatchFailed, map[string]any{"matchId": matchID, "reason": reason})
}

func (h *Hub) publish(matchID, event string, data any) {
	h.mu.Lock()
	t := h.topics[matchID]
	h.mu.Unlock()
	if t != nil {
		t.buf.Append(event, matchID, data)
	}
}

// finish publishes the closing event and tears the topic down, which ends
// every open stream for the match.
func (h *Hub) finish(matchID, event string, data any) {
	h.mu.Lock()
	t := h.topics[matchID]
	delete(h.topics, matchID)
	h.mu.Unlock()
	if t == nil {
		return
	}
	if t.running {
		metricLiveMatches.Add(-1)
	}
	t.buf.Append(event, matchID, data)
	t.buf.Close()
}
