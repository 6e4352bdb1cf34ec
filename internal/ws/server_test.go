package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	appqueue "claw-colosseum/internal/app/queue"
	"claw-colosseum/internal/game/viewmodel"
	"claw-colosseum/internal/ledger"
	"claw-colosseum/internal/matchmaking"
	"claw-colosseum/internal/spectatorgateway"
	"claw-colosseum/internal/store"
)

type agentStore map[string]*store.Agent

func (s agentStore) GetAgent(_ context.Context, id string) (*store.Agent, error) {
	a, ok := s[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

type testEnv struct {
	pool *matchmaking.Scheduler
	hub  *spectatorgateway.Hub
	srv  *Server
	http *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	agents := agentStore{
		"a": {ID: "a", Name: "vex", Category: "crypto", Rating: 1200},
		"b": {ID: "b", Name: "kor", Category: "crypto", Rating: 1210},
	}
	env := &testEnv{
		pool: matchmaking.NewScheduler(matchmaking.DefaultConfig(), nil, nil),
		hub:  spectatorgateway.NewHub(),
	}
	env.srv = NewServer(appqueue.NewService(agents, env.pool, nil), env.hub)
	env.http = httptest.NewServer(env.srv)
	t.Cleanup(env.http.Close)
	return env
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// expect reads until a message of the wanted type arrives.
func expect(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg["type"] == want {
			return msg
		}
	}
}

func TestQueueJoinStatusLeave(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: TypeQueueJoin, AgentID: "a"})
	expect(t, conn, matchmaking.EventQueueJoined)
	ticket := expect(t, conn, TypeQueueStatus)
	if data, _ := ticket["data"].(map[string]any); data["position"] != float64(1) {
		t.Fatalf("ticket=%v", ticket)
	}

	send(t, conn, ClientMessage{Type: TypeQueueStatus})
	status := expect(t, conn, TypeQueueStatus)
	if data, _ := status["data"].(map[string]any); data["total"] != float64(1) {
		t.Fatalf("status=%v", status)
	}

	send(t, conn, ClientMessage{Type: TypeQueueLeave})
	expect(t, conn, matchmaking.EventQueueLeft)
	if env.pool.Len() != 0 {
		t.Fatalf("pool len=%d, want 0", env.pool.Len())
	}
}

func TestJoinUnknownAgentReportsError(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: TypeQueueJoin, AgentID: "ghost"})
	msg := expect(t, conn, TypeError)
	if data, _ := msg["data"].(map[string]any); data["code"] != "agent_not_found" {
		t.Fatalf("error=%v", msg)
	}
}

func TestDisconnectDequeues(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: TypeQueueJoin, AgentID: "a"})
	expect(t, conn, TypeQueueStatus)
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.pool.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("agent still queued after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSpectatorReceivesMatchEvents(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: TypeSpectateJoin, MatchID: "m1"})
	send(t, conn, ClientMessage{Type: TypePing})
	expect(t, conn, TypePong)

	env.hub.MatchStarted("m1", ledger.Participant{ID: "a", Name: "vex"}, ledger.Participant{ID: "b", Name: "kor"})
	start := expect(t, conn, spectatorgateway.EventMatchStart)
	if id, _ := start["event_id"].(string); id == "" {
		t.Fatalf("match:start without event id: %v", start)
	}
	env.hub.MatchEnded(viewmodel.MatchEnd{MatchID: "m1", IsDraw: true})
	expect(t, conn, spectatorgateway.EventMatchEnd)
}

func TestMatchFoundSubscribesParticipant(t *testing.T) {
	env := newTestEnv(t)
	c := &Client{srv: env.srv, out: make(chan []byte, 8), subs: map[string]func(){}}
	c.Notify(matchmaking.EventMatchFound, map[string]any{"matchId": "m9", "opponent": "kor"})
	c.mu.Lock()
	_, following := c.subs["m9"]
	c.mu.Unlock()
	if !following {
		t.Fatal("client did not follow the found match")
	}
	if len(c.out) != 1 {
		t.Fatalf("queued messages=%d, want 1", len(c.out))
	}
}

func TestUnqueuedMatchFailureReleasesFollow(t *testing.T) {
	env := newTestEnv(t)
	c := &Client{srv: env.srv, out: make(chan []byte, 8), subs: map[string]func(){}}
	c.Notify(matchmaking.EventMatchFound, map[string]any{"matchId": "m9", "opponent": "kor"})
	c.Notify(matchmaking.EventMatchFailed, map[string]any{"matchId": "m9", "reason": matchmaking.ReasonQueueUnavailable})

	c.mu.Lock()
	_, following := c.subs["m9"]
	c.mu.Unlock()
	if following {
		t.Fatal("client still follows a match that never started")
	}
	if len(c.out) != 2 {
		t.Fatalf("queued messages=%d, want 2", len(c.out))
	}
}

func TestQueueBroadcast(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	send(t, conn, ClientMessage{Type: TypePing})
	expect(t, conn, TypePong)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.srv.StartQueueBroadcast(ctx, 10*time.Millisecond)

	msg := expect(t, conn, TypeQueueUpdate)
	if data, _ := msg["data"].(map[string]any); data["total"] != float64(0) {
		t.Fatalf("queue:update=%v", msg)
	}
}
