package httptransport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"claw-colosseum/internal/agentgateway"
	"claw-colosseum/internal/config"
	"claw-colosseum/internal/ledger"
	"claw-colosseum/internal/matchmaking"
	"claw-colosseum/internal/shield"
	"claw-colosseum/internal/spectatorgateway"
	"claw-colosseum/internal/store"
)

type fakeStore struct {
	agents  map[string]*store.Agent
	matches map[string]*store.Match
	pingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{agents: map[string]*store.Agent{}, matches: map[string]*store.Match{}}
}

func (f *fakeStore) CreateAgent(_ context.Context, name, category string) (*store.Agent, error) {
	for _, a := range f.agents {
		if a.Name == name {
			return nil, store.ErrNameTaken
		}
	}
	a := &store.Agent{ID: "agent-" + name, Name: name, Category: category, Rating: store.DefaultRating}
	f.agents[a.ID] = a
	return a, nil
}

func (f *fakeStore) GetAgent(_ context.Context, id string) (*store.Agent, error) {
	a, ok := f.agents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) SetShield(_ context.Context, id string, cfg shield.Config) error {
	a, ok := f.agents[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Shield = &cfg
	return nil
}

func (f *fakeStore) ListAgentMatches(context.Context, string, int) ([]store.Match, error) {
	return nil, nil
}

func (f *fakeStore) GetMatch(_ context.Context, id string) (*store.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) ListMatches(context.Context, store.MatchStatus, int) ([]store.Match, error) {
	out := []store.Match{}
	for _, m := range f.matches {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeStore) ListLeaderboard(context.Context, string, int) ([]store.LeaderboardEntry, error) {
	return nil, nil
}

func (f *fakeStore) Stats(context.Context) (store.Stats, error) {
	return store.Stats{TotalAgents: len(f.agents)}, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListAgents(context.Context, int, int) ([]store.Agent, error) {
	return nil, nil
}

type testEnv struct {
	store  *fakeStore
	pool   *matchmaking.Scheduler
	inbox  *agentgateway.Inbox
	hub    *spectatorgateway.Hub
	router http.Handler
}

func newTestEnv(t *testing.T, cfg config.ServerConfig) *testEnv {
	t.Helper()
	env := &testEnv{
		store: newFakeStore(),
		pool:  matchmaking.NewScheduler(matchmaking.DefaultConfig(), nil, nil),
		inbox: agentgateway.NewInbox(),
		hub:   spectatorgateway.NewHub(),
	}
	env.router = NewRouter(Deps{Store: env.store, Cfg: cfg, Pool: env.pool, Hub: env.hub, Inbox: env.inbox})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	if w := env.do(t, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
	env.store.pingErr = errors.New("down")
	if w := env.do(t, http.MethodGet, "/healthz", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz with db down status=%d", w.Code)
	}
}

func TestAgentRegisterShieldAndGet(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	w := env.do(t, http.MethodPost, "/api/agents/register", map[string]any{"name": "vex", "category": "crypto"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", w.Code, w.Body.String())
	}
	id, _ := decodeBody(t, w)["id"].(string)

	if w := env.do(t, http.MethodPost, "/api/agents/register", map[string]any{"name": "vex", "category": "crypto"}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register status=%d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/agents/register", map[string]any{"name": "solo"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing category status=%d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/agents/"+id+"/shield", map[string]any{"protocol": "RSA-2048"})
	if w.Code != http.StatusOK {
		t.Fatalf("shield status=%d body=%s", w.Code, w.Body.String())
	}
	shieldResp := decodeBody(t, w)
	if shieldResp["valid"] != false || shieldResp["strength"] != float64(33) {
		t.Fatalf("unexpected shield response: %v", shieldResp)
	}
	if w := env.do(t, http.MethodPost, "/api/agents/"+id+"/shield", map[string]any{"protocol": "DES"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad protocol status=%d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/agents/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	if got := decodeBody(t, w)["hasShield"]; got != true {
		t.Fatalf("hasShield=%v, want true", got)
	}
	if w := env.do(t, http.MethodGet, "/api/agents/ghost", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing agent status=%d", w.Code)
	}
}

func TestQueueJoinLeaveStatus(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	env.store.agents["a"] = &store.Agent{ID: "a", Name: "vex", Category: "crypto", Rating: 1200}

	w := env.do(t, http.MethodPost, "/api/queue/join", map[string]any{"agentId": "a"})
	if w.Code != http.StatusOK {
		t.Fatalf("join status=%d body=%s", w.Code, w.Body.String())
	}
	if pos := decodeBody(t, w)["position"]; pos != float64(1) {
		t.Fatalf("position=%v", pos)
	}
	if got := env.inbox.Buffer("a").ReplayAfter(""); len(got) != 1 || got[0].Event != matchmaking.EventQueueJoined {
		t.Fatalf("inbox events=%v", got)
	}

	if w := env.do(t, http.MethodPost, "/api/queue/join", map[string]any{"agentId": "ghost"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown agent join status=%d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/queue/status", nil)
	if total := decodeBody(t, w)["total"]; total != float64(1) {
		t.Fatalf("queue total=%v", total)
	}

	w = env.do(t, http.MethodPost, "/api/queue/leave", map[string]any{"agentId": "a"})
	if removed := decodeBody(t, w)["removed"]; removed != true {
		t.Fatalf("removed=%v", removed)
	}
	if env.pool.Len() != 0 {
		t.Fatalf("pool len=%d, want 0", env.pool.Len())
	}
}

func TestMoltDownloadAndVerify(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	l := ledger.New("m1", ledger.Participant{ID: "a"}, ledger.Participant{ID: "b"})
	if _, err := l.Append(ledger.RoundPreMatch, "a", ledger.ActionShieldSubmitted, map[string]any{"protocol": "AES-256"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	art, err := l.Export([]ledger.Score{{AgentID: "a", Total: 10}, {AgentID: "b", Total: 10}}, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	path, err := ledger.WriteArtifact(t.TempDir(), art)
	if err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	env.store.matches["m1"] = &store.Match{ID: "m1", Status: store.MatchCompleted, MoltFilePath: path}
	env.store.matches["m2"] = &store.Match{ID: "m2", Status: store.MatchPending}

	w := env.do(t, http.MethodGet, "/api/molt/m1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("molt status=%d", w.Code)
	}
	if got := decodeBody(t, w)["signature"]; got != art.Signature {
		t.Fatalf("signature=%v, want %s", got, art.Signature)
	}

	w = env.do(t, http.MethodPost, "/api/molt/m1/verify", nil)
	report := decodeBody(t, w)
	if report["valid"] != true || report["eventCount"] != float64(1) {
		t.Fatalf("unexpected report: %v", report)
	}
	if w := env.do(t, http.MethodGet, "/api/molt/m2", nil); w.Code != http.StatusNotFound {
		t.Fatalf("molt for pending match status=%d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/matches?status=bogus", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter status=%d", w.Code)
	}
}

func TestSpectatorRoutes(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	env.store.matches["done"] = &store.Match{ID: "done", Status: store.MatchCompleted}

	if w := env.do(t, http.MethodGet, "/api/public/matches/done/events", nil); w.Code != http.StatusConflict {
		t.Fatalf("finished match events status=%d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/public/matches/ghost/events", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown match events status=%d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/public/matches/done/state", nil); w.Code != http.StatusNotFound {
		t.Fatalf("idle match state status=%d", w.Code)
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{AdminAPIKey: "secret"})

	if w := env.do(t, http.MethodGet, "/api/debug/vars", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("debug vars without key status=%d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/agents", nil)
	req.Header.Set("X-Admin-Key", "secret")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("admin agents status=%d", w.Code)
	}
}

func TestAgentEventsStreamsInbox(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	env.store.agents["a"] = &store.Agent{ID: "a", Name: "vex"}
	env.inbox.Push("a", matchmaking.EventMatchFound, map[string]any{"matchId": "m1"})

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/agents/a/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%q", ct)
	}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if scanner.Text() == "event: "+matchmaking.EventMatchFound {
			return
		}
	}
	t.Fatalf("stream ended before match:found: %v", scanner.Err())
}
