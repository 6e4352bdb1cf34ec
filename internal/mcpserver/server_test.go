package mcpserver

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"claw-colosseum/internal/agentgateway"
	appagent "claw-colosseum/internal/app/agent"
	apppublic "claw-colosseum/internal/app/public"
	appqueue "claw-colosseum/internal/app/queue"
	"claw-colosseum/internal/matchmaking"
	"claw-colosseum/internal/shield"
	"claw-colosseum/internal/spectatorgateway"
	"claw-colosseum/internal/store"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// memStore backs every service with maps so the tool surface can be driven
// end to end without Postgres.
type memStore struct {
	mu     sync.Mutex
	agents map[string]*store.Agent
}

func newMemStore() *memStore {
	return &memStore{agents: map[string]*store.Agent{}}
}

func (m *memStore) CreateAgent(_ context.Context, name, category string) (*store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.Name == name {
			return nil, store.ErrNameTaken
		}
	}
	a := &store.Agent{ID: "agent-" + name, Name: name, Category: category, Rating: store.DefaultRating}
	m.agents[a.ID] = a
	return a, nil
}

func (m *memStore) GetAgent(_ context.Context, id string) (*store.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (m *memStore) SetShield(_ context.Context, id string, cfg shield.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return store.ErrNotFound
	}
	a.Shield = &cfg
	return nil
}

func (m *memStore) ListAgentMatches(context.Context, string, int) ([]store.Match, error) {
	return nil, nil
}

func (m *memStore) GetMatch(context.Context, string) (*store.Match, error) {
	return nil, store.ErrNotFound
}

func (m *memStore) ListMatches(context.Context, store.MatchStatus, int) ([]store.Match, error) {
	return nil, nil
}

func (m *memStore) ListLeaderboard(context.Context, string, int) ([]store.LeaderboardEntry, error) {
	return nil, nil
}

func (m *memStore) Stats(context.Context) (store.Stats, error) {
	return store.Stats{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := newMemStore()
	inbox := agentgateway.NewInbox()
	pool := matchmaking.NewScheduler(matchmaking.DefaultConfig(), nil, nil)
	return New(Deps{
		Agents: appagent.NewService(st),
		Public: apppublic.NewService(st),
		Queue:  appqueue.NewService(st, pool, inbox),
		Inbox:  inbox,
		Hub:    spectatorgateway.NewHub(),
	})
}

func TestMCPServerToolsAndQueueFlow(t *testing.T) {
	srv := newTestServer(t)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	mcpClient, closeClient := newMCPClient(t, httpSrv.URL+"/mcp")
	defer closeClient()

	assertToolNames(t, mustListTools(t, mcpClient),
		"register_agent",
		"submit_shield",
		"get_agent",
		"join_queue",
		"leave_queue",
		"queue_status",
		"next_events",
		"get_match",
		"get_leaderboard",
		"verify_match_ledger",
	)

	reg := mustCallTool(t, mcpClient, "register_agent", map[string]any{"name": "vex", "category": "crypto"})
	if reg.IsError {
		t.Fatalf("register_agent error: %v", reg.StructuredContent)
	}
	agentID := asString(mapFromStructured(t, reg)["id"])
	if agentID == "" {
		t.Fatalf("register_agent missing id: %v", reg.StructuredContent)
	}

	sh := mustCallTool(t, mcpClient, "submit_shield", map[string]any{"agent_id": agentID, "protocol": "aes-256"})
	if sh.IsError {
		t.Fatalf("submit_shield error: %v", sh.StructuredContent)
	}
	if got := mapFromStructured(t, sh)["valid"]; got != true {
		t.Fatalf("shield valid=%v", got)
	}

	join := mustCallTool(t, mcpClient, "join_queue", map[string]any{"agent_id": agentID})
	if join.IsError {
		t.Fatalf("join_queue error: %v", join.StructuredContent)
	}
	if pos := asFloat64(mapFromStructured(t, join)["position"]); pos != 1 {
		t.Fatalf("position=%v, want 1", pos)
	}

	status := mapFromStructured(t, mustCallTool(t, mcpClient, "queue_status", map[string]any{}))
	if total := asFloat64(status["total"]); total != 1 {
		t.Fatalf("queue total=%v, want 1", total)
	}

	events := mapFromStructured(t, mustCallTool(t, mcpClient, "next_events", map[string]any{"agent_id": agentID}))
	list, _ := events["events"].([]any)
	if len(list) != 1 {
		t.Fatalf("events=%v, want one queue:joined", events)
	}
	first, _ := list[0].(map[string]any)
	if asString(first["event"]) != matchmaking.EventQueueJoined {
		t.Fatalf("first event=%v", first)
	}

	again := mapFromStructured(t, mustCallTool(t, mcpClient, "next_events", map[string]any{
		"agent_id":       agentID,
		"after_event_id": asString(events["last_event_id"]),
	}))
	if list, _ := again["events"].([]any); len(list) != 0 {
		t.Fatalf("expected no new events, got %v", again)
	}

	leave := mapFromStructured(t, mustCallTool(t, mcpClient, "leave_queue", map[string]any{"agent_id": agentID}))
	if leave["removed"] != true {
		t.Fatalf("leave_queue=%v", leave)
	}
}

func TestMCPServerToolErrors(t *testing.T) {
	srv := newTestServer(t)
	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	mcpClient, closeClient := newMCPClient(t, httpSrv.URL+"/mcp")
	defer closeClient()

	assertToolErrorCode(t, mustCallTool(t, mcpClient, "join_queue", map[string]any{"agent_id": "ghost"}), "agent_not_found")
	assertToolErrorCode(t, mustCallTool(t, mcpClient, "get_match", map[string]any{"match_id": "m-missing"}), "match_not_found")
	assertToolErrorCode(t, mustCallTool(t, mcpClient, "verify_match_ledger", map[string]any{"match_id": "m-missing"}), "match_not_found")
	assertToolErrorCode(t, mustCallTool(t, mcpClient, "register_agent", map[string]any{"name": "x"}), "invalid_request")

	mustCallTool(t, mcpClient, "register_agent", map[string]any{"name": "dup", "category": "web"})
	assertToolErrorCode(t, mustCallTool(t, mcpClient, "register_agent", map[string]any{"name": "dup", "category": "web"}), "name_taken")
	assertToolErrorCode(t, mustCallTool(t, mcpClient, "submit_shield", map[string]any{"agent_id": "agent-dup", "protocol": "ROT13"}), "invalid_protocol")
}

func newMCPClient(t *testing.T, endpoint string) (*client.Client, func()) {
	t.Helper()
	ctx := context.Background()
	trans, err := transport.NewStreamableHTTP(endpoint)
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	if err := trans.Start(ctx); err != nil {
		t.Fatalf("transport start: %v", err)
	}
	c := client.NewClient(trans)
	_, err = c.Initialize(ctx, mcp.InitializeRequest{Params: mcp.InitializeParams{ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION}})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c, func() { _ = trans.Close() }
}

func mustListTools(t *testing.T, c *client.Client) []mcp.Tool {
	t.Helper()
	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	return res.Tools
}

func assertToolNames(t *testing.T, tools []mcp.Tool, expected ...string) {
	t.Helper()
	got := make([]string, 0, len(tools))
	for _, tool := range tools {
		got = append(got, tool.Name)
	}
	sort.Strings(got)
	sort.Strings(expected)
	if len(got) != len(expected) {
		t.Fatalf("tool count mismatch got=%v expected=%v", got, expected)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Fatalf("tool list mismatch got=%v expected=%v", got, expected)
		}
	}
}

func mustCallTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := c.CallTool(context.Background(), mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}})
	if err != nil {
		t.Fatalf("call tool %s: %v", name, err)
	}
	return res
}

func assertToolErrorCode(t *testing.T, res *mcp.CallToolResult, want string) {
	t.Helper()
	if !res.IsError {
		t.Fatalf("expected tool error %q, got success: %v", want, res.StructuredContent)
	}
	payload := mapFromStructured(t, res)
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("error payload missing 'error': %v", payload)
	}
	if got := asString(errObj["code"]); got != want {
		t.Fatalf("error code=%q want=%q payload=%v", got, want, payload)
	}
}

func mapFromStructured(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	b, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat64(v any) float64 {
	f, _ := v.(float64)
	return f
}
