package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordedCall struct {
	method string
	path   string
	query  string
	body   map[string]any
}

type webhookServer struct {
	mu        sync.Mutex
	calls     []recordedCall
	patchCode int
}

func (s *webhookServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		s.mu.Lock()
		s.calls = append(s.calls, recordedCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: body})
		patchCode := s.patchCode
		s.mu.Unlock()

		if r.Method == http.MethodPatch && patchCode != 0 {
			w.WriteHeader(patchCode)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "msg-1"})
	}
}

func TestDiscordAdapterPayload(t *testing.T) {
	ws := &webhookServer{}
	srv := httptest.NewServer(ws.handler(t))
	defer srv.Close()

	adapter := NewDiscordAdapter(NewHTTPClient(time.Second))
	err := adapter.Send(context.Background(), srv.URL+"/api/webhooks/1/tok", "", Message{
		Title:       "Victory · alpha",
		Content:     "alpha vs beta",
		Description: "alpha wins",
		Color:       12345,
		Timestamp:   "2026-01-01T00:00:00Z",
		Footer:      "footer-text",
		Fields:      []Field{{Name: "alpha", Value: "310", Inline: true}},
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(ws.calls) != 1 || ws.calls[0].method != http.MethodPost {
		t.Fatalf("unexpected calls: %+v", ws.calls)
	}
	got := ws.calls[0].body
	if got["content"] != "alpha vs beta" {
		t.Fatalf("unexpected content: %v", got["content"])
	}
	embeds, ok := got["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("unexpected embeds: %#v", got["embeds"])
	}
	embed := embeds[0].(map[string]any)
	if embed["color"] != float64(12345) || embed["description"] != "alpha wins" {
		t.Fatalf("unexpected embed: %#v", embed)
	}
	footer, ok := embed["footer"].(map[string]any)
	if !ok || footer["text"] != "footer-text" {
		t.Fatalf("unexpected footer: %#v", embed["footer"])
	}
}

func TestDiscordAdapterEditsPanelInPlace(t *testing.T) {
	ws := &webhookServer{}
	srv := httptest.NewServer(ws.handler(t))
	defer srv.Close()

	adapter := NewDiscordAdapter(NewHTTPClient(time.Second))
	endpoint := srv.URL + "/api/webhooks/42/secret"
	for _, title := range []string{"start", "round"} {
		if err := adapter.Send(context.Background(), endpoint, "", Message{PanelKey: "match:m1", Title: title}); err != nil {
			t.Fatalf("send %s: %v", title, err)
		}
	}
	if len(ws.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(ws.calls))
	}
	if ws.calls[0].method != http.MethodPost || ws.calls[0].query != "wait=true" {
		t.Fatalf("unexpected create call: %+v", ws.calls[0])
	}
	if ws.calls[1].method != http.MethodPatch || ws.calls[1].path != "/api/webhooks/42/secret/messages/msg-1" {
		t.Fatalf("unexpected edit call: %+v", ws.calls[1])
	}

	adapter.ForgetPanel(endpoint, "match:m1")
	if err := adapter.Send(context.Background(), endpoint, "", Message{PanelKey: "match:m1", Title: "again"}); err != nil {
		t.Fatalf("send after forget: %v", err)
	}
	if ws.calls[2].method != http.MethodPost {
		t.Fatalf("expected a fresh panel after forget, got %+v", ws.calls[2])
	}
}

func TestDiscordAdapterRecreatesDeletedPanel(t *testing.T) {
	ws := &webhookServer{patchCode: http.StatusNotFound}
	srv := httptest.NewServer(ws.handler(t))
	defer srv.Close()

	adapter := NewDiscordAdapter(NewHTTPClient(time.Second))
	endpoint := srv.URL + "/api/webhooks/42/secret"
	if err := adapter.Send(context.Background(), endpoint, "", Message{PanelKey: "p", Title: "one"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := adapter.Send(context.Background(), endpoint, "", Message{PanelKey: "p", Title: "two"}); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if len(ws.calls) != 3 || ws.calls[2].method != http.MethodPost {
		t.Fatalf("unexpected calls: %+v", ws.calls)
	}
}

func TestDiscordAdapterSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordAdapter(NewHTTPClient(time.Second)).Send(context.Background(), srv.URL, "", Message{Title: "x"})
	se, ok := err.(*StatusError)
	if !ok || se.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 status error, got %v", err)
	}
}

func TestDiscordEditURL(t *testing.T) {
	got, ok := discordEditURL("https://discord.com/api/webhooks/1/abc?thread_id=9", "55")
	if !ok || got != "https://discord.com/api/webhooks/1/abc/messages/55" {
		t.Fatalf("edit url = %q, %v", got, ok)
	}
	if _, ok := discordEditURL("https://example.com/hook", "55"); ok {
		t.Fatal("non-discord path should not produce an edit url")
	}
}
