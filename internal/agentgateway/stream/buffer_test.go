package stream

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEventBufferOrderAndReplay(t *testing.T) {
	buf := NewEventBuffer(10)
	ev1 := buf.Append("a", "agent-1", map[string]any{"n": 1})
	ev2 := buf.Append("b", "agent-1", map[string]any{"n": 2})
	ev3 := buf.Append("c", "agent-1", map[string]any{"n": 3})

	if ev1.EventID != "1" || ev2.EventID != "2" || ev3.EventID != "3" {
		t.Fatalf("unexpected event ids: %s %s %s", ev1.EventID, ev2.EventID, ev3.EventID)
	}

	replay := buf.ReplayAfter("1")
	if len(replay) != 2 {
		t.Fatalf("expected 2 replay events, got %d", len(replay))
	}
	if replay[0].EventID != "2" || replay[1].EventID != "3" {
		t.Fatalf("unexpected replay order: %+v", replay)
	}
	if got := buf.ReplayAfter("garbage"); len(got) != 3 {
		t.Fatalf("expected full replay on bad id, got %d", len(got))
	}
}

func TestEventBufferTrimsToMax(t *testing.T) {
	buf := NewEventBuffer(2)
	for i := 0; i < 5; i++ {
		buf.Append("tick", "t", i)
	}
	replay := buf.ReplayAfter("")
	if len(replay) != 2 || replay[0].EventID != "4" {
		t.Fatalf("unexpected replay: %+v", replay)
	}
}

func TestLiveBufferKeepsNoHistory(t *testing.T) {
	buf := NewLiveBuffer()
	buf.Append("early", "m", nil)
	ch := buf.Subscribe()
	defer buf.Unsubscribe(ch)
	buf.Append("late", "m", nil)

	if replay := buf.ReplayAfter(""); len(replay) != 0 {
		t.Fatalf("expected no replay, got %+v", replay)
	}
	select {
	case ev := <-ch:
		if ev.Event != "late" {
			t.Fatalf("event = %q, want late", ev.Event)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for live event")
	}
}

func TestEventBufferCloseEndsSubscriptions(t *testing.T) {
	buf := NewEventBuffer(4)
	ch := buf.Subscribe()
	buf.Close()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	if ev := buf.Append("x", "t", nil); ev.EventID != "" {
		t.Fatalf("append after close returned %+v", ev)
	}
	if _, ok := <-buf.Subscribe(); ok {
		t.Fatal("subscribe after close should return a closed channel")
	}
	if buf.Watchers() != 0 {
		t.Fatalf("watchers = %d, want 0", buf.Watchers())
	}
}

func TestServeReplaysThenStreamsLive(t *testing.T) {
	buf := NewEventBuffer(10)
	buf.Append("first", "agent-1", nil)
	buf.Append("second", "agent-1", nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = Serve(w, r, buf, "agent-1", 20*time.Millisecond)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	rd := bufio.NewReader(resp.Body)
	if ev := nextEvent(t, rd); ev != "second" {
		t.Fatalf("first streamed event = %q, want second", ev)
	}
	buf.Append("third", "agent-1", nil)
	for {
		ev := nextEvent(t, rd)
		if ev == "ping" {
			continue
		}
		if ev != "third" {
			t.Fatalf("live event = %q, want third", ev)
		}
		break
	}
	buf.Close()
}

func nextEvent(t *testing.T, rd *bufio.Reader) string {
	t.Helper()
	ch := make(chan string, 1)
	go func() {
		for {
			line, err := rd.ReadString('\n')
			if err != nil {
				close(ch)
				return
			}
			if strings.HasPrefix(line, "event: ") {
				ch <- strings.TrimSpace(strings.TrimPrefix(line, "event: "))
				return
			}
		}
	}()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("stream ended")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return ""
}
