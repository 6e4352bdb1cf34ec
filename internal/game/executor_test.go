package game

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSimulatedExecutorEffectiveness(t *testing.T) {
	exec := NewSimulatedExecutor(rand.New(rand.NewSource(5)))
	roll := rand.New(rand.NewSource(5)).Float64()

	res, err := exec.Attempt(context.Background(), AttemptRequest{AgentID: "a", AttackPower: 40, OpponentStrength: 39})
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	want := 40.0 / 40.0 * roll
	if res.Effectiveness != want {
		t.Fatalf("effectiveness = %v, want %v", res.Effectiveness, want)
	}
	if res.Success != (want > 0.5) {
		t.Fatalf("success = %v for effectiveness %v", res.Success, want)
	}
}

func TestSimulatedExecutorHonorsContext(t *testing.T) {
	exec := NewSimulatedExecutor(rand.New(rand.NewSource(1)))
	exec.MinDelay = time.Second
	exec.MaxDelay = 2 * time.Second
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exec.Attempt(ctx, AttemptRequest{AgentID: "a"}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestHTTPExecutorRemoteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/attempt" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req AttemptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.AgentID != "agent-a" || req.OpponentStrength != 40 {
			t.Errorf("unexpected body %+v", req)
		}
		_ = json.NewEncoder(w).Encode(AttemptResult{Success: true, Effectiveness: 0.9})
	}))
	defer srv.Close()

	exec := NewHTTPExecutor(srv.URL+"/", time.Second, &stubExecutor{})
	res, err := exec.Attempt(context.Background(), AttemptRequest{AgentID: "agent-a", AttackPower: 35, OpponentStrength: 40})
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if !res.Success || res.Effectiveness != 0.9 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHTTPExecutorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fallback := &stubExecutor{hit: map[string]bool{"agent-a": true}}
	exec := NewHTTPExecutor(srv.URL, time.Second, fallback)
	before := metricExecutorFallbacks.Value()
	res, err := exec.Attempt(context.Background(), AttemptRequest{AgentID: "agent-a"})
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if !res.Success {
		t.Fatal("expected fallback result")
	}
	if fallback.calls.Load() != 1 {
		t.Fatalf("fallback calls = %d, want 1", fallback.calls.Load())
	}
	if metricExecutorFallbacks.Value() != before+1 {
		t.Fatal("fallback counter not incremented")
	}
}

func TestHTTPExecutorWithoutFallbackReturnsError(t *testing.T) {
	exec := NewHTTPExecutor("", time.Second, nil)
	if _, err := exec.Attempt(context.Background(), AttemptRequest{AgentID: "a"}); err == nil {
		t.Fatal("expected error without url or fallback")
	}
}
