package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type AttemptRequest struct {
	AgentID          string  `json:"agentId"`
	AttackPower      float64 `json:"attackPower"`
	OpponentStrength int     `json:"opponentStrength"`
}

type AttemptResult struct {
	Success       bool    `json:"success"`
	Effectiveness float64 `json:"effectiveness"`
	ExecutionMS   int64   `json:"executionMs"`
}

// Executor runs one counter-round attack on behalf of an agent.
type Executor interface {
	Attempt(ctx context.Context, req AttemptRequest) (AttemptResult, error)
}

// SimulatedExecutor resolves attempts locally: effectiveness is
// attackPower/(strength+1) scaled by a uniform draw, success above 0.5.
type SimulatedExecutor struct {
	mu       sync.Mutex
	rng      *rand.Rand
	MinDelay time.Duration
	MaxDelay time.Duration
}

func NewSimulatedExecutor(rng *rand.Rand) *SimulatedExecutor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedExecutor{rng: rng}
}

func (s *SimulatedExecutor) Attempt(ctx context.Context, req AttemptRequest) (AttemptResult, error) {
	start := time.Now()
	s.mu.Lock()
	roll := s.rng.Float64()
	delay := s.MinDelay
	if span := s.MaxDelay - s.MinDelay; span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span)))
	}
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return AttemptResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	effectiveness := req.AttackPower / float64(req.OpponentStrength+1) * roll
	return AttemptResult{
		Success:       effectiveness > 0.5,
		Effectiveness: effectiveness,
		ExecutionMS:   time.Since(start).Milliseconds(),
	}, nil
}

var ErrExecutorStatus = errors.New("executor_bad_status")

// HTTPExecutor posts attempts to an external sandbox service and falls back to
// Fallback on any transport, status or decode failure.
type HTTPExecutor struct {
	BaseURL  string
	Client   *http.Client
	Timeout  time.Duration
	Fallback Executor
}

func NewHTTPExecutor(baseURL string, timeout time.Duration, fallback Executor) *HTTPExecutor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPExecutor{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   &http.Client{},
		Timeout:  timeout,
		Fallback: fallback,
	}
}

func (h *HTTPExecutor) Attempt(ctx context.Context, req AttemptRequest) (AttemptResult, error) {
	res, err := h.remote(ctx, req)
	if err == nil {
		return res, nil
	}
	if h.Fallback == nil {
		return AttemptResult{}, err
	}
	if ctx.Err() != nil {
		return AttemptResult{}, ctx.Err()
	}
	metricExecutorFallbacks.Add(1)
	log.Warn().Err(err).Str("agent_id", req.AgentID).Msg("executor unavailable, using simulation")
	return h.Fallback.Attempt(ctx, req)
}

func (h *HTTPExecutor) remote(ctx context.Context, req AttemptRequest) (AttemptResult, error) {
	if h.BaseURL == "" {
		return AttemptResult{}, errors.New("executor_not_configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return AttemptResult{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/attempt", bytes.NewReader(body))
	if err != nil {
		return AttemptResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return AttemptResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return AttemptResult{}, fmt.Errorf("%w: %d", ErrExecutorStatus, resp.StatusCode)
	}
	var out AttemptResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return AttemptResult{}, fmt.Errorf("decode executor response: %w", err)
	}
	return out, nil
}
