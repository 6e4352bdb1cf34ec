package spectatorgateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"claw-colosseum/internal/agentgateway/stream"
	"claw-colosseum/internal/store"

	"github.com/go-chi/chi/v5"
)

var pingInterval = 15 * time.Second

// MatchFinder is the slice of the store the handlers need.
type MatchFinder interface {
	GetMatch(ctx context.Context, matchID string) (*store.Match, error)
}

func EventsHandler(hub *Hub, matches MatchFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "match_id")
		m, err := matches.GetMatch(r.Context(), matchID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeErr(w, http.StatusNotFound, "match_not_found")
				return
			}
			writeErr(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if m.Status == store.MatchCompleted || m.Status == store.MatchFailed {
			writeErr(w, http.StatusConflict, "match_finished")
			return
		}

		buf := hub.acquire(matchID)
		defer hub.release(matchID, buf)

		metricSpectatorSSEConnectionsTotal.Add(1)
		metricSpectatorSSEConnectionsActive.Add(1)
		defer metricSpectatorSSEConnectionsActive.Add(-1)

		if err := stream.Serve(w, r, buf, matchID, pingInterval); err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func writeErr(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}
