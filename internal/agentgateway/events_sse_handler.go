package agentgateway

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

var ssePingInterval = 15 * time.Second

// AgentFinder is the slice of the store the inbox stream needs.
type AgentFinder interface {
	GetAgent(ctx context.Context, id string) (*store.Agent, error)
}

func EventsSSEHandler(inbox *Inbox, agents AgentFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID := chi.URLParam(r, "agent_id")
		if _, err := agents.GetAgent(r.Context(), agentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeErr(w, http.StatusNotFound, "agent_not_found")
				return
			}
			writeErr(w, http.StatusInternalServerError, "internal_error")
			return
		}

		metricAgentSSEConnectionsTotal.Add(1)
		metricAgentSSEConnectionsActive.Add(1)
		defer metricAgentSSEConnectionsActive.Add(-1)

		if err := stream.Serve(w, r, inbox.Buffer(agentID), agentID, ssePingInterval); err != nil {
			writeErr(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func writeErr(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}
