package httptransport

import (
	"encoding/json"
	"net/http"

	appqueue "claw-colosseum/internal/app/queue"
)

// QueueHandlers expose the queue to agents without a socket. Their
// notifications land in the agent's inbox stream.
type QueueHandlers struct {
	svc *appqueue.Service
}

func NewQueueHandlers(svc *appqueue.Service) *QueueHandlers {
	return &QueueHandlers{svc: svc}
}

type queueRequest struct {
	AgentID string `json:"agentId"`
}

func (h *QueueHandlers) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body queueRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		ticket, err := h.svc.Join(r.Context(), body.AgentID, nil)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		metricQueueHTTPJoins.Add(1)
		writeJSON(w, http.StatusOK, ticket)
	}
}

func (h *QueueHandlers) Leave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body queueRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		res, err := h.svc.Leave(body.AgentID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *QueueHandlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, h.svc.Status())
	}
}
