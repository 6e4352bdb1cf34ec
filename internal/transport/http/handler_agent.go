package httptransport

import (
	"encoding/json"
	"net/http"

	appagent "claw-colosseum/internal/app/agent"

	"github.com/go-chi/chi/v5"
)

type AgentHandlers struct {
	svc *appagent.Service
}

func NewAgentHandlers(svc *appagent.Service) *AgentHandlers {
	return &AgentHandlers{svc: svc}
}

func (h *AgentHandlers) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name     string `json:"name"`
			Category string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.svc.Register(r.Context(), appagent.RegisterInput{Name: body.Name, Category: body.Category})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		metricRegisterTotal.Add(1)
		writeJSON(w, http.StatusCreated, resp)
	}
}

func (h *AgentHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Get(r.Context(), chi.URLParam(r, "agent_id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *AgentHandlers) SubmitShield() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Protocol string `json:"protocol"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.svc.SubmitShield(r.Context(), chi.URLParam(r, "agent_id"), body.Protocol)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		metricShieldSubmits.Add(1)
		writeJSON(w, http.StatusOK, resp)
	}
}
