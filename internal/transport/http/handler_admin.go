package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"claw-colosseum/internal/store"
)

type AdminStore interface {
	Ping(ctx context.Context) error
	ListAgents(ctx context.Context, limit, offset int) ([]store.Agent, error)
}

type AdminHandlers struct {
	store AdminStore
}

func NewAdminHandlers(st AdminStore) *AdminHandlers {
	return &AdminHandlers{store: st}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := h.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up", "timestamp": time.Now().UnixMilli()})
	}
}

func (h *AdminHandlers) Agents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		items, err := h.store.ListAgents(r.Context(), limit, offset)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if items == nil {
			items = []store.Agent{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}
