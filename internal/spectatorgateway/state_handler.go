package spectatorgateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func StateHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "match_id")
		view, ok := hub.LiveState(matchID)
		if !ok {
			writeErr(w, http.StatusNotFound, "match_not_live")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}
