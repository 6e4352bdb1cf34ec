package httptransport

import (
	"net/http"
	"strconv"

	apppublic "claw-colosseum/internal/app/public"
	"claw-colosseum/internal/ledger"

	"github.com/go-chi/chi/v5"
)

type PublicHandlers struct {
	svc *apppublic.Service
}

func NewPublicHandlers(svc *apppublic.Service) *PublicHandlers {
	return &PublicHandlers{svc: svc}
}

func (h *PublicHandlers) Match() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Match(r.Context(), chi.URLParam(r, "match_id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Matches() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Matches(r.Context(), apppublic.MatchListInput{
			Status: r.URL.Query().Get("status"),
			Limit:  queryInt(r, "limit"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Leaderboard(r.Context(), apppublic.LeaderboardInput{
			Category: r.URL.Query().Get("category"),
			Limit:    queryInt(r, "limit"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Stats(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Molt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "match_id")
		art, err := h.svc.Molt(r.Context(), matchID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+ledger.FileName(art.MatchID)+`"`)
		writeJSON(w, http.StatusOK, art)
	}
}

func (h *PublicHandlers) VerifyMolt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := h.svc.VerifyMolt(r.Context(), chi.URLParam(r, "match_id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		metricMoltVerifyTotal.Add(1)
		if !report.Valid {
			metricMoltVerifyFailures.Add(1)
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// queryInt returns 0 for a missing or malformed value so the service applies
// its default.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
