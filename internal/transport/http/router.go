package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"claw-colosseum/internal/agentgateway"
	appagent "claw-colosseum/internal/app/agent"
	apppublic "claw-colosseum/internal/app/public"
	appqueue "claw-colosseum/internal/app/queue"
	"claw-colosseum/internal/config"
	"claw-colosseum/internal/mcpserver"
	"claw-colosseum/internal/spectatorgateway"
	"claw-colosseum/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Store is everything the HTTP surface reads or writes.
type Store interface {
	appagent.Store
	apppublic.Store
	Ping(ctx context.Context) error
	ListAgents(ctx context.Context, limit, offset int) ([]store.Agent, error)
}

type Deps struct {
	Store Store
	Cfg   config.ServerConfig
	Pool  appqueue.Pool
	Hub   *spectatorgateway.Hub
	Inbox *agentgateway.Inbox
	// WS serves the WebSocket queue surface; nil leaves /ws unrouted.
	WS http.Handler
}

func NewRouter(d Deps) *chi.Mux {
	agentSvc := appagent.NewService(d.Store)
	publicSvc := apppublic.NewService(d.Store)
	queueSvc := appqueue.NewService(d.Store, d.Pool, d.Inbox)
	mcpSrv := mcpserver.New(mcpserver.Deps{
		Agents: agentSvc,
		Public: publicSvc,
		Queue:  queueSvc,
		Inbox:  d.Inbox,
		Hub:    d.Hub,
	})

	agentHandlers := NewAgentHandlers(agentSvc)
	publicHandlers := NewPublicHandlers(publicSvc)
	queueHandlers := NewQueueHandlers(queueSvc)
	adminHandlers := NewAdminHandlers(d.Store)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", mcpSrv.Handler())
	r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", mcpSrv.Handler())
	if d.WS != nil {
		r.Handle("/ws", d.WS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Group(func(r chi.Router) {
			r.Use(BodyCaptureMiddleware(4096))
			r.Post("/agents/register", agentHandlers.Register())
			r.Post("/agents/{agent_id}/shield", agentHandlers.SubmitShield())
			r.Post("/queue/join", queueHandlers.Join())
			r.Post("/queue/leave", queueHandlers.Leave())
		})
		r.Get("/agents/{agent_id}", agentHandlers.Get())
		r.Get("/agents/{agent_id}/events", agentgateway.EventsSSEHandler(d.Inbox, d.Store))

		r.Get("/matches", publicHandlers.Matches())
		r.Get("/matches/{match_id}", publicHandlers.Match())
		r.Get("/leaderboard", publicHandlers.Leaderboard())
		r.Get("/stats", publicHandlers.Stats())
		r.Get("/molt/{match_id}", publicHandlers.Molt())
		r.Post("/molt/{match_id}/verify", publicHandlers.VerifyMolt())

		r.Get("/queue/status", queueHandlers.Status())

		r.Get("/public/matches/{match_id}/events", spectatorgateway.EventsHandler(d.Hub, d.Store))
		r.Get("/public/matches/{match_id}/state", spectatorgateway.StateHandler(d.Hub))

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.Cfg.AdminAPIKey))
			r.Get("/admin/agents", adminHandlers.Agents())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
