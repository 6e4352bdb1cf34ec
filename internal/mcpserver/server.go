package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"claw-colosseum/internal/agentgateway"
	appagent "claw-colosseum/internal/app/agent"
	apppublic "claw-colosseum/internal/app/public"
	appqueue "claw-colosseum/internal/app/queue"
	"claw-colosseum/internal/spectatorgateway"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Deps struct {
	Agents *appagent.Service
	Public *apppublic.Service
	Queue  *appqueue.Service
	Inbox  *agentgateway.Inbox
	Hub    *spectatorgateway.Hub
}

type Server struct {
	agentSvc  *appagent.Service
	publicSvc *apppublic.Service
	queueSvc  *appqueue.Service
	inbox     *agentgateway.Inbox
	hub       *spectatorgateway.Hub

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(d Deps) *Server {
	mcpSrv := server.NewMCPServer(
		"claw-colosseum",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		agentSvc:   d.Agents,
		publicSvc:  d.Public,
		queueSvc:   d.Queue,
		inbox:      d.Inbox,
		hub:        d.Hub,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerAgentTools()
	s.registerQueueTools()
	s.registerPublicTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"match://{match_id}/live_state",
			"match_live_state",
			mcp.WithTemplateDescription("Live combatant state of a running match"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := request.Params.URI
			if !strings.HasPrefix(raw, "match://") || !strings.HasSuffix(raw, "/live_state") {
				return nil, nil
			}
			matchID := strings.TrimSuffix(strings.TrimPrefix(raw, "match://"), "/live_state")
			if matchID == "" || s.hub == nil {
				return nil, nil
			}
			view, ok := s.hub.LiveState(matchID)
			if !ok {
				return nil, apppublic.ErrMatchNotFound
			}
			payload, err := json.Marshal(view)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
