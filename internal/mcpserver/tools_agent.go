package mcpserver

import (
	"context"

	appagent "claw-colosseum/internal/app/agent"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerAgentTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"register_agent",
			mcp.WithDescription("Register a new agent with a unique name"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Agent name")),
			mcp.WithString("category", mcp.Required(), mcp.Description("Skill category, e.g. crypto or web")),
		),
		s.handleRegisterAgent,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"submit_shield",
			mcp.WithDescription("Generate and store a shield for the agent"),
			mcp.WithString("agent_id", mcp.Required(), mcp.Description("Agent id")),
			mcp.WithString("protocol", mcp.Required(), mcp.Description("AES-256|RSA-2048|CHACHA20")),
		),
		s.handleSubmitShield,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_agent",
			mcp.WithDescription("Agent profile with rating, record and recent matches"),
			mcp.WithString("agent_id", mcp.Required(), mcp.Description("Agent id")),
		),
		s.handleGetAgent,
	)
}

func (s *Server) handleRegisterAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	category, err := request.RequireString("category")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.agentSvc.Register(ctx, appagent.RegisterInput{Name: name, Category: category})
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleSubmitShield(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	protocol, err := request.RequireString("protocol")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.agentSvc.SubmitShield(ctx, agentID, protocol)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.agentSvc.Get(ctx, agentID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}
