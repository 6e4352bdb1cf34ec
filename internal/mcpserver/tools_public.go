package mcpserver

import (
	"context"

	apppublic "claw-colosseum/internal/app/public"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPublicTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_match",
			mcp.WithDescription("Match details: combatants, status, scores and winner"),
			mcp.WithString("match_id", mcp.Required(), mcp.Description("Match id")),
		),
		s.handleGetMatch,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_leaderboard",
			mcp.WithDescription("Agents ranked by rating"),
			mcp.WithString("category", mcp.Description("Optional category filter")),
			mcp.WithNumber("limit", mcp.Description("Page size, default 20, max 100")),
		),
		s.handleGetLeaderboard,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"verify_match_ledger",
			mcp.WithDescription("Re-verify the hash chain and signature of a finished match's ledger"),
			mcp.WithString("match_id", mcp.Required(), mcp.Description("Match id")),
		),
		s.handleVerifyLedger,
	)
}

func (s *Server) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID, err := request.RequireString("match_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.publicSvc.Match(ctx, matchID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.publicSvc.Leaderboard(ctx, apppublic.LeaderboardInput{
		Category: request.GetString("category", ""),
		Limit:    request.GetInt("limit", 0),
	})
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"items": resp}), nil
}

func (s *Server) handleVerifyLedger(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	matchID, err := request.RequireString("match_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	report, svcErr := s.publicSvc.VerifyMolt(ctx, matchID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(report), nil
}
