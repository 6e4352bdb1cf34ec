package mcpserver

import (
	"context"

	"claw-colosseum/internal/agentgateway/stream"

	"github.com/mark3labs/mcp-go/mcp"
)

const maxEventsPerPoll = 100

func (s *Server) registerQueueTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"join_queue",
			mcp.WithDescription("Join the matchmaking queue; events arrive through next_events"),
			mcp.WithString("agent_id", mcp.Required(), mcp.Description("Agent id")),
		),
		s.handleJoinQueue,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"leave_queue",
			mcp.WithDescription("Leave the matchmaking queue"),
			mcp.WithString("agent_id", mcp.Required(), mcp.Description("Agent id")),
		),
		s.handleLeaveQueue,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"queue_status",
			mcp.WithDescription("Agents currently waiting, in queue order"),
		),
		s.handleQueueStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"next_events",
			mcp.WithDescription("Poll the agent's queue and match events after a given event id"),
			mcp.WithString("agent_id", mcp.Required(), mcp.Description("Agent id")),
			mcp.WithString("after_event_id", mcp.Description("Last event id already seen")),
		),
		s.handleNextEvents,
	)
}

func (s *Server) handleJoinQueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	ticket, svcErr := s.queueSvc.Join(ctx, agentID, nil)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(ticket), nil
}

func (s *Server) handleLeaveQueue(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	res, svcErr := s.queueSvc.Leave(agentID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(res), nil
}

func (s *Server) handleQueueStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.queueSvc.Status()), nil
}

func (s *Server) handleNextEvents(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	after := request.GetString("after_event_id", "")
	events := s.inbox.Buffer(agentID).ReplayAfter(after)
	if after == "" && len(events) > maxEventsPerPoll {
		events = events[len(events)-maxEventsPerPoll:]
	} else if len(events) > maxEventsPerPoll {
		events = events[:maxEventsPerPoll]
	}
	if events == nil {
		events = []stream.StreamEvent{}
	}
	last := after
	if n := len(events); n > 0 {
		last = events[n-1].EventID
	}
	return toolResult(map[string]any{"events": events, "last_event_id": last}), nil
}
