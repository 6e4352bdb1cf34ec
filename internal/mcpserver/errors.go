package mcpserver

import (
	"errors"
	"fmt"

	appagent "claw-colosseum/internal/app/agent"
	apppublic "claw-colosseum/internal/app/public"
	appqueue "claw-colosseum/internal/app/queue"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

func mapDomainError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return toolError("internal_error", "unknown error")
	case errors.Is(err, appagent.ErrInvalidRequest),
		errors.Is(err, apppublic.ErrInvalidRequest),
		errors.Is(err, appqueue.ErrInvalidRequest):
		return toolError("invalid_request", err.Error())
	case errors.Is(err, appagent.ErrInvalidProtocol):
		return toolError("invalid_protocol", err.Error())
	case errors.Is(err, appagent.ErrNameTaken):
		return toolError("name_taken", err.Error())
	case errors.Is(err, appagent.ErrAgentNotFound), errors.Is(err, appqueue.ErrAgentNotFound):
		return toolError("agent_not_found", err.Error())
	case errors.Is(err, apppublic.ErrMatchNotFound):
		return toolError("match_not_found", err.Error())
	case errors.Is(err, apppublic.ErrMoltNotFound):
		return toolError("molt_not_found", err.Error())
	default:
		return toolError("internal_error", err.Error())
	}
}
