package agent

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrAgentNotFound   = errors.New("agent_not_found")
	ErrNameTaken       = errors.New("name_taken")
	ErrInvalidProtocol = errors.New("invalid_protocol")
)
