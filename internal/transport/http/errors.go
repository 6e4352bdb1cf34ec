package httptransport

import (
	"errors"
	"net/http"

	appagent "claw-colosseum/internal/app/agent"
	apppublic "claw-colosseum/internal/app/public"
	appqueue "claw-colosseum/internal/app/queue"

	"github.com/rs/zerolog/log"
)

// MapDomainError converts a service error into an HTTP status and error code.
func MapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, appagent.ErrInvalidRequest),
		errors.Is(err, apppublic.ErrInvalidRequest),
		errors.Is(err, appqueue.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, appagent.ErrInvalidProtocol):
		return http.StatusBadRequest, "invalid_protocol"
	case errors.Is(err, appagent.ErrNameTaken):
		return http.StatusConflict, "name_taken"
	case errors.Is(err, appagent.ErrAgentNotFound), errors.Is(err, appqueue.ErrAgentNotFound):
		return http.StatusNotFound, "agent_not_found"
	case errors.Is(err, apppublic.ErrMatchNotFound):
		return http.StatusNotFound, "match_not_found"
	case errors.Is(err, apppublic.ErrMoltNotFound):
		return http.StatusNotFound, "molt_not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := MapDomainError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	WriteHTTPError(w, status, code)
}
