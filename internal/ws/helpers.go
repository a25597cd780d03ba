package ws

import (
	"errors"

	"topics-service/internal/engine"
	"topics-service/internal/repositories"
)

// errorCode maps engine and repository failures to wire-level error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, repositories.ErrTopicNotFound),
		errors.Is(err, repositories.ErrMessageNotFound):
		return "not_found"
	case errors.Is(err, engine.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, engine.ErrNotJoined):
		return "not_joined"
	case errors.Is(err, engine.ErrInvalidContent):
		return "invalid_content"
	case errors.Is(err, engine.ErrInvalidEmoji):
		return "invalid_emoji"
	case errors.Is(err, engine.ErrEditWindowExpired):
		return "edit_window_expired"
	case errors.Is(err, engine.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, engine.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, engine.ErrConnectionClosed):
		return "connection_closed"
	default:
		return "persistence_error"
	}
}
