package handler

import (
	"errors"
	"net/http"

	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/domain"
)

// writeError maps the error taxonomy onto HTTP statuses. Validation errors
// carry their own caller-safe message; storage failures are surfaced as 500
// with a generic body, never swallowed.
func writeError(writer *response.JSONResponseWriter, w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writer.WriteErrorResponse(w, http.StatusBadRequest, ve.Reason)
	case errors.Is(err, domain.ErrConversationNotFound):
		writer.WriteErrorResponse(w, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, domain.ErrUserNotFound):
		writer.WriteErrorResponse(w, http.StatusNotFound, "User not found")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writer.WriteErrorResponse(w, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrAccountInactive):
		writer.WriteErrorResponse(w, http.StatusUnauthorized, domain.ErrAccountInactive.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		writer.WriteErrorResponse(w, http.StatusUnauthorized, "Authentication required")
	default:
		writer.WriteErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}
