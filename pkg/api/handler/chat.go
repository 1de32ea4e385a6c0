package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/logger"
	"github.com/dskvich/ai-chat-server/pkg/services"
)

type MessageSender interface {
	SendMessage(ctx context.Context, message, sessionID, model string) (*services.SendMessageResult, error)
}

type chat struct {
	sender MessageSender
	writer response.JSONResponseWriter
}

func NewChat(sender MessageSender) *chat {
	return &chat{sender: sender}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
}

type chatResponse struct {
	SessionID  string    `json:"session_id"`
	Response   string    `json:"response"`
	Model      string    `json:"model"`
	Timestamp  time.Time `json:"timestamp"`
	TokensUsed int       `json:"tokens_used"`
}

func (c *chat) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writer.WriteErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	res, err := c.sender.SendMessage(r.Context(), req.Message, req.SessionID, req.Model)
	if err != nil {
		slog.ErrorContext(r.Context(), "sending message", logger.Err(err))
		writeError(&c.writer, w, err)
		return
	}

	c.writer.WriteSuccessResponse(w, chatResponse{
		SessionID:  res.SessionID,
		Response:   res.Response,
		Model:      res.Model,
		Timestamp:  res.Timestamp,
		TokensUsed: res.TokensUsed,
	})
}
