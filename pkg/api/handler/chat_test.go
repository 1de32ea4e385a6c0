package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/services"
)

type mockSender struct {
	result *services.SendMessageResult
	err    error

	lastMessage   string
	lastSessionID string
	lastModel     string
}

func (m *mockSender) SendMessage(_ context.Context, message, sessionID, model string) (*services.SendMessageResult, error) {
	m.lastMessage = message
	m.lastSessionID = sessionID
	m.lastModel = model
	return m.result, m.err
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestChat_SendMessage(t *testing.T) {
	sender := &mockSender{result: &services.SendMessageResult{
		SessionID:  "sess-1",
		Response:   "Paris",
		Model:      "gpt-4",
		Timestamp:  time.Now(),
		TokensUsed: 12,
	}}
	h := NewChat(sender)

	rec := postJSON(t, h.SendMessage, `{"message":"capital of France?","session_id":"sess-1","model":"gpt-4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "sess-1", got.SessionID)
	require.Equal(t, "Paris", got.Response)
	require.Equal(t, "gpt-4", got.Model)
	require.Equal(t, 12, got.TokensUsed)

	require.Equal(t, "capital of France?", sender.lastMessage)
	require.Equal(t, "gpt-4", sender.lastModel)
}

func TestChat_SendMessage_InvalidJSON(t *testing.T) {
	h := NewChat(&mockSender{})

	rec := postJSON(t, h.SendMessage, `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_SendMessage_ValidationError(t *testing.T) {
	h := NewChat(&mockSender{err: domain.NewValidationError("message is required")})

	rec := postJSON(t, h.SendMessage, `{"message":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "message is required")
}

func TestChat_SendMessage_InternalError(t *testing.T) {
	h := NewChat(&mockSender{err: context.DeadlineExceeded})

	rec := postJSON(t, h.SendMessage, `{"message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Internal server error")
}
