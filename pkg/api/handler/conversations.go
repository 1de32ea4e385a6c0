package handler

import (
	"context"
	"net/http"

	"github.com/dskvich/ai-chat-server/pkg/api/response"
	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type ConversationProvider interface {
	GetConversation(ctx context.Context, sessionID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context) ([]domain.ConversationMetadata, error)
	DeleteConversation(ctx context.Context, sessionID string) error
	ClearConversations(ctx context.Context) error
	ExportConversation(ctx context.Context, sessionID, format string) ([]byte, string, error)
}

type conversations struct {
	provider ConversationProvider
	writer   response.JSONResponseWriter
}

func NewConversations(provider ConversationProvider) *conversations {
	return &conversations{provider: provider}
}

type listConversationsResponse struct {
	Conversations []domain.ConversationMetadata `json:"conversations"`
	Count         int                           `json:"count"`
}

func (c *conversations) List(w http.ResponseWriter, r *http.Request) {
	metas, err := c.provider.ListConversations(r.Context())
	if err != nil {
		writeError(&c.writer, w, err)
		return
	}

	c.writer.WriteSuccessResponse(w, listConversationsResponse{
		Conversations: metas,
		Count:         len(metas),
	})
}

func (c *conversations) Get(w http.ResponseWriter, r *http.Request) {
	conv, err := c.provider.GetConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(&c.writer, w, err)
		return
	}
	c.writer.WriteSuccessResponse(w, conv)
}

func (c *conversations) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.provider.DeleteConversation(r.Context(), r.PathValue("id")); err != nil {
		writeError(&c.writer, w, err)
		return
	}
	c.writer.WriteSuccessResponse(w, map[string]string{"message": "Conversation deleted successfully"})
}

func (c *conversations) Clear(w http.ResponseWriter, r *http.Request) {
	if err := c.provider.ClearConversations(r.Context()); err != nil {
		writeError(&c.writer, w, err)
		return
	}
	c.writer.WriteSuccessResponse(w, map[string]string{"message": "All conversations cleared"})
}

func (c *conversations) Export(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := c.provider.ExportConversation(r.Context(), r.PathValue("id"), r.URL.Query().Get("format"))
	if err != nil {
		writeError(&c.writer, w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}
