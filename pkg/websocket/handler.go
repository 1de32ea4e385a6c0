package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/logger"
	"github.com/dskvich/ai-chat-server/pkg/services"
)

type ChatService interface {
	StreamMessage(ctx context.Context, message, sessionID, model string, emit func(chunk string) error) (*services.SendMessageResult, error)
	NewConversation(ctx context.Context) (*domain.Conversation, error)
}

// Event types on the realtime channel.
const (
	eventConnected           = "connected"
	eventSendMessage         = "send_message"
	eventNewConversation     = "new_conversation"
	eventTyping              = "typing"
	eventMessageChunk        = "message_chunk"
	eventMessageComplete     = "message_complete"
	eventConversationCreated = "conversation_created"
	eventError               = "error"
)

type inboundEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
}

type outboundEvent struct {
	Type         string               `json:"type"`
	SessionID    string               `json:"session_id,omitempty"`
	IsTyping     *bool                `json:"is_typing,omitempty"`
	Chunk        string               `json:"chunk,omitempty"`
	Timestamp    *time.Time           `json:"timestamp,omitempty"`
	Conversation *domain.Conversation `json:"conversation,omitempty"`
	Error        string               `json:"error,omitempty"`
}

type Handler struct {
	chat     ChatService
	upgrader websocket.Upgrader
}

func NewHandler(chat ChatService) *Handler {
	return &Handler{
		chat: chat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "upgrading websocket", logger.Err(err))
		return
	}

	c := &conn{ws: ws, chat: h.chat}
	c.serve(r.Context())
}

// conn serves one client. Inbound events are processed sequentially by the
// read loop, so fragments of a turn are fully emitted (including the
// completion signal) before the next turn starts.
type conn struct {
	ws   *websocket.Conn
	chat ChatService

	writeMu sync.Mutex
}

func (c *conn) serve(ctx context.Context) {
	defer c.ws.Close()

	connID := uuid.NewString()
	ctx = logger.ContextWithRequestID(ctx, connID)
	slog.InfoContext(ctx, "client connected")
	defer slog.InfoContext(ctx, "client disconnected")

	c.write(outboundEvent{Type: eventConnected, SessionID: connID})

	for {
		var event inboundEvent
		if err := c.ws.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.WarnContext(ctx, "websocket read failed", logger.Err(err))
			}
			return
		}

		switch event.Type {
		case eventSendMessage:
			c.handleSendMessage(ctx, event)
		case eventNewConversation:
			c.handleNewConversation(ctx)
		default:
			c.write(outboundEvent{Type: eventError, Error: "unknown event type"})
		}
	}
}

func (c *conn) handleSendMessage(ctx context.Context, event inboundEvent) {
	c.writeTyping(true)
	defer c.writeTyping(false)

	// Resolve the session id up front so chunk events can carry it.
	sessionID := event.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	res, err := c.chat.StreamMessage(ctx, event.Message, sessionID, event.Model, func(chunk string) error {
		if !c.write(outboundEvent{Type: eventMessageChunk, Chunk: chunk, SessionID: sessionID}) {
			return errors.New("client gone")
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "streaming message", logger.Err(err))
		c.write(outboundEvent{Type: eventError, Error: userFacingError(err)})
		return
	}

	c.write(outboundEvent{Type: eventMessageComplete, SessionID: res.SessionID, Timestamp: &res.Timestamp})
}

func (c *conn) handleNewConversation(ctx context.Context) {
	conv, err := c.chat.NewConversation(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "creating conversation", logger.Err(err))
		c.write(outboundEvent{Type: eventError, Error: userFacingError(err)})
		return
	}

	c.write(outboundEvent{Type: eventConversationCreated, SessionID: conv.SessionID, Conversation: conv})
}

func (c *conn) writeTyping(isTyping bool) {
	c.write(outboundEvent{Type: eventTyping, IsTyping: &isTyping})
}

// write serializes access to the connection. It reports false once the
// connection is unusable so producers can stop early.
func (c *conn) write(event outboundEvent) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshaling event", logger.Err(err))
		return false
	}
	return c.ws.WriteMessage(websocket.TextMessage, data) == nil
}

func userFacingError(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return "Something went wrong, please try again"
}
