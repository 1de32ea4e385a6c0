package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dskvich/ai-chat-server/pkg/ai"
	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/render"
)

type ConversationRepository interface {
	GetOrCreate(ctx context.Context, sessionID string) (*domain.Conversation, error)
	Append(ctx context.Context, sessionID string, msg domain.Message) (*domain.Conversation, error)
	Get(ctx context.Context, sessionID string) (*domain.Conversation, error)
	ListMetadata(ctx context.Context) ([]domain.ConversationMetadata, error)
	Delete(ctx context.Context, sessionID string) error
	ClearAll(ctx context.Context) error
}

type ResponseGenerator interface {
	Generate(ctx context.Context, req ai.Request) ai.Result
}

// sessionIDPattern keeps caller-supplied identifiers safe to embed in record
// names.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

type SendMessageResult struct {
	SessionID  string
	Response   string
	Model      string
	Timestamp  time.Time
	TokensUsed int
}

type chatService struct {
	conversations ConversationRepository
	engine        ResponseGenerator
}

func NewChatService(conversations ConversationRepository, engine ResponseGenerator) *chatService {
	return &chatService{
		conversations: conversations,
		engine:        engine,
	}
}

// SendMessage is the synchronous path: append the user turn, generate without
// holding any conversation lock, append the assistant turn.
func (s *chatService) SendMessage(ctx context.Context, message, sessionID, model string) (*SendMessageResult, error) {
	message, sessionID, model, err := s.prepare(message, sessionID, model)
	if err != nil {
		return nil, err
	}

	conv, err := s.appendUserTurn(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}

	res := s.engine.Generate(ctx, ai.Request{
		Message: message,
		History: conv.Messages[:len(conv.Messages)-1],
		Model:   model,
	})

	if err := s.appendAssistantTurn(ctx, sessionID, res.Content, res.Model); err != nil {
		return nil, err
	}

	return &SendMessageResult{
		SessionID:  sessionID,
		Response:   res.Content,
		Model:      res.Model,
		Timestamp:  time.Now(),
		TokensUsed: res.TokensUsed,
	}, nil
}

// StreamMessage is the realtime path. Each produced fragment is handed to
// emit in generation order. The assistant turn is persisted only when the
// stream completes cleanly; an abandoning consumer or a mid-stream generation
// error leaves no partial assistant turn behind.
func (s *chatService) StreamMessage(ctx context.Context, message, sessionID, model string, emit func(chunk string) error) (*SendMessageResult, error) {
	message, sessionID, model, err := s.prepare(message, sessionID, model)
	if err != nil {
		return nil, err
	}

	conv, err := s.appendUserTurn(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}

	res := s.engine.Generate(ctx, ai.Request{
		Message: message,
		History: conv.Messages[:len(conv.Messages)-1],
		Model:   model,
		Stream:  true,
	})

	var b strings.Builder
	for {
		chunk, ok := res.Chunks.Next()
		if !ok {
			break
		}
		if err := emit(chunk); err != nil {
			return nil, fmt.Errorf("emitting chunk: %w", err)
		}
		b.WriteString(chunk)
	}
	if err := res.Chunks.Err(); err != nil {
		return nil, fmt.Errorf("generation stream: %w", err)
	}

	content := b.String()
	if err := s.appendAssistantTurn(ctx, sessionID, content, res.Model); err != nil {
		return nil, err
	}

	return &SendMessageResult{
		SessionID:  sessionID,
		Response:   content,
		Model:      res.Model,
		Timestamp:  time.Now(),
		TokensUsed: res.TokensUsed,
	}, nil
}

// NewConversation materializes an empty conversation under a fresh session id.
func (s *chatService) NewConversation(ctx context.Context) (*domain.Conversation, error) {
	return s.conversations.GetOrCreate(ctx, uuid.NewString())
}

func (s *chatService) GetConversation(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	return s.conversations.Get(ctx, sessionID)
}

func (s *chatService) ListConversations(ctx context.Context) ([]domain.ConversationMetadata, error) {
	return s.conversations.ListMetadata(ctx)
}

func (s *chatService) DeleteConversation(ctx context.Context, sessionID string) error {
	return s.conversations.Delete(ctx, sessionID)
}

func (s *chatService) ClearConversations(ctx context.Context) error {
	return s.conversations.ClearAll(ctx)
}

func (s *chatService) ExportConversation(ctx context.Context, sessionID, format string) ([]byte, string, error) {
	conv, err := s.conversations.Get(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	return render.Conversation(conv, format)
}

func (s *chatService) prepare(message, sessionID, model string) (string, string, string, error) {
	if strings.TrimSpace(message) == "" {
		return "", "", "", domain.NewValidationError("message is required")
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if !sessionIDPattern.MatchString(sessionID) {
		return "", "", "", domain.NewValidationError("invalid session id")
	}

	if model == "" {
		model = domain.DefaultModel
	}
	return message, sessionID, model, nil
}

func (s *chatService) appendUserTurn(ctx context.Context, sessionID, message string) (*domain.Conversation, error) {
	conv, err := s.conversations.Append(ctx, sessionID, domain.Message{
		Role:      domain.MessageRoleUser,
		Content:   message,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("appending user turn: %w", err)
	}
	return conv, nil
}

func (s *chatService) appendAssistantTurn(ctx context.Context, sessionID, content, model string) error {
	if _, err := s.conversations.Append(ctx, sessionID, domain.Message{
		Role:      domain.MessageRoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
		Model:     model,
	}); err != nil {
		return fmt.Errorf("appending assistant turn: %w", err)
	}
	return nil
}
