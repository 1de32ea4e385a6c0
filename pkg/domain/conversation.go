package domain

import "time"

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

const DefaultConversationTitle = "New Conversation"

// titleMaxLen is the number of leading characters of the first user message
// used as the conversation title.
const titleMaxLen = 50

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model,omitempty"`
}

type Conversation struct {
	SessionID string         `json:"session_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Messages  []Message      `json:"messages"`
	Title     string         `json:"title"`
	Metadata  map[string]any `json:"metadata"`
}

func NewConversation(sessionID string) *Conversation {
	now := time.Now()
	return &Conversation{
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
		Title:     DefaultConversationTitle,
		Metadata:  map[string]any{},
	}
}

// AppendMessage adds a message and bumps the updated timestamp. The title is
// derived from the first message when that message is a user turn, and is
// never recomputed afterwards.
func (c *Conversation) AppendMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()

	if len(c.Messages) == 1 && msg.Role == MessageRoleUser {
		c.Title = deriveTitle(msg.Content)
	}
}

func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxLen {
		return content
	}
	return string(runes[:titleMaxLen]) + "..."
}

type ConversationMetadata struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Meta returns the listing view of the conversation.
func (c *Conversation) Meta() ConversationMetadata {
	return ConversationMetadata{
		SessionID:    c.SessionID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Messages),
	}
}
