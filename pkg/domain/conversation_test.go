package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	conv := NewConversation("sess-1")
	require.Equal(t, "sess-1", conv.SessionID)
	require.Equal(t, DefaultConversationTitle, conv.Title)
	require.NotNil(t, conv.Messages)
	require.Empty(t, conv.Messages)
	require.NotNil(t, conv.Metadata)
}

func TestAppendMessage_TitleFromFirstUserMessage(t *testing.T) {
	conv := NewConversation("sess-1")

	conv.AppendMessage(Message{Role: MessageRoleUser, Content: "short question"})
	require.Equal(t, "short question", conv.Title)

	// Later turns never change the title.
	conv.AppendMessage(Message{Role: MessageRoleAssistant, Content: "an answer"})
	conv.AppendMessage(Message{Role: MessageRoleUser, Content: "a different question"})
	require.Equal(t, "short question", conv.Title)
}

func TestAppendMessage_TitleTruncated(t *testing.T) {
	conv := NewConversation("sess-1")
	long := strings.Repeat("a", 80)

	conv.AppendMessage(Message{Role: MessageRoleUser, Content: long})
	require.Equal(t, strings.Repeat("a", 50)+"...", conv.Title)
}

func TestAppendMessage_NoTitleFromAssistantFirst(t *testing.T) {
	conv := NewConversation("sess-1")

	conv.AppendMessage(Message{Role: MessageRoleAssistant, Content: "welcome"})
	require.Equal(t, DefaultConversationTitle, conv.Title)
}

func TestAppendMessage_BumpsUpdatedAt(t *testing.T) {
	conv := NewConversation("sess-1")
	before := conv.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	conv.AppendMessage(Message{Role: MessageRoleUser, Content: "hello"})
	require.True(t, conv.UpdatedAt.After(before))
}

func TestMeta(t *testing.T) {
	conv := NewConversation("sess-1")
	conv.AppendMessage(Message{Role: MessageRoleUser, Content: "hello"})
	conv.AppendMessage(Message{Role: MessageRoleAssistant, Content: "hi"})

	meta := conv.Meta()
	require.Equal(t, "sess-1", meta.SessionID)
	require.Equal(t, "hello", meta.Title)
	require.Equal(t, 2, meta.MessageCount)
	require.Equal(t, conv.UpdatedAt, meta.UpdatedAt)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	session := Session{ExpiresAt: now.Add(time.Minute)}
	require.False(t, session.Expired(now))
	require.True(t, session.Expired(now.Add(2*time.Minute)))
}
