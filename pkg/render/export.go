package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/russross/blackfriday"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

const (
	FormatJSON     = "json"
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Conversation renders an export of the conversation. Pure read; unknown
// formats are a caller error.
func Conversation(conv *domain.Conversation, format string) (data []byte, contentType string, err error) {
	switch format {
	case FormatJSON, "":
		data, err = json.MarshalIndent(conv, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshaling conversation: %w", err)
		}
		return data, "application/json", nil
	case FormatText:
		return []byte(asText(conv)), "text/plain; charset=utf-8", nil
	case FormatMarkdown:
		return []byte(asMarkdown(conv)), "text/markdown; charset=utf-8", nil
	case FormatHTML:
		return blackfriday.MarkdownCommon([]byte(asMarkdown(conv))), "text/html; charset=utf-8", nil
	default:
		return nil, "", domain.NewValidationError(fmt.Sprintf("unknown export format %q", format))
	}
}

func asText(conv *domain.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation: %s\n", conv.Title)
	fmt.Fprintf(&b, "Created: %s\n", conv.CreatedAt.Format(time.RFC3339))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, msg := range conv.Messages {
		fmt.Fprintf(&b, "%s: %s\n\n", speaker(msg.Role), msg.Content)
	}
	return b.String()
}

func asMarkdown(conv *domain.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	fmt.Fprintf(&b, "**Created:** %s\n\n", conv.CreatedAt.Format(time.RFC3339))
	b.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		fmt.Fprintf(&b, "**%s**: %s\n\n", speaker(msg.Role), msg.Content)
	}
	return b.String()
}

func speaker(role string) string {
	if role == domain.MessageRoleUser {
		return "You"
	}
	return "AI"
}
