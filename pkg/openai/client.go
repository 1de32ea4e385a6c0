package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dskvich/ai-chat-server/pkg/ai"
	"github.com/dskvich/ai-chat-server/pkg/domain"
)

const (
	systemPrompt = "You are a helpful, intelligent AI assistant. You provide clear, accurate, and thoughtful responses."

	temperature = 0.7
	maxTokens   = 1000
)

type client struct {
	api *openai.Client
}

// NewClient builds the hosted-API client. The token is required; baseURL is an
// optional endpoint override for OpenAI-compatible providers.
func NewClient(token, baseURL string) (*client, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	cfg := openai.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &client{api: openai.NewClientWithConfig(cfg)}, nil
}

func (c *client) Complete(ctx context.Context, model string, history []domain.Message, message string) (*ai.Completion, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.buildRequest(model, history, message, false))
	if err != nil {
		return nil, fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	return &ai.Completion{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// CompleteStream bridges the provider's streamed deltas into an ai.Stream.
// Fragments are forwarded as the provider emits them; a mid-stream provider
// error terminates the stream with that error.
func (c *client) CompleteStream(ctx context.Context, model string, history []domain.Message, message string) (*ai.Stream, error) {
	providerStream, err := c.api.CreateChatCompletionStream(ctx, c.buildRequest(model, history, message, true))
	if err != nil {
		return nil, fmt.Errorf("creating chat completion stream: %w", err)
	}

	stream := ai.NewStream()
	go func() {
		defer providerStream.Close()
		for {
			resp, err := providerStream.Recv()
			if errors.Is(err, io.EOF) {
				stream.Finish(nil)
				return
			}
			if err != nil {
				stream.Finish(fmt.Errorf("receiving stream delta: %w", err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				if !stream.Push(ctx, delta) {
					stream.Finish(ctx.Err())
					return
				}
			}
		}
	}()

	return stream, nil
}

func (c *client) buildRequest(model string, history []domain.Message, message string, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}
}
