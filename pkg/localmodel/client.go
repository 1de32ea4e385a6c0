package localmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dskvich/ai-chat-server/pkg/ai"
)

// Client talks to an Ollama-compatible generation endpoint. The backend is a
// stand-in text generator; only its input/output contract matters here.

const (
	generateTimeout = 120 * time.Second

	// maxNewTokens bounds the continuation length per request.
	maxNewTokens = 150
)

type client struct {
	baseURL string
	model   string
	hc      *http.Client
}

func NewClient(baseURL, model string) (*client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is empty")
	}
	if model == "" {
		return nil, fmt.Errorf("model is empty")
	}
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		hc:      &http.Client{Timeout: generateTimeout},
	}, nil
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	EvalCount int    `json:"eval_count"`
}

func (c *client) Generate(ctx context.Context, prompt string) (*ai.Completion, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"num_predict": maxNewTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("local backend returned status %d: %s", resp.StatusCode, respBody)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decoding generate response: %w", err)
	}

	return &ai.Completion{
		Content:    stripEcho(genResp.Response, prompt),
		TokensUsed: genResp.EvalCount,
	}, nil
}

// Health pings the backend. Used once at startup to decide whether the local
// tier is available at all.
func (c *client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("sending health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("local backend returned status %d", resp.StatusCode)
	}
	return nil
}

// stripEcho drops a leading echo of the prompt, which some causal-LM backends
// include in the completion. Only the new continuation is kept.
func stripEcho(completion, prompt string) string {
	return strings.TrimSpace(strings.TrimPrefix(completion, prompt))
}
