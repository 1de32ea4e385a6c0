package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/logger"
)

const (
	// hostedModelPrefix selects requests eligible for the hosted provider.
	hostedModelPrefix = "gpt"

	hostedHistoryLimit = 10
	localHistoryLimit  = 5

	// FallbackModelID and LocalModelID label assistant turns produced by the
	// lower tiers.
	FallbackModelID = "rule-based"
	LocalModelID    = "local-model"
)

// Mode describes which generation tiers were available at startup. It is
// decided once at construction, not probed per call.
type Mode string

const (
	ModeHostedAPI    Mode = "hosted_api"
	ModeLocalModel   Mode = "local_model"
	ModeFallbackOnly Mode = "fallback_only"
)

type Completion struct {
	Content    string
	TokensUsed int
}

// HostedClient is the hosted-API tier.
type HostedClient interface {
	Complete(ctx context.Context, model string, history []domain.Message, message string) (*Completion, error)
	CompleteStream(ctx context.Context, model string, history []domain.Message, message string) (*Stream, error)
}

// LocalClient is the locally-hosted model tier. Generate returns the newly
// generated continuation only; any echo of the prompt is already stripped.
type LocalClient interface {
	Generate(ctx context.Context, prompt string) (*Completion, error)
}

type Request struct {
	Message string
	History []domain.Message
	Model   string
	Stream  bool
}

// Result is the engine output. For streaming requests Content is empty (tier 1)
// or pre-computed (lower tiers) and Chunks carries the fragment sequence.
type Result struct {
	Content    string
	Model      string
	TokensUsed int
	Chunks     *Stream
}

// Engine resolves a response across three tiers in strict order: hosted API,
// local model, rule-based fallback. A tier that fails falls through; once a
// tier has produced a result there is no falling back.
type Engine struct {
	hosted HostedClient
	local  LocalClient
}

// NewEngine builds the engine. Either client may be nil, which permanently
// disables its tier.
func NewEngine(hosted HostedClient, local LocalClient) *Engine {
	return &Engine{hosted: hosted, local: local}
}

func (e *Engine) Mode() Mode {
	switch {
	case e.hosted != nil:
		return ModeHostedAPI
	case e.local != nil:
		return ModeLocalModel
	default:
		return ModeFallbackOnly
	}
}

// Generate never fails: the fallback tier is unconditional.
func (e *Engine) Generate(ctx context.Context, req Request) Result {
	if e.hosted != nil && strings.HasPrefix(req.Model, hostedModelPrefix) {
		res, err := e.generateHosted(ctx, req)
		if err == nil {
			return res
		}
		slog.WarnContext(ctx, "hosted tier failed, falling through", "model", req.Model, logger.Err(err))
	}

	if e.local != nil {
		res, err := e.generateLocal(ctx, req)
		if err == nil {
			return res
		}
		slog.WarnContext(ctx, "local tier failed, falling through", logger.Err(err))
	}

	return e.generateFallback(req)
}

func (e *Engine) generateHosted(ctx context.Context, req Request) (Result, error) {
	history := lastMessages(req.History, hostedHistoryLimit)

	if req.Stream {
		stream, err := e.hosted.CompleteStream(ctx, req.Model, history, req.Message)
		if err != nil {
			return Result{}, fmt.Errorf("starting hosted stream: %w", err)
		}
		return Result{Model: req.Model, Chunks: stream}, nil
	}

	completion, err := e.hosted.Complete(ctx, req.Model, history, req.Message)
	if err != nil {
		return Result{}, fmt.Errorf("hosted completion: %w", err)
	}
	return Result{
		Content:    completion.Content,
		Model:      req.Model,
		TokensUsed: completion.TokensUsed,
	}, nil
}

func (e *Engine) generateLocal(ctx context.Context, req Request) (Result, error) {
	prompt := buildLocalPrompt(lastMessages(req.History, localHistoryLimit), req.Message)

	completion, err := e.local.Generate(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("local completion: %w", err)
	}

	res := Result{
		Content:    completion.Content,
		Model:      LocalModelID,
		TokensUsed: completion.TokensUsed,
	}
	if req.Stream {
		res.Chunks = NewTextStream(res.Content)
	}
	return res, nil
}

func (e *Engine) generateFallback(req Request) Result {
	content := respondFallback(req.Message)

	res := Result{Content: content, Model: FallbackModelID}
	if req.Stream {
		res.Chunks = NewTextStream(content)
	}
	return res
}

// buildLocalPrompt renders recent history as alternating User:/AI: lines and
// appends the current message.
func buildLocalPrompt(history []domain.Message, message string) string {
	var b strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case domain.MessageRoleUser:
			fmt.Fprintf(&b, "User: %s\n", msg.Content)
		case domain.MessageRoleAssistant:
			fmt.Fprintf(&b, "AI: %s\n", msg.Content)
		}
	}
	fmt.Fprintf(&b, "User: %s\nAI:", message)
	return b.String()
}

func lastMessages(history []domain.Message, n int) []domain.Message {
	return lo.Subset(history, -n, uint(n))
}
