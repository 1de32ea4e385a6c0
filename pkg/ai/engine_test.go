package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type mockHosted struct {
	completion *Completion
	err        error

	calls       int
	lastModel   string
	lastHistory []domain.Message
	lastMessage string
}

func (m *mockHosted) Complete(_ context.Context, model string, history []domain.Message, message string) (*Completion, error) {
	m.calls++
	m.lastModel = model
	m.lastHistory = history
	m.lastMessage = message
	return m.completion, m.err
}

func (m *mockHosted) CompleteStream(_ context.Context, model string, history []domain.Message, message string) (*Stream, error) {
	m.calls++
	m.lastModel = model
	m.lastHistory = history
	m.lastMessage = message
	if m.err != nil {
		return nil, m.err
	}
	return NewTextStream(m.completion.Content), nil
}

type mockLocal struct {
	completion *Completion
	err        error

	calls      int
	lastPrompt string
}

func (m *mockLocal) Generate(_ context.Context, prompt string) (*Completion, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.completion, m.err
}

func TestEngine_Mode(t *testing.T) {
	require.Equal(t, ModeHostedAPI, NewEngine(&mockHosted{}, &mockLocal{}).Mode())
	require.Equal(t, ModeLocalModel, NewEngine(nil, &mockLocal{}).Mode())
	require.Equal(t, ModeFallbackOnly, NewEngine(nil, nil).Mode())
}

func TestGenerate_HostedTier(t *testing.T) {
	hosted := &mockHosted{completion: &Completion{Content: "hosted answer", TokensUsed: 42}}
	local := &mockLocal{completion: &Completion{Content: "local answer"}}
	engine := NewEngine(hosted, local)

	res := engine.Generate(context.Background(), Request{Message: "hi", Model: "gpt-4"})
	require.Equal(t, "hosted answer", res.Content)
	require.Equal(t, "gpt-4", res.Model)
	require.Equal(t, 42, res.TokensUsed)
	require.Nil(t, res.Chunks)
	require.Zero(t, local.calls)
}

func TestGenerate_HostedTierSkippedForLocalModelID(t *testing.T) {
	hosted := &mockHosted{completion: &Completion{Content: "hosted answer"}}
	local := &mockLocal{completion: &Completion{Content: "local answer"}}
	engine := NewEngine(hosted, local)

	res := engine.Generate(context.Background(), Request{Message: "hi", Model: "local-llama"})
	require.Equal(t, "local answer", res.Content)
	require.Equal(t, LocalModelID, res.Model)
	require.Zero(t, hosted.calls)
}

func TestGenerate_FallsThroughToLocal(t *testing.T) {
	hosted := &mockHosted{err: errors.New("quota exceeded")}
	local := &mockLocal{completion: &Completion{Content: "local answer", TokensUsed: 7}}
	engine := NewEngine(hosted, local)

	res := engine.Generate(context.Background(), Request{Message: "hi", Model: "gpt-3.5-turbo"})
	require.Equal(t, 1, hosted.calls)
	require.Equal(t, "local answer", res.Content)
	require.Equal(t, LocalModelID, res.Model)
	require.Equal(t, 7, res.TokensUsed)
}

func TestGenerate_FallsThroughToRuleBased(t *testing.T) {
	hosted := &mockHosted{err: errors.New("quota exceeded")}
	local := &mockLocal{err: errors.New("connection refused")}
	engine := NewEngine(hosted, local)

	res := engine.Generate(context.Background(), Request{Message: "2 + 2", Model: "gpt-4"})
	require.Equal(t, "2 + 2 = 4", res.Content)
	require.Equal(t, FallbackModelID, res.Model)
}

func TestGenerate_FallbackOnlyNeverFails(t *testing.T) {
	engine := NewEngine(nil, nil)

	res := engine.Generate(context.Background(), Request{Message: "hello"})
	require.NotEmpty(t, res.Content)
	require.Equal(t, FallbackModelID, res.Model)
}

func TestGenerate_HistoryTruncation(t *testing.T) {
	history := make([]domain.Message, 25)
	for i := range history {
		history[i] = domain.Message{Role: domain.MessageRoleUser, Content: "m"}
	}

	hosted := &mockHosted{completion: &Completion{Content: "ok"}}
	engine := NewEngine(hosted, nil)
	engine.Generate(context.Background(), Request{Message: "hi", History: history, Model: "gpt-4"})
	require.Len(t, hosted.lastHistory, 10)

	local := &mockLocal{completion: &Completion{Content: "ok"}}
	engine = NewEngine(nil, local)
	engine.Generate(context.Background(), Request{Message: "hi", History: history})
	// 5 history lines plus the current turn and the answer cue.
	require.Equal(t, 7, countLines(local.lastPrompt))
}

func countLines(s string) int {
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

func TestGenerate_StreamingLowerTiers(t *testing.T) {
	local := &mockLocal{completion: &Completion{Content: "streamed local answer"}}
	engine := NewEngine(nil, local)

	res := engine.Generate(context.Background(), Request{Message: "hi", Stream: true})
	require.NotNil(t, res.Chunks)
	got, err := res.Chunks.Collect()
	require.NoError(t, err)
	require.Equal(t, res.Content, got)

	engine = NewEngine(nil, nil)
	res = engine.Generate(context.Background(), Request{Message: "hello", Stream: true})
	require.NotNil(t, res.Chunks)
	got, err = res.Chunks.Collect()
	require.NoError(t, err)
	require.Equal(t, res.Content, got)
}

func TestBuildLocalPrompt(t *testing.T) {
	history := []domain.Message{
		{Role: domain.MessageRoleUser, Content: "hi"},
		{Role: domain.MessageRoleAssistant, Content: "hello there"},
	}
	got := buildLocalPrompt(history, "how are you")
	require.Equal(t, "User: hi\nAI: hello there\nUser: how are you\nAI:", got)
}
