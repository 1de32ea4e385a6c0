package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondFallback_Arithmetic(t *testing.T) {
	require.Equal(t, "2 + 2 = 4", respondFallback("2 + 2"))
	require.Equal(t, "5 * 6 = 30", respondFallback("5 * 6"))

	got := respondFallback("5 / 0")
	require.Contains(t, got, "couldn't calculate")
	require.Contains(t, got, "division by zero")
}

func TestRespondFallback_Greeting(t *testing.T) {
	greetings := []string{"hello", "Hi there!", "hey", "Good morning"}
	for _, msg := range greetings {
		require.Contains(t, respondFallback(msg), "Hello! I'm an AI assistant", "message %q", msg)
	}

	// "hi" must only match as a whole token.
	require.NotContains(t, respondFallback("what is a hippopotamus"), "How can I help you today?")
}

func TestRespondFallback_CannedPhrases(t *testing.T) {
	require.Contains(t, respondFallback("How are you?"), "functioning well")
	require.Contains(t, respondFallback("who are you exactly"), "AI assistant powered by")
	require.Contains(t, respondFallback("what is your name"), "AI assistant powered by")
	require.Contains(t, respondFallback("I need some help"), "I can help you with")
	require.Contains(t, respondFallback("what can you do"), "I can help you with")
}

func TestRespondFallback_Topics(t *testing.T) {
	require.Equal(t, topicResponses["programming"], respondFallback("I love programming in Go"))
	require.Equal(t, topicResponses["space"], respondFallback("tell me about space."))
	require.Equal(t, topicResponses["music"], respondFallback("Music is great"))

	// Topic words only match on token boundaries: "ai" must not fire inside
	// other words.
	got := respondFallback("the rain in spain")
	require.NotEqual(t, topicResponses["ai"], got)
}

func TestRespondFallback_TopicOrderIsStable(t *testing.T) {
	msg := "does math relate to physics"
	first := respondFallback(msg)
	require.Equal(t, topicResponses["math"], first)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, respondFallback(msg))
	}
}

func TestRespondFallback_KeywordEcho(t *testing.T) {
	got := respondFallback("explain kubernetes networking")
	require.Contains(t, got, "interested in")
	require.Contains(t, got, "kubernetes")
	require.Contains(t, got, "networking")
}

func TestRespondFallback_Generic(t *testing.T) {
	got := respondFallback("ok then")
	require.Contains(t, got, "Could you tell me more")
}

func TestRespondFallback_NeverEmpty(t *testing.T) {
	messages := []string{"", "   ", "?!", "a b c", strings.Repeat("x", 500)}
	for _, msg := range messages {
		require.NotEmpty(t, respondFallback(msg), "message %q", msg)
	}
}

func TestExtractKeywords(t *testing.T) {
	kws := extractKeywords("please explain something about docker containers and orchestration")
	require.Equal(t, []string{"explain", "docker", "containers"}, kws)

	require.Empty(t, extractKeywords("a b c to do"))
}
