package ai

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// The rule-based tier classifies the message through an ordered rule list;
// the first matching rule wins and the tier never fails.

const minKeywordLen = 5

var greetingPhrases = []string{"good morning", "good afternoon", "good evening"}

var howAreYouPhrases = []string{"how are you", "how do you do"}

var whoAreYouPhrases = []string{"your name", "who are you"}

var helpPhrases = []string{"help", "what can you do"}

// topicOrder fixes the match order; map iteration must not decide which topic
// wins when several keywords appear in one message.
var topicOrder = []string{
	"programming", "math", "physics", "chemistry", "biology", "history",
	"geography", "space", "ai", "sports", "music", "health", "business",
}

var topicResponses = map[string]string{
	"programming": "Programming is a great topic! Whether it's Go, Python, JavaScript or any other language, I'm happy to talk about algorithms, code design, debugging or best practices. What are you working on?",
	"math":        "Mathematics! From arithmetic to calculus to linear algebra, there's a lot to explore. You can also just type an expression like 12 * (3 + 4) and I'll calculate it for you.",
	"physics":     "Physics describes how the universe works, from falling apples to quantum fields. Is there a particular area you're curious about, like mechanics, relativity or thermodynamics?",
	"chemistry":   "Chemistry is all about matter and its transformations. Elements, reactions, bonds - what would you like to dig into?",
	"biology":     "Biology covers everything living, from cells and DNA to entire ecosystems. What part of the living world interests you?",
	"history":     "History is full of fascinating stories. Which period or event would you like to talk about?",
	"geography":   "Geography spans continents, countries, climates and cultures. Is there a place you'd like to know more about?",
	"space":       "Space is endlessly fascinating - planets, stars, black holes, galaxies. What would you like to explore?",
	"ai":          "Artificial intelligence is my home turf! Machine learning, neural networks, language models - ask away.",
	"sports":      "Sports bring people together! Football, basketball, tennis, running - which one do you follow?",
	"music":       "Music is a universal language. Are you into a particular genre, artist or instrument?",
	"health":      "Health and wellbeing matter a lot. I can share general information, though for medical advice you should always consult a professional.",
	"business":    "Business covers startups, markets, management and economics. What aspect are you interested in?",
}

var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "being": {}, "before": {},
	"between": {}, "could": {}, "every": {}, "their": {}, "there": {},
	"these": {}, "thing": {}, "think": {}, "those": {}, "where": {},
	"which": {}, "while": {}, "would": {}, "should": {}, "please": {},
	"really": {}, "something": {}, "anything": {},
}

// respondFallback produces a deterministic canned response. It never fails.
func respondFallback(message string) string {
	lower := strings.ToLower(strings.TrimSpace(message))

	if isArithmetic(message) {
		return respondArithmetic(message)
	}

	if isGreeting(lower) {
		return "Hello! I'm an AI assistant. How can I help you today?"
	}

	if containsAny(lower, howAreYouPhrases) {
		return "I'm functioning well, thank you! I'm here to help you with any questions or tasks you have."
	}

	if containsAny(lower, whoAreYouPhrases) {
		return "I'm an AI assistant powered by this chat platform. I'm here to help answer your questions and assist with various tasks."
	}

	if containsAny(lower, helpPhrases) {
		return "I can help you with:\n" +
			"- Answering questions on various topics\n" +
			"- Calculating arithmetic expressions\n" +
			"- Providing information and explanations\n" +
			"- Having conversations\n" +
			"Just ask me anything!"
	}

	tokens := tokenSet(lower)
	for _, topic := range topicOrder {
		if _, ok := tokens[topic]; ok {
			return topicResponses[topic]
		}
	}

	if keywords := extractKeywords(lower); len(keywords) > 0 {
		return fmt.Sprintf("I see you're interested in %s. Tell me more about what you'd like to know or discuss - I'm here to help!",
			strings.Join(keywords, ", "))
	}

	return "I understand. Could you tell me more about what you'd like to know or discuss? I'm here to help!"
}

func respondArithmetic(message string) string {
	expr := strings.TrimSpace(message)
	v, err := evalArithmetic(expr)
	if err != nil {
		return fmt.Sprintf("I couldn't calculate %q: %s. Try a plain arithmetic expression like 2 + 2.", expr, err)
	}
	return fmt.Sprintf("%s = %s", expr, formatNumber(v))
}

func tokenSet(lower string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(lower) {
		set[strings.Trim(tok, ".,!?:;")] = struct{}{}
	}
	return set
}

// isGreeting matches short greeting words on token boundaries so that "hi"
// does not fire inside unrelated words, plus a few greeting phrases.
func isGreeting(lower string) bool {
	for _, tok := range strings.Fields(lower) {
		tok = strings.Trim(tok, ".,!?")
		if tok == "hello" || tok == "hi" || tok == "hey" {
			return true
		}
	}
	return containsAny(lower, greetingPhrases)
}

func containsAny(text string, phrases []string) bool {
	return lo.SomeBy(phrases, func(p string) bool {
		return strings.Contains(text, p)
	})
}

// extractKeywords picks the longer tokens of the message, minus stop words,
// to echo back in the generic response.
func extractKeywords(lower string) []string {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var keywords []string
	for _, f := range fields {
		if len(f) < minKeywordLen {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		keywords = append(keywords, f)
		if len(keywords) == 3 {
			break
		}
	}
	return keywords
}
