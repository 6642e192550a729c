package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// Interfaces
// =============================================================================

// GenerateFunc is the LLM completion function used by classifiers.
// This matches the signature needed for short classification prompts and
// allows injection of any backend (or a mock in tests).
type GenerateFunc func(ctx context.Context, prompt string, maxTokens int) (string, error)

// RelevanceClassifier decides whether answering the current message needs
// the earlier conversation history.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type RelevanceClassifier interface {
	// NeedsHistory returns true when the message refers back to earlier
	// turns and cannot be answered on its own.
	NeedsHistory(ctx context.Context, message string) (bool, error)
}

// SearchClassifier decides whether a message needs fresh external
// information before a web search is spent on it.
type SearchClassifier interface {
	// NeedsSearch returns true when the message asks about current events,
	// live data, or anything else the model cannot know from training.
	NeedsSearch(ctx context.Context, message string) (bool, error)
}

// =============================================================================
// LLM-backed Classifier
// =============================================================================

// maxVerdictTokens bounds classification responses. One word is expected;
// a few tokens of headroom absorb models that answer "YES." with punctuation.
const maxVerdictTokens = 8

const relevancePrompt = `You are a classifier for a chat assistant. Decide whether answering the user's latest message requires the earlier conversation history.

Answer YES when the message refers back to earlier turns: pronouns without a referent ("what about him?", "does it scale?"), follow-ups ("tell me more", "why?"), continuations ("keep going"), or comparisons with something discussed before.

Answer NO when the message is self-contained and can be answered with no prior context ("What is the capital of France?", "Write a haiku about rain").

User message:
%s

Answer with exactly one word: YES or NO.`

const searchNeedPrompt = `You are a classifier for a chat assistant. Decide whether answering the user's message requires up-to-date information from a web search.

Answer YES for current events, news, prices, weather, schedules, releases, or anything that changes over time.

Answer NO for general knowledge, coding help, math, writing tasks, or questions about the ongoing conversation.

User message:
%s

Answer with exactly one word: YES or NO.`

// LLMClassifier implements RelevanceClassifier and SearchClassifier with
// single-word verdict prompts against an injected completion function.
type LLMClassifier struct {
	generate GenerateFunc
}

var _ RelevanceClassifier = (*LLMClassifier)(nil)
var _ SearchClassifier = (*LLMClassifier)(nil)

// NewLLMClassifier creates a classifier backed by the given completion
// function.
func NewLLMClassifier(generate GenerateFunc) *LLMClassifier {
	return &LLMClassifier{generate: generate}
}

// NeedsHistory implements RelevanceClassifier.
func (c *LLMClassifier) NeedsHistory(ctx context.Context, message string) (bool, error) {
	return c.verdict(ctx, relevancePrompt, message)
}

// NeedsSearch implements SearchClassifier.
func (c *LLMClassifier) NeedsSearch(ctx context.Context, message string) (bool, error) {
	return c.verdict(ctx, searchNeedPrompt, message)
}

func (c *LLMClassifier) verdict(ctx context.Context, promptTemplate, message string) (bool, error) {
	resp, err := c.generate(ctx, fmt.Sprintf(promptTemplate, message), maxVerdictTokens)
	if err != nil {
		return false, fmt.Errorf("classification call failed: %w", err)
	}
	return parseVerdict(resp), nil
}

// parseVerdict maps a model response to a boolean. A response containing
// YES (any casing) is affirmative; everything else, including malformed
// output, counts as NO.
func parseVerdict(resp string) bool {
	return strings.Contains(strings.ToUpper(strings.TrimSpace(resp)), "YES")
}
