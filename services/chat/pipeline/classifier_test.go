package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Verdict Parsing Tests
// =============================================================================

// TestParseVerdict covers the permissive YES match and the default-NO
// behavior for malformed output.
func TestParseVerdict(t *testing.T) {
	cases := []struct {
		resp string
		want bool
	}{
		{"YES", true},
		{"yes", true},
		{" Yes.\n", true},
		{"YES, the history is needed", true},
		{"NO", false},
		{"no", false},
		{"maybe", false},
		{"", false},
		{"I cannot determine that", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseVerdict(tc.resp), "resp=%q", tc.resp)
	}
}

// =============================================================================
// LLMClassifier Tests
// =============================================================================

// TestLLMClassifier_NeedsHistory verifies the prompt carries the message
// and the verdict is parsed from the completion.
func TestLLMClassifier_NeedsHistory(t *testing.T) {
	var seenPrompt string
	var seenMax int
	c := NewLLMClassifier(func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		seenPrompt = prompt
		seenMax = maxTokens
		return "YES", nil
	})

	need, err := c.NeedsHistory(context.Background(), "what about him?")
	require.NoError(t, err)
	assert.True(t, need)
	assert.Contains(t, seenPrompt, "what about him?")
	assert.Contains(t, seenPrompt, "conversation history")
	assert.True(t, strings.HasSuffix(seenPrompt, "Answer with exactly one word: YES or NO."))
	assert.Equal(t, maxVerdictTokens, seenMax)
}

// TestLLMClassifier_NeedsSearch verifies the search prompt is distinct
// from the relevance prompt.
func TestLLMClassifier_NeedsSearch(t *testing.T) {
	var seenPrompt string
	c := NewLLMClassifier(func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		seenPrompt = prompt
		return "no", nil
	})

	need, err := c.NeedsSearch(context.Background(), "latest rates?")
	require.NoError(t, err)
	assert.False(t, need)
	assert.Contains(t, seenPrompt, "web search")
	assert.Contains(t, seenPrompt, "latest rates?")
}

// TestLLMClassifier_GenerateError verifies backend failures surface as
// errors, not verdicts.
func TestLLMClassifier_GenerateError(t *testing.T) {
	boom := errors.New("backend down")
	c := NewLLMClassifier(func(ctx context.Context, prompt string, maxTokens int) (string, error) {
		return "", boom
	})

	_, err := c.NeedsHistory(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
