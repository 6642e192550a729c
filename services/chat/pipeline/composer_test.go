// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// =============================================================================
// Test Fixtures
// =============================================================================

func searchFixture() *datatypes.SearchResult {
	return &datatypes.SearchResult{
		Answer: "It is sunny in Lisbon today.",
		References: []datatypes.Reference{
			{Title: "Weather.com", URL: "https://weather.com/lisbon", Content: "sunny"},
			{Title: "IPMA", URL: "https://ipma.pt", Content: "clear skies"},
		},
	}
}

// =============================================================================
// Template Selection Tests
// =============================================================================

// TestCompose_SearchWithHistory verifies the web-augmented template embeds
// the extended history block when the relevance verdict is positive.
func TestCompose_SearchWithHistory(t *testing.T) {
	c := NewPromptComposer()

	got := c.Compose(ComposeInput{
		Message:      "what about tomorrow?",
		ContextText:  "=== CONVERSATION HISTORY ===\nExchange 1:\nUser: weather?\nAssistant: sunny\n=== END HISTORY ===",
		NeedsHistory: true,
		Search:       searchFixture(),
	})

	assert.Contains(t, got, "fresh web search results")
	assert.Contains(t, got, "=== CONVERSATION HISTORY ===")
	assert.Contains(t, got, "Web search answer for the user's question:\nIt is sunny in Lisbon today.")
	assert.Contains(t, got, "User question: what about tomorrow?")
	assert.Contains(t, got, "\"Sources:\" section")
}

// TestCompose_SearchWithoutHistory verifies the history block is omitted
// even when context text is present but the verdict was negative.
func TestCompose_SearchWithoutHistory(t *testing.T) {
	c := NewPromptComposer()

	got := c.Compose(ComposeInput{
		Message:      "weather in lisbon?",
		ContextText:  "LastMessage: hi\nSecondLastMessage: null",
		NeedsHistory: false,
		Search:       searchFixture(),
	})

	assert.Contains(t, got, "fresh web search results")
	assert.NotContains(t, got, "LastMessage:")
	assert.Contains(t, got, "It is sunny in Lisbon today.")
}

// TestCompose_HistoryNoSearch verifies the history-aware template.
func TestCompose_HistoryNoSearch(t *testing.T) {
	c := NewPromptComposer()

	got := c.Compose(ComposeInput{
		Message:      "and the second point?",
		ContextText:  "=== CONVERSATION HISTORY ===\nExchange 1:\nUser: list points\nAssistant: 1, 2, 3\n=== END HISTORY ===",
		NeedsHistory: true,
	})

	assert.Contains(t, got, "continuing an ongoing conversation")
	assert.Contains(t, got, "=== CONVERSATION HISTORY ===")
	assert.Contains(t, got, "Current user message: and the second point?")
	assert.NotContains(t, got, "Web search answer")
}

// TestCompose_StandaloneNoSearch verifies the standalone template carries
// the minimal context and direct-answer instruction.
func TestCompose_StandaloneNoSearch(t *testing.T) {
	c := NewPromptComposer()

	got := c.Compose(ComposeInput{
		Message:     "what is the capital of France?",
		ContextText: "LastMessage: hi\nSecondLastMessage: null",
	})

	assert.Contains(t, got, "Here is the recent conversation context:")
	assert.Contains(t, got, "LastMessage: hi")
	assert.Contains(t, got, "Answer the question directly.")
	assert.NotContains(t, got, "continuing an ongoing conversation")
}

// TestCompose_AnswerlessSearchFallsThrough verifies a search result with a
// blank answer selects the no-search templates.
func TestCompose_AnswerlessSearchFallsThrough(t *testing.T) {
	c := NewPromptComposer()

	got := c.Compose(ComposeInput{
		Message: "anything new?",
		Search:  &datatypes.SearchResult{Answer: "   "},
	})

	assert.NotContains(t, got, "Web search answer")
	assert.Contains(t, got, "Answer the question directly.")
}

// =============================================================================
// Orthogonal Block Tests
// =============================================================================

// TestCompose_DocumentBlock verifies the fetched-document block appears in
// every template when document data is attached.
func TestCompose_DocumentBlock(t *testing.T) {
	c := NewPromptComposer()

	for _, in := range []ComposeInput{
		{Message: "m", DocumentData: "quarterly figures"},
		{Message: "m", DocumentData: "quarterly figures", NeedsHistory: true},
		{Message: "m", DocumentData: "quarterly figures", Search: searchFixture()},
	} {
		got := c.Compose(in)
		assert.Contains(t, got, "Fetched Document Data:\nquarterly figures")
		assert.Contains(t, got, "Use the above document content")
	}
}

// TestCompose_DeepReasoningNotes verifies both notes are appended together
// and only when requested.
func TestCompose_DeepReasoningNotes(t *testing.T) {
	c := NewPromptComposer()

	plain := c.Compose(ComposeInput{Message: "m"})
	assert.NotContains(t, plain, "step by step")
	assert.NotContains(t, plain, "Executive Summary")

	deep := c.Compose(ComposeInput{Message: "m", DeepReasoning: true})
	assert.Contains(t, deep, "step by step")
	assert.Contains(t, deep, "Title, Executive Summary, Table of Contents")
	assert.Less(t, strings.Index(deep, "step by step"), strings.Index(deep, "Executive Summary"))
}

// =============================================================================
// Source Rendering Tests
// =============================================================================

// TestRenderSources verifies the 1-indexed markdown link lines.
func TestRenderSources(t *testing.T) {
	got := renderSources(searchFixture().References)

	assert.Equal(t, "[1]: [Weather.com](https://weather.com/lisbon)\n[2]: [IPMA](https://ipma.pt)", got)
}

// TestCompose_SourceListEmbedded verifies the composed search prompt lists
// every reference.
func TestCompose_SourceListEmbedded(t *testing.T) {
	c := NewPromptComposer()

	got := c.Compose(ComposeInput{Message: "m", Search: searchFixture()})

	assert.Contains(t, got, "Sources to include:\n[1]: [Weather.com](https://weather.com/lisbon)")
	assert.Contains(t, got, "[2]: [IPMA](https://ipma.pt)")
}
