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
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// =============================================================================
// Prompt Fragments
// =============================================================================

const documentBlockTemplate = `

Fetched Document Data:
%s

Use the above document content to answer the user's question.`

const deepReasoningNote = `

Think through the problem carefully and step by step before giving the final answer.`

const reportFormatNote = `

Format the response as a strict report with these sections, in this order: Title, Executive Summary, Table of Contents, Background, Key Findings, Detailed Analysis, Evidence, Limitations, Conclusion, Recommendations, Sources. Cite sources inline as [n] and list each one under Sources as [n]: [title](url).`

// =============================================================================
// PromptComposer
// =============================================================================

// ComposeInput carries everything the composer needs for one prompt.
type ComposeInput struct {
	// Message is the user's current message.
	Message string

	// DocumentData is text extracted from files attached to this turn.
	// When non-empty, a document block is embedded regardless of template.
	DocumentData string

	// ContextText is the assembler's output for the chosen mode.
	ContextText string

	// NeedsHistory is the relevance classifier's verdict; it selects
	// between the history-aware and standalone templates and controls
	// whether search prompts embed the history block.
	NeedsHistory bool

	// Search is the gate's result; nil or answer-less results select the
	// no-search templates.
	Search *datatypes.SearchResult

	// DeepReasoning appends the step-by-step note and the strict report
	// formatting note.
	DeepReasoning bool
}

// PromptComposer renders the final completion prompt.
//
// # Description
//
// Template selection is a fixed 2x2 table on (hasSearchAnswer,
// needsHistory):
//
//   - search answer + history: web-augmented prompt embedding the extended
//     history block, the search answer, and a numbered source list the
//     model must reproduce.
//   - search answer, no history: the same without the history block.
//   - no search + history: history-aware prompt around the extended block.
//   - no search, no history: standalone prompt around the minimal context.
//
// The document block and the deep-reasoning notes are appended orthogonally
// to the selected template.
type PromptComposer struct{}

// NewPromptComposer creates a composer.
func NewPromptComposer() *PromptComposer {
	return &PromptComposer{}
}

// Compose renders the prompt for the given input.
func (p *PromptComposer) Compose(in ComposeInput) string {
	var b strings.Builder

	if in.Search.HasAnswer() {
		p.composeWithSearch(&b, in)
	} else if in.NeedsHistory {
		p.composeWithHistory(&b, in)
	} else {
		p.composeStandalone(&b, in)
	}

	if in.DeepReasoning {
		b.WriteString(deepReasoningNote)
		b.WriteString(reportFormatNote)
	}
	return b.String()
}

func (p *PromptComposer) composeWithSearch(b *strings.Builder, in ComposeInput) {
	b.WriteString("You are a helpful assistant answering with the help of fresh web search results.")
	if in.NeedsHistory && in.ContextText != "" {
		b.WriteString("\n\n")
		b.WriteString(in.ContextText)
	}
	b.WriteString("\n\nWeb search answer for the user's question:\n")
	b.WriteString(in.Search.Answer)
	if len(in.Search.References) > 0 {
		b.WriteString("\n\nSources to include:\n")
		b.WriteString(renderSources(in.Search.References))
	}
	b.WriteString("\n\nUser question: ")
	b.WriteString(in.Message)
	p.writeDocumentBlock(b, in)
	b.WriteString("\n\nSynthesize the search answer into a direct response to the question. End the response with a \"Sources:\" section reproducing the source list above, one per line as [n]: [title](url).")
}

func (p *PromptComposer) composeWithHistory(b *strings.Builder, in ComposeInput) {
	b.WriteString("You are a helpful assistant continuing an ongoing conversation.")
	if in.ContextText != "" {
		b.WriteString("\n\n")
		b.WriteString(in.ContextText)
	}
	b.WriteString("\n\nCurrent user message: ")
	b.WriteString(in.Message)
	p.writeDocumentBlock(b, in)
	b.WriteString("\n\nAnswer the current message, drawing on the history above where it is relevant.")
}

func (p *PromptComposer) composeStandalone(b *strings.Builder, in ComposeInput) {
	b.WriteString("You are a helpful assistant. Here is the recent conversation context:")
	if in.ContextText != "" {
		b.WriteString("\n\n")
		b.WriteString(in.ContextText)
	}
	b.WriteString("\n\nCurrent user message: ")
	b.WriteString(in.Message)
	p.writeDocumentBlock(b, in)
	b.WriteString("\n\nAnswer the question directly.")
}

func (p *PromptComposer) writeDocumentBlock(b *strings.Builder, in ComposeInput) {
	if in.DocumentData == "" {
		return
	}
	fmt.Fprintf(b, documentBlockTemplate, in.DocumentData)
}

// renderSources renders a 1-indexed source list, one reference per line.
func renderSources(refs []datatypes.Reference) string {
	lines := make([]string, len(refs))
	for i, ref := range refs {
		lines[i] = fmt.Sprintf("[%d]: [%s](%s)", i+1, ref.Title, ref.URL)
	}
	return strings.Join(lines, "\n")
}
