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
// Context Assembly Limits
// =============================================================================

const (
	// historyWindow is how many trailing messages the extended mode scans.
	historyWindow = 20

	// maxExchanges is how many user/assistant pairs the extended mode keeps.
	maxExchanges = 8

	// maxDocumentChars caps per-pair document content in extended mode.
	maxDocumentChars = 1000

	// maxReplyChars caps assistant replies in extended mode.
	maxReplyChars = 800

	// minimalUserTurns is how many trailing user turns the minimal mode uses.
	minimalUserTurns = 2

	// minimalDocChars caps document content in minimal mode.
	minimalDocChars = 400
)

const (
	historyHeader = "=== CONVERSATION HISTORY ==="
	historyFooter = "=== END HISTORY ==="
)

// =============================================================================
// ContextAssembler
// =============================================================================

// ContextAssembler renders conversation history into the text block the
// prompt composer embeds.
//
// # Description
//
// Two render modes exist. Extended mode (needsHistory true) scans the last
// 20 messages positionally: a user/assistant pair is emitted only when the
// even-indexed element of the window is a user turn, the last 8 pairs are
// kept, and each pair becomes a numbered "Exchange N" block carrying the
// user text, an optional [Files] line, optional [Document Content] at 1000
// chars, and the assistant reply at 800 chars. Minimal mode renders the
// last two user turns, most recent first, as LastMessage/SecondLastMessage
// lines with the literal "null" filling absent slots.
//
// All truncation is by character count and appends "..." only when content
// was actually cut; boundary-exact strings pass through unmodified.
type ContextAssembler struct{}

// NewContextAssembler creates an assembler.
func NewContextAssembler() *ContextAssembler {
	return &ContextAssembler{}
}

// Assemble renders the history for the given mode.
func (a *ContextAssembler) Assemble(messages []datatypes.Turn, extended bool) string {
	if extended {
		return a.assembleExtended(messages)
	}
	return a.assembleMinimal(messages)
}

// exchange is one paired user/assistant round in extended mode.
type exchange struct {
	user      datatypes.Turn
	assistant datatypes.Turn
}

func (a *ContextAssembler) assembleExtended(messages []datatypes.Turn) string {
	window := messages
	// A trailing user turn has no reply yet. Drop it before cutting the
	// window so the cut keeps user turns on even indices.
	if n := len(window); n > 0 && window[n-1].Role == datatypes.RoleUser {
		window = window[:n-1]
	}
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}

	// Positional pairing: element i pairs with i+1 only when i is a user
	// turn. A trailing unpaired turn is dropped.
	var exchanges []exchange
	for i := 0; i+1 < len(window); i += 2 {
		if window[i].Role != datatypes.RoleUser {
			continue
		}
		exchanges = append(exchanges, exchange{user: window[i], assistant: window[i+1]})
	}
	if len(exchanges) > maxExchanges {
		exchanges = exchanges[len(exchanges)-maxExchanges:]
	}
	if len(exchanges) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(historyHeader)
	b.WriteString("\n")
	for i, ex := range exchanges {
		if i > 0 {
			b.WriteString("---\n")
		}
		fmt.Fprintf(&b, "Exchange %d:\n", i+1)
		fmt.Fprintf(&b, "User: %s\n", ex.user.Content)
		if ex.user.HasFiles && len(ex.user.Files) > 0 {
			fmt.Fprintf(&b, "[Files]: %s\n", strings.Join(ex.user.Files, ", "))
		}
		if ex.user.DocumentData != "" {
			fmt.Fprintf(&b, "[Document Content]: %s\n", truncateChars(ex.user.DocumentData, maxDocumentChars))
		}
		fmt.Fprintf(&b, "Assistant: %s\n", truncateChars(ex.assistant.Content, maxReplyChars))
	}
	b.WriteString(historyFooter)
	return b.String()
}

func (a *ContextAssembler) assembleMinimal(messages []datatypes.Turn) string {
	// Collect the last two user turns, most recent first.
	var userTurns []datatypes.Turn
	for i := len(messages) - 1; i >= 0 && len(userTurns) < minimalUserTurns; i-- {
		if messages[i].Role == datatypes.RoleUser {
			userTurns = append(userTurns, messages[i])
		}
	}

	render := func(idx int) string {
		if idx >= len(userTurns) {
			return "null"
		}
		t := userTurns[idx]
		s := t.Content
		if t.DocumentData != "" {
			s += fmt.Sprintf(" [Document: %s]", truncateChars(t.DocumentData, minimalDocChars))
		}
		return s
	}

	return fmt.Sprintf("LastMessage: %s\nSecondLastMessage: %s", render(0), render(1))
}

// truncateChars cuts s to max characters and appends "..." only when a cut
// happened. An exactly max-length string is returned unmodified.
func truncateChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
