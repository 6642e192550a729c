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

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// Fixed substitutions for unusable model output. These exact strings are
// what users see; do not reword casually.
const (
	// ReplyNotText substitutes for model output that was not plain text.
	ReplyNotText = "I apologize, but I couldn't generate a proper text response."

	// ReplyEmpty substitutes for blank model output.
	ReplyEmpty = "I apologize, but I was unable to generate a proper response. Please try again."
)

// ValidateReply normalizes raw model output into a persistable assistant
// turn.
//
// # Description
//
// The returned turn always has role assistant and a fresh timestamp,
// regardless of what the model produced. Non-string output is replaced
// with ReplyNotText; output that is empty after trimming is replaced with
// ReplyEmpty; everything else is persisted trimmed.
func ValidateReply(raw any) datatypes.Turn {
	text, ok := raw.(string)
	if !ok {
		return datatypes.NewAssistantTurn(ReplyNotText)
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return datatypes.NewAssistantTurn(ReplyEmpty)
	}
	return datatypes.NewAssistantTurn(trimmed)
}
