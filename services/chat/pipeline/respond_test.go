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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// TestValidateReply_Normal verifies a usable reply is trimmed and stamped
// as an assistant turn.
func TestValidateReply_Normal(t *testing.T) {
	turn := ValidateReply("  The answer is 42.\n")

	assert.Equal(t, datatypes.RoleAssistant, turn.Role)
	assert.Equal(t, "The answer is 42.", turn.Content)
	assert.WithinDuration(t, time.Now().UTC(), time.UnixMilli(turn.Timestamp), 5*time.Second)
}

// TestValidateReply_NonText verifies non-string output is replaced with
// the fixed apology.
func TestValidateReply_NonText(t *testing.T) {
	for _, raw := range []any{nil, 42, []byte("bytes"), map[string]string{"a": "b"}} {
		turn := ValidateReply(raw)
		assert.Equal(t, datatypes.RoleAssistant, turn.Role)
		assert.Equal(t, ReplyNotText, turn.Content)
	}
}

// TestValidateReply_Empty verifies whitespace-only output is replaced with
// the retry apology.
func TestValidateReply_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t "} {
		turn := ValidateReply(raw)
		assert.Equal(t, ReplyEmpty, turn.Content)
	}
}
