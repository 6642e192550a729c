// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ChatRequest Tests
// =============================================================================

func validChatRequest() ChatRequest {
	return ChatRequest{
		ConversationID: uuid.NewString(),
		Message:        "hello",
	}
}

// TestChatRequest_Valid verifies a minimal request passes after defaults.
func TestChatRequest_Valid(t *testing.T) {
	req := validChatRequest()
	req.EnsureDefaults()

	require.NoError(t, req.Validate())
	assert.NotEmpty(t, req.RequestID)
	assert.NotZero(t, req.Timestamp)
}

// TestChatRequest_Invalid covers the rejection cases.
func TestChatRequest_Invalid(t *testing.T) {
	cases := map[string]func(*ChatRequest){
		"missing conversation id": func(r *ChatRequest) { r.ConversationID = "" },
		"malformed id":            func(r *ChatRequest) { r.ConversationID = "abc" },
		"missing message":         func(r *ChatRequest) { r.Message = "" },
		"oversized message":       func(r *ChatRequest) { r.Message = strings.Repeat("a", MaxMessageContentBytes+1) },
		"too many files":          func(r *ChatRequest) { r.Files = []string{"1", "2", "3", "4", "5"} },
		"oversized document":      func(r *ChatRequest) { r.DocumentData = strings.Repeat("d", MaxDocumentDataBytes+1) },
		"bad request id":          func(r *ChatRequest) { r.RequestID = "not-a-uuid" },
	}
	for name, mutate := range cases {
		req := validChatRequest()
		req.EnsureDefaults()
		mutate(&req)
		assert.Error(t, req.Validate(), name)
	}
}

// TestChatRequest_BoundarySizes verifies exactly-at-cap payloads pass.
func TestChatRequest_BoundarySizes(t *testing.T) {
	req := validChatRequest()
	req.EnsureDefaults()
	req.Message = strings.Repeat("a", MaxMessageContentBytes)
	req.DocumentData = strings.Repeat("d", MaxDocumentDataBytes)
	req.Files = []string{"1", "2", "3", "4"}

	assert.NoError(t, req.Validate())
}

// TestChatRequest_EnsureDefaultsKeepsClientValues verifies provided ids
// survive.
func TestChatRequest_EnsureDefaultsKeepsClientValues(t *testing.T) {
	id := uuid.NewString()
	req := validChatRequest()
	req.RequestID = id
	req.Timestamp = 12345

	req.EnsureDefaults()
	assert.Equal(t, id, req.RequestID)
	assert.EqualValues(t, 12345, req.Timestamp)
}

// =============================================================================
// Turn and Conversation Tests
// =============================================================================

// TestNewUserTurn verifies HasFiles tracks the file list.
func TestNewUserTurn(t *testing.T) {
	withFiles := NewUserTurn("look at this", []string{"a.txt"}, "doc")
	assert.Equal(t, RoleUser, withFiles.Role)
	assert.True(t, withFiles.HasFiles)
	assert.Equal(t, "doc", withFiles.DocumentData)

	bare := NewUserTurn("just text", nil, "")
	assert.False(t, bare.HasFiles)
	assert.Empty(t, bare.Files)
}

// TestNewConversation verifies id generation and the default name.
func TestNewConversation(t *testing.T) {
	conv := NewConversation("alice", "")
	assert.Equal(t, "New Chat", conv.Name)
	assert.Equal(t, "alice", conv.OwnerID)
	require.NoError(t, uuid.Validate(conv.ID))
	assert.Empty(t, conv.Messages)

	named := NewConversation("alice", "roadmap")
	assert.Equal(t, "roadmap", named.Name)
	assert.NotEqual(t, conv.ID, named.ID)
}

// TestConversationSummary verifies the summary omits messages but carries
// the count.
func TestConversationSummary(t *testing.T) {
	conv := NewConversation("alice", "chat")
	conv.Messages = append(conv.Messages,
		NewUserTurn("q", nil, ""), NewAssistantTurn("a"))

	s := conv.Summary()
	assert.Equal(t, conv.ID, s.ID)
	assert.Equal(t, "chat", s.Name)
	assert.Equal(t, 2, s.Turns)
}

// =============================================================================
// SearchResult Tests
// =============================================================================

// TestSearchResult_HasAnswer verifies nil safety and whitespace handling.
func TestSearchResult_HasAnswer(t *testing.T) {
	var nilResult *SearchResult
	assert.False(t, nilResult.HasAnswer())
	assert.False(t, (&SearchResult{}).HasAnswer())
	assert.False(t, (&SearchResult{Answer: "   "}).HasAnswer())
	assert.True(t, (&SearchResult{Answer: "sunny"}).HasAnswer())
}
