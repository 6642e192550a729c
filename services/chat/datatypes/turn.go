// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the chat service.
//
// This file contains the persisted conversation model: a Conversation owned
// by a principal, holding an ordered list of Turns. Request/response types
// for the HTTP surface live in chat.go; web search types in search.go.
package datatypes

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Roles
// =============================================================================

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser = "user"

	// RoleAssistant marks a turn authored by the model.
	RoleAssistant = "assistant"
)

// =============================================================================
// Turn
// =============================================================================

// Turn is a single message in a conversation.
//
// # Description
//
// A Turn records who spoke (Role), what was said (Content), and when
// (Timestamp, Unix milliseconds UTC). User turns may additionally carry
// upload metadata: HasFiles/Files hold the names of files attached to the
// turn, and DocumentData holds the text extracted from those files at
// upload time. Assistant turns never carry file metadata.
//
// # Fields
//
//   - Role: "user" or "assistant".
//   - Content: The message text.
//   - Timestamp: Unix timestamp in milliseconds (UTC).
//   - HasFiles: True when the user attached files to this turn.
//   - Files: Names of the attached files (names only, no bytes).
//   - DocumentData: Text extracted from the attached files, joined into
//     one block. Empty when no files were attached.
type Turn struct {
	Role         string   `json:"role"`
	Content      string   `json:"content"`
	Timestamp    int64    `json:"timestamp"`
	HasFiles     bool     `json:"has_files,omitempty"`
	Files        []string `json:"files,omitempty"`
	DocumentData string   `json:"document_data,omitempty"`
}

// NewUserTurn builds a user Turn with a fresh timestamp.
//
// Files metadata is attached only when names are provided; an empty slice
// leaves HasFiles false so persisted turns match what the client sent.
func NewUserTurn(content string, files []string, documentData string) Turn {
	t := Turn{
		Role:         RoleUser,
		Content:      content,
		Timestamp:    time.Now().UnixMilli(),
		DocumentData: documentData,
	}
	if len(files) > 0 {
		t.HasFiles = true
		t.Files = files
	}
	return t
}

// NewAssistantTurn builds an assistant Turn with a fresh timestamp.
func NewAssistantTurn(content string) Turn {
	return Turn{
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// =============================================================================
// Conversation
// =============================================================================

// DefaultConversationName is the name given to conversations created without
// an explicit name.
const DefaultConversationName = "New Chat"

// Conversation is a persisted chat thread.
//
// # Description
//
// Conversations are keyed by (OwnerID, ID): every lookup is scoped to the
// owner, so one principal can never read or append to another's thread.
// Messages are stored in chronological order; the store appends user and
// assistant turns together in a single write.
//
// # Fields
//
//   - ID: Conversation identifier (UUID v4).
//   - OwnerID: The owning principal's user ID.
//   - Name: Display name. Defaults to "New Chat".
//   - CreatedAt / UpdatedAt: Unix timestamps in milliseconds (UTC).
//   - Messages: Ordered turns, oldest first.
type Conversation struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	Messages  []Turn `json:"messages"`
}

// NewConversation creates an empty conversation for the given owner.
//
// An empty name falls back to DefaultConversationName.
func NewConversation(ownerID, name string) *Conversation {
	if name == "" {
		name = DefaultConversationName
	}
	now := time.Now().UnixMilli()
	return &Conversation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Turn{},
	}
}

// ConversationSummary is the list-view projection of a Conversation.
//
// Returned by the list endpoint; omits Messages to keep listings cheap.
type ConversationSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt int64  `json:"updated_at"`
	Turns     int    `json:"turns"`
}

// Summary projects the conversation into its list-view form.
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:        c.ID,
		Name:      c.Name,
		UpdatedAt: c.UpdatedAt,
		Turns:     len(c.Messages),
	}
}
