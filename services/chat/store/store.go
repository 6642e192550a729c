// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store provides persistence for conversations.
//
// The primary implementation is BadgerStore (badger.go), an embedded
// BadgerDB store with low-latency access (~100µs). Conversations are
// keyed by (owner, conversation id) so every operation is owner-scoped.
package store

import (
	"context"
	"errors"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNotFound is returned when no conversation exists for the given
	// owner and id. Lookups with the wrong owner report not-found rather
	// than leaking the conversation's existence.
	ErrNotFound = errors.New("conversation not found")

	// ErrAlreadyExists is returned when creating a conversation whose id
	// is already taken for the owner.
	ErrAlreadyExists = errors.New("conversation already exists")
)

// IsNotFound reports whether err indicates a missing conversation.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// =============================================================================
// ChatStore Interface
// =============================================================================

// ChatStore is the persistence surface for conversations.
//
// # Description
//
// All operations take the owner's user id and scope reads and writes to
// that owner. AppendExchange is the pipeline's commit point: it appends
// the user turn and the assistant turn in one atomic write, so a stored
// conversation never contains a user turn without its reply.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ChatStore interface {
	// Create persists a new conversation.
	Create(ctx context.Context, conv *datatypes.Conversation) error

	// Find returns the conversation for (ownerID, conversationID),
	// or ErrNotFound.
	Find(ctx context.Context, ownerID, conversationID string) (*datatypes.Conversation, error)

	// List returns summaries of the owner's conversations, most recently
	// updated first.
	List(ctx context.Context, ownerID string) ([]datatypes.ConversationSummary, error)

	// Rename updates the conversation's display name.
	Rename(ctx context.Context, ownerID, conversationID, name string) error

	// Delete removes the conversation. Deleting a missing conversation
	// returns ErrNotFound.
	Delete(ctx context.Context, ownerID, conversationID string) error

	// AppendExchange appends one user turn and its assistant reply in a
	// single atomic write and returns the updated conversation.
	AppendExchange(ctx context.Context, ownerID, conversationID string, userTurn, assistantTurn datatypes.Turn) (*datatypes.Conversation, error)

	// Close releases the underlying storage.
	Close() error
}
