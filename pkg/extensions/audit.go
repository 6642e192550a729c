// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"time"
)

// AuditEvent represents a security-relevant event for compliance logging.
//
// # Event Categories
//
// Events are categorized by type for filtering and alerting:
//   - Authentication: "auth.failed"
//   - Chat: "chat.message", "chat.response", "chat.blocked"
//   - Conversations: "conversation.create", "conversation.delete",
//     "conversation.rename"
//   - Uploads: "upload.extract"
//
// For regulatory compliance always populate UserID and Timestamp.
//
// Example:
//
//	event := AuditEvent{
//	    EventType:    "chat.message",
//	    Timestamp:    time.Now().UTC(),
//	    UserID:       authInfo.UserID,
//	    Action:       "send",
//	    ResourceType: "conversation",
//	    ResourceID:   conversationID,
//	    Outcome:      "success",
//	}
type AuditEvent struct {
	// EventType categorizes the event, formatted "category.action".
	EventType string

	// Timestamp is when the event occurred (always UTC).
	// If zero, implementations should set time.Now().UTC().
	Timestamp time.Time

	// UserID identifies who performed the action.
	// Use "system" for automated actions.
	UserID string

	// Action describes the attempted operation:
	// "create", "read", "update", "delete", "send", "extract".
	Action string

	// ResourceType is the category of resource involved, e.g.
	// "conversation", "upload".
	ResourceType string

	// ResourceID is the specific resource instance (optional).
	ResourceID string

	// Outcome is "success", "failure", "blocked", or "error".
	Outcome string

	// Metadata holds additional event-specific data, e.g. "model",
	// "duration_ms", "error".
	Metadata map[string]any
}

// AuditLogger records audit events.
//
// Implementations must be safe for concurrent use and must not block the
// request path; buffer or drop rather than stall.
//
// # Open Source Behavior
//
// The default NopAuditLogger discards all events.
type AuditLogger interface {
	// Log records one event. Errors are advisory; callers log and continue.
	Log(ctx context.Context, event AuditEvent) error
}

// NopAuditLogger is the default audit logger for open source. It discards
// every event.
//
// Thread-safe: this implementation has no mutable state.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(_ context.Context, _ AuditEvent) error {
	return nil
}

var _ AuditLogger = (*NopAuditLogger)(nil)
