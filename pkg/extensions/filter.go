// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"errors"
)

// ErrMessageBlocked is returned when a message is rejected by the filter.
// Enterprise implementations should wrap this error with the reason.
var ErrMessageBlocked = errors.New("message blocked by filter")

// FilterResult contains the outcome of a filter operation.
type FilterResult struct {
	// Filtered is the message after filtering transformations.
	Filtered string

	// WasModified indicates if any transformations were applied.
	WasModified bool

	// WasBlocked indicates the message was rejected outright.
	// If true, Filtered must not be used.
	WasBlocked bool

	// BlockReason explains why the message was blocked (if WasBlocked).
	BlockReason string
}

// MessageFilter transforms messages before and after LLM processing.
//
// Messages flow through filters at two points: FilterInput runs on the
// user's message before the pipeline (PII redaction, policy blocks, prompt
// injection detection); FilterOutput runs on the assistant reply before it
// is returned and persisted (secret masking, disclaimers).
//
// Implementations must be safe for concurrent use.
//
// # Open Source Behavior
//
// The default NopMessageFilter passes all messages through unchanged.
type MessageFilter interface {
	// FilterInput transforms a user message before the pipeline sees it.
	FilterInput(ctx context.Context, user *AuthInfo, message string) (FilterResult, error)

	// FilterOutput transforms an assistant reply before it is returned.
	FilterOutput(ctx context.Context, user *AuthInfo, message string) (FilterResult, error)
}

// NopMessageFilter passes all messages through unchanged.
//
// Thread-safe: this implementation has no mutable state.
type NopMessageFilter struct{}

// FilterInput returns the message unchanged.
func (f *NopMessageFilter) FilterInput(_ context.Context, _ *AuthInfo, message string) (FilterResult, error) {
	return FilterResult{Filtered: message}, nil
}

// FilterOutput returns the message unchanged.
func (f *NopMessageFilter) FilterOutput(_ context.Context, _ *AuthInfo, message string) (FilterResult, error) {
	return FilterResult{Filtered: message}, nil
}

var _ MessageFilter = (*NopMessageFilter)(nil)
