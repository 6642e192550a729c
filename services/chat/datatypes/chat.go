// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Request and response types for the POST /v1/chat endpoint.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message.
	// Per SEC-003: Unbounded message input mitigation.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxDocumentDataBytes is the maximum size of extracted document text
	// a request may carry. Larger extractions are truncated upstream.
	MaxDocumentDataBytes = 256 * 1024 // 256KB

	// MaxFilesPerTurn is the maximum number of files attachable to one turn.
	MaxFilesPerTurn = 4
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()

	// Register custom validator for message content size (SEC-003)
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
	_ = chatValidate.RegisterValidation("maxdocbytes", validateMaxDocBytes)
}

// validateMaxBytes enforces the 32KB message cap. Checks byte length
// (not rune count) so oversized multi-byte payloads cannot slip through.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// validateMaxDocBytes enforces the document data cap.
func validateMaxDocBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxDocumentDataBytes
}

// =============================================================================
// Chat Request
// =============================================================================

// ChatRequest is the body of POST /v1/chat.
//
// # Description
//
// Carries one user turn aimed at an existing conversation, plus the two
// per-request mode flags the user controls: SearchRequested (allow a web
// search for this turn) and DeepReasoningRequested (route to the reasoning
// model and request strict report formatting).
//
// # Fields
//
//   - RequestID: Unique identifier for this request (UUID v4). Generated
//     server-side when absent.
//   - Timestamp: Unix timestamp in milliseconds (UTC). Generated when absent.
//   - ConversationID: Required. The target conversation (UUID v4). The
//     conversation must exist and belong to the authenticated principal.
//   - Message: Required. The user's message text, max 32KB.
//   - Files: Optional. Names of files attached to this turn (max 4).
//   - DocumentData: Optional. Text extracted from the attached files by the
//     upload endpoint, max 256KB.
//   - SearchRequested: Optional. User opt-in for a web search on this turn.
//     Opt-in alone does not force a search; a second model decision gates it.
//   - DeepReasoningRequested: Optional. Route to the reasoning model and
//     append report-formatting instructions to the prompt.
//
// # Validation
//
//   - RequestID: uuid4 when present
//   - ConversationID: required, uuid4
//   - Message: required, maxbytes (32KB)
//   - Files: max 4 entries
//   - DocumentData: maxdocbytes (256KB)
type ChatRequest struct {
	RequestID              string   `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp              int64    `json:"timestamp" validate:"gte=0"`
	ConversationID         string   `json:"conversation_id" validate:"required,uuid4"`
	Message                string   `json:"message" validate:"required,maxbytes"`
	Files                  []string `json:"files,omitempty" validate:"max=4"`
	DocumentData           string   `json:"document_data,omitempty" validate:"maxdocbytes"`
	SearchRequested        bool     `json:"search_requested"`
	DeepReasoningRequested bool     `json:"deep_reasoning_requested"`
}

// Validate validates the ChatRequest fields.
//
// Call after binding the JSON body and after EnsureDefaults.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp if the client omitted
// them, so every request is traceable end to end.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Chat Response
// =============================================================================

// ChatResponse is the body returned by POST /v1/chat.
//
// # Fields
//
//   - ResponseID: Unique identifier for this response (UUID v4).
//   - RequestID: Echo of the request ID for correlation.
//   - Timestamp: Unix timestamp in milliseconds (UTC) of response creation.
//   - Reply: The validated assistant turn that was appended to the
//     conversation.
//   - UsedHistory: Whether the prompt included the extended conversation
//     history (the relevance classifier's verdict).
//   - Model: The model id that produced the reply.
//   - ProcessingTimeMs: Wall time spent in the pipeline.
type ChatResponse struct {
	ResponseID       string `json:"response_id"`
	RequestID        string `json:"request_id"`
	Timestamp        int64  `json:"timestamp"`
	Reply            Turn   `json:"reply"`
	UsedHistory      bool   `json:"used_history"`
	Model            string `json:"model"`
	ProcessingTimeMs int64  `json:"processing_time_ms,omitempty"`
}

// NewChatResponse creates a ChatResponse with auto-generated ID and timestamp.
func NewChatResponse(requestID string, reply Turn, usedHistory bool, model string) *ChatResponse {
	return &ChatResponse{
		ResponseID:  uuid.NewString(),
		RequestID:   requestID,
		Timestamp:   time.Now().UnixMilli(),
		Reply:       reply,
		UsedHistory: usedHistory,
		Model:       model,
	}
}

// =============================================================================
// Conversation Management Requests
// =============================================================================

// CreateConversationRequest is the body of POST /v1/conversations.
type CreateConversationRequest struct {
	Name string `json:"name" validate:"max=256"`
}

// Validate validates the CreateConversationRequest fields.
func (r *CreateConversationRequest) Validate() error {
	return chatValidate.Struct(r)
}

// RenameConversationRequest is the body of PATCH /v1/conversations/:id.
type RenameConversationRequest struct {
	Name string `json:"name" validate:"required,max=256"`
}

// Validate validates the RenameConversationRequest fields.
func (r *RenameConversationRequest) Validate() error {
	return chatValidate.Struct(r)
}
