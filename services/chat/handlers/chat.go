// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the Gin handlers for the chat service.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
	"github.com/AleutianAI/AleutianChat/services/chat/pipeline"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
)

var chatTracer = otel.Tracer("aleutian.chat.handlers")

// HandleChat serves POST /v1/chat.
//
// # Description
//
// Validates the request, runs the user's message through the enterprise
// input filter and the chat pipeline, and returns the validated assistant
// reply with metadata. Error mapping:
//
//   - 400: malformed body or failed validation
//   - 401: no authenticated principal
//   - 403: message blocked by the enterprise filter
//   - 404: conversation missing or owned by someone else
//   - 502: classifier or completion backend failure
//   - 500: filter infrastructure, persistence, or other internal failure
func HandleChat(p *pipeline.Pipeline, opts extensions.ServiceOptions, metrics *observability.ChatMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "validation failed")
			metrics.RecordError("validate", observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		filtered, err := opts.MessageFilter.FilterInput(ctx, authInfo, req.Message)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "input filter failed")
			slog.Error("Input filter failure", "error", err)
			metrics.RecordRequest("chat", false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if filtered.WasBlocked {
			_ = opts.AuditLogger.Log(ctx, extensions.AuditEvent{
				EventType:    "chat.blocked",
				Timestamp:    time.Now().UTC(),
				UserID:       authInfo.UserID,
				Action:       "send",
				ResourceType: "conversation",
				ResourceID:   req.ConversationID,
				Outcome:      "blocked",
			})
			metrics.RecordRequest("chat", false)
			c.JSON(http.StatusForbidden, gin.H{"error": "message blocked by policy"})
			return
		}
		req.Message = filtered.Filtered

		resp, err := p.Process(ctx, authInfo.UserID, &req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline failed")
			metrics.RecordRequest("chat", false)
			switch {
			case store.IsNotFound(err):
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			case pipeline.IsClassificationError(err), pipeline.IsCompletionError(err):
				slog.Error("Upstream model failure", "error", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "model backend unavailable"})
			default:
				slog.Error("Chat pipeline failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		if out, ferr := opts.MessageFilter.FilterOutput(ctx, authInfo, resp.Reply.Content); ferr == nil && out.WasModified {
			resp.Reply.Content = out.Filtered
		}

		_ = opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType:    "chat.message",
			Timestamp:    time.Now().UTC(),
			UserID:       authInfo.UserID,
			Action:       "send",
			ResourceType: "conversation",
			ResourceID:   req.ConversationID,
			Outcome:      "success",
			Metadata: map[string]any{
				"model":        resp.Model,
				"used_history": resp.UsedHistory,
				"duration_ms":  resp.ProcessingTimeMs,
			},
		})
		metrics.RecordRequest("chat", true)
		c.JSON(http.StatusOK, resp)
	}
}
