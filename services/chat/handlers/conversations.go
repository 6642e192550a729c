// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
)

// CreateConversation serves POST /v1/conversations.
//
// An omitted or empty name falls back to "New Chat".
func CreateConversation(chatStore store.ChatStore, audit extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req datatypes.CreateConversationRequest
		// An empty body is fine; the name just defaults.
		if c.Request.ContentLength > 0 {
			if err := c.BindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
			if err := req.Validate(); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		conv := datatypes.NewConversation(authInfo.UserID, req.Name)
		if err := chatStore.Create(c.Request.Context(), conv); err != nil {
			slog.Error("Failed to create conversation", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		_ = audit.Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    "conversation.create",
			Timestamp:    time.Now().UTC(),
			UserID:       authInfo.UserID,
			Action:       "create",
			ResourceType: "conversation",
			ResourceID:   conv.ID,
			Outcome:      "success",
		})
		c.JSON(http.StatusCreated, conv)
	}
}

// ListConversations serves GET /v1/conversations.
func ListConversations(chatStore store.ChatStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		summaries, err := chatStore.List(c.Request.Context(), authInfo.UserID)
		if err != nil {
			slog.Error("Failed to list conversations", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversations": summaries})
	}
}

// GetConversation serves GET /v1/conversations/:conversationId.
func GetConversation(chatStore store.ChatStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		conv, err := chatStore.Find(c.Request.Context(), authInfo.UserID, c.Param("conversationId"))
		if err != nil {
			if store.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
				return
			}
			slog.Error("Failed to load conversation", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}

// RenameConversation serves PATCH /v1/conversations/:conversationId.
func RenameConversation(chatStore store.ChatStore, audit extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		var req datatypes.RenameConversationRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id := c.Param("conversationId")
		if err := chatStore.Rename(c.Request.Context(), authInfo.UserID, id, req.Name); err != nil {
			if store.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
				return
			}
			slog.Error("Failed to rename conversation", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		_ = audit.Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    "conversation.rename",
			Timestamp:    time.Now().UTC(),
			UserID:       authInfo.UserID,
			Action:       "update",
			ResourceType: "conversation",
			ResourceID:   id,
			Outcome:      "success",
		})
		c.JSON(http.StatusOK, gin.H{"status": "renamed"})
	}
}

// DeleteConversation serves DELETE /v1/conversations/:conversationId.
func DeleteConversation(chatStore store.ChatStore, audit extensions.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		id := c.Param("conversationId")
		if err := chatStore.Delete(c.Request.Context(), authInfo.UserID, id); err != nil {
			if store.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
				return
			}
			slog.Error("Failed to delete conversation", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		_ = audit.Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    "conversation.delete",
			Timestamp:    time.Now().UTC(),
			UserID:       authInfo.UserID,
			Action:       "delete",
			ResourceType: "conversation",
			ResourceID:   id,
			Outcome:      "success",
		})
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}
