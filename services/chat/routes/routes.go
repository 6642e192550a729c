// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
	"github.com/AleutianAI/AleutianChat/services/chat/extract"
	"github.com/AleutianAI/AleutianChat/services/chat/handlers"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/observability"
	"github.com/AleutianAI/AleutianChat/services/chat/pipeline"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
)

// Deps bundles everything the routes need.
type Deps struct {
	Pipeline  *pipeline.Pipeline
	Store     store.ChatStore
	Extractor *extract.Extractor
	Options   extensions.ServiceOptions
	Metrics   *observability.ChatMetrics
	RateLimit *middleware.RateLimiter
}

// SetupRoutes registers the chat service's routes on the router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.Options.AuthProvider, deps.Options.AuditLogger))
	if deps.RateLimit != nil {
		v1.Use(middleware.RateLimitMiddleware(deps.RateLimit))
	}
	{
		v1.POST("/chat", handlers.HandleChat(deps.Pipeline, deps.Options, deps.Metrics))
		v1.POST("/chat/upload", handlers.HandleUpload(deps.Extractor, deps.Options, deps.Metrics))

		conversations := v1.Group("/conversations")
		{
			conversations.POST("", handlers.CreateConversation(deps.Store, deps.Options.AuditLogger))
			conversations.GET("", handlers.ListConversations(deps.Store))
			conversations.GET("/:conversationId", handlers.GetConversation(deps.Store))
			conversations.PATCH("/:conversationId", handlers.RenameConversation(deps.Store, deps.Options.AuditLogger))
			conversations.DELETE("/:conversationId", handlers.DeleteConversation(deps.Store, deps.Options.AuditLogger))
		}
	}
}
