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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
	"github.com/AleutianAI/AleutianChat/services/chat/middleware"
	"github.com/AleutianAI/AleutianChat/services/chat/store"
)

// =============================================================================
// Test Setup
// =============================================================================

// conversationRouter wires the conversation CRUD handlers behind the nop
// auth provider, which authenticates everything as "local-user".
func conversationRouter(t *testing.T) (*gin.Engine, store.ChatStore) {
	t.Helper()

	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts := extensions.DefaultOptions()
	router := gin.New()
	group := router.Group("/v1/conversations")
	group.Use(middleware.AuthMiddleware(opts.AuthProvider, opts.AuditLogger))
	group.POST("", CreateConversation(st, opts.AuditLogger))
	group.GET("", ListConversations(st))
	group.GET("/:conversationId", GetConversation(st))
	group.PATCH("/:conversationId", RenameConversation(st, opts.AuditLogger))
	group.DELETE("/:conversationId", DeleteConversation(st, opts.AuditLogger))
	return router, st
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		data, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Create / Get Tests
// =============================================================================

// TestCreateConversation verifies creation with and without a name.
func TestCreateConversation(t *testing.T) {
	router, _ := conversationRouter(t)

	w := doJSON(router, "POST", "/v1/conversations", map[string]string{"name": "roadmap"})
	require.Equal(t, http.StatusCreated, w.Code)
	var conv datatypes.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, "roadmap", conv.Name)
	assert.Equal(t, "local-user", conv.OwnerID)
	assert.NotEmpty(t, conv.ID)

	// Empty body defaults the name.
	w = doJSON(router, "POST", "/v1/conversations", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.Equal(t, "New Chat", conv.Name)
}

// TestGetConversation verifies retrieval and the 404 path.
func TestGetConversation(t *testing.T) {
	router, st := conversationRouter(t)

	conv := datatypes.NewConversation("local-user", "mine")
	require.NoError(t, st.Create(context.Background(), conv))

	w := doJSON(router, "GET", "/v1/conversations/"+conv.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mine")

	w = doJSON(router, "GET", "/v1/conversations/missing-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestGetConversation_OtherOwnerHidden verifies another owner's
// conversation reads as 404.
func TestGetConversation_OtherOwnerHidden(t *testing.T) {
	router, st := conversationRouter(t)

	conv := datatypes.NewConversation("someone-else", "theirs")
	require.NoError(t, st.Create(context.Background(), conv))

	w := doJSON(router, "GET", "/v1/conversations/"+conv.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// List Tests
// =============================================================================

// TestListConversations verifies summaries come back under the
// conversations key.
func TestListConversations(t *testing.T) {
	router, st := conversationRouter(t)

	require.NoError(t, st.Create(context.Background(), datatypes.NewConversation("local-user", "a")))
	require.NoError(t, st.Create(context.Background(), datatypes.NewConversation("local-user", "b")))

	w := doJSON(router, "GET", "/v1/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Conversations []datatypes.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Conversations, 2)
}

// =============================================================================
// Rename / Delete Tests
// =============================================================================

// TestRenameConversation verifies rename plus its validation and 404
// paths.
func TestRenameConversation(t *testing.T) {
	router, st := conversationRouter(t)

	conv := datatypes.NewConversation("local-user", "old")
	require.NoError(t, st.Create(context.Background(), conv))

	w := doJSON(router, "PATCH", "/v1/conversations/"+conv.ID, map[string]string{"name": "new"})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := st.Find(context.Background(), "local-user", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)

	// Empty name fails validation.
	w = doJSON(router, "PATCH", "/v1/conversations/"+conv.ID, map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, "PATCH", "/v1/conversations/missing", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestDeleteConversation verifies deletion and the repeat 404.
func TestDeleteConversation(t *testing.T) {
	router, st := conversationRouter(t)

	conv := datatypes.NewConversation("local-user", "doomed")
	require.NoError(t, st.Create(context.Background(), conv))

	w := doJSON(router, "DELETE", "/v1/conversations/"+conv.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "DELETE", "/v1/conversations/"+conv.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
