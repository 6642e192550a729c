// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// mockAuthProvider returns a fixed result regardless of token.
type mockAuthProvider struct {
	info      *extensions.AuthInfo
	err       error
	seenToken string
}

func (m *mockAuthProvider) Validate(ctx context.Context, token string) (*extensions.AuthInfo, error) {
	m.seenToken = token
	return m.info, m.err
}

// recordingAudit captures audit events.
type recordingAudit struct {
	events []extensions.AuditEvent
}

func (r *recordingAudit) Log(ctx context.Context, event extensions.AuditEvent) error {
	r.events = append(r.events, event)
	return nil
}

// authTestRouter wires the middleware in front of a handler that echoes
// the authenticated user id.
func authTestRouter(provider extensions.AuthProvider, audit extensions.AuditLogger) *gin.Engine {
	router := gin.New()
	router.Use(AuthMiddleware(provider, audit))
	router.GET("/whoami", func(c *gin.Context) {
		info := GetAuthInfo(c)
		if info == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no auth info"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": info.UserID})
	})
	return router
}

func doGet(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// AuthMiddleware Tests
// =============================================================================

// TestAuthMiddleware_NopProviderPassesThrough verifies the open source
// default authenticates everything as local-user.
func TestAuthMiddleware_NopProviderPassesThrough(t *testing.T) {
	router := authTestRouter(&extensions.NopAuthProvider{}, &extensions.NopAuditLogger{})

	w := doGet(router, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "local-user")
}

// TestAuthMiddleware_TokenForwarded verifies the bearer token reaches the
// provider.
func TestAuthMiddleware_TokenForwarded(t *testing.T) {
	provider := &mockAuthProvider{info: &extensions.AuthInfo{UserID: "alice"}}
	router := authTestRouter(provider, &extensions.NopAuditLogger{})

	w := doGet(router, "Bearer secret-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "secret-token", provider.seenToken)
	assert.Contains(t, w.Body.String(), "alice")
}

// TestAuthMiddleware_RejectionAudited verifies a rejected token aborts
// with 401 and records an auth.failed event.
func TestAuthMiddleware_RejectionAudited(t *testing.T) {
	provider := &mockAuthProvider{err: extensions.ErrUnauthorized}
	audit := &recordingAudit{}
	router := authTestRouter(provider, audit)

	w := doGet(router, "Bearer bad-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthorized")
	require.Len(t, audit.events, 1)
	assert.Equal(t, "auth.failed", audit.events[0].EventType)
	assert.Equal(t, "failure", audit.events[0].Outcome)
}

// TestAuthMiddleware_ProviderError verifies unexpected provider failures
// are reported distinctly from plain rejections.
func TestAuthMiddleware_ProviderError(t *testing.T) {
	provider := &mockAuthProvider{err: errors.New("idp unreachable")}
	router := authTestRouter(provider, &extensions.NopAuditLogger{})

	w := doGet(router, "Bearer token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication failed")
}

// TestAuthMiddleware_EmptyUserIDRejected verifies an AuthInfo without a
// user id does not pass.
func TestAuthMiddleware_EmptyUserIDRejected(t *testing.T) {
	provider := &mockAuthProvider{info: &extensions.AuthInfo{}}
	router := authTestRouter(provider, &extensions.NopAuditLogger{})

	w := doGet(router, "Bearer token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// =============================================================================
// Token Extraction Tests
// =============================================================================

// TestExtractBearerToken covers header forms.
func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"BEARER abc123", "abc123"},
		{"Basic dXNlcg==", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request, _ = http.NewRequest("GET", "/", nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}
		assert.Equal(t, tc.want, extractBearerToken(c), "header=%q", tc.header)
	}
}
