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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AleutianChat/pkg/extensions"
)

// =============================================================================
// RateLimiter Tests
// =============================================================================

// TestRateLimiter_BurstThenDeny verifies the bucket admits the burst and
// denies the next request.
func TestRateLimiter_BurstThenDeny(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("alice"), "request %d should pass", i)
	}
	assert.False(t, limiter.Allow("alice"))
}

// TestRateLimiter_KeysAreIndependent verifies one client's exhaustion does
// not affect another.
func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})

	assert.True(t, limiter.Allow("alice"))
	assert.False(t, limiter.Allow("alice"))
	assert.True(t, limiter.Allow("bob"))
}

// TestRateLimiter_IdleEviction verifies idle buckets are dropped and the
// client starts fresh.
func TestRateLimiter_IdleEviction(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Millisecond})

	assert.True(t, limiter.Allow("alice"))
	assert.False(t, limiter.Allow("alice"))

	time.Sleep(5 * time.Millisecond)
	// Any Allow call triggers eviction of stale buckets.
	assert.True(t, limiter.Allow("bob"))
	assert.True(t, limiter.Allow("alice"))
}

// =============================================================================
// Middleware Tests
// =============================================================================

// TestRateLimitMiddleware_KeyedByUser verifies the 429 response and that
// the authenticated user id is the bucket key.
func TestRateLimitMiddleware_KeyedByUser(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})

	router := gin.New()
	user := "alice"
	router.Use(func(c *gin.Context) {
		SetAuthInfo(c, &extensions.AuthInfo{UserID: user})
	})
	router.Use(RateLimitMiddleware(limiter))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		req, _ := http.NewRequest("GET", "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)

	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// A different user from the same client address is unaffected.
	user = "bob"
	assert.Equal(t, http.StatusOK, do().Code)
}
