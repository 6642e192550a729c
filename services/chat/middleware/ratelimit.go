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
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// =============================================================================
// Rate Limiting
// =============================================================================

// RateLimitConfig tunes the per-client token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate per client.
	RequestsPerSecond float64

	// Burst is the bucket size: how many requests may arrive at once.
	Burst int

	// IdleTTL is how long an idle client's bucket is kept before it is
	// dropped. Zero disables eviction.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig allows 5 req/s with a burst of 10 and evicts
// buckets idle for 10 minutes.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		Burst:             10,
		IdleTTL:           10 * time.Minute,
	}
}

// clientLimiter pairs a limiter with its last-seen time for eviction.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per client key.
//
// The key is the authenticated user id when present, the client IP
// otherwise, so authenticated users behind a shared NAT are not lumped
// together.
//
// # Thread Safety
//
// Safe for concurrent use.
type RateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter creates a limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow reports whether the client identified by key may proceed.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cl, ok := r.clients[key]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), r.cfg.Burst),
		}
		r.clients[key] = cl
	}
	cl.lastSeen = now

	if r.cfg.IdleTTL > 0 {
		r.evictLocked(now)
	}
	return cl.limiter.Allow()
}

// evictLocked drops buckets idle past the TTL. Caller holds the mutex.
func (r *RateLimiter) evictLocked(now time.Time) {
	for key, cl := range r.clients {
		if now.Sub(cl.lastSeen) > r.cfg.IdleTTL {
			delete(r.clients, key)
		}
	}
}

// RateLimitMiddleware creates a Gin middleware enforcing the limiter.
//
// Runs after AuthMiddleware so the key can be the authenticated user id.
// Exhausted buckets get 429 with a Retry-After hint.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if info := GetAuthInfo(c); info != nil && info.UserID != "" {
			key = info.UserID
		}
		if !limiter.Allow(key) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
