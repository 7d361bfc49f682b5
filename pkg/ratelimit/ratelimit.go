// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/telekom/mail-profiler/pkg/apiresponses"
	"github.com/telekom/mail-profiler/pkg/config"
	"github.com/telekom/mail-profiler/pkg/metrics"
)

// Config holds rate limiter configuration
type Config struct {
	// Rate is the number of requests allowed per second
	Rate float64
	// Burst is the maximum number of requests allowed in a burst
	Burst int
	// CleanupInterval is how often to clean up stale entries
	CleanupInterval time.Duration
	// MaxAge is how long to keep an entry after last access
	MaxAge time.Duration
}

// DefaultProfilerConfig allows 20 req/s per IP with a burst of 50.
func DefaultProfilerConfig() Config {
	return Config{
		Rate:            20,
		Burst:           50,
		CleanupInterval: time.Minute,
		MaxAge:          5 * time.Minute,
	}
}

// FromSettings overlays the configured rate and burst on DefaultProfilerConfig.
func FromSettings(s config.RateLimit) Config {
	cfg := DefaultProfilerConfig()
	if s.Rate > 0 {
		cfg.Rate = s.Rate
	}
	if s.Burst > 0 {
		cfg.Burst = s.Burst
	}
	return cfg
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// IPRateLimiter implements per-IP rate limiting with automatic cleanup
type IPRateLimiter struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	config   Config
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a per-IP rate limiter and starts its cleanup goroutine.
func New(cfg Config) *IPRateLimiter {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 5 * time.Minute
	}

	rl := &IPRateLimiter{
		entries: make(map[string]*entry),
		config:  cfg,
		done:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow checks if a request from the given IP should be allowed
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, exists := rl.entries[ip]
	if !exists {
		e = &entry{
			limiter: rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst),
		}
		rl.entries[ip] = e
	}
	e.lastAccess = time.Now()

	return e.limiter.Allow()
}

// Middleware rate limits every request by client IP except those whose path
// starts with one of the excluded prefixes.
func (rl *IPRateLimiter) Middleware(excludedPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, prefix := range excludedPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}
		if !rl.Allow(c.ClientIP()) {
			metrics.RateLimited.WithLabelValues(c.FullPath()).Inc()
			apiresponses.RespondTooManyRequests(c)
			return
		}
		c.Next()
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *IPRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.cleanupStaleEntries()
		}
	}
}

func (rl *IPRateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, e := range rl.entries {
		if now.Sub(e.lastAccess) > rl.config.MaxAge {
			delete(rl.entries, ip)
		}
	}
}

// Len returns the current number of tracked IPs
func (rl *IPRateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.entries)
}

func (rl *IPRateLimiter) Config() Config {
	return rl.config
}
