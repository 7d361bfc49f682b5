// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/mail-profiler/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestFromSettings(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		cfg := FromSettings(config.RateLimit{})
		assert.Equal(t, DefaultProfilerConfig(), cfg)
	})

	t.Run("overrides rate and burst", func(t *testing.T) {
		cfg := FromSettings(config.RateLimit{Rate: 2.5, Burst: 7})
		assert.Equal(t, 2.5, cfg.Rate)
		assert.Equal(t, 7, cfg.Burst)
		assert.Equal(t, time.Minute, cfg.CleanupInterval)
	})
}

func TestNew(t *testing.T) {
	t.Run("sets default cleanup interval and max age", func(t *testing.T) {
		rl := New(Config{Rate: 10, Burst: 20})
		defer rl.Stop()

		assert.Equal(t, time.Minute, rl.Config().CleanupInterval)
		assert.Equal(t, 5*time.Minute, rl.Config().MaxAge)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		rl := New(Config{Rate: 10, Burst: 20})
		rl.Stop()
		assert.NotPanics(t, rl.Stop)
	})
}

func TestAllow(t *testing.T) {
	t.Run("blocks requests exceeding burst limit", func(t *testing.T) {
		rl := New(Config{Rate: 1, Burst: 3, CleanupInterval: time.Hour, MaxAge: time.Hour})
		defer rl.Stop()

		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow("192.168.1.1"), "request %d should be allowed", i)
		}
		assert.False(t, rl.Allow("192.168.1.1"))
	})

	t.Run("different IPs have separate limits", func(t *testing.T) {
		rl := New(Config{Rate: 1, Burst: 1, CleanupInterval: time.Hour, MaxAge: time.Hour})
		defer rl.Stop()

		assert.True(t, rl.Allow("192.168.1.1"))
		assert.False(t, rl.Allow("192.168.1.1"))
		assert.True(t, rl.Allow("192.168.1.2"))
		assert.Equal(t, 2, rl.Len())
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		rl := New(Config{Rate: 10, Burst: 1, CleanupInterval: time.Hour, MaxAge: time.Hour})
		defer rl.Stop()

		assert.True(t, rl.Allow("192.168.1.1"))
		assert.False(t, rl.Allow("192.168.1.1"))

		// 10 req/s = 100ms per token
		time.Sleep(150 * time.Millisecond)
		assert.True(t, rl.Allow("192.168.1.1"))
	})
}

func TestMiddleware(t *testing.T) {
	rl := New(Config{Rate: 1, Burst: 2, CleanupInterval: time.Hour, MaxAge: time.Hour})
	defer rl.Stop()

	router := gin.New()
	router.Use(rl.Middleware("/_profiler/static/"))
	router.GET("/_profiler/", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/_profiler/static/app.css", func(c *gin.Context) {
		c.String(http.StatusOK, "CSS")
	})

	do := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.168.1.1:12345"
		router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do("/_profiler/").Code, "request %d should succeed", i)
	}

	w := do("/_profiler/")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do("/_profiler/static/app.css").Code, "excluded request %d", i)
	}
}

func TestCleanup(t *testing.T) {
	t.Run("removes stale entries", func(t *testing.T) {
		rl := New(Config{Rate: 10, Burst: 10, CleanupInterval: 20 * time.Millisecond, MaxAge: 10 * time.Millisecond})
		defer rl.Stop()

		rl.Allow("192.168.1.1")
		require.Equal(t, 1, rl.Len())

		assert.Eventually(t, func() bool { return rl.Len() == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("keeps recently accessed entries", func(t *testing.T) {
		rl := New(Config{Rate: 10, Burst: 10, CleanupInterval: time.Hour, MaxAge: time.Hour})
		defer rl.Stop()

		rl.Allow("192.168.1.1")
		rl.cleanupStaleEntries()
		assert.Equal(t, 1, rl.Len())
	})
}
