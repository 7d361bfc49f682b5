// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package profiler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scopeKey struct{}

// countingScope attaches a per-request counter and remembers how often it did.
type countingScope struct {
	mu sync.Mutex
	n  int
}

func (s *countingScope) Attach(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return context.WithValue(ctx, scopeKey{}, s.n)
}

func (s *countingScope) attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// scopeCollector reports the scope value seen on the request it collects.
type scopeCollector struct{ seen any }

func (s *scopeCollector) Name() string { return "scope" }
func (s *scopeCollector) Reset()       { s.seen = nil }
func (s *scopeCollector) Data() any    { return s.seen }

func (s *scopeCollector) Collect(req *http.Request, _ *Response, _ error) {
	s.seen = req.Context().Value(scopeKey{})
}

func newTestEngine(p *Profiler, scope *countingScope) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Middleware(p, zap.NewNop().Sugar(), "/_profiler", scope))
	engine.GET("/ok", func(c *gin.Context) {
		token, _ := TokenFromContext(c)
		c.String(http.StatusOK, token)
	})
	engine.GET("/scope", func(c *gin.Context) {
		_, attached := c.Request.Context().Value(scopeKey{}).(int)
		c.String(http.StatusOK, strconv.FormatBool(attached))
	})
	engine.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("handler failed"))
		c.Status(http.StatusInternalServerError)
	})
	engine.GET("/_profiler/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func TestMiddlewareStoresProfile(t *testing.T) {
	storage := NewMemoryStorage(10)
	p := New(storage, zap.NewNop().Sugar())
	p.Add(func() DataCollector { return &fakeCollector{} })
	scope := &countingScope{}
	engine := newTestEngine(p, scope)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	token := w.Header().Get(TokenHeader)
	require.NotEmpty(t, token)
	assert.Equal(t, token, w.Body.String())
	assert.Equal(t, "/_profiler/"+token, w.Header().Get(LinkHeader))
	assert.Equal(t, 1, scope.attached())

	profile, err := storage.Read(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, profile.StatusCode)
	assert.Equal(t, "/ok", profile.URL)
	assert.Equal(t, "192.0.2.1", profile.IP)
}

func TestMiddlewarePassesHandlerErrors(t *testing.T) {
	storage := NewMemoryStorage(10)
	p := New(storage, zap.NewNop().Sugar())
	p.Add(func() DataCollector { return &fakeCollector{} })
	engine := newTestEngine(p, &countingScope{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	profile, err := storage.Read(context.Background(), w.Header().Get(TokenHeader))
	require.NoError(t, err)

	var data struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
	}
	require.NoError(t, profile.DecodeCollector("fake", &data))
	assert.Equal(t, http.StatusInternalServerError, data.Status)
	assert.Equal(t, "handler failed", data.Error)
}

func TestMiddlewareSkipsProfilerRoutes(t *testing.T) {
	storage := NewMemoryStorage(10)
	scope := &countingScope{}
	engine := newTestEngine(New(storage, zap.NewNop().Sugar()), scope)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/_profiler/", nil))

	assert.Empty(t, w.Header().Get(TokenHeader))
	assert.Zero(t, scope.attached())
	found, err := storage.Find(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMiddlewareDisabledAttachesNothing(t *testing.T) {
	storage := NewMemoryStorage(10)
	p := New(storage, zap.NewNop().Sugar())
	p.Disable()
	scope := &countingScope{}
	engine := newTestEngine(p, scope)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scope", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", w.Body.String())
	assert.Empty(t, w.Header().Get(TokenHeader))
	assert.Zero(t, scope.attached())
	found, err := storage.Find(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestMiddlewareScopesEachRequest(t *testing.T) {
	storage := NewMemoryStorage(10)
	p := New(storage, zap.NewNop().Sugar())
	p.Add(func() DataCollector { return &scopeCollector{} })
	scope := &countingScope{}
	engine := newTestEngine(p, scope)

	tokens := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scope", nil))
		assert.Equal(t, "true", w.Body.String())
		tokens = append(tokens, w.Header().Get(TokenHeader))
	}

	for i, token := range tokens {
		profile, err := storage.Read(context.Background(), token)
		require.NoError(t, err)
		var seen int
		require.NoError(t, profile.DecodeCollector("scope", &seen))
		assert.Equal(t, i+1, seen)
	}
}
