// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package profiler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/telekom/mail-profiler/pkg/metrics"
)

// Profiler runs the registered collectors for a request and stores the result.
type Profiler struct {
	storage Storage
	log     *zap.SugaredLogger
	enabled atomic.Bool
	now     func() time.Time

	mu        sync.RWMutex
	factories []CollectorFactory
}

func New(storage Storage, log *zap.SugaredLogger) *Profiler {
	p := &Profiler{
		storage: storage,
		log:     log.Named("profiler"),
		now:     time.Now,
	}
	p.enabled.Store(true)
	return p
}

// Add registers collector factories. A new collector is created per request.
func (p *Profiler) Add(factories ...CollectorFactory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories = append(p.factories, factories...)
}

func (p *Profiler) Enable()         { p.enabled.Store(true) }
func (p *Profiler) Disable()        { p.enabled.Store(false) }
func (p *Profiler) IsEnabled() bool { return p.enabled.Load() }

// Collect runs every collector against the request and returns the profile.
// A collector whose data cannot be serialized is left out and reported in the
// returned error; the profile is still usable.
func (p *Profiler) Collect(token string, req *http.Request, resp *Response, reqErr error) (*Profile, error) {
	profile := &Profile{
		Token:      token,
		IP:         req.RemoteAddr,
		Method:     req.Method,
		URL:        req.URL.RequestURI(),
		StatusCode: resp.StatusCode,
		Time:       p.now().UTC(),
		Collectors: make(map[string]json.RawMessage),
	}

	p.mu.RLock()
	factories := p.factories
	p.mu.RUnlock()

	var errs []error
	for _, newCollector := range factories {
		c := newCollector()
		c.Collect(req, resp, reqErr)
		data, err := json.Marshal(c.Data())
		if err != nil {
			errs = append(errs, fmt.Errorf("serializing %s collector: %w", c.Name(), err))
			continue
		}
		profile.Collectors[c.Name()] = data
	}

	metrics.ProfilesCollected.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	p.log.Debugw("Profile collected", "token", token, "url", profile.URL, "collectors", len(profile.Collectors))
	return profile, errors.Join(errs...)
}

func (p *Profiler) SaveProfile(ctx context.Context, profile *Profile) error {
	if err := p.storage.Write(ctx, profile); err != nil {
		metrics.ProfileStorageErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("saving profile %s: %w", profile.Token, err)
	}
	return nil
}

func (p *Profiler) LoadProfile(ctx context.Context, token string) (*Profile, error) {
	profile, err := p.storage.Read(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) {
			metrics.ProfileStorageErrors.WithLabelValues("read").Inc()
		}
		return nil, err
	}
	return profile, nil
}

// Find lists the most recent profiles, newest first.
func (p *Profiler) Find(ctx context.Context, limit int) ([]ProfileSummary, error) {
	summaries, err := p.storage.Find(ctx, limit)
	if err != nil {
		metrics.ProfileStorageErrors.WithLabelValues("find").Inc()
		return nil, err
	}
	return summaries, nil
}

func (p *Profiler) Purge(ctx context.Context) error {
	if err := p.storage.Purge(ctx); err != nil {
		metrics.ProfileStorageErrors.WithLabelValues("purge").Inc()
		return err
	}
	return nil
}
