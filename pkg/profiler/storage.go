// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package profiler

import (
	"context"
	"fmt"
	"sync"
)

// Storage persists profiles by token.
type Storage interface {
	Write(ctx context.Context, profile *Profile) error
	Read(ctx context.Context, token string) (*Profile, error)
	// Find returns up to limit summaries, newest first. A non-positive limit returns all.
	Find(ctx context.Context, limit int) ([]ProfileSummary, error)
	Purge(ctx context.Context) error
}

// MemoryStorage keeps the most recent profiles in memory.
type MemoryStorage struct {
	maxProfiles int

	mu       sync.RWMutex
	order    []string
	profiles map[string]*Profile
}

func NewMemoryStorage(maxProfiles int) *MemoryStorage {
	if maxProfiles <= 0 {
		maxProfiles = 100
	}
	return &MemoryStorage{
		maxProfiles: maxProfiles,
		profiles:    make(map[string]*Profile),
	}
}

func (s *MemoryStorage) Write(_ context.Context, profile *Profile) error {
	if profile == nil || profile.Token == "" {
		return fmt.Errorf("profile without token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.Token]; !exists {
		s.order = append(s.order, profile.Token)
	}
	s.profiles[profile.Token] = profile

	for len(s.order) > s.maxProfiles {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.profiles, oldest)
	}
	return nil
}

func (s *MemoryStorage) Read(_ context.Context, token string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, token)
	}
	return p, nil
}

func (s *MemoryStorage) Find(_ context.Context, limit int) ([]ProfileSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]ProfileSummary, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.profiles[s.order[i]].Summary())
	}
	return out, nil
}

func (s *MemoryStorage) Purge(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.profiles = make(map[string]*Profile)
	return nil
}
