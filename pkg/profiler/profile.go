// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package profiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrCollectorNotFound = errors.New("collector not found in profile")
)

// Profile is everything collected for one request.
type Profile struct {
	Token      string                     `json:"token"`
	IP         string                     `json:"ip"`
	Method     string                     `json:"method"`
	URL        string                     `json:"url"`
	StatusCode int                        `json:"statusCode"`
	Time       time.Time                  `json:"time"`
	Collectors map[string]json.RawMessage `json:"collectors"`
}

// ProfileSummary is the listing view of a profile.
type ProfileSummary struct {
	Token      string    `json:"token"`
	IP         string    `json:"ip"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StatusCode int       `json:"statusCode"`
	Time       time.Time `json:"time"`
}

func (p *Profile) Summary() ProfileSummary {
	return ProfileSummary{
		Token:      p.Token,
		IP:         p.IP,
		Method:     p.Method,
		URL:        p.URL,
		StatusCode: p.StatusCode,
		Time:       p.Time,
	}
}

// HasCollector reports whether the profile holds data for the named collector.
func (p *Profile) HasCollector(name string) bool {
	_, ok := p.Collectors[name]
	return ok
}

// DecodeCollector unmarshals the data of the named collector into out.
func (p *Profile) DecodeCollector(name string, out any) error {
	raw, ok := p.Collectors[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectorNotFound, name)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s collector data: %w", name, err)
	}
	return nil
}
