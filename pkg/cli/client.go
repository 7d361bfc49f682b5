// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/telekom/mail-profiler/pkg/api"
	"github.com/telekom/mail-profiler/pkg/profiler"
	"github.com/telekom/mail-profiler/pkg/version"
)

// Client reads profiles from a running mailprofiler server.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

type ClientOption func(*Client) error

func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: version.UserAgent(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.baseURL == nil {
		return nil, errors.New("server is required")
	}
	return c, nil
}

func WithServer(server string) ClientOption {
	return func(c *Client) error {
		if server == "" {
			return errors.New("server is required")
		}
		parsed, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("invalid server: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid server %q: scheme and host are required", server)
		}
		c.baseURL = parsed
		return nil
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		c.http = hc
		return nil
	}
}

func (c *Client) ListProfiles(ctx context.Context, limit int) ([]profiler.ProfileSummary, error) {
	endpoint := api.ProfilerBasePath + "/"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var out []profiler.ProfileSummary
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MailPanel(ctx context.Context, token string) (api.MailPanel, error) {
	var out api.MailPanel
	err := c.get(ctx, api.ProfilerBasePath+"/"+url.PathEscape(token)+"/mail", &out)
	return out, err
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	fullURL := *c.baseURL
	parsedEndpoint, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	fullURL.Path = path.Join(fullURL.Path, parsedEndpoint.Path)
	if strings.HasSuffix(parsedEndpoint.Path, "/") {
		fullURL.Path += "/"
	}
	fullURL.RawQuery = parsedEndpoint.RawQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var apiErr struct {
		Error string `json:"error"`
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) > 0 {
		_ = json.Unmarshal(body, &apiErr)
	}
	msg := strings.TrimSpace(apiErr.Error)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}
