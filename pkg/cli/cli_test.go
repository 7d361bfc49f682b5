// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/telekom/mail-profiler/pkg/api"
	"github.com/telekom/mail-profiler/pkg/config"
	"github.com/telekom/mail-profiler/pkg/profiler"
	"github.com/telekom/mail-profiler/pkg/version"
)

func testConfig() config.Config {
	cfg := config.Config{
		Profiler: config.Profiler{Enabled: true},
		Mail: config.Mail{
			Mailers: config.Mailers{
				{Name: "default", Config: config.MailerConfig{DisableDelivery: true, Logging: true}},
				{Name: "bulk", Config: config.MailerConfig{DisableDelivery: true, Logging: true, Spool: config.Spool{Enabled: true}}},
			},
		},
	}
	cfg.Defaults()
	return cfg
}

func startServer(t *testing.T, cfg config.Config) (*App, *httptest.Server) {
	t.Helper()
	app, err := BuildApp(cfg, zaptest.NewLogger(t), true)
	require.NoError(t, err)
	srv := httptest.NewServer(app.Server.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close(context.Background())
	})
	return app, srv
}

func sendMail(t *testing.T, srv *httptest.Server, channel, subject string) string {
	t.Helper()
	body, err := json.Marshal(api.SendRequest{To: []string{"ops@example.com"}, Subject: subject, Text: "hi"})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/api/mail/channels/"+channel+"/messages", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Less(t, resp.StatusCode, 300)
	token := resp.Header.Get(profiler.TokenHeader)
	require.NotEmpty(t, token)
	return token
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	root := NewRootCommand(Options{OutputWriter: buf})
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit, origDate := version.Version, version.GitCommit, version.BuildDate
	defer func() {
		version.Version, version.GitCommit, version.BuildDate = origVersion, origCommit, origDate
	}()
	version.Version = "v1.2.3"
	version.GitCommit = "abc123"
	version.BuildDate = "2026-01-17T15:00:00Z"

	t.Run("default", func(t *testing.T) {
		out, err := run(t, "version")
		require.NoError(t, err)
		assert.Contains(t, out, "mailprofiler v1.2.3 (commit abc123, built 2026-01-17T15:00:00Z")
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "version", "-o", "json")
		require.NoError(t, err)
		var info version.BuildInfo
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Equal(t, "v1.2.3", info.Version)
		assert.False(t, info.BuildTime.IsZero())
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := run(t, "version", "-o", "yaml")
		require.NoError(t, err)
		var info map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &info))
		assert.Equal(t, "abc123", info["gitCommit"])
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, "version", "-o", "xml")
		assert.Error(t, err)
	})

	t.Run("standalone command", func(t *testing.T) {
		buf := &bytes.Buffer{}
		cmd := NewVersionCommand()
		cmd.SetOut(buf)
		cmd.SetArgs([]string{})
		require.NoError(t, cmd.Execute())
		assert.True(t, strings.HasPrefix(buf.String(), "mailprofiler v1.2.3"))
	})
}

func TestProfileCommands(t *testing.T) {
	_, srv := startServer(t, testConfig())
	token := sendMail(t, srv, "default", "nightly report")

	t.Run("list table", func(t *testing.T) {
		out, err := run(t, "profile", "list", "--server", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "TOKEN")
		assert.Contains(t, out, token)
		assert.Contains(t, out, "/api/mail/channels/default/messages")
	})

	t.Run("list json", func(t *testing.T) {
		out, err := run(t, "profile", "list", "--server", srv.URL, "-o", "json", "--limit", "1")
		require.NoError(t, err)
		var summaries []profiler.ProfileSummary
		require.NoError(t, json.Unmarshal([]byte(out), &summaries))
		require.Len(t, summaries, 1)
		assert.Equal(t, token, summaries[0].Token)
	})

	t.Run("show table", func(t *testing.T) {
		out, err := run(t, "profile", "show", token, "--server", srv.URL)
		require.NoError(t, err)
		assert.Contains(t, out, "1 message(s)")
		assert.Contains(t, out, `default channel "default"`)
		assert.Contains(t, out, "nightly report")
		assert.Contains(t, out, "bulk")
	})

	t.Run("show yaml", func(t *testing.T) {
		out, err := run(t, "profile", "show", token, "--server", srv.URL, "-o", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "messagecount: 1")
	})

	t.Run("show unknown token", func(t *testing.T) {
		_, err := run(t, "profile", "show", "missing", "--server", srv.URL)
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.Equal(t, "profile not found: missing", httpErr.Message)
	})

	t.Run("server from environment", func(t *testing.T) {
		t.Setenv(ServerEnv, srv.URL)
		out, err := run(t, "profile", "list")
		require.NoError(t, err)
		assert.Contains(t, out, token)
	})
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
	_, err = NewClient(WithServer("localhost"))
	assert.Error(t, err)
	c, err := NewClient(WithServer("http://localhost:8080"), WithHTTPClient(http.DefaultClient))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", c.baseURL.Host)
}

func TestBuildAppStorage(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		cfg := testConfig()
		cfg.Profiler.Storage = config.StorageSQLite
		cfg.Profiler.DSN = filepath.Join(t.TempDir(), "profiles.db")

		_, srv := startServer(t, cfg)
		token := sendMail(t, srv, "bulk", "spooled")

		out, err := run(t, "profile", "show", token, "--server", srv.URL, "-o", "json")
		require.NoError(t, err)
		var panel api.MailPanel
		require.NoError(t, json.Unmarshal([]byte(out), &panel))
		assert.Equal(t, 1, panel.MessageCount)
		require.Len(t, panel.Channels, 2)
		assert.True(t, panel.Channels[1].IsQueued)
	})

	t.Run("unsupported", func(t *testing.T) {
		cfg := testConfig()
		cfg.Profiler.Storage = "redis"
		_, err := BuildApp(cfg, zaptest.NewLogger(t), true)
		assert.Error(t, err)
	})

	t.Run("profiling disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Profiler.Enabled = false
		app, srv := startServer(t, cfg)
		assert.False(t, app.Profiler.IsEnabled())

		resp, err := http.Get(srv.URL + "/api/mail/channels")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Empty(t, resp.Header.Get(profiler.TokenHeader))
	})
}

func TestSetupLogger(t *testing.T) {
	for _, debug := range []bool{false, true} {
		logger, err := SetupLogger(debug)
		require.NoError(t, err)
		require.NotNil(t, logger)
		logger.Sugar().Debugw("logger ready", "debug", debug)
	}
}
