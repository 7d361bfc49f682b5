package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/mail-profiler/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name               string
		configContent      string
		expectedListenAddr string
		expectedMailers    []string
		expectError        bool
	}{
		{
			name: "mailers keep file order",
			configContent: `
server:
  listenAddress: ":8080"
mail:
  defaultMailer: zeta
  mailers:
    zeta:
      host: smtp.zeta.example
      logging: true
    alpha:
      disableDelivery: true
      spool:
        enabled: true
        queueSize: 5
    mid:
      host: smtp.mid.example
`,
			expectedListenAddr: ":8080",
			expectedMailers:    []string{"zeta", "alpha", "mid"},
		},
		{
			name: "no mailers",
			configContent: `
server:
  listenAddress: ":9090"
`,
			expectedListenAddr: ":9090",
			expectedMailers:    []string{},
		},
		{
			name:          "invalid YAML",
			configContent: `invalid: yaml: content [`,
			expectError:   true,
		},
		{
			name: "mailer name is not a string",
			configContent: `
mail:
  mailers:
    42: {}
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(writeConfig(t, tt.configContent))
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedListenAddr, cfg.Server.ListenAddress)
			assert.Equal(t, tt.expectedMailers, cfg.Mail.Mailers.Names())
		})
	}
}

func TestLoadNestedMailerFields(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
mail:
  mailers:
    primary:
      host: smtp.example.com
      port: 587
      user: bot
      logging: true
      maxLoggedMessages: 10
      spool:
        enabled: true
        maxRetries: 2
`))
	require.NoError(t, err)

	m, ok := cfg.Mail.Mailers.Get("primary")
	require.True(t, ok)
	assert.Equal(t, "smtp.example.com", m.Host)
	assert.Equal(t, 587, m.Port)
	assert.Equal(t, "bot", m.User)
	assert.True(t, m.Logging)
	assert.Equal(t, 10, m.MaxLoggedMessages)
	assert.True(t, m.Spool.Enabled)
	assert.Equal(t, 2, m.Spool.MaxRetries)

	_, ok = cfg.Mail.Mailers.Get("missing")
	assert.False(t, ok)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  listenAddress: \":7070\"\n")
	t.Setenv(config.ConfigPathEnv, path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.ListenAddress)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(config.ConfigPathEnv, "")
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
