// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// ConfigPathEnv overrides the default config file location when no explicit path is given.
const ConfigPathEnv = "MAILPROFILER_CONFIG_PATH"

const (
	defaultConfigPath     = "./config.yaml"
	defaultListenAddress  = ":8080"
	defaultSMTPPort       = 25
	defaultSenderAddress  = "noreply@localhost"
	defaultSenderName     = "Mail Profiler"
	defaultRetryCount     = 3
	defaultRetryBackoffMs = 100
	defaultQueueSize      = 1000
	defaultMaxProfiles    = 100

	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

type Server struct {
	ListenAddress string `yaml:"listenAddress"`
	TLSCertFile   string `yaml:"tlsCertFile"`
	TLSKeyFile    string `yaml:"tlsKeyFile"`
	// TrustedProxies are IPs/CIDRs trusted for X-Forwarded-For headers.
	TrustedProxies []string `yaml:"trustedProxies"`
}

type RateLimit struct {
	// Rate is requests per second per client IP. Zero disables the limiter.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

type Profiler struct {
	Enabled bool `yaml:"enabled"`
	// Storage selects the profile storage backend: "memory" (default) or "sqlite".
	Storage string `yaml:"storage"`
	// DSN is the sqlite database path, ":memory:" is allowed.
	DSN string `yaml:"dsn"`
	// MaxProfiles bounds both storages; the oldest profiles are evicted first.
	MaxProfiles int       `yaml:"maxProfiles"`
	RateLimit   RateLimit `yaml:"rateLimit"`
}

type Spool struct {
	Enabled          bool `yaml:"enabled"`
	QueueSize        int  `yaml:"queueSize"`
	MaxRetries       int  `yaml:"maxRetries"`
	InitialBackoffMs int  `yaml:"initialBackoffMs"`
}

// MailerConfig is the configuration of a single named mail channel.
type MailerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	SenderAddress      string `yaml:"senderAddress"`
	SenderName         string `yaml:"senderName"`
	RetryCount         int    `yaml:"retryCount"`
	RetryBackoffMs     int    `yaml:"retryBackoffMs"`
	// DisableDelivery replaces the SMTP transport with one that drops every message.
	DisableDelivery bool `yaml:"disableDelivery"`
	// Logging attaches a message logger to the channel so sent messages show up in profiles.
	Logging bool `yaml:"logging"`
	// MaxLoggedMessages caps stored message bodies per request. Zero keeps all of them.
	MaxLoggedMessages int   `yaml:"maxLoggedMessages"`
	Spool             Spool `yaml:"spool"`
}

// NamedMailer pairs a channel name with its configuration.
type NamedMailer struct {
	Name   string
	Config MailerConfig
}

// Mailers is an ordered list of mail channels. It unmarshals from a YAML mapping
// and keeps the order in which the channels appear in the file.
type Mailers []NamedMailer

func (m *Mailers) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw yaml.MapSlice
	if err := unmarshal(&raw); err != nil {
		return err
	}
	out := make(Mailers, 0, len(raw))
	for _, item := range raw {
		name, ok := item.Key.(string)
		if !ok {
			return fmt.Errorf("mailer name must be a string, got %T", item.Key)
		}
		// re-encode the value so the nested struct tags apply
		encoded, err := yaml.Marshal(item.Value)
		if err != nil {
			return fmt.Errorf("mailer %q: %w", name, err)
		}
		var cfg MailerConfig
		if err := yaml.Unmarshal(encoded, &cfg); err != nil {
			return fmt.Errorf("mailer %q: %w", name, err)
		}
		out = append(out, NamedMailer{Name: name, Config: cfg})
	}
	*m = out
	return nil
}

func (m Mailers) MarshalYAML() (interface{}, error) {
	out := make(yaml.MapSlice, 0, len(m))
	for _, nm := range m {
		out = append(out, yaml.MapItem{Key: nm.Name, Value: nm.Config})
	}
	return out, nil
}

// Names returns the channel names in configuration order.
func (m Mailers) Names() []string {
	names := make([]string, 0, len(m))
	for _, nm := range m {
		names = append(names, nm.Name)
	}
	return names
}

// Get returns the configuration of the named channel.
func (m Mailers) Get(name string) (MailerConfig, bool) {
	for _, nm := range m {
		if nm.Name == name {
			return nm.Config, true
		}
	}
	return MailerConfig{}, false
}

type Mail struct {
	DefaultMailer string  `yaml:"defaultMailer"`
	Mailers       Mailers `yaml:"mailers"`
}

type Config struct {
	Server   Server   `yaml:"server"`
	Profiler Profiler `yaml:"profiler"`
	Mail     Mail     `yaml:"mail"`
}

// Load loads the configuration from a file path.
// If configPath is empty, MAILPROFILER_CONFIG_PATH is consulted, then "./config.yaml".
func Load(configPath ...string) (Config, error) {
	path := defaultConfigPath
	if env := os.Getenv(ConfigPathEnv); env != "" {
		path = env
	}
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
	}
	return config, nil
}

// Defaults fills in unset values.
func (c *Config) Defaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = defaultListenAddress
	}
	if c.Profiler.Storage == "" {
		c.Profiler.Storage = StorageMemory
	}
	if c.Profiler.MaxProfiles <= 0 {
		c.Profiler.MaxProfiles = defaultMaxProfiles
	}
	// first configured channel is the default one unless stated otherwise
	if c.Mail.DefaultMailer == "" && len(c.Mail.Mailers) > 0 {
		c.Mail.DefaultMailer = c.Mail.Mailers[0].Name
	}
	for i := range c.Mail.Mailers {
		m := &c.Mail.Mailers[i].Config
		if m.Port <= 0 {
			m.Port = defaultSMTPPort
		}
		if m.SenderAddress == "" {
			m.SenderAddress = defaultSenderAddress
		}
		if m.SenderName == "" {
			m.SenderName = defaultSenderName
		}
		if m.RetryCount <= 0 {
			m.RetryCount = defaultRetryCount
		}
		if m.RetryBackoffMs <= 0 {
			m.RetryBackoffMs = defaultRetryBackoffMs
		}
		if m.Spool.Enabled && m.Spool.QueueSize <= 0 {
			m.Spool.QueueSize = defaultQueueSize
		}
	}
}

// Validate reports configuration errors that would prevent the service from starting.
func (c Config) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(c.Mail.Mailers))
	for _, nm := range c.Mail.Mailers {
		if strings.TrimSpace(nm.Name) == "" {
			errs = append(errs, errors.New("mail.mailers: empty mailer name"))
			continue
		}
		if _, dup := seen[nm.Name]; dup {
			errs = append(errs, fmt.Errorf("mail.mailers: duplicate mailer %q", nm.Name))
		}
		seen[nm.Name] = struct{}{}
		if !nm.Config.DisableDelivery && nm.Config.Host == "" {
			errs = append(errs, fmt.Errorf("mail.mailers.%s.host: required unless disableDelivery is set", nm.Name))
		}
	}
	if c.Mail.DefaultMailer != "" && len(c.Mail.Mailers) > 0 {
		if _, ok := seen[c.Mail.DefaultMailer]; !ok {
			errs = append(errs, fmt.Errorf("mail.defaultMailer: unknown mailer %q", c.Mail.DefaultMailer))
		}
	}
	switch c.Profiler.Storage {
	case "", StorageMemory:
	case StorageSQLite:
		if c.Profiler.DSN == "" {
			errs = append(errs, errors.New("profiler.dsn: required for sqlite storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("profiler.storage: unsupported backend %q", c.Profiler.Storage))
	}
	return errors.Join(errs...)
}
