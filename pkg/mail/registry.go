// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/telekom/mail-profiler/pkg/config"
)

var ErrUnknownChannel = errors.New("unknown mail channel")

// SenderFactory builds the transport of a channel.
type SenderFactory func(channel string, cfg config.MailerConfig, log *zap.SugaredLogger) Sender

// DefaultSenderFactory picks the null transport when delivery is disabled and SMTP otherwise.
func DefaultSenderFactory(channel string, cfg config.MailerConfig, log *zap.SugaredLogger) Sender {
	if cfg.DisableDelivery {
		return NewNullSender(channel, log)
	}
	return NewSender(channel, cfg, log)
}

type RegistryOption func(*Registry)

func WithSenderFactory(f SenderFactory) RegistryOption {
	return func(r *Registry) {
		r.newSender = f
	}
}

func WithLifecycle(l *Lifecycle) RegistryOption {
	return func(r *Registry) {
		r.lifecycle = l
	}
}

// Registry holds the configured channels by name. Transports and spools are only
// built on first use of a channel. Sent messages are recorded per request into
// the MessageLog of the send context, for channels with logging enabled.
type Registry struct {
	names       []string
	defaultName string
	configs     map[string]config.MailerConfig
	logLimits   map[string]int
	newSender   SenderFactory
	lifecycle   *Lifecycle
	log         *zap.SugaredLogger

	mu       sync.Mutex
	channels map[string]*Channel
}

func NewRegistry(cfg config.Mail, log *zap.SugaredLogger, opts ...RegistryOption) *Registry {
	r := &Registry{
		names:       cfg.Mailers.Names(),
		defaultName: cfg.DefaultMailer,
		configs:     make(map[string]config.MailerConfig, len(cfg.Mailers)),
		logLimits:   make(map[string]int),
		newSender:   DefaultSenderFactory,
		log:         log.Named("mail-registry"),
		channels:    make(map[string]*Channel),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.lifecycle == nil {
		r.lifecycle = NewLifecycle()
	}

	for _, nm := range cfg.Mailers {
		r.configs[nm.Name] = nm.Config
		if nm.Config.Logging {
			r.logLimits[nm.Name] = nm.Config.MaxLoggedMessages
		}
	}
	r.log.Infow("Mail channels registered",
		"channels", r.names,
		"default", r.defaultName,
		"logged", len(r.logLimits))
	return r
}

// ChannelNames returns the configured channel names in configuration order.
func (r *Registry) ChannelNames() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) DefaultChannel() string {
	return r.defaultName
}

// IsQueued reports whether the named channel is configured to spool its messages.
func (r *Registry) IsQueued(name string) bool {
	return r.configs[name].Spool.Enabled
}

// IsLogged reports whether messages of the named channel are recorded.
func (r *Registry) IsLogged(name string) bool {
	_, ok := r.logLimits[name]
	return ok
}

// NewMessageLog creates empty loggers for every channel with logging enabled.
func (r *Registry) NewMessageLog() *MessageLog {
	log := &MessageLog{loggers: make(map[string]*MessageLogger, len(r.logLimits))}
	for name, limit := range r.logLimits {
		log.loggers[name] = NewMessageLogger(name, limit)
	}
	return log
}

// Attach returns a copy of ctx carrying a fresh MessageLog, so that sends made
// with it are recorded apart from any other request.
func (r *Registry) Attach(ctx context.Context) context.Context {
	return ContextWithMessageLog(ctx, r.NewMessageLog())
}

// TryGetLogger returns the logger of a channel from the MessageLog carried by ctx.
// It never builds the channel itself.
func (r *Registry) TryGetLogger(ctx context.Context, name string) (LoggerHandle, bool) {
	if !r.IsLogged(name) {
		return nil, false
	}
	log, ok := MessageLogFromContext(ctx)
	if !ok {
		return nil, false
	}
	l, ok := log.Logger(name)
	if !ok {
		return nil, false
	}
	return l, true
}

func (r *Registry) Lifecycle() *Lifecycle {
	return r.lifecycle
}

// Channel returns the named channel, building its transport and spool on first use.
func (r *Registry) Channel(name string) (*Channel, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[name]; ok {
		return ch, nil
	}

	sender := r.newSender(name, cfg, r.log)
	var spool *Queue
	if cfg.Spool.Enabled {
		spool = NewQueue(name, sender, r.log, cfg.Spool.MaxRetries, cfg.Spool.InitialBackoffMs, cfg.Spool.QueueSize)
		spool.Start()
	}
	var plugins []Plugin
	if r.IsLogged(name) {
		plugins = append(plugins, contextLogger{})
	}

	ch := newChannel(name, Address{Name: cfg.SenderName, Address: cfg.SenderAddress}, sender, spool, plugins, r.log)
	r.channels[name] = ch
	r.lifecycle.MarkInitialized()
	r.log.Infow("Mail channel started", "channel", name, "queued", spool != nil, "host", sender.GetHost())
	return ch, nil
}

// Default returns the default channel.
func (r *Registry) Default() (*Channel, error) {
	if r.defaultName == "" {
		return nil, fmt.Errorf("%w: no default channel configured", ErrUnknownChannel)
	}
	return r.Channel(r.defaultName)
}

// Stop shuts down the spools of all started channels.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, ch := range r.channels {
		if ch.spool == nil {
			continue
		}
		if err := ch.spool.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping spool of %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
