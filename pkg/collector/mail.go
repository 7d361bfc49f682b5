// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/telekom/mail-profiler/pkg/mail"
	"github.com/telekom/mail-profiler/pkg/metrics"
	"github.com/telekom/mail-profiler/pkg/profiler"
)

// Name keys the mail collector among the collectors of a profile.
const Name = "swiftmailer"

// DefaultChannelName is what Messages looks up when called without a channel.
const DefaultChannelName = "default"

var ErrChannelNotFound = errors.New("channel data not found")

// ChannelRegistry is the read side of the configured mail channels.
type ChannelRegistry interface {
	// ChannelNames returns the configured channels in configuration order.
	ChannelNames() []string
	DefaultChannel() string
	IsQueued(name string) bool
	// TryGetLogger returns the message logger a channel keeps for the request
	// behind ctx, without starting the channel.
	TryGetLogger(ctx context.Context, name string) (mail.LoggerHandle, bool)
}

// LifecycleStatus reports whether the mail subsystem was used at all in this process.
type LifecycleStatus interface {
	Initialized() bool
}

// ChannelRecord is the collected data of a single channel. MessageCount is
// reported by the logger and may exceed len(Messages) when the logger caps
// the number of stored messages.
type ChannelRecord struct {
	Messages     []*mail.Message `json:"messages"`
	MessageCount int             `json:"messageCount"`
	IsQueued     bool            `json:"isQueued"`
}

// Snapshot is the result of one Collect call.
type Snapshot struct {
	DefaultChannel string                   `json:"defaultChannel"`
	MessageCount   int                      `json:"messageCount"`
	ChannelNames   []string                 `json:"channelNames"`
	Channels       map[string]ChannelRecord `json:"channels"`
}

func emptySnapshot() Snapshot {
	return Snapshot{
		ChannelNames: []string{},
		Channels:     map[string]ChannelRecord{},
	}
}

// MailCollector collects mail activity for the profiler. A collector is
// request-scoped; use Factory to register it with a profiler.Profiler.
type MailCollector struct {
	registry  ChannelRegistry
	lifecycle LifecycleStatus
	log       *zap.SugaredLogger
	data      Snapshot
}

func NewMailCollector(registry ChannelRegistry, lifecycle LifecycleStatus, log *zap.SugaredLogger) *MailCollector {
	return &MailCollector{
		registry:  registry,
		lifecycle: lifecycle,
		log:       log.Named("mail-collector"),
		data:      emptySnapshot(),
	}
}

// Factory returns a profiler.CollectorFactory producing fresh collectors over
// the same registry and lifecycle.
func Factory(registry ChannelRegistry, lifecycle LifecycleStatus, log *zap.SugaredLogger) profiler.CollectorFactory {
	return func() profiler.DataCollector {
		return NewMailCollector(registry, lifecycle, log)
	}
}

// FromSnapshot wraps stored data in a collector so readers of a profile can use
// the accessors. Collect is a no-op on the returned collector.
func FromSnapshot(s Snapshot) *MailCollector {
	if s.Channels == nil {
		s.Channels = map[string]ChannelRecord{}
	}
	if s.ChannelNames == nil {
		s.ChannelNames = []string{}
	}
	return &MailCollector{log: zap.NewNop().Sugar(), data: s}
}

func (c *MailCollector) Name() string {
	return Name
}

func (c *MailCollector) Reset() {
	c.data = emptySnapshot()
}

// Collect replaces the snapshot with the state of the channel loggers of req.
// Response and error are not used. Nothing is collected when no mail channel
// was ever started.
func (c *MailCollector) Collect(req *http.Request, _ *profiler.Response, _ error) {
	if c.registry == nil {
		return
	}
	c.Reset()
	if c.lifecycle == nil || !c.lifecycle.Initialized() {
		return
	}

	ctx := context.Background()
	if req != nil {
		ctx = req.Context()
	}

	defaultName := c.registry.DefaultChannel()
	for _, name := range c.registry.ChannelNames() {
		if name == defaultName {
			c.data.DefaultChannel = name
		}

		logger, ok := c.registry.TryGetLogger(ctx, name)
		if !ok {
			continue
		}
		record := ChannelRecord{
			Messages:     logger.Messages(),
			MessageCount: logger.CountMessages(),
			IsQueued:     c.registry.IsQueued(name),
		}
		if record.Messages == nil {
			record.Messages = []*mail.Message{}
		}
		c.data.Channels[name] = record
		c.data.ChannelNames = append(c.data.ChannelNames, name)
		c.data.MessageCount += record.MessageCount
	}

	metrics.CollectedMessages.Observe(float64(c.data.MessageCount))
	c.log.Debugw("Mail data collected",
		"channels", c.data.ChannelNames,
		"default", c.data.DefaultChannel,
		"messages", c.data.MessageCount)
}

// Data returns the current snapshot.
func (c *MailCollector) Data() any {
	return c.data
}

func (c *MailCollector) Snapshot() Snapshot {
	return c.data
}

// ChannelNames returns the collected channels in registry order.
func (c *MailCollector) ChannelNames() []string {
	out := make([]string, len(c.data.ChannelNames))
	copy(out, c.data.ChannelNames)
	return out
}

func (c *MailCollector) ChannelData(name string) (ChannelRecord, error) {
	record, ok := c.data.Channels[name]
	if !ok {
		return ChannelRecord{}, fmt.Errorf("missing %q data in %s: %w", name, Name, ErrChannelNotFound)
	}
	return record, nil
}

// MessageCount returns the number of messages over all collected channels.
func (c *MailCollector) MessageCount() int {
	return c.data.MessageCount
}

func (c *MailCollector) ChannelMessageCount(name string) (int, error) {
	record, err := c.ChannelData(name)
	if err != nil {
		return 0, err
	}
	return record.MessageCount, nil
}

// Messages returns the logged messages of a channel, or none when the channel
// was not collected. An empty name means DefaultChannelName.
func (c *MailCollector) Messages(name string) []*mail.Message {
	if name == "" {
		name = DefaultChannelName
	}
	record, ok := c.data.Channels[name]
	if !ok {
		return []*mail.Message{}
	}
	out := make([]*mail.Message, len(record.Messages))
	copy(out, record.Messages)
	return out
}

func (c *MailCollector) IsQueued(name string) (bool, error) {
	record, err := c.ChannelData(name)
	if err != nil {
		return false, err
	}
	return record.IsQueued, nil
}

func (c *MailCollector) IsDefaultChannel(name string) bool {
	return name == c.data.DefaultChannel
}

func (c *MailCollector) ExtractAttachments(msg *mail.Message) []mail.Part {
	return ExtractAttachments(msg)
}

// ExtractAttachments returns the attachment parts of msg in their original order.
// Inline files count as attachments.
func ExtractAttachments(msg *mail.Message) []mail.Part {
	out := []mail.Part{}
	if msg == nil {
		return out
	}
	for _, p := range msg.Children {
		if mail.IsAttachment(p) {
			out = append(out, p)
		}
	}
	return out
}
