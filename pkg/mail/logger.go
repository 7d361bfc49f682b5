// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"
	"sync"

	"github.com/telekom/mail-profiler/pkg/metrics"
)

// Plugin observes messages passing through a Channel before they are handed to the transport.
// ctx is the context passed to Channel.Send.
type Plugin interface {
	BeforeSend(ctx context.Context, channel string, msg *Message)
}

// LoggerHandle is the read side of a message logger.
type LoggerHandle interface {
	Messages() []*Message
	CountMessages() int
}

// MessageLogger records every message sent through a channel.
// When maxMessages is positive, only the first maxMessages messages are kept
// but all of them are counted.
type MessageLogger struct {
	channel     string
	maxMessages int

	mu       sync.Mutex
	messages []*Message
	count    int
}

func NewMessageLogger(channel string, maxMessages int) *MessageLogger {
	return &MessageLogger{channel: channel, maxMessages: maxMessages}
}

func (l *MessageLogger) Record(msg *Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	if l.maxMessages <= 0 || len(l.messages) < l.maxMessages {
		l.messages = append(l.messages, msg)
	}
	metrics.MessagesLogged.WithLabelValues(l.channel).Inc()
}

// Messages returns the logged messages in the order they were sent.
func (l *MessageLogger) Messages() []*Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// CountMessages returns how many messages went through the channel, stored or not.
func (l *MessageLogger) CountMessages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Reset forgets all logged messages.
func (l *MessageLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
	l.count = 0
}

func (l *MessageLogger) Channel() string {
	return l.channel
}

// MessageLog is the set of message loggers of one unit of work, usually a
// single HTTP request. It only has loggers for channels with logging enabled.
type MessageLog struct {
	loggers map[string]*MessageLogger
}

// Logger returns the logger of the named channel.
func (l *MessageLog) Logger(channel string) (*MessageLogger, bool) {
	if l == nil {
		return nil, false
	}
	logger, ok := l.loggers[channel]
	return logger, ok
}

type messageLogKey struct{}

// ContextWithMessageLog returns a copy of ctx in which sends are recorded into log.
func ContextWithMessageLog(ctx context.Context, log *MessageLog) context.Context {
	return context.WithValue(ctx, messageLogKey{}, log)
}

func MessageLogFromContext(ctx context.Context) (*MessageLog, bool) {
	if ctx == nil {
		return nil, false
	}
	log, ok := ctx.Value(messageLogKey{}).(*MessageLog)
	return log, ok && log != nil
}

// contextLogger records messages into the MessageLog carried by the send context.
// Sends without one are not recorded.
type contextLogger struct{}

func (contextLogger) BeforeSend(ctx context.Context, channel string, msg *Message) {
	log, ok := MessageLogFromContext(ctx)
	if !ok {
		return
	}
	if logger, ok := log.Logger(channel); ok {
		logger.Record(msg)
	}
}
