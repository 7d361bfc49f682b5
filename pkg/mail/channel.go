// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoRecipients = errors.New("message has no recipients")
	ErrNilMessage   = errors.New("message is nil")
	ErrNoSender     = errors.New("message has no sender address")
)

// Channel is a named mail-sending pathway: a transport, an optional spool and plugins.
type Channel struct {
	name    string
	from    Address
	sender  Sender
	spool   *Queue
	plugins []Plugin
	log     *zap.SugaredLogger
	now     func() time.Time
}

func newChannel(name string, from Address, sender Sender, spool *Queue, plugins []Plugin, log *zap.SugaredLogger) *Channel {
	return &Channel{
		name:    name,
		from:    from,
		sender:  sender,
		spool:   spool,
		plugins: plugins,
		log:     log.With("channel", name),
		now:     time.Now,
	}
}

func (c *Channel) Name() string {
	return c.name
}

// IsQueued reports whether messages are spooled instead of sent immediately.
func (c *Channel) IsQueued() bool {
	return c.spool != nil
}

// Send fills in sender, ID and date when missing, notifies plugins and hands the
// message to the spool or directly to the transport. A message without a sender
// after defaults is rejected.
func (c *Channel) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if len(msg.Recipients()) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if msg.From.Address == "" {
		msg.From = c.from
	}
	if msg.From.Address == "" {
		return ErrNoSender
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString() + "@mail-profiler"
	}
	if msg.Date.IsZero() {
		msg.Date = c.now().UTC()
	}

	for _, p := range c.plugins {
		p.BeforeSend(ctx, c.name, msg)
	}

	if c.spool != nil {
		return c.spool.Enqueue(msg)
	}
	return c.sender.Send(msg)
}
