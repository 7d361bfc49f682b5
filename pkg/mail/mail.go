// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"crypto/tls"
	"math"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/mail-profiler/pkg/config"
	"github.com/telekom/mail-profiler/pkg/metrics"
)

// Sender delivers a message through a transport.
type Sender interface {
	Send(msg *Message) error
	GetHost() string
	GetPort() int
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type sender struct {
	channel        string
	dialer         dialer
	host           string
	port           int
	retryCount     int
	retryBackoffMs int
	sleep          func(time.Duration)
	log            *zap.SugaredLogger
}

// NewSender builds an SMTP sender for the named channel.
func NewSender(channel string, cfg config.MailerConfig, log *zap.SugaredLogger) Sender {
	log = log.With("channel", channel)
	log.Infow("Initializing mail sender", "host", cfg.Host, "port", cfg.Port, "user", cfg.User)
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in via config
	}

	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}
	retryBackoffMs := cfg.RetryBackoffMs
	if retryBackoffMs <= 0 {
		retryBackoffMs = 100
	}
	log.Debugw("Retry configuration", "count", retryCount, "initialBackoffMs", retryBackoffMs)

	return &sender{
		channel:        channel,
		dialer:         d,
		host:           cfg.Host,
		port:           cfg.Port,
		retryCount:     retryCount,
		retryBackoffMs: retryBackoffMs,
		sleep:          time.Sleep,
		log:            log,
	}
}

func (s *sender) Send(msg *Message) error {
	receivers := msg.Recipients()
	s.log.Debugw("Preparing to send mail", "id", msg.ID, "receivers", len(receivers), "subject", msg.Subject)
	gm := msg.ToGomail()

	var lastErr error
	backoffMs := s.retryBackoffMs

	for attempt := 0; attempt <= s.retryCount; attempt++ {
		err := s.dialer.DialAndSend(gm)
		if err == nil {
			s.log.Infow("Mail sent", "id", msg.ID, "receivers", len(receivers), "attempt", attempt+1)
			metrics.MailSendSuccess.WithLabelValues(s.channel, s.host).Inc()
			return nil
		}

		lastErr = err
		if attempt < s.retryCount {
			s.log.Warnw("Send attempt failed, retrying", "id", msg.ID, "attempt", attempt+1, "error", err, "retryInMs", backoffMs)
			s.sleep(time.Duration(backoffMs) * time.Millisecond)
			backoffMs = int(math.Min(float64(backoffMs)*2, 32000))
		} else {
			s.log.Errorw("Failed to send mail", "id", msg.ID, "attempts", s.retryCount+1, "error", err)
		}
	}

	metrics.MailSendFailure.WithLabelValues(s.channel, s.host).Inc()
	return lastErr
}

func (s *sender) GetHost() string {
	return s.host
}

func (s *sender) GetPort() int {
	return s.port
}

// nullSender accepts every message and delivers none of them.
type nullSender struct {
	channel string
	log     *zap.SugaredLogger
}

// NewNullSender returns a Sender used when delivery is disabled for a channel.
func NewNullSender(channel string, log *zap.SugaredLogger) Sender {
	return &nullSender{channel: channel, log: log.With("channel", channel)}
}

func (s *nullSender) Send(msg *Message) error {
	s.log.Debugw("Delivery disabled, discarding mail", "id", msg.ID, "subject", msg.Subject)
	metrics.MailSendSuccess.WithLabelValues(s.channel, "null").Inc()
	return nil
}

func (s *nullSender) GetHost() string { return "null" }
func (s *nullSender) GetPort() int    { return 0 }
