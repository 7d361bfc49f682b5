// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/telekom/mail-profiler/pkg/metrics"
)

var (
	ErrQueueFull    = errors.New("mail queue is full")
	ErrQueueStopped = errors.New("mail queue is shutting down")
)

// maxBackoffMs caps spool retry backoff at 30 minutes.
const maxBackoffMs = 1800000

// QueueItem is a spooled message with its retry state.
type QueueItem struct {
	Message   *Message
	Attempt   int
	CreatedAt time.Time
	NextRetry time.Time
	Succeeded bool
}

// Queue spools messages of a channel and delivers them in the background with retries.
type Queue struct {
	channel          string
	sender           Sender
	queue            chan *QueueItem
	log              *zap.SugaredLogger
	maxRetries       int
	initialBackoffMs int
	maxQueueSize     int
	wg               sync.WaitGroup
	ctx              context.Context
	cancel           context.CancelFunc
}

// NewQueue creates a spool for the channel. The worker does not run until Start is called.
func NewQueue(channel string, sender Sender, log *zap.SugaredLogger, maxRetries, initialBackoffMs, maxQueueSize int) *Queue {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if initialBackoffMs <= 0 {
		initialBackoffMs = 10000
	}
	if maxQueueSize <= 0 {
		maxQueueSize = 1000
	}

	log = log.With("channel", channel)
	log.Infow("Initializing mail spool",
		"maxRetries", maxRetries,
		"initialBackoffMs", initialBackoffMs,
		"maxQueueSize", maxQueueSize)

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		channel:          channel,
		sender:           sender,
		queue:            make(chan *QueueItem, maxQueueSize),
		log:              log,
		maxRetries:       maxRetries,
		initialBackoffMs: initialBackoffMs,
		maxQueueSize:     maxQueueSize,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Start begins the background worker.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.worker()
	q.log.Info("Mail spool worker started")
}

// Enqueue hands a message to the spool without blocking.
func (q *Queue) Enqueue(msg *Message) error {
	select {
	case <-q.ctx.Done():
		q.log.Errorw("Cannot enqueue, spool is shutting down", "id", msg.ID)
		metrics.MailQueueDropped.WithLabelValues(q.channel).Inc()
		return ErrQueueStopped
	default:
	}

	now := time.Now()
	item := &QueueItem{Message: msg, CreatedAt: now, NextRetry: now}

	select {
	case q.queue <- item:
		metrics.MailQueued.WithLabelValues(q.channel).Inc()
		q.log.Debugw("Mail spooled", "id", msg.ID, "subject", msg.Subject)
		return nil
	default:
		metrics.MailQueueDropped.WithLabelValues(q.channel).Inc()
		q.log.Errorw("Mail spool is full, dropping message", "id", msg.ID, "queueSize", q.maxQueueSize)
		return fmt.Errorf("%w (capacity: %d)", ErrQueueFull, q.maxQueueSize)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorw("panic in mail spool worker recovered", "panic", r)
			metrics.MailFailed.WithLabelValues(q.channel).Inc()
			q.wg.Add(1)
			go q.worker()
		}
	}()

	pending := make([]*QueueItem, 0)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			q.log.Info("Mail spool worker shutting down")
			q.drain(pending)
			return

		case item := <-q.queue:
			if item == nil {
				continue
			}
			q.processItem(item)
			if !item.Succeeded && item.Attempt < q.maxRetries {
				pending = append(pending, item)
			}

		case <-ticker.C:
			now := time.Now()
			remaining := make([]*QueueItem, 0, len(pending))
			for _, item := range pending {
				if !item.Succeeded && now.After(item.NextRetry) {
					q.processItem(item)
				}
				if !item.Succeeded && item.Attempt < q.maxRetries {
					remaining = append(remaining, item)
				}
			}
			pending = remaining
		}
	}
}

func (q *Queue) processItem(item *QueueItem) {
	item.Attempt++

	err := q.sender.Send(item.Message)
	if err == nil {
		q.log.Infow("Spooled mail delivered", "id", item.Message.ID, "attempt", item.Attempt)
		metrics.MailSent.WithLabelValues(q.channel).Inc()
		item.Succeeded = true
		return
	}

	if item.Attempt < q.maxRetries {
		backoffMs := q.calculateBackoff(item.Attempt)
		item.NextRetry = time.Now().Add(time.Duration(backoffMs) * time.Millisecond)
		q.log.Warnw("Spooled mail delivery failed, scheduling retry",
			"id", item.Message.ID,
			"attempt", item.Attempt,
			"error", err,
			"nextRetry", item.NextRetry.Format(time.RFC3339))
		metrics.MailRetryScheduled.WithLabelValues(q.channel).Inc()
		return
	}

	q.log.Errorw("Spooled mail delivery failed after all retries",
		"id", item.Message.ID,
		"attempts", item.Attempt,
		"error", err)
	metrics.MailFailed.WithLabelValues(q.channel).Inc()
}

// drain gives pending and still buffered items one last attempt on shutdown.
func (q *Queue) drain(pending []*QueueItem) {
	for drained := false; !drained; {
		select {
		case item := <-q.queue:
			if item != nil {
				pending = append(pending, item)
			}
		default:
			drained = true
		}
	}
	q.log.Infow("Delivering pending mail before shutdown", "count", len(pending))
	for _, item := range pending {
		if !item.Succeeded && item.Attempt < q.maxRetries {
			q.processItem(item)
		}
	}
}

// calculateBackoff doubles initialBackoffMs per attempt, capped at 30 minutes.
func (q *Queue) calculateBackoff(attempt int) int {
	backoffMs := float64(q.initialBackoffMs) * math.Pow(2, float64(attempt-1))
	if backoffMs > maxBackoffMs {
		return maxBackoffMs
	}
	return int(backoffMs)
}

// Stop shuts the spool down and waits for the worker until ctx expires.
func (q *Queue) Stop(ctx context.Context) error {
	q.log.Info("Stopping mail spool")
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("Mail spool stopped")
		return nil
	case <-ctx.Done():
		q.log.Warn("Mail spool shutdown timed out, some messages may not have been delivered")
		return ctx.Err()
	}
}

// Length returns the number of messages waiting for their first attempt.
func (q *Queue) Length() int {
	return len(q.queue)
}
