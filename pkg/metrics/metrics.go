// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Mail transport metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"channel", "host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"channel", "host"})

	// Spool metrics
	MailQueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_mail_queued_total",
		Help: "Total number of messages accepted by a channel spool",
	}, []string{"channel"})
	MailQueueDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_mail_queue_dropped_total",
		Help: "Total number of messages rejected because the spool was full or stopping",
	}, []string{"channel"})
	MailRetryScheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_mail_retry_scheduled_total",
		Help: "Total number of spool delivery retries scheduled",
	}, []string{"channel"})
	MailSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_mail_sent_total",
		Help: "Total number of spooled messages delivered",
	}, []string{"channel"})
	MailFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_mail_failed_total",
		Help: "Total number of spooled messages given up after all retries",
	}, []string{"channel"})

	// Message logger metrics
	MessagesLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_messages_logged_total",
		Help: "Total number of messages recorded by channel message loggers",
	}, []string{"channel"})

	// Profiler metrics
	ProfilesCollected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_profiles_collected_total",
		Help: "Total number of request profiles collected",
	}, []string{"method", "status"})
	ProfileStorageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_profile_storage_errors_total",
		Help: "Total number of profile storage failures",
	}, []string{"operation"})
	CollectedMessages = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mailprofiler_collected_messages",
		Help:    "Number of mail messages seen per profiled request",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	// HTTP metrics
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailprofiler_http_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(MailQueued)
	prometheus.MustRegister(MailQueueDropped)
	prometheus.MustRegister(MailRetryScheduled)
	prometheus.MustRegister(MailSent)
	prometheus.MustRegister(MailFailed)
	prometheus.MustRegister(MessagesLogged)
	prometheus.MustRegister(ProfilesCollected)
	prometheus.MustRegister(ProfileStorageErrors)
	prometheus.MustRegister(CollectedMessages)
	prometheus.MustRegister(RateLimited)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
