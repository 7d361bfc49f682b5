// Package metrics defines Prometheus metrics for mail delivery, channel
// spools, message loggers and the request profiler.
package metrics
