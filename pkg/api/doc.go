// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package api implements the Gin HTTP server: the profiler endpoints that serve
// stored request profiles and their mail panel, the mail endpoints that send
// through configured channels, health and Prometheus metrics.
package api
