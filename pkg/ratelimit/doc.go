// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit provides per-IP token-bucket rate limiting middleware for
// the profiler endpoints, with automatic stale-entry cleanup.
package ratelimit
