// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package collector implements the mail data collector of the request profiler.
// At the end of a request it snapshots, per mail channel with a message logger,
// the logged messages and counters, and exposes read accessors over that snapshot.
package collector
