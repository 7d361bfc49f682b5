// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the mailprofiler command line: the serve command that
// wires mail channels, the profiler and the HTTP server together, and client
// commands that read stored profiles from a running server.
package cli
