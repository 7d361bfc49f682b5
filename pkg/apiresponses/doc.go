// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package apiresponses provides the JSON error envelope shared by the HTTP
// controllers and middlewares.
package apiresponses
