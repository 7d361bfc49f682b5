// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package profiler

import (
	"context"
	"net/http"
)

// Response describes the response a profiled request produced.
type Response struct {
	StatusCode int
	Header     http.Header
}

// DataCollector gathers data about a single request.
type DataCollector interface {
	// Name keys the collector's data inside a profile.
	Name() string
	Collect(req *http.Request, resp *Response, err error)
	Reset()
	// Data returns the JSON-serializable result of the last Collect.
	Data() any
}

// CollectorFactory creates a fresh collector for each profiled request.
type CollectorFactory func() DataCollector

// RequestScope is implemented by services that keep request-scoped state for
// collectors. Attach returns a copy of ctx carrying fresh state for one request.
type RequestScope interface {
	Attach(ctx context.Context) context.Context
}
