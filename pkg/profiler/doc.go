// Package profiler collects a profile for every HTTP request: a set of data
// collectors snapshot request-scoped state once the handler has run, and the
// resulting profile is stored under a token that is returned to the client in
// the X-Debug-Token response header.
package profiler
