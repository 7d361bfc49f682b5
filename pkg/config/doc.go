// Package config loads the service configuration from YAML: HTTP server
// settings, profiler storage, and the ordered set of named mail channels.
package config
