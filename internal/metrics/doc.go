// Package metrics records pipeline observability data.
//
// Components receive a Recorder through their constructors. NoopRecorder is
// the default so callers never nil-check; PrometheusRecorder is installed
// when metrics are enabled and is scraped through HTTPHandler. MemoryRecorder
// keeps counts in memory for tests and the `run` command summary.
package metrics
