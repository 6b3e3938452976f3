// Package metrics provides observability hooks for configuration validation.
//
// # Design
//
// This package implements the Null Object pattern so that callers never need
// nil checks. By default every component uses NoopRecorder, which implements
// the Recorder interface with empty methods.
//
// Components receive a Recorder through dependency injection:
//
//	loader := config.NewLoader(config.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The watch command serves the registry with HTTPHandler when a metrics
// address is configured.
package metrics
