package metrics

import "time"

// OutcomeLabel enumerates validation pass outcomes for counters.
type OutcomeLabel string

const (
	OutcomeValid   OutcomeLabel = "valid"
	OutcomeInvalid OutcomeLabel = "invalid"
	OutcomeError   OutcomeLabel = "error"
)

// Recorder defines observability hooks for validation passes. Implementations
// may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveValidationDuration(schemaVersion int, d time.Duration)
	IncValidationOutcome(schemaVersion int, outcome OutcomeLabel)
	IncValidationError(code string)
	IncCacheLookup(hit bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)   {}
func (NoopRecorder) ObserveValidationDuration(int, time.Duration) {}
func (NoopRecorder) IncValidationOutcome(int, OutcomeLabel)       {}
func (NoopRecorder) IncValidationError(string)                    {}
func (NoopRecorder) IncCacheLookup(bool)                          {}
