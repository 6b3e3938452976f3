package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration      *prom.HistogramVec
	validationDuration *prom.HistogramVec
	outcomes           *prom.CounterVec
	errors             *prom.CounterVec
	cacheLookups       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the validation metrics on reg.
// A nil registry gets a private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "buildconfig",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual validation stages",
			Buckets:   prom.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"stage"}),
		validationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "buildconfig",
			Name:      "validation_duration_seconds",
			Help:      "Duration of complete validation passes",
			Buckets:   prom.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"schema_version"}),
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildconfig",
			Name:      "validations_total",
			Help:      "Validation passes by schema version and outcome",
		}, []string{"schema_version", "outcome"}),
		errors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildconfig",
			Name:      "validation_errors_total",
			Help:      "Configuration errors by error code",
		}, []string{"code"}),
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildconfig",
			Name:      "cache_lookups_total",
			Help:      "Specification cache lookups by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.validationDuration, pr.outcomes, pr.errors, pr.cacheLookups)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveValidationDuration(schemaVersion int, d time.Duration) {
	if p == nil || p.validationDuration == nil {
		return
	}
	p.validationDuration.WithLabelValues(versionLabel(schemaVersion)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncValidationOutcome(schemaVersion int, outcome OutcomeLabel) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(versionLabel(schemaVersion), string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncValidationError(code string) {
	if p == nil || p.errors == nil {
		return
	}
	p.errors.WithLabelValues(code).Inc()
}

func (p *PrometheusRecorder) IncCacheLookup(hit bool) {
	if p == nil || p.cacheLookups == nil {
		return
	}
	res := "miss"
	if hit {
		res = "hit"
	}
	p.cacheLookups.WithLabelValues(res).Inc()
}

// versionLabel keeps failures before version dispatch (version 0) apart.
func versionLabel(v int) string {
	if v <= 0 {
		return "unknown"
	}
	return strconv.Itoa(v)
}
