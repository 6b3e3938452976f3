package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("python", 150*time.Microsecond)
	pr.ObserveValidationDuration(2, 500*time.Microsecond)
	pr.IncValidationOutcome(2, OutcomeValid)
	pr.IncValidationOutcome(0, OutcomeError)
	pr.IncValidationError("invalid-key")
	pr.IncValidationError("invalid-key")
	pr.IncCacheLookup(false)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	assert.InDelta(t, 1, testutil.ToFloat64(pr.outcomes.WithLabelValues("2", "valid")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.outcomes.WithLabelValues("unknown", "error")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(pr.errors.WithLabelValues("invalid-key")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.cacheLookups.WithLabelValues("miss")), 0)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncValidationError("version-invalid")

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `buildconfig_validation_errors_total{code="version-invalid"} 1`))
}
