package obsmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/airsstack/mcp-runtime/internal/obsmetrics"
)

func TestMetrics_NewIsIdempotent(t *testing.T) {
	m1 := obsmetrics.New()
	m2 := obsmetrics.New()
	assert.Same(t, m1, m2)
}

func TestMetrics_RecordRequestStartIncrementsAndDecrements(t *testing.T) {
	m := obsmetrics.New()
	done := m.RecordRequestStart("http")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsInFlight.WithLabelValues("http")))
	done()
	assert.Equal(t, float64(0), testutil.ToFloat64(m.RequestsInFlight.WithLabelValues("http")))
}

func TestMetrics_SessionTableGauge(t *testing.T) {
	m := obsmetrics.New()
	m.SetSessionTableSize(5)
	assert.Equal(t, float64(5), testutil.ToFloat64(m.SessionTableSize))
}
