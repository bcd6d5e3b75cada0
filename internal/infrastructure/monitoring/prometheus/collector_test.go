package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "bangun"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestNewMetricsCollectorRequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestCounterRoundTrip(t *testing.T) {
	c := newTestCollector(t)
	counter := c.RegisterCounter("resolutions_total", "test counter", "source")
	counter.WithLabelValues("cached").Inc()
	counter.WithLabelValues("cached").Add(2)
	counter.WithLabelValues("live").Inc()

	body := scrape(t, c)
	assert.Contains(t, body, `bangun_resolutions_total{source="cached"} 3`)
	assert.Contains(t, body, `bangun_resolutions_total{source="live"} 1`)
}

func TestDuplicateRegistrationReturnsExisting(t *testing.T) {
	c := newTestCollector(t)
	first := c.RegisterCounter("dup_total", "test", "l")
	second := c.RegisterCounter("dup_total", "test", "l")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	assert.Contains(t, scrape(t, c), `bangun_dup_total{l="a"} 2`)
}

func TestGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	gauge := c.RegisterGauge("jobs_active", "test gauge", "kind")
	gauge.WithLabelValues("estimate").Set(3)
	gauge.WithLabelValues("estimate").Dec()

	hist := c.RegisterHistogram("dur_seconds", "test histogram", []float64{0.1, 1, 10})
	hist.WithLabelValues().Observe(0.5)

	body := scrape(t, c)
	assert.Contains(t, body, `bangun_jobs_active{kind="estimate"} 2`)
	assert.Contains(t, body, `bangun_dur_seconds_count 1`)
}

func TestNewAppMetricsRegistersEverything(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)
	require.NotNil(t, m)

	m.ResolutionsTotal.WithLabelValues("live").Inc()
	m.JobsCreatedTotal.WithLabelValues("boq").Inc()
	m.WebhooksTotal.WithLabelValues("rejected").Inc()

	body := scrape(t, c)
	assert.Contains(t, body, `bangun_price_resolutions_total{source="live"} 1`)
	assert.Contains(t, body, `bangun_jobs_created_total{kind="boq"} 1`)
	assert.Contains(t, body, `bangun_payment_webhooks_total{result="rejected"} 1`)
}

func TestNopAppMetricsIsSafe(t *testing.T) {
	m := NewNopAppMetrics()
	assert.NotPanics(t, func() {
		m.ResolutionsTotal.WithLabelValues("x").Inc()
		m.JobsActive.WithLabelValues("estimate").Inc()
		m.JobDuration.WithLabelValues("estimate").Observe(1)
		NewTimer(m.LiveLookupDuration.WithLabelValues()).ObserveDuration()
	})
}

func scrape(t *testing.T, c MetricsCollector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	b, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(b)
}
