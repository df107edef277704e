package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "chemscreen"}, nil)
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewMetricsCollectorRequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, nil)
	require.Error(t, err)
}

func TestCounterAppearsInScrape(t *testing.T) {
	c := testCollector(t)
	vec := c.RegisterCounter("things_total", "Things counted", "kind")
	vec.WithLabelValues("widget").Inc()
	vec.WithLabelValues("widget").Add(2)

	body := scrape(t, c.Handler())
	assert.Contains(t, body, `chemscreen_things_total{kind="widget"} 3`)
}

func TestDuplicateRegistrationReturnsExisting(t *testing.T) {
	c := testCollector(t)
	v1 := c.RegisterCounter("dups_total", "Duplicate check", "kind")
	v2 := c.RegisterCounter("dups_total", "Duplicate check", "kind")

	v1.WithLabelValues("a").Inc()
	v2.WithLabelValues("a").Inc()

	body := scrape(t, c.Handler())
	assert.Contains(t, body, `chemscreen_dups_total{kind="a"} 2`)
}

func TestGaugeAndHistogram(t *testing.T) {
	c := testCollector(t)
	g := c.RegisterGauge("depth", "Depth gauge", "name")
	g.WithLabelValues("q").Set(7)

	h := c.RegisterHistogram("latency_seconds", "Latency", nil, "op")
	h.WithLabelValues("read").Observe(0.02)

	body := scrape(t, c.Handler())
	assert.Contains(t, body, `chemscreen_depth{name="q"} 7`)
	assert.Contains(t, body, "chemscreen_latency_seconds_bucket")
}

func TestPipelineMetrics(t *testing.T) {
	c := testCollector(t)
	m := NewPipelineMetrics(c)

	m.RecordRun("antibacterial", "completed")
	m.MoleculesLoaded.WithLabelValues("antiviral").Add(25)
	m.MoleculesDropped.WithLabelValues("other", "missing_descriptors").Inc()
	m.DatasetRows.WithLabelValues("antibacterial", "train").Set(140)
	m.RecordCacheAccess("descriptors", true)
	m.RecordCacheAccess("descriptors", false)
	m.SimilarityQueries.WithLabelValues("milvus").Inc()
	m.ObserveStage(StageTrain, 1500*time.Millisecond)

	timer := m.StageTimer(StageLoad)
	timer.ObserveDuration()

	body := scrape(t, c.Handler())
	assert.Contains(t, body, `chemscreen_runs_total{positive_class="antibacterial",status="completed"} 1`)
	assert.Contains(t, body, `chemscreen_molecules_loaded_total{class="antiviral"} 25`)
	assert.Contains(t, body, `chemscreen_dataset_rows{partition="train",positive_class="antibacterial"} 140`)
	assert.Contains(t, body, `chemscreen_cache_hits_total{cache="descriptors"} 1`)
	assert.Contains(t, body, `chemscreen_cache_misses_total{cache="descriptors"} 1`)
	assert.Contains(t, body, "chemscreen_stage_duration_seconds_bucket")
}

func TestTimerNilHistogram(t *testing.T) {
	timer := NewTimer(nil)
	timer.ObserveDuration() // must not panic
}

func TestServerServesMetricsAndHealth(t *testing.T) {
	c := testCollector(t)
	vec := c.RegisterCounter("served_total", "Served", "kind")
	vec.WithLabelValues("x").Inc()

	s := NewServer(ServerConfig{Addr: "127.0.0.1:0"}, c, nil)

	// Exercise the mux directly rather than binding a port.
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "chemscreen_served_total"))

	rec = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, s.Shutdown(context.Background()))
}
