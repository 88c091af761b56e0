package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveProbe("http", 150*time.Millisecond, "ok")
	pr.IncRetry("http")
	pr.IncOutcome("broken")
	pr.ObserveRun(2*time.Second, 10, 1)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"checklinks_probe_duration_seconds",
		"checklinks_probe_retries_total",
		"checklinks_target_outcomes_total",
		"checklinks_broken_links",
		"checklinks_runs_total",
	} {
		assert.True(t, names[want], want)
	}
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).ObserveRun(time.Second, 3, 2)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "checklinks_broken_links 2")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveProbe("local", time.Millisecond, "ok")
	r.IncRetry("http")
	r.IncOutcome("ok")
	r.ObserveRun(time.Second, 0, 0)
}
