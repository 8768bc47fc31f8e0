package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ChunksTotal.WithLabelValues("ok").Add(3)
	m.DocsIndexedTotal.Add(120)
	m.ObservePhase("merge", time.Now().Add(-time.Second))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `invindex_chunks_total{status="ok"} 3`)
	assert.Contains(t, out, "invindex_docs_indexed_total 120")
	assert.Contains(t, out, `invindex_phase_duration_seconds_count{phase="merge"} 1`)
}

func TestNewUsesIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestStartServerServesScrapeEndpoint(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.FinalTerms.Set(7)

	srv, err := StartServer("127.0.0.1:0", m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "invindex_final_terms 7")
}

func TestStartServerReportsBindFailure(t *testing.T) {
	first, err := StartServer("127.0.0.1:0", New(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	_, err = StartServer(first.Addr(), New(prometheus.NewRegistry()))
	assert.Error(t, err)
}
