// Package metrics defines the Prometheus collectors used by the indexing
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a build.
type Metrics struct {
	ChunksTotal           *prometheus.CounterVec
	DocsIndexedTotal      prometheus.Counter
	RowsSkippedTotal      prometheus.Counter
	ChunkDuration         prometheus.Histogram
	ArtifactsMergedTotal  *prometheus.CounterVec
	RecordsMergedTotal    prometheus.Counter
	MalformedRecordsTotal prometheus.Counter
	PhaseDuration         *prometheus.HistogramVec
	FinalTerms            prometheus.Gauge
	EntriesPublishedTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ChunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invindex_chunks_total",
				Help: "Chunks processed by status (ok, failed).",
			},
			[]string{"status"},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "invindex_docs_indexed_total",
				Help: "Documents tokenised into partial indexes.",
			},
		),
		RowsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "invindex_corpus_rows_skipped_total",
				Help: "Corpus rows skipped because they were too short or had no identifier.",
			},
		),
		ChunkDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "invindex_chunk_duration_seconds",
				Help:    "Time to index and persist one chunk.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		ArtifactsMergedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invindex_artifacts_merged_total",
				Help: "Intermediate artifacts read by the merge phase, by status (ok, failed).",
			},
			[]string{"status"},
		),
		RecordsMergedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "invindex_records_merged_total",
				Help: "Artifact records merged into the global index.",
			},
		),
		MalformedRecordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "invindex_malformed_records_total",
				Help: "Artifact records rejected as malformed.",
			},
		),
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invindex_phase_duration_seconds",
				Help:    "Wall time of each pipeline phase.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"phase"},
		),
		FinalTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "invindex_final_terms",
				Help: "Number of terms in the last written final index.",
			},
		),
		EntriesPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invindex_entries_published_total",
				Help: "Final index entries published, by sink.",
			},
			[]string{"sink"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ChunksTotal,
		m.DocsIndexedTotal,
		m.RowsSkippedTotal,
		m.ChunkDuration,
		m.ArtifactsMergedTotal,
		m.RecordsMergedTotal,
		m.MalformedRecordsTotal,
		m.PhaseDuration,
		m.FinalTerms,
		m.EntriesPublishedTotal,
	)

	return m
}

// ObservePhase records the duration of a phase that started at start.
func (m *Metrics) ObservePhase(phase string, start time.Time) {
	m.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
