// Package indexer orchestrates the two-phase inverted index build: parallel
// chunk indexing into intermediate artifacts, then a parallel merge of every
// artifact into one global index that is frozen and written once.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/merge"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/scheduler"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/fslock"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
)

// Notifier is told about every successful build after the final index is
// durable.
type Notifier interface {
	NotifyBuildCompleted(ctx context.Context, s Summary) error
}

// Summary describes a finished build or phase.
type Summary struct {
	RunID            string        `json:"run_id"`
	FinalPath        string        `json:"final_path,omitempty"`
	Chunks           int           `json:"chunks"`
	Documents        int           `json:"documents"`
	RowsSkipped      int           `json:"rows_skipped"`
	Artifacts        int           `json:"artifacts"`
	Records          int           `json:"records"`
	Malformed        int           `json:"malformed_records"`
	SkippedArtifacts []string      `json:"skipped_artifacts,omitempty"`
	Terms            int           `json:"terms"`
	IndexDuration    time.Duration `json:"index_duration"`
	MergeDuration    time.Duration `json:"merge_duration"`
	Duration         time.Duration `json:"duration"`
	CompletedAt      time.Time     `json:"completed_at"`
}

// Engine runs builds for one configuration.
type Engine struct {
	cfg      config.Config
	tok      *tokenizer.Tokenizer
	writer   ArtifactWriter
	metrics  *metrics.Metrics
	notifier Notifier
	logger   *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithArtifactWriter replaces the intermediate artifact writer.
func WithArtifactWriter(w ArtifactWriter) Option {
	return func(e *Engine) { e.writer = w }
}

// WithMetrics records build metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithNotifier announces successful builds through n.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// NewEngine validates cfg and prepares the intermediate directory. tok is
// shared read-only by every chunk worker.
func NewEngine(cfg *config.Config, tok *tokenizer.Tokenizer, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Indexer.IntermediateDir, 0755); err != nil {
		return nil, fmt.Errorf("creating intermediate directory: %w", err)
	}
	e := &Engine{
		cfg:    *cfg,
		tok:    tok,
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.writer == nil {
		e.writer = artifact.NewWriter(cfg.Indexer.IntermediateDir)
	}
	if e.metrics == nil {
		e.metrics = metrics.New(prometheus.NewRegistry())
	}
	return e, nil
}

// Build runs both phases. The merge phase starts only after every chunk
// worker has joined without failure, and the final index is written only
// after every merge reader has joined without failure; on any failure no
// final index is written.
func (e *Engine) Build(ctx context.Context, src corpus.Source) (Summary, error) {
	start := time.Now()
	ctx = logger.WithRunID(ctx, uuid.NewString())
	log := e.runLogger(ctx)

	unlock, err := e.lock()
	if err != nil {
		return Summary{}, err
	}
	defer unlock()

	summary := Summary{RunID: logger.RunID(ctx)}
	log.Info("build started",
		"intermediate_dir", e.cfg.Indexer.IntermediateDir,
		"final_path", e.cfg.Indexer.FinalPath,
		"chunk_size", e.cfg.Indexer.ChunkSize,
		"parallelism", e.cfg.Indexer.Workers(),
	)
	if err := e.indexPhase(ctx, src, &summary); err != nil {
		log.Error("build failed in index phase, merge not started", "error", err)
		return summary, err
	}
	if err := e.mergePhase(ctx, &summary); err != nil {
		log.Error("build failed in merge phase, final index not written", "error", err)
		return summary, err
	}
	if !e.cfg.Indexer.KeepIntermediate {
		if removed, err := artifact.Clean(e.cfg.Indexer.IntermediateDir); err != nil {
			log.Warn("removing intermediate artifacts failed", "error", err)
		} else {
			log.Debug("intermediate artifacts removed", "count", removed)
		}
	}
	summary.Duration = time.Since(start)
	summary.CompletedAt = time.Now().UTC()
	log.Info("build complete",
		"chunks", summary.Chunks,
		"docs", summary.Documents,
		"terms", summary.Terms,
		"final_path", summary.FinalPath,
		"duration", summary.Duration,
	)
	e.notify(ctx, summary)
	return summary, nil
}

// IndexChunks runs only the indexing phase, leaving the intermediate
// artifacts for a later MergeArtifacts.
func (e *Engine) IndexChunks(ctx context.Context, src corpus.Source) (Summary, error) {
	ctx = logger.WithRunID(ctx, uuid.NewString())
	unlock, err := e.lock()
	if err != nil {
		return Summary{}, err
	}
	defer unlock()
	summary := Summary{RunID: logger.RunID(ctx)}
	err = e.indexPhase(ctx, src, &summary)
	summary.CompletedAt = time.Now().UTC()
	return summary, err
}

// MergeArtifacts runs only the merge phase over whatever artifacts are
// present in the intermediate directory and writes the final index.
func (e *Engine) MergeArtifacts(ctx context.Context) (Summary, error) {
	start := time.Now()
	ctx = logger.WithRunID(ctx, uuid.NewString())
	unlock, err := e.lock()
	if err != nil {
		return Summary{}, err
	}
	defer unlock()
	summary := Summary{RunID: logger.RunID(ctx)}
	if err := e.mergePhase(ctx, &summary); err != nil {
		return summary, err
	}
	summary.Duration = time.Since(start)
	summary.CompletedAt = time.Now().UTC()
	e.notify(ctx, summary)
	return summary, nil
}

func (e *Engine) indexPhase(ctx context.Context, src corpus.Source, summary *Summary) error {
	start := time.Now()
	defer e.metrics.ObservePhase("index", start)
	log := e.runLogger(ctx)

	if e.cfg.Indexer.CleanIntermediate {
		removed, err := artifact.Clean(e.cfg.Indexer.IntermediateDir)
		if err != nil {
			return fmt.Errorf("cleaning intermediate directory: %w", err)
		}
		if removed > 0 {
			log.Info("removed stale intermediate artifacts", "count", removed)
		}
	}

	sched, err := scheduler.New(e.cfg.Indexer.ChunkSize, e.cfg.Indexer.Workers())
	if err != nil {
		return err
	}
	chunker := NewChunkIndexer(e.tok, e.writer)
	report, err := sched.Run(ctx, src, func(ctx context.Context, b scheduler.Batch) error {
		result, err := chunker.Index(ctx, b)
		if err != nil {
			e.metrics.ChunksTotal.WithLabelValues("failed").Inc()
			log.Error("chunk failed", "chunk_id", b.ID, "error", err)
			return err
		}
		e.metrics.ChunksTotal.WithLabelValues("ok").Inc()
		e.metrics.DocsIndexedTotal.Add(float64(result.Docs))
		e.metrics.ChunkDuration.Observe(result.Duration.Seconds())
		return nil
	})
	summary.Chunks = report.Chunks
	summary.Documents = report.Documents
	summary.IndexDuration = report.Duration
	if counter, ok := src.(interface{ Skipped() int }); ok {
		summary.RowsSkipped = counter.Skipped()
		e.metrics.RowsSkippedTotal.Add(float64(summary.RowsSkipped))
	}
	if err != nil {
		return err
	}
	log.Info("index phase complete",
		"chunks", report.Chunks,
		"docs", report.Documents,
		"rows_skipped", summary.RowsSkipped,
		"duration", report.Duration,
	)
	return nil
}

func (e *Engine) mergePhase(ctx context.Context, summary *Summary) error {
	start := time.Now()
	defer e.metrics.ObservePhase("merge", start)
	log := e.runLogger(ctx)

	paths, err := artifact.Discover(e.cfg.Indexer.IntermediateDir)
	if err != nil {
		return &apperrors.ArtifactError{Path: e.cfg.Indexer.IntermediateDir, Err: err}
	}
	log.Info("merge phase started", "artifacts", len(paths))

	agg, err := merge.NewAggregator(merge.Options{
		Readers:     e.cfg.Merge.Readers,
		LockShards:  e.cfg.Merge.LockShards,
		OnMalformed: merge.Policy(e.cfg.Merge.OnMalformed),
	})
	if err != nil {
		return err
	}
	global, report, err := agg.Run(ctx, paths)
	summary.Artifacts = report.Artifacts
	summary.Records = report.Records
	summary.Malformed = report.Malformed
	summary.SkippedArtifacts = report.Skipped
	summary.MergeDuration = report.Duration
	e.metrics.RecordsMergedTotal.Add(float64(report.Records))
	e.metrics.MalformedRecordsTotal.Add(float64(report.Malformed))
	e.metrics.ArtifactsMergedTotal.WithLabelValues("ok").Add(float64(report.Artifacts - len(report.Failed) - len(report.Skipped)))
	e.metrics.ArtifactsMergedTotal.WithLabelValues("failed").Add(float64(len(report.Failed) + len(report.Skipped)))
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("merge interrupted: %w", err)
	}

	writeStart := time.Now()
	final, err := global.Freeze()
	if err != nil {
		return err
	}
	if err := artifact.WriteFinal(e.cfg.Indexer.FinalPath, final); err != nil {
		return err
	}
	e.metrics.ObservePhase("write", writeStart)
	e.metrics.FinalTerms.Set(float64(len(final)))
	summary.Terms = len(final)
	summary.FinalPath = e.cfg.Indexer.FinalPath
	log.Info("final index written",
		"path", e.cfg.Indexer.FinalPath,
		"terms", len(final),
		"write_duration", time.Since(writeStart),
	)
	return nil
}

func (e *Engine) lock() (func(), error) {
	l := fslock.New(e.cfg.Indexer.IntermediateDir)
	ok, err := l.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is held by another process", apperrors.ErrBuildLocked, l.Path())
	}
	return func() {
		if err := l.Unlock(); err != nil {
			e.logger.Error("releasing build lock", "error", err)
		}
	}, nil
}

func (e *Engine) notify(ctx context.Context, summary Summary) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyBuildCompleted(ctx, summary); err != nil {
		e.runLogger(ctx).Error("build completion notification failed", "error", err)
	}
}

func (e *Engine) runLogger(ctx context.Context) *slog.Logger {
	return e.logger.With("run_id", logger.RunID(ctx))
}
