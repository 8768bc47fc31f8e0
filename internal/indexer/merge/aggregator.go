// Package merge combines intermediate artifacts into one GlobalIndex. Each
// artifact is streamed by its own reader worker; workers only contend on the
// GlobalIndex lock shard of the term being merged.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

// Policy decides what happens to malformed records and unreadable artifacts.
type Policy string

const (
	// PolicyAbort fails the merge after the barrier if any artifact had a
	// malformed record or could not be read.
	PolicyAbort Policy = "abort"
	// PolicySkip drops malformed records and unreadable artifacts with a
	// warning and counts them in the Report.
	PolicySkip Policy = "skip"
)

// Options configures an Aggregator.
type Options struct {
	Readers     int
	LockShards  int
	OnMalformed Policy
}

// Report summarises a merge run.
type Report struct {
	Artifacts int
	Records   int
	Malformed int
	Failed    []string
	Skipped   []string
	Terms     int
	Duration  time.Duration
}

// Aggregator runs the merge phase.
type Aggregator struct {
	opts   Options
	logger *slog.Logger
}

// NewAggregator validates opts. Readers <= 0 selects runtime.NumCPU().
func NewAggregator(opts Options) (*Aggregator, error) {
	if opts.OnMalformed == "" {
		opts.OnMalformed = PolicyAbort
	}
	if opts.OnMalformed != PolicyAbort && opts.OnMalformed != PolicySkip {
		return nil, fmt.Errorf("%w: unknown malformed-record policy %q", apperrors.ErrInvalidConfig, opts.OnMalformed)
	}
	if opts.Readers <= 0 {
		opts.Readers = runtime.NumCPU()
	}
	if opts.LockShards <= 0 {
		opts.LockShards = index.DefaultShards
	}
	return &Aggregator{
		opts:   opts,
		logger: slog.Default().With("component", "merge-aggregator"),
	}, nil
}

type artifactStats struct {
	records   int
	malformed int
}

// Run merges every artifact in paths into a new GlobalIndex and returns it
// once all readers have joined. Under PolicyAbort any artifact failure is
// returned as an *errors.PhaseError listing every failed artifact; the index
// must then be discarded.
func (a *Aggregator) Run(ctx context.Context, paths []string) (*index.GlobalIndex, Report, error) {
	start := time.Now()
	global := index.NewGlobalIndex(a.opts.LockShards)
	report := Report{Artifacts: len(paths)}

	var (
		mu       sync.Mutex
		failures []error
	)
	g := new(errgroup.Group)
	g.SetLimit(a.opts.Readers)
	for _, path := range paths {
		g.Go(func() error {
			stats, err := a.readArtifact(ctx, path, global)
			mu.Lock()
			defer mu.Unlock()
			report.Records += stats.records
			report.Malformed += stats.malformed
			if err == nil {
				return nil
			}
			if a.opts.OnMalformed == PolicySkip && !isCancellation(err) {
				a.logger.Warn("skipping unreadable artifact",
					"artifact", path,
					"records_merged", stats.records,
					"error", err,
				)
				report.Skipped = append(report.Skipped, path)
				return nil
			}
			report.Failed = append(report.Failed, path)
			failures = append(failures, err)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Failed)
	sort.Strings(report.Skipped)
	report.Terms = global.Terms()
	report.Duration = time.Since(start)
	a.logger.Info("all merge readers joined",
		"artifacts", report.Artifacts,
		"records", report.Records,
		"malformed", report.Malformed,
		"failed", len(report.Failed),
		"skipped", len(report.Skipped),
		"terms", report.Terms,
		"duration", report.Duration,
	)
	return global, report, apperrors.NewPhaseError("merge", failures)
}

func (a *Aggregator) readArtifact(ctx context.Context, path string, global *index.GlobalIndex) (artifactStats, error) {
	var stats artifactStats
	r, err := artifact.OpenReader(path)
	if err != nil {
		return stats, err
	}
	defer r.Close()

	for {
		if err := ctx.Err(); err != nil {
			return stats, &apperrors.ArtifactError{Path: path, Err: err}
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var recErr *apperrors.RecordError
			if errors.As(err, &recErr) {
				stats.malformed++
				if a.opts.OnMalformed == PolicySkip {
					a.logger.Warn("skipping malformed record",
						"artifact", path,
						"line", recErr.Line,
						"error", recErr.Err,
					)
					continue
				}
			}
			return stats, err
		}
		if err := global.Merge(rec.Term, rec.Documents); err != nil {
			return stats, &apperrors.ArtifactError{Path: path, Err: err}
		}
		stats.records++
	}
	a.logger.Debug("artifact merged", "artifact", path, "records", stats.records)
	return stats, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
