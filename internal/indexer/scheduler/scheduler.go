// Package scheduler partitions a document source into bounded batches and
// runs one worker per batch with bounded parallelism. Every dispatched
// worker is joined before any failure is reported, and a failing batch never
// cancels its siblings.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

// Batch is a contiguous run of at most chunk-size documents in source order.
type Batch struct {
	ID   int
	Docs []corpus.Document
}

// Work processes one batch. Implementations must not share mutable state
// with other batches.
type Work func(ctx context.Context, b Batch) error

// Report summarises a scheduler run.
type Report struct {
	Chunks    int
	Documents int
	Failed    []int
	Duration  time.Duration
}

// Batches splits src into the fewest batches of at most size documents,
// numbered from 0. A source error is yielded once and ends the sequence.
func Batches(src corpus.Source, size int) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		if size <= 0 {
			yield(Batch{}, fmt.Errorf("%w: chunk size must be positive, got %d", apperrors.ErrInvalidConfig, size))
			return
		}
		id := 0
		docs := make([]corpus.Document, 0, min(size, 1024))
		for {
			doc, err := src.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if !errors.Is(err, apperrors.ErrSourceRead) {
					err = fmt.Errorf("%w: %v", apperrors.ErrSourceRead, err)
				}
				yield(Batch{}, err)
				return
			}
			docs = append(docs, doc)
			if len(docs) == size {
				if !yield(Batch{ID: id, Docs: docs}, nil) {
					return
				}
				id++
				docs = make([]corpus.Document, 0, min(size, 1024))
			}
		}
		if len(docs) > 0 {
			yield(Batch{ID: id, Docs: docs}, nil)
		}
	}
}

// Partition materialises Batches.
func Partition(src corpus.Source, size int) ([]Batch, error) {
	var batches []Batch
	for b, err := range Batches(src, size) {
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// Scheduler dispatches batches to workers.
type Scheduler struct {
	chunkSize   int
	parallelism int
	logger      *slog.Logger
}

// New creates a Scheduler. parallelism <= 0 selects runtime.NumCPU().
func New(chunkSize, parallelism int) (*Scheduler, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", apperrors.ErrInvalidConfig, chunkSize)
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &Scheduler{
		chunkSize:   chunkSize,
		parallelism: parallelism,
		logger:      slog.Default().With("component", "chunk-scheduler"),
	}, nil
}

// Parallelism returns the maximum number of concurrently running workers.
func (s *Scheduler) Parallelism() int {
	return s.parallelism
}

// Run reads src to the end, dispatching each batch to work as soon as a
// worker slot is free, so at most parallelism batches are in flight and
// reading blocks while all slots are busy. Run returns only after every
// dispatched worker has finished. Worker failures are collected into an
// *errors.PhaseError. A source error or cancellation of ctx stops further
// dispatch but still waits for in-flight workers.
func (s *Scheduler) Run(ctx context.Context, src corpus.Source, work Work) (Report, error) {
	start := time.Now()
	var (
		report   Report
		mu       sync.Mutex
		failures []*apperrors.ChunkError
		stopErr  error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.parallelism)

	for b, err := range Batches(src, s.chunkSize) {
		if err != nil {
			stopErr = err
			s.logger.Error("corpus read failed, no further chunks dispatched",
				"dispatched", report.Chunks,
				"error", err,
			)
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			stopErr = fmt.Errorf("dispatch stopped after %d chunks: %w", report.Chunks, ctxErr)
			break
		}
		report.Chunks++
		report.Documents += len(b.Docs)
		s.logger.Debug("dispatching chunk", "chunk_id", b.ID, "docs", len(b.Docs))
		g.Go(func() error {
			if err := runBatch(ctx, work, b); err != nil {
				mu.Lock()
				failures = append(failures, &apperrors.ChunkError{ChunkID: b.ID, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(start)

	sort.Slice(failures, func(i, j int) bool {
		return failures[i].ChunkID < failures[j].ChunkID
	})
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		report.Failed = append(report.Failed, f.ChunkID)
		errs = append(errs, f)
	}
	s.logger.Info("all chunk workers joined",
		"chunks", report.Chunks,
		"docs", report.Documents,
		"failed", len(report.Failed),
		"parallelism", s.parallelism,
		"duration", report.Duration,
	)

	phaseErr := apperrors.NewPhaseError("index", errs)
	switch {
	case stopErr != nil && phaseErr != nil:
		return report, errors.Join(stopErr, phaseErr)
	case stopErr != nil:
		return report, stopErr
	default:
		return report, phaseErr
	}
}

func runBatch(ctx context.Context, work Work, b Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return work(ctx, b)
}
