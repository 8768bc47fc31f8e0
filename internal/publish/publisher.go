// Package publish copies a finished final index into an external store so it
// can be queried without reading the JSONL file.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/resilience"
)

// Sink stores posting lists. Reset is called once before the first batch
// and must discard whatever an earlier publish left behind.
type Sink interface {
	Name() string
	Reset(ctx context.Context) error
	WriteBatch(ctx context.Context, entries []index.TermEntry) error
	Close() error
}

// Publisher streams a final index into a Sink in batches.
type Publisher struct {
	sink    Sink
	cfg     config.PublishConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Publisher. m may be nil.
func NewPublisher(sink Sink, cfg config.PublishConfig, m *metrics.Metrics) *Publisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Publisher{
		sink:    sink,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "publisher", "sink", sink.Name()),
	}
}

// Publish replaces the sink contents with the final index at path and
// returns the number of entries written.
func (p *Publisher) Publish(ctx context.Context, path string) (int, error) {
	start := time.Now()
	r, err := artifact.OpenFinalReader(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrPublish, err)
	}
	defer r.Close()

	if err := resilience.Retry(ctx, p.sink.Name()+" reset", p.cfg.Retry, p.sink.Reset); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrPublish, err)
	}

	written := 0
	batch := make([]index.TermEntry, 0, p.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := resilience.Retry(ctx, p.sink.Name()+" write", p.cfg.Retry, func(ctx context.Context) error {
			return p.sink.WriteBatch(ctx, batch)
		})
		if err != nil {
			return err
		}
		written += len(batch)
		if p.metrics != nil {
			p.metrics.EntriesPublishedTotal.WithLabelValues(p.sink.Name()).Add(float64(len(batch)))
		}
		p.logger.Debug("batch published", "entries", len(batch), "total", written)
		batch = batch[:0]
		return nil
	}

	for {
		entry, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, fmt.Errorf("%w: %v", apperrors.ErrPublish, err)
		}
		batch = append(batch, entry)
		if len(batch) == p.cfg.BatchSize {
			if err := flush(); err != nil {
				return written, fmt.Errorf("%w: %v", apperrors.ErrPublish, err)
			}
		}
	}
	if err := flush(); err != nil {
		return written, fmt.Errorf("%w: %v", apperrors.ErrPublish, err)
	}
	p.logger.Info("final index published",
		"path", path,
		"entries", written,
		"duration", time.Since(start),
	)
	return written, nil
}

// Close closes the sink.
func (p *Publisher) Close() error {
	return p.sink.Close()
}
