package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/scheduler"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/tokenizer"
)

// ArtifactWriter persists the partial index of one chunk and returns where
// it was written. Implementations must leave nothing visible on failure.
type ArtifactWriter interface {
	Write(chunkID int, entries []index.TermEntry) (string, error)
}

// ChunkResult describes one indexed chunk.
type ChunkResult struct {
	ChunkID  int
	Docs     int
	Terms    int
	Path     string
	Duration time.Duration
}

// ChunkIndexer turns one batch of documents into a persisted partial index.
// It touches no shared mutable state besides the file it creates.
type ChunkIndexer struct {
	tok    *tokenizer.Tokenizer
	writer ArtifactWriter
	logger *slog.Logger
}

func NewChunkIndexer(tok *tokenizer.Tokenizer, writer ArtifactWriter) *ChunkIndexer {
	return &ChunkIndexer{
		tok:    tok,
		writer: writer,
		logger: slog.Default().With("component", "chunk-indexer"),
	}
}

// Index tokenises every document of b into a fresh PartialIndex and writes
// it as the artifact of b.ID. A document that is not valid UTF-8 fails the
// chunk, since lower-casing and JSON would both rewrite its bytes.
func (c *ChunkIndexer) Index(ctx context.Context, b scheduler.Batch) (ChunkResult, error) {
	start := time.Now()
	c.logger.Debug("processing chunk", "chunk_id", b.ID, "docs", len(b.Docs))

	partial := index.NewPartialIndex()
	for i, doc := range b.Docs {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return ChunkResult{ChunkID: b.ID}, fmt.Errorf("indexing chunk %d: %w", b.ID, err)
			}
		}
		if !utf8.ValidString(doc.ID) || !utf8.ValidString(doc.Text) {
			return ChunkResult{ChunkID: b.ID}, fmt.Errorf("indexing chunk %d: document %q is not valid UTF-8", b.ID, doc.ID)
		}
		partial.AddDocument(doc.ID, c.tok.Terms(doc.Text))
	}

	writeStart := time.Now()
	path, err := c.writer.Write(b.ID, partial.Entries())
	if err != nil {
		return ChunkResult{ChunkID: b.ID}, fmt.Errorf("persisting chunk %d: %w", b.ID, err)
	}
	result := ChunkResult{
		ChunkID:  b.ID,
		Docs:     partial.DocCount(),
		Terms:    partial.Terms(),
		Path:     path,
		Duration: time.Since(start),
	}
	c.logger.Info("chunk indexed",
		"chunk_id", b.ID,
		"docs", result.Docs,
		"terms", result.Terms,
		"artifact", path,
		"write_duration", time.Since(writeStart),
		"duration", result.Duration,
	)
	return result, nil
}
