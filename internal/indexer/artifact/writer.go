// Package artifact persists the build's intermediate and final indexes as
// line-delimited JSON. Every file is written to a temporary name and renamed
// into place, so a visible artifact is always complete.
package artifact

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
)

const (
	chunkPrefix = "inverted_index_chunk_"
	chunkSuffix = ".jsonl"
	tmpSuffix   = ".tmp"
)

var errInvalidUTF8 = errors.New("not valid UTF-8")

// Record is one line of an intermediate artifact.
type Record struct {
	Term      string   `json:"term"`
	Documents []string `json:"documents"`
}

// ChunkFileName returns the artifact name of a chunk. The name depends only
// on the chunk ID, so re-running a chunk replaces its artifact.
func ChunkFileName(chunkID int) string {
	return fmt.Sprintf("%s%06d%s", chunkPrefix, chunkID, chunkSuffix)
}

// Writer writes one intermediate artifact per chunk into a directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer that writes artifacts into dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the directory artifacts are written to.
func (w *Writer) Dir() string {
	return w.dir
}

// Write persists entries as the artifact of chunkID and returns its path. An
// empty entry list still produces an (empty) artifact.
func (w *Writer) Write(chunkID int, entries []index.TermEntry) (string, error) {
	path := filepath.Join(w.dir, ChunkFileName(chunkID))
	err := writeAtomic(path, func(bw *bufio.Writer) error {
		enc := json.NewEncoder(bw)
		for _, entry := range entries {
			if err := checkUTF8(entry); err != nil {
				return err
			}
			if err := enc.Encode(Record{Term: entry.Term, Documents: entry.Documents}); err != nil {
				return fmt.Errorf("encoding term %q: %w", entry.Term, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("writing chunk %d artifact: %w", chunkID, err)
	}
	return path, nil
}

// checkUTF8 rejects entries that JSON encoding would alter.
func checkUTF8(entry index.TermEntry) error {
	if !utf8.ValidString(entry.Term) {
		return fmt.Errorf("term %q: %w", entry.Term, errInvalidUTF8)
	}
	for _, id := range entry.Documents {
		if !utf8.ValidString(id) {
			return fmt.Errorf("term %q: document id %q: %w", entry.Term, id, errInvalidUTF8)
		}
	}
	return nil
}
