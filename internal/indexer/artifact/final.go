package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
)

// FinalRecord is one line of the final index.
type FinalRecord struct {
	Term          string   `json:"term"`
	Documents     []string `json:"documents"`
	DocumentCount int      `json:"document_count"`
}

// WriteFinal writes the frozen index to path. entries must already be sorted
// by term with sorted document lists, as returned by GlobalIndex.Freeze.
func WriteFinal(path string, entries []index.TermEntry) error {
	err := writeAtomic(path, func(bw *bufio.Writer) error {
		enc := json.NewEncoder(bw)
		for _, entry := range entries {
			rec := FinalRecord{
				Term:          entry.Term,
				Documents:     entry.Documents,
				DocumentCount: len(entry.Documents),
			}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encoding term %q: %w", entry.Term, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing final index: %w", err)
	}
	return nil
}

// FinalReader streams entries back out of a final index file.
type FinalReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// OpenFinalReader opens the final index at path.
func OpenFinalReader(path string) (*FinalReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening final index: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	return &FinalReader{file: f, scanner: scanner}, nil
}

// Next returns the next entry or io.EOF.
func (r *FinalReader) Next() (index.TermEntry, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec FinalRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return index.TermEntry{}, fmt.Errorf("final index line %d: %w", r.line, err)
		}
		if rec.DocumentCount != len(rec.Documents) {
			return index.TermEntry{}, fmt.Errorf("final index line %d: document_count %d does not match %d documents",
				r.line, rec.DocumentCount, len(rec.Documents))
		}
		return index.TermEntry{Term: rec.Term, Documents: rec.Documents}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return index.TermEntry{}, fmt.Errorf("reading final index: %w", err)
	}
	return index.TermEntry{}, io.EOF
}

func (r *FinalReader) Close() error {
	return r.file.Close()
}

// ReadFinal loads a whole final index into memory.
func ReadFinal(path string) ([]index.TermEntry, error) {
	r, err := OpenFinalReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	entries := make([]index.TermEntry, 0)
	for {
		entry, err := r.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}
