package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

const maxLineSize = 4 * 1024 * 1024

// Layout describes where the identifier and text live in each row.
type Layout struct {
	Delimiter string
	HasHeader bool
	IDField   int
	TextField int
	MinFields int
}

func (l Layout) minFields() int {
	n := max(l.IDField, l.TextField) + 1
	return max(n, l.MinFields)
}

// Reader streams Documents from a delimited file, one row per document.
// Rows that fail validation are skipped and counted.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	layout  Layout
	line    int
	skipped int
	header  bool
	logger  *slog.Logger
}

// NewReader wraps r. The header row, if configured, is consumed on the
// first call to Next.
func NewReader(r io.Reader, layout Layout) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	if layout.Delimiter == "" {
		layout.Delimiter = "\t"
	}
	return &Reader{
		scanner: scanner,
		layout:  layout,
		header:  layout.HasHeader,
		logger:  slog.Default().With("component", "corpus-reader"),
	}
}

// Open opens the corpus file at path.
func Open(path string, layout Layout) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening corpus %s: %v", apperrors.ErrSourceRead, path, err)
	}
	r := NewReader(f, layout)
	r.closer = f
	return r, nil
}

// Next returns the next valid document, io.EOF at the end of the corpus, or
// an error wrapping ErrSourceRead if the underlying file cannot be read.
func (r *Reader) Next() (Document, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSuffix(r.scanner.Text(), "\r")
		if r.header {
			r.header = false
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, r.layout.Delimiter)
		if err := validateRow(r.line, fields, r.layout); err != nil {
			r.skipped++
			r.logger.Debug("skipping corpus row", "error", err)
			continue
		}
		return Document{
			ID:   strings.TrimSpace(fields[r.layout.IDField]),
			Text: fields[r.layout.TextField],
		}, nil
	}
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Document{}, fmt.Errorf("%w: line %d exceeds %d bytes", apperrors.ErrSourceRead, r.line+1, maxLineSize)
		}
		return Document{}, fmt.Errorf("%w: %v", apperrors.ErrSourceRead, err)
	}
	return Document{}, io.EOF
}

// Skipped returns the number of rows dropped by validation so far.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Close closes the underlying file when the Reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
