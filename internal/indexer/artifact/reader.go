package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

const maxRecordSize = 64 * 1024 * 1024

var (
	errMissingTerm      = errors.New("missing term")
	errMissingDocuments = errors.New("missing documents")
	errEmptyDocumentID  = errors.New("empty document id")
)

// rawRecord uses pointers so absent fields can be told apart from empty ones.
type rawRecord struct {
	Term      *string   `json:"term"`
	Documents *[]string `json:"documents"`
}

// Reader streams records from one intermediate artifact, one line at a time.
type Reader struct {
	file    *os.File
	path    string
	scanner *bufio.Scanner
	line    int
}

// OpenReader opens the artifact at path.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &apperrors.ArtifactError{Path: path, Err: err}
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	return &Reader{file: f, path: path, scanner: scanner}, nil
}

// Next returns the next record. It returns io.EOF at the end of the file, a
// *errors.RecordError for a malformed line (the reader stays usable), or a
// *errors.ArtifactError when the file itself can no longer be read.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := decodeRecord(line)
		if err != nil {
			return Record{}, &apperrors.RecordError{Path: r.path, Line: r.line, Err: err}
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, &apperrors.ArtifactError{Path: r.path, Err: fmt.Errorf("line %d: %w", r.line+1, err)}
	}
	return Record{}, io.EOF
}

// Path returns the artifact path.
func (r *Reader) Path() string {
	return r.path
}

// Line returns the line number of the last record returned.
func (r *Reader) Line() int {
	return r.line
}

func (r *Reader) Close() error {
	return r.file.Close()
}

func decodeRecord(line []byte) (Record, error) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}
	if raw.Term == nil || *raw.Term == "" {
		return Record{}, errMissingTerm
	}
	if raw.Documents == nil || len(*raw.Documents) == 0 {
		return Record{}, errMissingDocuments
	}
	for _, id := range *raw.Documents {
		if id == "" {
			return Record{}, errEmptyDocumentID
		}
	}
	return Record{Term: *raw.Term, Documents: *raw.Documents}, nil
}
