package corpus

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

var tsvLayout = Layout{Delimiter: "\t", HasHeader: true, IDField: 0, TextField: 2, MinFields: 3}

func drain(t *testing.T, src Source) []Document {
	t.Helper()
	var docs []Document
	for {
		doc, err := src.Next()
		if errors.Is(err, io.EOF) {
			return docs
		}
		require.NoError(t, err)
		docs = append(docs, doc)
	}
}

func TestReaderSkipsHeaderAndInvalidRows(t *testing.T) {
	input := strings.Join([]string{
		"id\ttitle\ttext",
		"d1\tFirst\tThe cat sat",
		"",
		"d2\tSecond",
		"\tNo id\torphan text",
		"d3\tThird\tThe cat and the dog\textra",
		"d4\tFourth\t",
	}, "\n")
	r := NewReader(strings.NewReader(input), tsvLayout)

	docs := drain(t, r)
	assert.Equal(t, []Document{
		{ID: "d1", Text: "The cat sat"},
		{ID: "d3", Text: "The cat and the dog"},
		{ID: "d4", Text: ""},
	}, docs)
	assert.Equal(t, 2, r.Skipped())
	require.NoError(t, r.Close())
}

func TestReaderWithoutHeader(t *testing.T) {
	layout := Layout{Delimiter: ",", IDField: 1, TextField: 0}
	r := NewReader(strings.NewReader("hello world,a\r\nbye,b\r\n"), layout)
	assert.Equal(t, []Document{
		{ID: "a", Text: "hello world"},
		{ID: "b", Text: "bye"},
	}, drain(t, r))
}

func TestReaderEmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""), tsvLayout)
	assert.Empty(t, drain(t, r))
	r = NewReader(strings.NewReader("id\ttitle\ttext\n"), tsvLayout)
	assert.Empty(t, drain(t, r))
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReaderWrapsIOErrors(t *testing.T) {
	r := NewReader(failingReader{err: errors.New("device gone")}, tsvLayout)
	_, err := r.Next()
	assert.ErrorIs(t, err, apperrors.ErrSourceRead)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.tsv"), tsvLayout)
	assert.ErrorIs(t, err, apperrors.ErrSourceRead)
}

func TestOpenReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.tsv")
	require.NoError(t, os.WriteFile(path, []byte("id\ttitle\ttext\nd1\tt\tbody\n"), 0644))
	r, err := Open(path, tsvLayout)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []Document{{ID: "d1", Text: "body"}}, drain(t, r))
}

func TestReaderSkipsInvalidUTF8Rows(t *testing.T) {
	input := strings.Join([]string{
		"a\xff\tLatin\tcaf\xe9 noir",
		"a\xfe\tLatin\tblanc",
		"d1\tOk\tcaf\xe8 blanc",
		"d2\tOk\tcafé noir",
	}, "\n")
	r := NewReader(strings.NewReader(input), Layout{Delimiter: "\t", IDField: 0, TextField: 2})

	assert.Equal(t, []Document{{ID: "d2", Text: "café noir"}}, drain(t, r))
	assert.Equal(t, 3, r.Skipped())
}

func TestValidateRow(t *testing.T) {
	err := validateRow(4, []string{"d1"}, tsvLayout)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 4, rowErr.Line)
	assert.Contains(t, rowErr.Fields, "fields")

	err = validateRow(5, []string{"  ", "t", "x"}, tsvLayout)
	require.ErrorAs(t, err, &rowErr)
	assert.Contains(t, rowErr.Fields, "id")

	err = validateRow(7, []string{"a\xff", "t", "x"}, tsvLayout)
	require.ErrorAs(t, err, &rowErr)
	assert.Contains(t, rowErr.Fields, "id")

	err = validateRow(8, []string{"d1", "t", "caf\xe9"}, tsvLayout)
	require.ErrorAs(t, err, &rowErr)
	assert.Contains(t, rowErr.Fields, "text")

	assert.NoError(t, validateRow(6, []string{"d1", "t", "x"}, tsvLayout))
}

func TestSliceSource(t *testing.T) {
	docs := []Document{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, docs, drain(t, NewSliceSource(docs)))
}
