// Package corpus reads documents from a delimited tabular corpus file and
// exposes them as a finite, ordered Source.
package corpus

import "io"

// Document is one corpus row reduced to the fields the indexer needs.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Source is a finite producer of documents in corpus order. Next returns
// io.EOF once the source is exhausted.
type Source interface {
	Next() (Document, error)
}

// SliceSource serves documents from memory.
type SliceSource struct {
	docs []Document
	pos  int
}

// NewSliceSource returns a Source over docs.
func NewSliceSource(docs []Document) *SliceSource {
	return &SliceSource{docs: docs}
}

func (s *SliceSource) Next() (Document, error) {
	if s.pos >= len(s.docs) {
		return Document{}, io.EOF
	}
	doc := s.docs[s.pos]
	s.pos++
	return doc, nil
}
