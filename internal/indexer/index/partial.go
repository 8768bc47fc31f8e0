package index

import "iter"

// PartialIndex is the inverted index of a single chunk. It is owned by the
// worker that builds it and is never shared, so it carries no lock.
type PartialIndex struct {
	postings map[string]DocSet
	docCount int
}

func NewPartialIndex() *PartialIndex {
	return &PartialIndex{
		postings: make(map[string]DocSet),
	}
}

// Add records that docID contains term. Repeated calls for the same pair
// collapse to one membership.
func (p *PartialIndex) Add(term string, docID string) {
	docs, exists := p.postings[term]
	if !exists {
		docs = make(DocSet)
		p.postings[term] = docs
	}
	docs[docID] = struct{}{}
}

// AddDocument adds every term of one document and counts the document.
func (p *PartialIndex) AddDocument(docID string, terms iter.Seq[string]) {
	for term := range terms {
		p.Add(term, docID)
	}
	p.docCount++
}

// Lookup returns the sorted posting of term, or nil.
func (p *PartialIndex) Lookup(term string) []string {
	docs, exists := p.postings[term]
	if !exists {
		return nil
	}
	return docs.Sorted()
}

// Entries returns every term sorted ascending with its sorted posting.
func (p *PartialIndex) Entries() []TermEntry {
	return snapshot(p.postings)
}

func (p *PartialIndex) Terms() int {
	return len(p.postings)
}

func (p *PartialIndex) DocCount() int {
	return p.docCount
}
