// Package index holds the in-memory inverted index structures of the build:
// the chunk-scoped PartialIndex and the shared GlobalIndex the merge phase
// aggregates into.
package index

import "sort"

// DocSet is the posting of one term: the set of document IDs containing it.
type DocSet map[string]struct{}

// Add inserts ids into the set.
func (s DocSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Sorted returns the IDs in ascending lexical order.
func (s DocSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TermEntry is one term with its sorted, duplicate-free document list.
type TermEntry struct {
	Term      string
	Documents []string
}

// snapshot converts a term map into entries sorted by term.
func snapshot(postings map[string]DocSet) []TermEntry {
	entries := make([]TermEntry, 0, len(postings))
	for term, docs := range postings {
		entries = append(entries, TermEntry{
			Term:      term,
			Documents: docs.Sorted(),
		})
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []TermEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
}
