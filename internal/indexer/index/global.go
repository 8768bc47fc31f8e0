package index

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

// DefaultShards is the number of lock shards used when none is configured.
const DefaultShards = 64

type globalShard struct {
	mu       sync.Mutex
	postings map[string]DocSet
}

// GlobalIndex is the union of every partial index. Terms are spread over
// lock shards by hash; a term always maps to the same shard, so each Merge is
// atomic for its term while merges of terms in other shards proceed in
// parallel. After Freeze the index is immutable.
type GlobalIndex struct {
	shards []*globalShard
	frozen atomic.Bool
}

// NewGlobalIndex creates an empty index with n lock shards. n <= 0 selects
// DefaultShards; n == 1 degenerates to a single global lock.
func NewGlobalIndex(n int) *GlobalIndex {
	if n <= 0 {
		n = DefaultShards
	}
	g := &GlobalIndex{shards: make([]*globalShard, n)}
	for i := range g.shards {
		g.shards[i] = &globalShard{postings: make(map[string]DocSet)}
	}
	return g
}

func (g *GlobalIndex) shardFor(term string) *globalShard {
	return g.shards[xxhash.Sum64String(term)%uint64(len(g.shards))]
}

// Merge unions docs into the posting of term. The read, union and write all
// happen inside the shard's critical section.
func (g *GlobalIndex) Merge(term string, docs []string) error {
	s := g.shardFor(term)
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.frozen.Load() {
		return fmt.Errorf("merging term %q: %w", term, apperrors.ErrIndexFrozen)
	}
	posting, exists := s.postings[term]
	if !exists {
		posting = make(DocSet, len(docs))
		s.postings[term] = posting
	}
	posting.Add(docs...)
	return nil
}

// Lookup returns the sorted posting of term, or nil.
func (g *GlobalIndex) Lookup(term string) []string {
	s := g.shardFor(term)
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, exists := s.postings[term]
	if !exists {
		return nil
	}
	return docs.Sorted()
}

// Terms returns the number of distinct terms.
func (g *GlobalIndex) Terms() int {
	total := 0
	for _, s := range g.shards {
		s.mu.Lock()
		total += len(s.postings)
		s.mu.Unlock()
	}
	return total
}

// Freeze marks the index immutable and returns the final index: every term
// in ascending order with its sorted, duplicate-free document list. Callers
// must only freeze after every merge worker has joined. The index is
// finalized once; later calls return ErrIndexFrozen.
func (g *GlobalIndex) Freeze() ([]TermEntry, error) {
	if !g.frozen.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("freezing index: %w", apperrors.ErrIndexFrozen)
	}
	entries := make([]TermEntry, 0, g.Terms())
	for _, s := range g.shards {
		s.mu.Lock()
		for term, docs := range s.postings {
			entries = append(entries, TermEntry{Term: term, Documents: docs.Sorted()})
		}
		s.mu.Unlock()
	}
	sortEntries(entries)
	return entries, nil
}

// Frozen reports whether Freeze has been called.
func (g *GlobalIndex) Frozen() bool {
	return g.frozen.Load()
}
