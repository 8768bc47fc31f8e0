package merge

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/artifact"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

func writeArtifacts(t *testing.T, dir string, chunks [][]index.TermEntry) []string {
	t.Helper()
	w := artifact.NewWriter(dir)
	paths := make([]string, len(chunks))
	for i, entries := range chunks {
		p, err := w.Write(i, entries)
		require.NoError(t, err)
		paths[i] = p
	}
	return paths
}

func twoChunks() [][]index.TermEntry {
	return [][]index.TermEntry{
		{
			{Term: "cat", Documents: []string{"d1"}},
			{Term: "sat", Documents: []string{"d1"}},
		},
		{
			{Term: "cat", Documents: []string{"d2"}},
			{Term: "dog", Documents: []string{"d2"}},
		},
	}
}

func freeze(t *testing.T, g *index.GlobalIndex) []index.TermEntry {
	t.Helper()
	entries, err := g.Freeze()
	require.NoError(t, err)
	return entries
}

func newAggregator(t *testing.T, opts Options) *Aggregator {
	t.Helper()
	a, err := NewAggregator(opts)
	require.NoError(t, err)
	return a
}

func TestRunMergesAllArtifacts(t *testing.T) {
	paths := writeArtifacts(t, t.TempDir(), twoChunks())

	global, report, err := newAggregator(t, Options{Readers: 2}).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, []index.TermEntry{
		{Term: "cat", Documents: []string{"d1", "d2"}},
		{Term: "dog", Documents: []string{"d2"}},
		{Term: "sat", Documents: []string{"d1"}},
	}, freeze(t, global))
	assert.Equal(t, 2, report.Artifacts)
	assert.Equal(t, 4, report.Records)
	assert.Equal(t, 3, report.Terms)
}

func TestRunNoArtifactsYieldsEmptyIndex(t *testing.T) {
	global, report, err := newAggregator(t, Options{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, freeze(t, global))
	assert.Zero(t, report.Artifacts)
}

func TestRunIsIndependentOfArtifactOrderAndReaders(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewPCG(7, 11))
	chunks := make([][]index.TermEntry, 12)
	for c := range chunks {
		seen := map[string]bool{}
		for i := range 40 {
			term := fmt.Sprintf("t%02d", rng.IntN(30))
			if seen[term] {
				continue
			}
			seen[term] = true
			chunks[c] = append(chunks[c], index.TermEntry{
				Term:      term,
				Documents: []string{fmt.Sprintf("c%02d-d%02d", c, i)},
			})
		}
	}
	paths := writeArtifacts(t, dir, chunks)

	reference, _, err := newAggregator(t, Options{Readers: 1, LockShards: 1}).Run(context.Background(), paths)
	require.NoError(t, err)
	want := freeze(t, reference)

	for _, readers := range []int{2, 4, 12} {
		shuffled := append([]string(nil), paths...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		global, _, err := newAggregator(t, Options{Readers: readers, LockShards: 16}).Run(context.Background(), shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, freeze(t, global), "readers=%d", readers)
	}
}

func TestRunAbortsOnMalformedRecord(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, twoChunks())
	bad := filepath.Join(dir, artifact.ChunkFileName(2))
	require.NoError(t, os.WriteFile(bad, []byte(`{"term":"owl","documents":["d3"]}`+"\n"+`{"term":`+"\n"), 0644))
	paths = append(paths, bad)

	_, report, err := newAggregator(t, Options{Readers: 3}).Run(context.Background(), paths)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
	assert.Equal(t, []string{bad}, report.Failed)
	assert.Equal(t, 1, report.Malformed)

	var phaseErr *apperrors.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, "merge", phaseErr.Phase)
	assert.Equal(t, []string{bad}, phaseErr.Artifacts())
}

func TestRunSkipPolicyDropsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, twoChunks())
	bad := filepath.Join(dir, artifact.ChunkFileName(2))
	require.NoError(t, os.WriteFile(bad, []byte("not json\n"+`{"term":"owl","documents":["d3"]}`+"\n"), 0644))
	paths = append(paths, bad)

	global, report, err := newAggregator(t, Options{OnMalformed: PolicySkip}).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Malformed)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, []string{"d3"}, global.Lookup("owl"))
}

func TestRunRejectsEmptyPosting(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, artifact.ChunkFileName(0))
	require.NoError(t, os.WriteFile(bad, []byte(`{"term":"ghost","documents":[]}`+"\n"), 0644))

	_, report, err := newAggregator(t, Options{}).Run(context.Background(), []string{bad})
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
	assert.Equal(t, 1, report.Malformed)

	global, report, err := newAggregator(t, Options{OnMalformed: PolicySkip}).Run(context.Background(), []string{bad})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Malformed)
	assert.Empty(t, freeze(t, global))
}

func TestRunReportsEveryMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, twoChunks())
	missingA := filepath.Join(dir, artifact.ChunkFileName(5))
	missingB := filepath.Join(dir, artifact.ChunkFileName(9))
	paths = append(paths, missingB, missingA)

	_, report, err := newAggregator(t, Options{Readers: 4}).Run(context.Background(), paths)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrArtifactRead)
	assert.Equal(t, []string{missingA, missingB}, report.Failed)

	var phaseErr *apperrors.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, []string{missingA, missingB}, phaseErr.Artifacts())
}

func TestRunSkipPolicySkipsUnreadableArtifacts(t *testing.T) {
	dir := t.TempDir()
	paths := writeArtifacts(t, dir, twoChunks())
	missing := filepath.Join(dir, artifact.ChunkFileName(5))

	global, report, err := newAggregator(t, Options{OnMalformed: PolicySkip}).Run(context.Background(), append(paths, missing))
	require.NoError(t, err)
	assert.Equal(t, []string{missing}, report.Skipped)
	assert.Equal(t, []string{"d1", "d2"}, global.Lookup("cat"))
}

func TestRunCancelledContextIsNotSkipped(t *testing.T) {
	paths := writeArtifacts(t, t.TempDir(), twoChunks())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, report, err := newAggregator(t, Options{OnMalformed: PolicySkip}).Run(ctx, paths)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Skipped)
	assert.Len(t, report.Failed, 2)
}

func TestNewAggregatorRejectsUnknownPolicy(t *testing.T) {
	_, err := NewAggregator(Options{OnMalformed: "ignore"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}
