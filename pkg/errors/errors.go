// Package errors defines the error taxonomy shared by the indexing pipeline:
// sentinel errors for each failure class, typed errors that carry the failing
// chunk, artifact or record, and PhaseError which aggregates every failure
// collected behind a join barrier.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSourceRead      = errors.New("corpus read failed")
	ErrChunkIndex      = errors.New("chunk indexing failed")
	ErrArtifactRead    = errors.New("artifact read failed")
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrBuildLocked     = errors.New("build already in progress")
	ErrIndexFrozen     = errors.New("index is frozen")
	ErrPublish         = errors.New("publish failed")
)

// ChunkError reports the failure of a single chunk worker.
type ChunkError struct {
	ChunkID int
	Err     error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.ChunkID, e.Err)
}

func (e *ChunkError) Unwrap() []error {
	return []error{ErrChunkIndex, e.Err}
}

// ArtifactError reports an intermediate artifact that could not be opened or
// streamed to completion.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() []error {
	return []error{ErrArtifactRead, e.Err}
}

// RecordError reports a single unparseable or incomplete artifact record.
type RecordError struct {
	Path string
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *RecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// PhaseError aggregates every failure of a pipeline phase. It is only built
// after all workers of the phase have joined.
type PhaseError struct {
	Phase    string
	Failures []error
}

func (e *PhaseError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%s phase failed (%d failures): %s", e.Phase, len(e.Failures), strings.Join(msgs, "; "))
}

func (e *PhaseError) Unwrap() []error {
	return e.Failures
}

// ChunkIDs returns the sorted IDs of every failed chunk.
func (e *PhaseError) ChunkIDs() []int {
	ids := make([]int, 0, len(e.Failures))
	for _, f := range e.Failures {
		var ce *ChunkError
		if errors.As(f, &ce) {
			ids = append(ids, ce.ChunkID)
		}
	}
	sort.Ints(ids)
	return ids
}

// Artifacts returns the sorted paths of every failed artifact, including
// artifacts that failed because of a malformed record.
func (e *PhaseError) Artifacts() []string {
	seen := make(map[string]struct{})
	paths := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		var path string
		var ae *ArtifactError
		var re *RecordError
		switch {
		case errors.As(f, &ae):
			path = ae.Path
		case errors.As(f, &re):
			path = re.Path
		default:
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// NewPhaseError returns nil when failures is empty.
func NewPhaseError(phase string, failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return &PhaseError{Phase: phase, Failures: failures}
}

// Is, As and Join are re-exported so callers need a single errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func Join(errs ...error) error { return errors.Join(errs...) }

// ExitCode maps an error onto the process exit status used by the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidConfig):
		return 2
	case errors.Is(err, ErrSourceRead):
		return 3
	case errors.Is(err, ErrChunkIndex):
		return 4
	case errors.Is(err, ErrArtifactRead), errors.Is(err, ErrMalformedRecord):
		return 5
	case errors.Is(err, ErrBuildLocked):
		return 6
	default:
		return 1
	}
}
