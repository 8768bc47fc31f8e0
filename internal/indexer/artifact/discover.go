package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Discover lists the chunk artifacts present in dir, ordered by chunk ID.
// Gaps in the ID sequence are allowed; a missing directory yields no
// artifacts.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading intermediate directory: %w", err)
	}
	type found struct {
		id   int
		path string
	}
	artifacts := make([]found, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := ParseChunkID(entry.Name())
		if !ok {
			continue
		}
		artifacts = append(artifacts, found{id: id, path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].id < artifacts[j].id
	})
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = a.path
	}
	return paths, nil
}

// ParseChunkID extracts the chunk ID from an artifact file name.
func ParseChunkID(name string) (int, bool) {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, chunkPrefix) || !strings.HasSuffix(name, chunkSuffix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, chunkPrefix), chunkSuffix))
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// Clean removes chunk artifacts and leftover temporary files from dir and
// returns how many files were removed.
func Clean(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading intermediate directory: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		_, isChunk := ParseChunkID(name)
		isTmp := strings.HasPrefix(name, chunkPrefix) && strings.HasSuffix(name, tmpSuffix)
		if !isChunk && !isTmp {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
