// Package candidates maintains a bounded list of file paths that satisfy a
// validity predicate, refilling invalid entries from a directory walk.
package candidates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/buo/pkg/fs"
)

// ErrLimitInvalid indicates a set limit below 1.
var ErrLimitInvalid = errors.New("candidate limit must be >= 1")

// Set is an ordered list of at most Limit paths.
type Set struct {
	limit int
	paths []string
}

// NewSet returns an empty set. Panics if limit < 1.
func NewSet(limit int) *Set {
	if limit < 1 {
		panic(ErrLimitInvalid)
	}

	return &Set{limit: limit}
}

// NewSetFrom returns a set holding the first limit entries of paths.
// Panics if limit < 1.
func NewSetFrom(limit int, paths []string) *Set {
	s := NewSet(limit)
	s.paths = slices.Clone(paths[:min(len(paths), limit)])

	return s
}

// Paths returns a copy of the current paths in order.
func (s *Set) Paths() []string {
	return slices.Clone(s.paths)
}

// Len returns the number of paths.
func (s *Set) Len() int {
	return len(s.paths)
}

// Limit returns the maximum number of paths.
func (s *Set) Limit() int {
	return s.limit
}

type setFile struct {
	Limit int      `json:"limit"`
	Paths []string `json:"paths"`
}

// LoadSet reads a set saved by [SaveSet]. A missing file yields an empty set.
// limit replaces the stored limit; a stored list longer than limit is
// truncated.
func LoadSet(fsys fs.FS, path string, limit int) (*Set, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrLimitInvalid, limit)
	}

	data, err := fsys.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSet(limit), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	var stored setFile

	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse candidates %s: %w", path, err)
	}

	return NewSetFrom(limit, stored.Paths), nil
}

// SaveSet writes s to path atomically, creating the parent directory.
func SaveSet(path string, s *Set) error {
	data, err := json.MarshalIndent(setFile{Limit: s.limit, Paths: s.nonNilPaths()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save candidates: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("save candidates: %w", err)
	}

	return nil
}

func (s *Set) nonNilPaths() []string {
	if s.paths == nil {
		return []string{}
	}

	return s.paths
}
