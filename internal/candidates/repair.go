package candidates

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/calvinalkan/buo/pkg/fs"
)

// WalkOptions bound the directory walk used to find new candidates.
type WalkOptions struct {
	// MaxDepth limits recursion below the root. 0 means unlimited.
	MaxDepth int
}

// Repair moves invalid paths to the end of set and replaces them with new
// valid paths found under root.
//
// Valid paths keep their relative order. When every path is valid the set
// is left as is. Otherwise root is walked depth-first in name order,
// directory contents before the directory itself, and accepted paths not
// already in the set fill the freed positions until the set reaches
// min(Len, Limit) entries, or Limit for an empty set. The set shrinks when
// the walk finds fewer.
//
// Any directory read error aborts the walk and is returned; set is unchanged
// in that case.
func Repair(fsys fs.FS, root string, set *Set, valid Validator, opts WalkOptions) error {
	type candidate struct {
		path  string
		valid bool
	}

	items := make([]candidate, len(set.paths))
	for i, path := range set.paths {
		items[i] = candidate{path: path, valid: valid(path)}
	}

	slices.SortStableFunc(items, func(a, b candidate) int {
		return cmp.Compare(rank(a.valid), rank(b.valid))
	})

	firstInvalid := len(items)
	for i, item := range items {
		if !item.valid {
			firstInvalid = i

			break
		}
	}

	if len(items) > 0 && firstInvalid == len(items) {
		return nil
	}

	budget := set.limit
	if len(items) > 0 {
		budget = min(len(items), set.limit) - firstInvalid
	}

	kept := make([]string, firstInvalid, firstInvalid+max(budget, 0))
	for i := range firstInvalid {
		kept[i] = items[i].path
	}

	w := newWalker(fsys, valid, budget, opts)
	for _, path := range kept {
		w.seen[path] = struct{}{}
	}

	if err := w.run(root); err != nil {
		return err
	}

	set.paths = append(kept, w.found...)

	return nil
}

// Collect walks root like [Repair] does for an empty set and returns up to
// limit accepted paths.
func Collect(fsys fs.FS, root string, limit int, valid Validator, opts WalkOptions) ([]string, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrLimitInvalid, limit)
	}

	w := newWalker(fsys, valid, limit, opts)

	if err := w.run(root); err != nil {
		return nil, err
	}

	return w.found, nil
}

func rank(valid bool) int {
	if valid {
		return 0
	}

	return 1
}

type walker struct {
	fsys     fs.FS
	valid    Validator
	budget   int
	maxDepth int

	found   []string
	seen    map[string]struct{}
	visited map[fs.FileID]struct{}
}

func newWalker(fsys fs.FS, valid Validator, budget int, opts WalkOptions) *walker {
	return &walker{
		fsys:     fsys,
		valid:    valid,
		budget:   budget,
		maxDepth: opts.MaxDepth,
		seen:     make(map[string]struct{}),
		visited:  make(map[fs.FileID]struct{}),
	}
}

func (w *walker) run(root string) error {
	if w.budget <= 0 {
		return nil
	}

	return w.walk(filepath.Clean(root), 0)
}

// walk visits dir's entries in name order. It returns nil once the budget is
// spent and skips directories it has already entered through another path,
// as told by [fs.Identify] on the FS's Stat. Without an identity only the
// depth bound stops a cycle.
func (w *walker) walk(dir string, depth int) error {
	if info, err := w.fsys.Stat(dir); err == nil {
		if id, ok := fs.Identify(info); ok {
			if _, dup := w.visited[id]; dup {
				return nil
			}

			w.visited[id] = struct{}{}
		}
	}

	entries, err := w.fsys.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if w.budget == 0 {
			return nil
		}

		path := filepath.Join(dir, entry.Name())

		if w.isDir(path, entry) && (w.maxDepth == 0 || depth < w.maxDepth) {
			if err := w.walk(path, depth+1); err != nil {
				return err
			}

			if w.budget == 0 {
				return nil
			}
		}

		if _, dup := w.seen[path]; dup || !w.valid(path) {
			continue
		}

		w.seen[path] = struct{}{}
		w.found = append(w.found, path)
		w.budget--
	}

	return nil
}

// isDir follows symlinks. A dangling link is not a directory.
func (w *walker) isDir(path string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}

	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}

	info, err := w.fsys.Stat(path)

	return err == nil && info.IsDir()
}
