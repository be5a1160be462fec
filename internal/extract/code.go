package extract

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/calvinalkan/buo/internal/meta"
	"github.com/calvinalkan/buo/pkg/fs"
)

const (
	readmeMarker = "README"

	// Files larger than this are not tokenised.
	maxSourceBytes = 4 << 20
)

// Code counts lines per language in the tree below the file's directory and
// attaches that directory's README.
//
// Hidden files and directories are skipped. Symlinked directories are
// followed once; a directory reached again through another path is not
// counted twice.
type Code struct {
	FS fs.FS

	// MaxDepth limits recursion below the file's directory. 0 means
	// unlimited.
	MaxDepth int
}

// TryGetMeta returns line statistics for the file's directory tree. The
// entry's FileName is the directory path.
func (c Code) TryGetMeta(ctx context.Context, path string) (*meta.Entry, error) {
	if _, err := c.FS.Stat(path); err != nil {
		return nil, fmt.Errorf("code: %w", err)
	}

	root := filepath.Dir(path)
	totals := map[string]*meta.LangStats{}
	readme := ""

	err := c.walk(ctx, root, func(dir string, entries []os.DirEntry) error {
		for _, de := range entries {
			if !de.Type().IsRegular() {
				continue
			}

			name := de.Name()
			file := filepath.Join(dir, name)

			if dir == root && readme == "" && strings.Contains(name, readmeMarker) {
				data, err := c.FS.ReadFile(file)
				if err != nil {
					return fmt.Errorf("readme: %w", err)
				}

				readme = string(data)
			}

			lexer := lexers.Match(name)
			if lexer == nil {
				continue
			}

			info, err := de.Info()
			if err != nil || info.Size() > maxSourceBytes {
				continue
			}

			data, err := c.FS.ReadFile(file)
			if err != nil {
				return err
			}

			code, comments, err := countLines(lexer, string(data))
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			lang := lexer.Config().Name

			stats, ok := totals[lang]
			if !ok {
				stats = &meta.LangStats{Name: lang}
				totals[lang] = stats
			}

			stats.Code += code
			stats.Comments += comments
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("code: %w", err)
	}

	entry := &meta.Entry{FileName: root}

	for _, lang := range slices.Sorted(maps.Keys(totals)) {
		entry.Stats = append(entry.Stats, *totals[lang])
	}

	if readme != "" {
		entry.Extra = "Readme:\n" + readme
		entry.DisplayExtra = true
	}

	return entry, nil
}

// Stamp returns the newest modification time among path, the directories
// of its tree and the regular files in them. Adding, removing or editing a
// counted file moves the stamp.
func (c Code) Stamp(ctx context.Context, path string) (time.Time, error) {
	info, err := c.FS.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("code stamp: %w", err)
	}

	newest := info.ModTime()

	err = c.walk(ctx, filepath.Dir(path), func(dir string, entries []os.DirEntry) error {
		if dirInfo, err := c.FS.Stat(dir); err == nil && dirInfo.ModTime().After(newest) {
			newest = dirInfo.ModTime()
		}

		for _, de := range entries {
			if !de.Type().IsRegular() {
				continue
			}

			if fileInfo, err := de.Info(); err == nil && fileInfo.ModTime().After(newest) {
				newest = fileInfo.ModTime()
			}
		}

		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("code stamp: %w", err)
	}

	return newest, nil
}

// walk calls visit with the visible entries of root and of every directory
// below it, parents before children, in name order. Only an unreadable root
// is an error; unreadable subdirectories are skipped.
func (c Code) walk(ctx context.Context, root string, visit func(dir string, entries []os.DirEntry) error) error {
	visited := map[fs.FileID]struct{}{}

	var descend func(dir string, depth int) error

	descend = func(dir string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if info, err := c.FS.Stat(dir); err == nil {
			if id, ok := fs.Identify(info); ok {
				if _, dup := visited[id]; dup {
					return nil
				}

				visited[id] = struct{}{}
			}
		}

		all, err := c.FS.ReadDir(dir)
		if err != nil {
			if depth == 0 {
				return err
			}

			return nil
		}

		entries := make([]os.DirEntry, 0, len(all))
		for _, de := range all {
			if !strings.HasPrefix(de.Name(), ".") {
				entries = append(entries, de)
			}
		}

		if err := visit(dir, entries); err != nil {
			return err
		}

		if c.MaxDepth > 0 && depth >= c.MaxDepth {
			return nil
		}

		for _, de := range entries {
			sub := filepath.Join(dir, de.Name())
			if !c.isDir(sub, de) {
				continue
			}

			if err := descend(sub, depth+1); err != nil {
				return err
			}
		}

		return nil
	}

	return descend(root, 0)
}

// isDir follows symlinks. A dangling link is not a directory.
func (c Code) isDir(path string, de os.DirEntry) bool {
	if de.IsDir() {
		return true
	}

	if de.Type()&os.ModeSymlink == 0 {
		return false
	}

	info, err := c.FS.Stat(path)

	return err == nil && info.IsDir()
}

// countLines classifies each line as code (any non-comment, non-blank
// token), comment (only comment tokens) or blank.
func countLines(lexer chroma.Lexer, source string) (int, int, error) {
	it, err := lexer.Tokenise(nil, source)
	if err != nil {
		return 0, 0, err
	}

	var code, comments int

	var hasCode, hasComment bool

	endLine := func() {
		switch {
		case hasCode:
			code++
		case hasComment:
			comments++
		}

		hasCode, hasComment = false, false
	}

	for _, tok := range it.Tokens() {
		isComment := tok.Type.InCategory(chroma.Comment) && !tok.Type.InSubCategory(chroma.CommentPreproc)

		for i, part := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				endLine()
			}

			if strings.TrimSpace(part) == "" {
				continue
			}

			if isComment {
				hasComment = true
			} else {
				hasCode = true
			}
		}
	}

	endLine()

	return code, comments, nil
}
