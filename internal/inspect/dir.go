package inspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calvinalkan/buo/internal/meta"
)

// DirMeta sums the size and count of regular files below dir. Symlinks are
// not followed. Unreadable entries are logged and skipped; only an
// unreadable dir itself is an error.
func (in *Inspector) DirMeta(ctx context.Context, dir string) (meta.DirMeta, error) {
	root := canonical(dir)
	out := meta.DirMeta{Path: root}

	top, err := in.fsys.ReadDir(root)
	if err != nil {
		return meta.DirMeta{}, fmt.Errorf("dir meta: %w", err)
	}

	failed := 0
	stack := []string{}

	visit := func(parent string, entries []os.DirEntry) {
		for _, entry := range entries {
			path := filepath.Join(parent, entry.Name())

			info, err := in.fsys.Lstat(path)
			if err != nil {
				failed++

				in.log.Debug("dir meta: stat failed", "path", path, "error", err)

				continue
			}

			switch {
			case info.IsDir():
				stack = append(stack, path)
			case info.Mode().IsRegular():
				out.NumFiles++
				out.DiskSize += uint64(info.Size())
			}
		}
	}

	visit(root, top)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return meta.DirMeta{}, err
		}

		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := in.fsys.ReadDir(next)
		if err != nil {
			failed++

			in.log.Debug("dir meta: read failed", "path", next, "error", err)

			continue
		}

		visit(next, children)
	}

	if failed > 0 {
		in.log.Warn("dir meta: skipped unreadable entries", "path", root, "count", failed)
	}

	return out, nil
}
