package candidates

import (
	"path/filepath"
	"strings"

	"github.com/calvinalkan/buo/pkg/fs"
)

// Validator reports whether path is an acceptable candidate.
type Validator func(path string) bool

// HasExtension accepts paths whose extension (without the dot, compared
// case-insensitively) is one of exts.
func HasExtension(exts ...string) Validator {
	want := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		want[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	return func(path string) bool {
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if ext == "" {
			return false
		}

		_, ok := want[strings.ToLower(ext)]

		return ok
	}
}

// IsRegularFile accepts paths that exist and, after following symlinks, are
// regular files.
func IsRegularFile(fsys fs.FS) Validator {
	return func(path string) bool {
		info, err := fsys.Stat(path)

		return err == nil && info.Mode().IsRegular()
	}
}

// All accepts a path only if every validator accepts it. Validators run in
// order and stop at the first rejection.
func All(validators ...Validator) Validator {
	return func(path string) bool {
		for _, v := range validators {
			if !v(path) {
				return false
			}
		}

		return true
	}
}
