//go:build unix

package fs

import (
	"os"
	"syscall"
)

// FileID identifies a file by device and inode.
type FileID struct {
	Dev uint64
	Ino uint64
}

// Identify returns the identity of the file info describes. It reports false
// when info does not come from a stat(2) call, as with fake file infos.
func Identify(info os.FileInfo) (FileID, bool) {
	if info == nil {
		return FileID{}, false
	}

	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return FileID{}, false
	}

	return FileID{Dev: uint64(st.Dev), Ino: st.Ino}, true //nolint:unconvert // Dev is uint32 on some platforms
}
