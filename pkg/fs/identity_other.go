//go:build !unix

package fs

import "os"

// FileID identifies a file by device and inode.
type FileID struct {
	Dev uint64
	Ino uint64
}

// Identify is unsupported here and always reports false.
func Identify(os.FileInfo) (FileID, bool) {
	return FileID{}, false
}
