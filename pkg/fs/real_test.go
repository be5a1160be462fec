package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/buo/pkg/fs"
)

func Test_RealFS_Stat_Returns_NotExist_When_Path_Does_Not_Exist(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()

	_, err := fsys.Stat(filepath.Join(dir, "does-not-exist.txt"))

	if got, want := err, os.ErrNotExist; !errors.Is(got, want) {
		t.Fatalf("err=%v, want=%v", got, want)
	}
}

func Test_RealFS_ReadDir_Returns_Entries_Sorted_By_Name(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()

	for _, name := range []string{"c.txt", "a.txt", "b"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}

	if got, want := len(names), 3; got != want {
		t.Fatalf("len=%d, want=%d", got, want)
	}

	if names[0] != "a.txt" || names[1] != "b" || names[2] != "c.txt" {
		t.Fatalf("names=%v, want [a.txt b c.txt]", names)
	}
}

func Test_RealFS_Lstat_Does_Not_Follow_Symlink_When_Stat_Does(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")

	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("setup: %v", err)
	}

	linfo, err := fsys.Lstat(link)
	if err != nil {
		t.Fatalf("Lstat: %v", err)
	}

	if linfo.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("Lstat mode=%v, want symlink", linfo.Mode())
	}

	info, err := fsys.Stat(link)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if !info.IsDir() {
		t.Fatalf("Stat mode=%v, want dir", info.Mode())
	}
}
