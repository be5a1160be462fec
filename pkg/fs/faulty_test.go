package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/buo/pkg/fs"
)

func Test_Faulty_Fails_Only_Registered_Path_When_Fault_Is_Path_Specific(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad")
	good := filepath.Join(dir, "good")

	for _, p := range []string{bad, good} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Fail(fs.OpReadFile, bad+"/", os.ErrPermission)

	_, err := faulty.ReadFile(bad)
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("err=%v, want %v", err, os.ErrPermission)
	}

	if !fs.IsInjected(err) {
		t.Fatalf("err=%v, want injected", err)
	}

	var pathErr *os.PathError
	if !errors.As(err, &pathErr) || pathErr.Path != bad {
		t.Fatalf("err=%v, want *os.PathError for %q", err, bad)
	}

	if _, err := faulty.ReadFile(good); err != nil {
		t.Fatalf("ReadFile(good): %v", err)
	}

	if got, want := faulty.Calls(fs.OpReadFile), 2; got != want {
		t.Fatalf("calls=%d, want=%d", got, want)
	}
}

func Test_Faulty_Passes_Through_When_Reset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Fail(fs.OpReadDir, fs.AnyPath, nil)

	if _, err := faulty.ReadDir(dir); !errors.Is(err, fs.ErrInjected) {
		t.Fatalf("err=%v, want %v", err, fs.ErrInjected)
	}

	faulty.Reset()

	if _, err := faulty.ReadDir(dir); err != nil {
		t.Fatalf("ReadDir after reset: %v", err)
	}
}

func Test_IsInjected_Returns_False_When_Error_Is_Real(t *testing.T) {
	t.Parallel()

	faulty := fs.NewFaulty(fs.NewReal())

	_, err := faulty.Stat(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("want error")
	}

	if fs.IsInjected(err) {
		t.Fatalf("err=%v reported as injected", err)
	}
}
