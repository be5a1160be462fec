package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Op names an [FS] operation that [Faulty] can fail.
type Op string

// Operations understood by [Faulty].
const (
	OpOpen     Op = "open"
	OpOpenFile Op = "openfile"
	OpReadFile Op = "readfile"
	OpReadDir  Op = "readdir"
	OpMkdirAll Op = "mkdirall"
	OpStat     Op = "stat"
	OpLstat    Op = "lstat"
	OpRemove   Op = "remove"
	OpRename   Op = "rename"
)

// InjectedError marks an error as intentionally injected by [Faulty].
//
// It wraps the underlying error so errors.Is/As continue to work.
type InjectedError struct {
	Op   Op
	Path string
	Err  error
}

// Error returns "<op> <path>: injected: <err>".
func (e *InjectedError) Error() string {
	return string(e.Op) + " " + e.Path + ": injected: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *InjectedError) Unwrap() error {
	return e.Err
}

// IsInjected reports whether err (or any wrapped error) was injected by [Faulty].
func IsInjected(err error) bool {
	var injected *InjectedError

	return errors.As(err, &injected)
}

// ErrInjected is the default error returned by a failing [Faulty] operation.
var ErrInjected = errors.New("fault injected")

type faultKey struct {
	op   Op
	path string
}

// Faulty wraps an [FS] and fails selected operations on selected paths.
//
// Paths are compared after [filepath.Clean]. Operations without a registered
// fault pass through to the wrapped FS. Faulty is safe for concurrent use.
type Faulty struct {
	inner FS

	mu     sync.Mutex
	faults map[faultKey]error
	calls  map[Op]int
}

// NewFaulty wraps inner. Panics if inner is nil.
func NewFaulty(inner FS) *Faulty {
	if inner == nil {
		panic("inner fs is nil")
	}

	return &Faulty{
		inner:  inner,
		faults: make(map[faultKey]error),
		calls:  make(map[Op]int),
	}
}

// AnyPath registers a fault for every path of an operation.
const AnyPath = "*"

// Fail makes op on path (every path for [AnyPath]) return err, or
// [ErrInjected] when err is nil, wrapped in an [InjectedError].
func (f *Faulty) Fail(op Op, path string, err error) {
	if err == nil {
		err = ErrInjected
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.faults[faultKey{op: op, path: filepath.Clean(path)}] = err
}

// Reset removes all registered faults.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	clear(f.faults)
}

// Calls returns how often op was invoked, including failed invocations.
func (f *Faulty) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[op]
}

func (f *Faulty) check(op Op, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++

	err, ok := f.faults[faultKey{op: op, path: filepath.Clean(path)}]
	if !ok {
		err, ok = f.faults[faultKey{op: op, path: AnyPath}]
	}

	if !ok {
		return nil
	}

	return &InjectedError{Op: op, Path: path, Err: &iofs.PathError{Op: string(op), Path: path, Err: err}}
}

func (f *Faulty) Open(path string) (File, error) {
	if err := f.check(OpOpen, path); err != nil {
		return nil, err
	}

	return f.inner.Open(path)
}

func (f *Faulty) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if err := f.check(OpOpenFile, path); err != nil {
		return nil, err
	}

	return f.inner.OpenFile(path, flag, perm)
}

func (f *Faulty) ReadFile(path string) ([]byte, error) {
	if err := f.check(OpReadFile, path); err != nil {
		return nil, err
	}

	return f.inner.ReadFile(path)
}

func (f *Faulty) ReadDir(path string) ([]os.DirEntry, error) {
	if err := f.check(OpReadDir, path); err != nil {
		return nil, err
	}

	return f.inner.ReadDir(path)
}

func (f *Faulty) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check(OpMkdirAll, path); err != nil {
		return err
	}

	return f.inner.MkdirAll(path, perm)
}

func (f *Faulty) Stat(path string) (os.FileInfo, error) {
	if err := f.check(OpStat, path); err != nil {
		return nil, err
	}

	return f.inner.Stat(path)
}

func (f *Faulty) Lstat(path string) (os.FileInfo, error) {
	if err := f.check(OpLstat, path); err != nil {
		return nil, err
	}

	return f.inner.Lstat(path)
}

func (f *Faulty) Remove(path string) error {
	if err := f.check(OpRemove, path); err != nil {
		return err
	}

	return f.inner.Remove(path)
}

// Rename fails if a fault is registered for oldpath.
func (f *Faulty) Rename(oldpath, newpath string) error {
	if err := f.check(OpRename, oldpath); err != nil {
		return err
	}

	return f.inner.Rename(oldpath, newpath)
}

var _ FS = (*Faulty)(nil)
