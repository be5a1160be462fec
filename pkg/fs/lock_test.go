//go:build unix

package fs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/buo/pkg/fs"
)

func Test_Locker_TryLock_Returns_ErrWouldBlock_When_Path_Is_Locked(t *testing.T) {
	t.Parallel()

	locker := fs.NewLocker(fs.NewReal())
	path := filepath.Join(t.TempDir(), "cache.bin.lock")

	held, err := locker.TryLock(path)
	require.NoError(t, err)

	_, err = locker.TryLock(path)
	require.ErrorIs(t, err, fs.ErrWouldBlock)

	require.NoError(t, held.Close())
	require.NoError(t, held.Close(), "close is idempotent")

	again, err := locker.TryLock(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func Test_Locker_LockWithTimeout_Returns_ErrWouldBlock_After_Timeout(t *testing.T) {
	t.Parallel()

	locker := fs.NewLocker(fs.NewReal())
	path := filepath.Join(t.TempDir(), "lock")

	held, err := locker.TryLock(path)
	require.NoError(t, err)

	defer held.Close()

	start := time.Now()
	_, err = locker.LockWithTimeout(path, 30*time.Millisecond)

	require.ErrorIs(t, err, fs.ErrWouldBlock)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func Test_Locker_LockWithTimeout_Acquires_When_Released_In_Time(t *testing.T) {
	t.Parallel()

	locker := fs.NewLocker(fs.NewReal())
	path := filepath.Join(t.TempDir(), "lock")

	held, err := locker.TryLock(path)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)

		_ = held.Close()
	}()

	lock, err := locker.LockWithTimeout(path, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Close())
}

func Test_Locker_Creates_Missing_Parent_Directories(t *testing.T) {
	t.Parallel()

	locker := fs.NewLocker(fs.NewReal())
	path := filepath.Join(t.TempDir(), "a", "b", "lock")

	lock, err := locker.TryLock(path)
	require.NoError(t, err)
	require.NoError(t, lock.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func Test_Locker_Returns_Error_When_Lock_File_Cannot_Be_Opened(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lock")

	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Fail(fs.OpOpenFile, path, os.ErrPermission)

	_, err := fs.NewLocker(faulty).TryLock(path)
	require.ErrorIs(t, err, os.ErrPermission)
	assert.True(t, fs.IsInjected(err))
}
