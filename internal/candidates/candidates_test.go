package candidates_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/buo/internal/candidates"
	"github.com/calvinalkan/buo/pkg/fs"
)

// tree creates files (and their parent directories) below a temp root.
func tree(t *testing.T, files ...string) string {
	t.Helper()

	root := t.TempDir()

	for _, name := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	}

	return root
}

func join(root string, names ...string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = filepath.Join(root, name)
	}

	return out
}

func mp3Validator(fsys fs.FS) candidates.Validator {
	return candidates.All(candidates.HasExtension("mp3"), candidates.IsRegularFile(fsys))
}

func assertPaths(t *testing.T, want, got []string) {
	t.Helper()

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func Test_Repair_Replaces_Invalid_Tail_With_Walked_Paths(t *testing.T) {
	t.Parallel()

	root := tree(t, "a.mp3", "b.mp3", "e.mp3", "f.mp3", "g.mp3")
	fsys := fs.NewReal()

	// c.mp3 and d.mp3 no longer exist.
	set := candidates.NewSetFrom(4, join(root, "a.mp3", "b.mp3", "c.mp3", "d.mp3"))

	require.NoError(t, candidates.Repair(fsys, root, set, mp3Validator(fsys), candidates.WalkOptions{}))

	assertPaths(t, join(root, "a.mp3", "b.mp3", "e.mp3", "f.mp3"), set.Paths())
}

func Test_Repair_Moves_Valid_Paths_First_Keeping_Their_Order(t *testing.T) {
	t.Parallel()

	root := tree(t, "a.mp3", "b.mp3", "z.mp3")
	fsys := fs.NewReal()

	set := candidates.NewSetFrom(4, join(root, "gone-1.mp3", "b.mp3", "gone-2.mp3", "a.mp3"))

	require.NoError(t, candidates.Repair(fsys, root, set, mp3Validator(fsys), candidates.WalkOptions{}))

	assertPaths(t, join(root, "b.mp3", "a.mp3", "z.mp3"), set.Paths())
}

func Test_Repair_Is_Idempotent_When_All_Paths_Valid(t *testing.T) {
	t.Parallel()

	root := tree(t, "a.mp3", "b.mp3", "c.mp3")
	fsys := fs.NewReal()

	set := candidates.NewSetFrom(3, join(root, "c.mp3", "a.mp3"))
	valid := mp3Validator(fsys)

	require.NoError(t, candidates.Repair(fsys, root, set, valid, candidates.WalkOptions{}))
	first := set.Paths()

	require.NoError(t, candidates.Repair(fsys, root, set, valid, candidates.WalkOptions{}))

	assertPaths(t, join(root, "c.mp3", "a.mp3"), first)
	assertPaths(t, first, set.Paths())
}

func Test_Repair_Fills_Up_To_Limit_When_Set_Empty(t *testing.T) {
	t.Parallel()

	root := tree(t, "a.mp3", "b.txt", "c.mp3", "d.mp3")
	fsys := fs.NewReal()

	set := candidates.NewSet(2)

	require.NoError(t, candidates.Repair(fsys, root, set, mp3Validator(fsys), candidates.WalkOptions{}))

	assertPaths(t, join(root, "a.mp3", "c.mp3"), set.Paths())
}

func Test_Repair_Shrinks_Set_When_Walk_Finds_Too_Few(t *testing.T) {
	t.Parallel()

	root := tree(t, "a.mp3")
	fsys := fs.NewReal()

	set := candidates.NewSetFrom(3, join(root, "a.mp3", "x.mp3", "y.mp3"))

	require.NoError(t, candidates.Repair(fsys, root, set, mp3Validator(fsys), candidates.WalkOptions{}))

	assertPaths(t, join(root, "a.mp3"), set.Paths())
}

func Test_Repair_Returns_Error_And_Keeps_Set_When_Directory_Unreadable(t *testing.T) {
	t.Parallel()

	root := tree(t, "a/x.mp3", "b.mp3")
	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Fail(fs.OpReadDir, filepath.Join(root, "a"), nil)

	before := join(root, "gone.mp3")
	set := candidates.NewSetFrom(2, before)

	err := candidates.Repair(faulty, root, set, mp3Validator(faulty), candidates.WalkOptions{})
	require.ErrorIs(t, err, fs.ErrInjected)
	assert.Contains(t, err.Error(), filepath.Join(root, "a"))

	assertPaths(t, before, set.Paths())
}

func Test_Repair_Returns_Error_When_Root_Is_Not_A_Directory(t *testing.T) {
	t.Parallel()

	root := tree(t, "file.mp3")
	fsys := fs.NewReal()

	set := candidates.NewSet(2)

	err := candidates.Repair(fsys, filepath.Join(root, "file.mp3"), set, mp3Validator(fsys), candidates.WalkOptions{})
	require.Error(t, err)
	assert.Equal(t, 0, set.Len())
}

func Test_Collect_Visits_Directories_In_Name_Order_Depth_First(t *testing.T) {
	t.Parallel()

	root := tree(t, "a.mp3", "b/c.mp3", "b/d/e.mp3", "f.mp3")
	fsys := fs.NewReal()

	got, err := candidates.Collect(fsys, root, 10, mp3Validator(fsys), candidates.WalkOptions{})
	require.NoError(t, err)

	assertPaths(t, join(root, "a.mp3", "b/c.mp3", "b/d/e.mp3", "f.mp3"), got)
}

func Test_Collect_Stops_Below_MaxDepth(t *testing.T) {
	t.Parallel()

	root := tree(t, "a.mp3", "b/c.mp3", "b/d/e.mp3")
	fsys := fs.NewReal()

	got, err := candidates.Collect(fsys, root, 10, mp3Validator(fsys), candidates.WalkOptions{MaxDepth: 1})
	require.NoError(t, err)

	assertPaths(t, join(root, "a.mp3", "b/c.mp3"), got)
}

func Test_Collect_Terminates_When_Symlink_Forms_Cycle(t *testing.T) {
	t.Parallel()

	root := tree(t, "a.mp3", "sub/b.mp3")
	require.NoError(t, os.Symlink(root, filepath.Join(root, "sub", "loop")))

	fsys := fs.NewReal()

	got, err := candidates.Collect(fsys, root, 100, mp3Validator(fsys), candidates.WalkOptions{})
	require.NoError(t, err)

	assertPaths(t, join(root, "a.mp3", "sub/b.mp3"), got)
}

func Test_Collect_Follows_Symlinked_Directory_When_Not_A_Cycle(t *testing.T) {
	t.Parallel()

	outside := tree(t, "x.mp3")
	root := tree(t, "a.mp3")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))

	fsys := fs.NewReal()

	got, err := candidates.Collect(fsys, root, 10, mp3Validator(fsys), candidates.WalkOptions{})
	require.NoError(t, err)

	assertPaths(t, join(root, "a.mp3", "linked/x.mp3"), got)
}

func Test_LoadSet_Returns_Empty_Set_When_File_Missing(t *testing.T) {
	t.Parallel()

	set, err := candidates.LoadSet(fs.NewReal(), filepath.Join(t.TempDir(), "none.json"), 5)
	require.NoError(t, err)

	assert.Equal(t, 0, set.Len())
	assert.Equal(t, 5, set.Limit())
}

func Test_SaveSet_Then_LoadSet_Truncates_When_Limit_Smaller(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "candidates.json")

	require.NoError(t, candidates.SaveSet(path, candidates.NewSetFrom(3, []string{"/a", "/b", "/c"})))

	same, err := candidates.LoadSet(fs.NewReal(), path, 3)
	require.NoError(t, err)
	assertPaths(t, []string{"/a", "/b", "/c"}, same.Paths())

	smaller, err := candidates.LoadSet(fs.NewReal(), path, 2)
	require.NoError(t, err)
	assertPaths(t, []string{"/a", "/b"}, smaller.Paths())
}

func Test_LoadSet_Returns_Error_When_File_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "candidates.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := candidates.LoadSet(fs.NewReal(), path, 2)
	require.Error(t, err)
}

func Test_HasExtension_Matches_Case_Insensitively(t *testing.T) {
	t.Parallel()

	valid := candidates.HasExtension(".MP3", "flac")

	assert.True(t, valid("/a/song.mp3"))
	assert.True(t, valid("/a/song.FLAC"))
	assert.False(t, valid("/a/song.ogg"))
	assert.False(t, valid("/a/mp3"))
}

// aliasFS reports the identity of target for Stat calls on alias.
type aliasFS struct {
	fs.FS

	alias  string
	target string
}

func (a aliasFS) Stat(path string) (os.FileInfo, error) {
	if path == a.alias {
		return a.FS.Stat(a.target)
	}

	return a.FS.Stat(path)
}

func Test_Collect_Skips_Directory_When_FS_Reports_Visited_Identity(t *testing.T) {
	t.Parallel()

	root := tree(t, "a/x.mp3", "b/y.mp3")
	base := fs.NewReal()
	fsys := aliasFS{FS: base, alias: filepath.Join(root, "b"), target: filepath.Join(root, "a")}

	got, err := candidates.Collect(fsys, root, 10, mp3Validator(base), candidates.WalkOptions{})
	require.NoError(t, err)

	assertPaths(t, join(root, "a/x.mp3"), got)
}
