package cli_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/buo/internal/cli"
)

// id3v1 returns a minimal audio file carrying an ID3v1 tag.
func id3v1(title, artist, year string) []byte {
	field := func(s string, n int) []byte {
		b := make([]byte, n)
		copy(b, s)

		return b
	}

	data := make([]byte, 64)
	data = append(data, "TAG"...)
	data = append(data, field(title, 30)...)
	data = append(data, field(artist, 30)...)
	data = append(data, field("", 30)...)
	data = append(data, field(year, 4)...)
	data = append(data, field("", 30)...)

	return append(data, 255)
}

const goSource = "// Package main does things.\npackage main\n\nfunc main() {}\n"

func Test_Inspect_Prints_Audio_Tags_As_Text(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("song.mp3", id3v1("Song", "Band", "1999"))

	stdout := c.MustRun("inspect", "song.mp3")

	want := "type: File\nfile name: song.mp3\ntitle: Song\nauthor: Band\nyear: 1999"
	if got := stdout; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Inspect_Prints_Flattened_JSON_When_Json_Flag_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("song.mp3", id3v1("Song", "Band", "1999"))

	stdout := c.MustRun("inspect", "--json", "song.mp3")

	require.NotContains(t, stdout, "\n", "compact JSON is a single line")

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))

	assert.Equal(t, "File", got["fileType"])
	assert.Equal(t, "song.mp3", got["fileName"])
	assert.Equal(t, "Song", got["title"])
	assert.Equal(t, "1999", got["date"])

	exportedAt, err := time.Parse(time.RFC3339Nano, got["exportedAt"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), exportedAt, time.Minute)
}

func Test_Inspect_Prints_Indented_JSON_When_Pretty_Flag_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("song.mp3", id3v1("Song", "Band", "1999"))

	stdout := c.MustRun("inspect", "--json", "--pretty", "song.mp3")

	cli.AssertContains(t, stdout, "{\n  \"fileType\": \"File\"")
}

func Test_Inspect_Prints_Dir_Summary_When_Path_Is_Directory(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("tree/a.txt", []byte("12345"))
	c.WriteFile("tree/sub/b.txt", []byte("123"))

	stdout := c.MustRun("inspect", "tree")

	want := "type: Dir\npath: " + filepath.Join(c.Dir, "tree") + "\n2 files\ndisk size: <8 B>"
	if got := stdout; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Inspect_Reports_Unsupported_And_Missing_Metadata(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("photo.heic", []byte("x"))
	c.WriteFile("Makefile", []byte("all:\n"))
	c.WriteFile("quiet.wav", make([]byte, 512))

	stdout := c.MustRun("inspect", "photo.heic", "Makefile", "quiet.wav")

	want := "Filetype not supported: heic\nFiletype not supported: unknown\nNo metadata for quiet.wav"
	if got := stdout; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Inspect_Prints_Code_Stats_For_Source_File(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("proj/main.go", []byte(goSource))
	c.WriteFile("proj/README", []byte("hello\n"))

	stdout := c.MustRun("inspect", "proj/main.go")

	cli.AssertContains(t, stdout, "file name: "+filepath.Join(c.Dir, "proj"))
	cli.AssertContains(t, stdout, "Go\n2 loc, 1 comments.")
	cli.AssertContains(t, stdout, "Readme:\nhello")
}

func Test_Inspect_Fails_But_Prints_Other_Paths_When_One_Is_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("song.mp3", id3v1("Song", "Band", "1999"))

	stdout, stderr, code := c.Run("inspect", "gone.mp3", "song.mp3")

	if got, want := code, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stdout, "title: Song")
	cli.AssertContains(t, stderr, "gone.mp3")
	cli.AssertContains(t, stderr, "no such file or directory")
}

func Test_Inspect_Fails_When_No_Paths_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("inspect")

	cli.AssertContains(t, stderr, "no paths given")
}

func Test_Inspect_Writes_Snapshot_And_Reuses_It(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("song.mp3", id3v1("Song", "Band", "1999"))

	first := c.MustRun("inspect", "song.mp3")

	_, err := os.Stat(c.CachePath())
	require.NoError(t, err, "snapshot written")

	_, stderr, code := c.Run("-v", "inspect", "song.mp3")
	require.Equal(t, 0, code, stderr)

	cli.AssertContains(t, stderr, "entries=1")
	cli.AssertNotContains(t, stderr, "cache committed")

	second := c.MustRun("inspect", "song.mp3")
	assert.Equal(t, first, second)

	ls := c.MustRun("cache", "ls")
	cli.AssertContains(t, ls, filepath.Join(c.Dir, "song.mp3"))
}

func Test_Inspect_Leaves_No_Snapshot_When_No_Cache_Flag_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("song.mp3", id3v1("Song", "Band", "1999"))

	stdout := c.MustRun("--no-cache", "inspect", "song.mp3")
	cli.AssertContains(t, stdout, "title: Song")

	_, err := os.Stat(c.CachePath())
	assert.True(t, os.IsNotExist(err), "err=%v", err)
}

func Test_Inspect_Suggests_Clear_When_Snapshot_Corrupt(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("song.mp3", id3v1("Song", "Band", "1999"))

	require.NoError(t, os.MkdirAll(filepath.Dir(c.CachePath()), 0o755))
	require.NoError(t, os.WriteFile(c.CachePath(), []byte("not a snapshot"), 0o644))

	stderr := c.MustFail("inspect", "song.mp3")
	cli.AssertContains(t, stderr, "buo cache clear")

	c.MustRun("cache", "clear")

	stdout := c.MustRun("inspect", "song.mp3")
	assert.True(t, strings.HasPrefix(stdout, "type: File"), stdout)
}
