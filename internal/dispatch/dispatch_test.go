package dispatch_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/buo/internal/dispatch"
	"github.com/calvinalkan/buo/internal/meta"
)

func named(name string) dispatch.Capability {
	return dispatch.CapabilityFunc(func(_ context.Context, path string) (*meta.Entry, error) {
		e := meta.NewEntry(path)
		e.Title = name

		return e, nil
	})
}

func Test_ParseExt_Is_Case_Insensitive_And_Accepts_Dot(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"mp3", "MP3", ".Mp3"} {
		ext, ok := dispatch.ParseExt(in)
		require.True(t, ok, in)
		assert.Equal(t, dispatch.ExtMp3, ext, in)
	}

	ext, ok := dispatch.ParseExt("raw")
	require.True(t, ok)
	assert.Equal(t, dispatch.ExtRaw, ext)

	_, ok = dispatch.ParseExt("exe")
	assert.False(t, ok)

	_, ok = dispatch.ParseExt("")
	assert.False(t, ok)
}

func Test_FileExt_Category_Groups_Every_Extension(t *testing.T) {
	t.Parallel()

	want := map[dispatch.FileExt]dispatch.Category{
		dispatch.ExtFlac: dispatch.CategoryAudio,
		dispatch.ExtWav:  dispatch.CategoryAudio,
		dispatch.ExtM4v:  dispatch.CategoryVideo,
		dispatch.ExtWebm: dispatch.CategoryVideo,
		dispatch.ExtMd:   dispatch.CategoryText,
		dispatch.ExtJpg:  dispatch.CategoryImage,
		dispatch.ExtGo:   dispatch.CategoryDev,
		dispatch.ExtXML:  dispatch.CategoryDev,
	}

	for ext, category := range want {
		assert.Equal(t, category, ext.Category(), ext.String())
	}

	for _, ext := range dispatch.Extensions() {
		assert.NotEqual(t, dispatch.CategoryNone, ext.Category(), ext.String())
	}

	assert.Equal(t, dispatch.CategoryNone, dispatch.ExtInvalid.Category())
}

func Test_Registry_Dispatch_Returns_Capability_For_Registered_Category(t *testing.T) {
	t.Parallel()

	r := dispatch.NewRegistry(map[dispatch.Category]dispatch.Capability{
		dispatch.CategoryAudio: named("audio"),
		dispatch.CategoryDev:   named("dev"),
	})

	capability, ok := r.Dispatch("/music/song.FLAC")
	require.True(t, ok)

	entry, err := capability.TryGetMeta(context.Background(), "/music/song.FLAC")
	require.NoError(t, err)
	assert.Equal(t, "audio", entry.Title)
	assert.Equal(t, "song.FLAC", entry.FileName)

	assert.True(t, r.Supports("main.go"))
}

func Test_Registry_Dispatch_Returns_False_When_Unsupported(t *testing.T) {
	t.Parallel()

	r := dispatch.NewRegistry(map[dispatch.Category]dispatch.Capability{
		dispatch.CategoryAudio: named("audio"),
		dispatch.CategoryVideo: nil,
	})

	for _, path := range []string{"/tmp/README", "/tmp/a.exe", "/tmp/movie.mkv", "/tmp/pic.png", "/tmp/.mp3/dir"} {
		_, ok := r.Dispatch(path)
		assert.False(t, ok, path)
	}

	assert.Equal(t, []dispatch.Category{dispatch.CategoryAudio}, r.Categories())
}

func Test_Registry_Is_Unaffected_When_Source_Map_Changes(t *testing.T) {
	t.Parallel()

	caps := map[dispatch.Category]dispatch.Capability{dispatch.CategoryAudio: named("audio")}
	r := dispatch.NewRegistry(caps)

	delete(caps, dispatch.CategoryAudio)
	caps[dispatch.CategoryDev] = named("dev")

	assert.True(t, r.Supports("a.mp3"))
	assert.False(t, r.Supports("a.go"))
	assert.Equal(t, []string{"flac", "mp3", "m4a", "ogg", "wav"}, r.Extensions())
}

func Test_FileExt_String_Is_Lowercase_And_Parses_Back(t *testing.T) {
	t.Parallel()

	for _, ext := range dispatch.Extensions() {
		name := ext.String()
		assert.Equal(t, strings.ToLower(name), name)

		parsed, ok := dispatch.ParseExt(name)
		require.True(t, ok, name)
		assert.Equal(t, ext, parsed, name)
	}
}
