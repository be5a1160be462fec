package dispatch

import (
	"path/filepath"
	"strings"
)

// FileExt is a recognized file extension.
type FileExt uint8

// Recognized extensions, grouped by category.
const (
	ExtInvalid FileExt = iota

	// Audio
	ExtFlac
	ExtMp3
	ExtM4a
	ExtOgg
	ExtWav

	// Video
	ExtMp4
	ExtM4v
	ExtFlv
	ExtMkv
	ExtMov
	ExtWebm

	// Text
	ExtTxt
	ExtDocx
	ExtMd
	ExtOdf

	// Image
	ExtGif
	ExtPng
	ExtJpeg
	ExtJpg
	ExtRaw

	// Dev
	ExtHTML
	ExtJs
	ExtRs
	ExtGo
	ExtTs
	ExtPy
	ExtCpp
	ExtC
	ExtZig
	ExtSh
	ExtCSS
	ExtDart
	ExtJava
	ExtToml
	ExtYaml
	ExtYml
	ExtJSON
	ExtIni
	ExtXML

	extCount
)

var extNames = [extCount]string{
	ExtInvalid: "Not a supported file type",
	ExtFlac:    "flac",
	ExtMp3:     "mp3",
	ExtM4a:     "m4a",
	ExtOgg:     "ogg",
	ExtWav:     "wav",
	ExtMp4:     "mp4",
	ExtM4v:     "m4v",
	ExtFlv:     "flv",
	ExtMkv:     "mkv",
	ExtMov:     "mov",
	ExtWebm:    "webm",
	ExtTxt:     "txt",
	ExtDocx:    "docx",
	ExtMd:      "md",
	ExtOdf:     "odf",
	ExtGif:     "gif",
	ExtPng:     "png",
	ExtJpeg:    "jpeg",
	ExtJpg:     "jpg",
	ExtRaw:     "raw",
	ExtHTML:    "html",
	ExtJs:      "js",
	ExtRs:      "rs",
	ExtGo:      "go",
	ExtTs:      "ts",
	ExtPy:      "py",
	ExtCpp:     "cpp",
	ExtC:       "c",
	ExtZig:     "zig",
	ExtSh:      "sh",
	ExtCSS:     "css",
	ExtDart:    "dart",
	ExtJava:    "java",
	ExtToml:    "toml",
	ExtYaml:    "yaml",
	ExtYml:     "yml",
	ExtJSON:    "json",
	ExtIni:     "ini",
	ExtXML:     "xml",
}

var extByName = func() map[string]FileExt {
	m := make(map[string]FileExt, extCount)
	for ext := ExtInvalid + 1; ext < extCount; ext++ {
		m[strings.ToLower(extNames[ext])] = ext
	}

	return m
}()

// ParseExt maps an extension, with or without the leading dot, to a
// [FileExt]. Matching is case-insensitive.
func ParseExt(s string) (FileExt, bool) {
	ext, ok := extByName[strings.ToLower(strings.TrimPrefix(s, "."))]

	return ext, ok
}

// ExtOf returns the extension of path.
func ExtOf(path string) (FileExt, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return ExtInvalid, false
	}

	return ParseExt(ext)
}

// String returns the lowercase extension name.
func (e FileExt) String() string {
	if e >= extCount {
		return extNames[ExtInvalid]
	}

	return extNames[e]
}

// Category returns the group e belongs to.
func (e FileExt) Category() Category {
	switch {
	case e >= ExtFlac && e <= ExtWav:
		return CategoryAudio
	case e >= ExtMp4 && e <= ExtWebm:
		return CategoryVideo
	case e >= ExtTxt && e <= ExtOdf:
		return CategoryText
	case e >= ExtGif && e <= ExtRaw:
		return CategoryImage
	case e >= ExtHTML && e <= ExtXML:
		return CategoryDev
	default:
		return CategoryNone
	}
}

// Extensions returns every recognized extension in declaration order.
func Extensions() []FileExt {
	out := make([]FileExt, 0, extCount-1)
	for ext := ExtInvalid + 1; ext < extCount; ext++ {
		out = append(out, ext)
	}

	return out
}

// Category groups extensions handled by the same capability.
type Category uint8

// Categories.
const (
	CategoryNone Category = iota
	CategoryAudio
	CategoryVideo
	CategoryText
	CategoryImage
	CategoryDev
)

func (c Category) String() string {
	switch c {
	case CategoryAudio:
		return "audio"
	case CategoryVideo:
		return "video"
	case CategoryText:
		return "text"
	case CategoryImage:
		return "image"
	case CategoryDev:
		return "dev"
	default:
		return "none"
	}
}
