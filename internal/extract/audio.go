package extract

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/calvinalkan/buo/internal/meta"
	"github.com/calvinalkan/buo/pkg/fs"
)

// Audio reads ID3, MP4, FLAC and Ogg tags.
type Audio struct {
	FS fs.FS
}

// TryGetMeta returns the file's tags. A file without tags yields (nil, nil).
func (a Audio) TryGetMeta(_ context.Context, path string) (*meta.Entry, error) {
	f, err := a.FS.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	defer f.Close()

	tags, err := tag.ReadFrom(f)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("audio %s: %w", path, err)
	}

	entry := meta.NewEntry(path)
	entry.Title = cleanTag(tags.Title())
	entry.Author = firstNonEmpty(tags.Artist(), tags.AlbumArtist(), tags.Composer())

	year := ""
	if tags.Year() > 0 {
		year = strconv.Itoa(tags.Year())
		entry.Date = meta.SymbolicDate(year)
	}

	entry.Extra = extraTags(tags.Raw(), entry.Title, entry.Author, year)

	if entry.IsEmpty() {
		return nil, nil
	}

	return entry, nil
}

// extraTags renders the printable raw tags as sorted "key: value" lines,
// leaving out values already shown as title, author or year.
func extraTags(raw map[string]any, shown ...string) string {
	var lines []string

	for key, value := range raw {
		var text string

		switch v := value.(type) {
		case string:
			text = v
		case int:
			if v == 0 {
				continue
			}

			text = strconv.Itoa(v)
		default:
			continue
		}

		text = cleanTag(text)
		if text == "" || slices.Contains(shown, text) {
			continue
		}

		lines = append(lines, key+": "+text)
	}

	slices.Sort(lines)

	return strings.Join(lines, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = cleanTag(v); v != "" {
			return v
		}
	}

	return ""
}

// cleanTag drops NUL padding and surrounding whitespace.
func cleanTag(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
