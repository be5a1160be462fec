package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/calvinalkan/buo/internal/media/ffprobe"
	"github.com/calvinalkan/buo/internal/meta"
)

// Video reads container metadata with ffprobe.
type Video struct {
	// Binary is the ffprobe executable. Empty means "ffprobe" from PATH.
	Binary string
}

// TryGetMeta returns title, duration and creation date, with a stream
// summary in Extra. A container with none of the three yields (nil, nil).
func (v Video) TryGetMeta(ctx context.Context, path string) (*meta.Entry, error) {
	result, err := ffprobe.Inspect(ctx, v.Binary, path)
	if err != nil {
		return nil, fmt.Errorf("video: %w", err)
	}

	return videoEntry(path, result), nil
}

func videoEntry(path string, result ffprobe.Result) *meta.Entry {
	entry := meta.NewEntry(path)
	entry.Title = result.Title()
	entry.Duration = meta.Duration(result.Duration())

	if created, ok := result.CreationTime(); ok {
		entry.Date = meta.ExactDate(created)
	}

	if entry.Title == "" && entry.Duration == 0 && entry.Date == nil {
		return nil
	}

	entry.Extra = streamSummary(result)

	return entry
}

// streamSummary lists stream counts, size and bit rate as "key: value"
// lines, leaving out what ffprobe did not report.
func streamSummary(result ffprobe.Result) string {
	var lines []string

	if n := result.VideoStreamCount(); n > 0 {
		lines = append(lines, fmt.Sprintf("video streams: %d", n))
	}

	if n := result.AudioStreamCount(); n > 0 {
		lines = append(lines, fmt.Sprintf("audio streams: %d", n))
	}

	if size := result.SizeBytes(); size > 0 {
		lines = append(lines, "size: "+humanize.IBytes(uint64(size)))
	}

	if rate := result.BitRate(); rate > 0 {
		lines = append(lines, "bit rate: "+humanize.SI(float64(rate), "bit/s"))
	}

	return strings.Join(lines, "\n")
}
