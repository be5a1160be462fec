package meta

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// dateLayout renders exact dates like "Sat Mar  4 10:00:00 2023".
const dateLayout = "Mon Jan _2 15:04:05 2006"

// String renders the entry as "key: value" lines. Extra is included only
// when DisplayExtra is set; see [Entry.Detailed].
func (e *Entry) String() string {
	var b strings.Builder

	e.writeSummary(&b)

	if e.DisplayExtra && e.Extra != "" {
		b.WriteString(e.Extra)
		b.WriteByte('\n')
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Detailed renders the entry including Extra.
func (e *Entry) Detailed() string {
	var b strings.Builder

	e.writeSummary(&b)

	if e.Extra != "" {
		b.WriteString(e.Extra)
		b.WriteByte('\n')
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (e *Entry) writeSummary(b *strings.Builder) {
	fmt.Fprintf(b, "file name: %s\n", e.FileName)

	if e.Title != "" {
		fmt.Fprintf(b, "title: %s\n", e.Title)
	}

	if e.Author != "" {
		fmt.Fprintf(b, "author: %s\n", e.Author)
	}

	if e.Duration != 0 {
		fmt.Fprintf(b, "duration: %s\n", e.Duration.Std().Round(time.Millisecond))
	}

	if e.Date != nil {
		b.WriteString(e.Date.String())
		b.WriteByte('\n')
	}

	for _, stats := range e.Stats {
		b.WriteString(stats.String())
		b.WriteByte('\n')
	}
}

// String renders "date: <time>" for exact dates and "year: <symbol>" for
// symbolic ones.
func (d *Date) String() string {
	switch d.Kind {
	case DateExact:
		return "date: " + d.Time.Format(dateLayout)
	default:
		return "year: " + d.Symbol
	}
}

// MarshalJSON encodes exact dates as RFC 3339 and symbolic dates verbatim.
func (d *Date) MarshalJSON() ([]byte, error) {
	if d.Kind == DateExact {
		return json.Marshal(d.Time.Format(time.RFC3339))
	}

	return json.Marshal(d.Symbol)
}

// String renders "<name>\n<n> loc, <m> comments." leaving out zero counts.
func (s LangStats) String() string {
	switch {
	case s.Code > 0 && s.Comments > 0:
		return fmt.Sprintf("%s\n%d loc, %d comments.", s.Name, s.Code, s.Comments)
	case s.Code > 0:
		return fmt.Sprintf("%s\n%d loc.", s.Name, s.Code)
	case s.Comments > 0:
		return fmt.Sprintf("%s\n%d comments.", s.Name, s.Comments)
	default:
		return s.Name
	}
}

// MarshalJSON encodes the duration in seconds.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Std().Seconds())
}

// DirMeta summarizes a directory tree.
type DirMeta struct {
	Path     string `json:"path"`
	DiskSize uint64 `json:"diskSize"`
	NumFiles uint64 `json:"numFiles"`
}

// String renders the path, file count and human readable disk size.
func (d DirMeta) String() string {
	return fmt.Sprintf("path: %s\n%d files\ndisk size: <%s>", d.Path, d.NumFiles, humanize.IBytes(d.DiskSize))
}
