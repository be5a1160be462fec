// Package meta defines the metadata model produced by extractors: file
// entries, directory summaries, their text rendering and JSON export, and
// the binary codec used to persist entries in the slot cache.
package meta

import (
	"path/filepath"
	"time"
)

// Entry is the metadata extracted for one file.
//
// Zero values mean "absent": an empty Title was not found, a zero Duration
// is unknown.
type Entry struct {
	FileName string      `json:"fileName"`
	Title    string      `json:"title,omitempty"`
	Author   string      `json:"author,omitempty"`
	Duration Duration    `json:"duration,omitempty"`
	Date     *Date       `json:"date,omitempty"`
	Extra    string      `json:"extra,omitempty"`
	Stats    []LangStats `json:"stats,omitempty"`

	// DisplayExtra makes the text rendering include Extra.
	DisplayExtra bool `json:"-"`

	// ModTime is the validity stamp at extraction: the source file's
	// modification time, or a capability's own stamp covering every file
	// the entry was derived from.
	ModTime time.Time `json:"-"`
}

// NewEntry returns an entry carrying only the base name of path.
func NewEntry(path string) *Entry {
	return &Entry{FileName: filepath.Base(path)}
}

// IsEmpty reports whether the entry carries nothing beyond its file name.
func (e *Entry) IsEmpty() bool {
	return e.Title == "" && e.Author == "" && e.Duration == 0 &&
		e.Date == nil && e.Extra == "" && len(e.Stats) == 0
}

// DateKind tells how a [Date] is expressed.
type DateKind uint8

// Date kinds.
const (
	// DateExact is a full timestamp.
	DateExact DateKind = 1

	// DateSymbolic is free text as found in a tag, usually a year.
	DateSymbolic DateKind = 2
)

// Date is either an exact UTC instant or a symbolic value such as "1999".
type Date struct {
	Kind   DateKind
	Time   time.Time
	Symbol string
}

// ExactDate returns an exact date in UTC.
func ExactDate(t time.Time) *Date {
	return &Date{Kind: DateExact, Time: t.UTC()}
}

// SymbolicDate returns a symbolic date.
func SymbolicDate(s string) *Date {
	return &Date{Kind: DateSymbolic, Symbol: s}
}

// LangStats is the line count of one language.
type LangStats struct {
	Name     string `json:"name"`
	Code     int    `json:"loc,omitempty"`
	Comments int    `json:"comments,omitempty"`
}

// Duration is a [time.Duration] that exports as seconds.
type Duration time.Duration

// Std returns the value as a [time.Duration].
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
