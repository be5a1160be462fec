package meta

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tells whether an export describes a file or a directory.
type Kind string

// Export kinds.
const (
	KindFile Kind = "File"
	KindDir  Kind = "Dir"
)

// Export wraps an [Entry] or [DirMeta] with its kind and export time.
// The wrapped value's fields are flattened into the JSON object.
type Export struct {
	kind       Kind
	exportedAt time.Time
	file       *Entry
	dir        *DirMeta
}

// ExportFile wraps a file entry.
func ExportFile(e *Entry, now time.Time) Export {
	return Export{kind: KindFile, exportedAt: now.UTC(), file: e}
}

// ExportDir wraps a directory summary.
func ExportDir(d DirMeta, now time.Time) Export {
	return Export{kind: KindDir, exportedAt: now.UTC(), dir: &d}
}

// Kind returns the exported kind.
func (x Export) Kind() Kind {
	return x.kind
}

type fileExport struct {
	FileType   Kind      `json:"fileType"`
	ExportedAt time.Time `json:"exportedAt"`
	*Entry
}

type dirExport struct {
	FileType   Kind      `json:"fileType"`
	ExportedAt time.Time `json:"exportedAt"`
	*DirMeta
}

// MarshalJSON flattens the wrapped value next to fileType and exportedAt.
func (x Export) MarshalJSON() ([]byte, error) {
	switch {
	case x.file != nil:
		return json.Marshal(fileExport{FileType: x.kind, ExportedAt: x.exportedAt, Entry: x.file})
	case x.dir != nil:
		return json.Marshal(dirExport{FileType: x.kind, ExportedAt: x.exportedAt, DirMeta: x.dir})
	default:
		return nil, fmt.Errorf("export %s: nothing to export", x.kind)
	}
}

// JSON returns the compact JSON encoding.
func (x Export) JSON() (string, error) {
	data, err := json.Marshal(x)
	if err != nil {
		return "", fmt.Errorf("export json: %w", err)
	}

	return string(data), nil
}

// PrettyJSON returns the indented JSON encoding.
func (x Export) PrettyJSON() (string, error) {
	data, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export json: %w", err)
	}

	return string(data), nil
}

// String renders "type: <kind>" followed by the wrapped value's text form.
func (x Export) String() string {
	switch {
	case x.file != nil:
		return "type: " + string(x.kind) + "\n" + x.file.String()
	case x.dir != nil:
		return "type: " + string(x.kind) + "\n" + x.dir.String()
	default:
		return "type: " + string(x.kind)
	}
}
