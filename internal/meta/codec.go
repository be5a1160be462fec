package meta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrEntryEncoding indicates bytes that are not a valid encoded [Entry].
var ErrEntryEncoding = errors.New("invalid entry encoding")

const (
	entryCodecVersion = 1

	flagDisplayExtra = 1 << 0
	flagModTime      = 1 << 1
)

// EntryCodec encodes entries for the slot cache snapshot.
//
// Layout: version byte, flags byte, four length-prefixed strings (file name,
// title, author, extra), varint duration in nanoseconds, date kind byte with
// its payload, uvarint stats count followed by the stats, and, when
// flagModTime is set, the modification time as varint unix nanoseconds.
type EntryCodec struct{}

// AppendEncode appends the encoding of e to dst.
func (EntryCodec) AppendEncode(dst []byte, e *Entry) ([]byte, error) {
	if e == nil {
		return nil, errors.New("encode entry: nil entry")
	}

	var flags byte
	if e.DisplayExtra {
		flags |= flagDisplayExtra
	}

	if !e.ModTime.IsZero() {
		flags |= flagModTime
	}

	dst = append(dst, entryCodecVersion, flags)
	dst = appendString(dst, e.FileName)
	dst = appendString(dst, e.Title)
	dst = appendString(dst, e.Author)
	dst = appendString(dst, e.Extra)
	dst = binary.AppendVarint(dst, int64(e.Duration))

	switch {
	case e.Date == nil:
		dst = append(dst, 0)
	case e.Date.Kind == DateExact:
		dst = append(dst, byte(DateExact))
		dst = binary.AppendVarint(dst, e.Date.Time.UnixNano())
	case e.Date.Kind == DateSymbolic:
		dst = append(dst, byte(DateSymbolic))
		dst = appendString(dst, e.Date.Symbol)
	default:
		return nil, fmt.Errorf("encode entry %q: unknown date kind %d", e.FileName, e.Date.Kind)
	}

	dst = binary.AppendUvarint(dst, uint64(len(e.Stats)))
	for _, s := range e.Stats {
		if s.Code < 0 || s.Comments < 0 {
			return nil, fmt.Errorf("encode entry %q: negative line count for %s", e.FileName, s.Name)
		}

		dst = appendString(dst, s.Name)
		dst = binary.AppendUvarint(dst, uint64(s.Code))
		dst = binary.AppendUvarint(dst, uint64(s.Comments))
	}

	if flags&flagModTime != 0 {
		dst = binary.AppendVarint(dst, e.ModTime.UnixNano())
	}

	return dst, nil
}

// Decode decodes an entry produced by AppendEncode.
func (EntryCodec) Decode(data []byte) (*Entry, error) {
	r := entryReader{data: data}

	if v := r.readByte(); v != entryCodecVersion {
		return nil, fmt.Errorf("%w: version %d", ErrEntryEncoding, v)
	}

	flags := r.readByte()

	e := &Entry{
		FileName:     r.readString(),
		Title:        r.readString(),
		Author:       r.readString(),
		Extra:        r.readString(),
		Duration:     Duration(r.readVarint()),
		DisplayExtra: flags&flagDisplayExtra != 0,
	}

	switch kind := DateKind(r.readByte()); kind {
	case 0:
	case DateExact:
		e.Date = ExactDate(time.Unix(0, r.readVarint()))
	case DateSymbolic:
		e.Date = SymbolicDate(r.readString())
	default:
		r.fail(fmt.Sprintf("date kind %d", kind))
	}

	n := r.readUvarint()
	if n > uint64(len(data)) {
		r.fail(fmt.Sprintf("stats count %d", n))
	}

	for i := uint64(0); i < n && r.err == nil; i++ {
		e.Stats = append(e.Stats, LangStats{
			Name:     r.readString(),
			Code:     int(r.readUvarint()),
			Comments: int(r.readUvarint()),
		})
	}

	if flags&flagModTime != 0 {
		e.ModTime = time.Unix(0, r.readVarint()).UTC()
	}

	if r.err == nil && r.pos != len(data) {
		r.fail(fmt.Sprintf("%d trailing bytes", len(data)-r.pos))
	}

	if r.err != nil {
		return nil, r.err
	}

	return e, nil
}

func appendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))

	return append(dst, s...)
}

// entryReader reads fields sequentially. The first failure sticks and every
// later read returns a zero value.
type entryReader struct {
	data []byte
	pos  int
	err  error
}

func (r *entryReader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s at offset %d", ErrEntryEncoding, what, r.pos)
	}
}

func (r *entryReader) readByte() byte {
	if r.err != nil {
		return 0
	}

	if r.pos >= len(r.data) {
		r.fail("truncated")

		return 0
	}

	b := r.data[r.pos]
	r.pos++

	return b
}

func (r *entryReader) readUvarint() uint64 {
	if r.err != nil {
		return 0
	}

	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		r.fail("bad uvarint")

		return 0
	}

	r.pos += n

	return v
}

func (r *entryReader) readVarint() int64 {
	if r.err != nil {
		return 0
	}

	v, n := binary.Varint(r.data[r.pos:])
	if n <= 0 {
		r.fail("bad varint")

		return 0
	}

	r.pos += n

	return v
}

func (r *entryReader) readString() string {
	n := r.readUvarint()
	if r.err != nil {
		return ""
	}

	if n > uint64(len(r.data)-r.pos) {
		r.fail(fmt.Sprintf("string length %d", n))

		return ""
	}

	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)

	return s
}
