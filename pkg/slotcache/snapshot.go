package slotcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/calvinalkan/buo/pkg/fs"
)

// Codec converts cache values to and from their snapshot representation.
type Codec[V any] interface {
	// AppendEncode appends the encoding of v to dst and returns the result.
	AppendEncode(dst []byte, v V) ([]byte, error)

	// Decode decodes a value previously produced by AppendEncode.
	Decode(data []byte) (V, error)
}

// Snapshot format constants.
const (
	snapshotMagic   = "BSC1"
	snapshotVersion = 1

	snapshotHeaderSize = 40
)

// Header field offsets (bytes from file start).
const (
	offMagic       = 0x00 // [4]byte
	offVersion     = 0x04 // uint16
	offCompression = 0x06 // uint8
	offCapacity    = 0x08 // uint32
	offCursor      = 0x0C // uint32
	offCount       = 0x10 // uint32
	offStoredLen   = 0x14 // uint32
	offRawLen      = 0x18 // uint32
	offChecksum    = 0x20 // uint64, xxhash64 of header[0:0x20] + body
)

// Encode serializes c into a snapshot.
//
// Occupied slots are written in slot order together with the allocation
// cursor, so [Decode] restores the exact same slot layout.
func Encode[V any](c *Cache[V], codec Codec[V], compression Compression) ([]byte, error) {
	raw := make([]byte, 0, 64*len(c.lookup))

	var err error

	for idx, s := range c.slots {
		if !s.occupied {
			continue
		}

		raw = binary.AppendUvarint(raw, uint64(idx))
		raw = binary.AppendUvarint(raw, uint64(len(s.key)))
		raw = append(raw, s.key...)

		var value []byte

		value, err = codec.AppendEncode(value, s.value)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", s.key, err)
		}

		raw = binary.AppendUvarint(raw, uint64(len(value)))
		raw = append(raw, value...)
	}

	if len(raw) > maxBodyBytes {
		return nil, fmt.Errorf("snapshot body %d bytes exceeds maximum %d: %w", len(raw), maxBodyBytes, ErrInvalidInput)
	}

	body, used, err := compressBody(raw, compression)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, snapshotHeaderSize, snapshotHeaderSize+len(body))
	copy(buf[offMagic:], snapshotMagic)
	binary.LittleEndian.PutUint16(buf[offVersion:], snapshotVersion)
	buf[offCompression] = byte(used)
	binary.LittleEndian.PutUint32(buf[offCapacity:], uint32(len(c.slots)))
	binary.LittleEndian.PutUint32(buf[offCursor:], uint32(c.cursor))
	binary.LittleEndian.PutUint32(buf[offCount:], uint32(len(c.lookup)))
	binary.LittleEndian.PutUint32(buf[offStoredLen:], uint32(len(body)))
	binary.LittleEndian.PutUint32(buf[offRawLen:], uint32(len(raw)))
	binary.LittleEndian.PutUint64(buf[offChecksum:], snapshotChecksum(buf[:offChecksum], body))

	return append(buf, body...), nil
}

// Decode restores a cache from a snapshot produced by [Encode].
//
// Returns [ErrIncompatible] for an unknown format version and [ErrCorrupt]
// for anything else that does not decode cleanly.
func Decode[V any](data []byte, codec Codec[V]) (*Cache[V], error) {
	if len(data) < snapshotHeaderSize {
		return nil, fmt.Errorf("%w: snapshot too small (%d bytes)", ErrCorrupt, len(data))
	}

	if string(data[offMagic:offMagic+4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: invalid magic", ErrCorrupt)
	}

	if version := binary.LittleEndian.Uint16(data[offVersion:]); version != snapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d, want %d", ErrIncompatible, version, snapshotVersion)
	}

	capacity := int(binary.LittleEndian.Uint32(data[offCapacity:]))
	cursor := int(binary.LittleEndian.Uint32(data[offCursor:]))
	count := int(binary.LittleEndian.Uint32(data[offCount:]))
	storedLen := int(binary.LittleEndian.Uint32(data[offStoredLen:]))
	rawLen := int(binary.LittleEndian.Uint32(data[offRawLen:]))

	if len(data)-snapshotHeaderSize != storedLen {
		return nil, fmt.Errorf("%w: body is %d bytes, header says %d", ErrCorrupt, len(data)-snapshotHeaderSize, storedLen)
	}

	body := data[snapshotHeaderSize:]

	want := binary.LittleEndian.Uint64(data[offChecksum:])
	if got := snapshotChecksum(data[:offChecksum], body); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	if capacity < 1 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d out of range", ErrCorrupt, capacity)
	}

	if cursor > capacity || count > cursor {
		return nil, fmt.Errorf("%w: cursor %d, count %d, capacity %d", ErrCorrupt, cursor, count, capacity)
	}

	if rawLen > maxBodyBytes {
		return nil, fmt.Errorf("%w: body length %d out of range", ErrCorrupt, rawLen)
	}

	raw, err := decompressBody(body, Compression(data[offCompression]), rawLen)
	if err != nil {
		return nil, err
	}

	c, err := New[V](capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	c.cursor = cursor

	if err := decodeSlots(c, raw, codec); err != nil {
		return nil, err
	}

	if len(c.lookup) != count {
		return nil, fmt.Errorf("%w: decoded %d entries, header says %d", ErrCorrupt, len(c.lookup), count)
	}

	// Released slots below the cursor go back on the free list, lowest index
	// on top.
	for idx := cursor - 1; idx >= 0; idx-- {
		if !c.slots[idx].occupied {
			c.free = append(c.free, idx)
		}
	}

	return c, nil
}

func decodeSlots[V any](c *Cache[V], raw []byte, codec Codec[V]) error {
	last := -1
	pos := 0

	readUvarint := func(what string) (int, error) {
		v, n := binary.Uvarint(raw[pos:])
		if n <= 0 {
			return 0, fmt.Errorf("%w: truncated %s at offset %d", ErrCorrupt, what, pos)
		}

		pos += n

		if v > uint64(maxBodyBytes) {
			return 0, fmt.Errorf("%w: %s %d out of range", ErrCorrupt, what, v)
		}

		return int(v), nil
	}

	for pos < len(raw) {
		idx, err := readUvarint("slot index")
		if err != nil {
			return err
		}

		if idx <= last || idx >= c.cursor {
			return fmt.Errorf("%w: slot %d out of order or beyond cursor %d", ErrCorrupt, idx, c.cursor)
		}

		last = idx

		keyLen, err := readUvarint("key length")
		if err != nil {
			return err
		}

		if keyLen > maxKeyBytes || keyLen > len(raw)-pos {
			return fmt.Errorf("%w: key length %d at offset %d", ErrCorrupt, keyLen, pos)
		}

		key := string(raw[pos : pos+keyLen])
		pos += keyLen

		valueLen, err := readUvarint("value length")
		if err != nil {
			return err
		}

		if valueLen > maxValueBytes || valueLen > len(raw)-pos {
			return fmt.Errorf("%w: value length %d at offset %d", ErrCorrupt, valueLen, pos)
		}

		value, err := codec.Decode(raw[pos : pos+valueLen])
		if err != nil {
			return fmt.Errorf("%w: decode %q: %w", ErrCorrupt, key, err)
		}

		pos += valueLen

		if _, dup := c.lookup[key]; dup {
			return fmt.Errorf("%w: duplicate key %q", ErrCorrupt, key)
		}

		c.slots[idx] = slot[V]{key: key, value: value, occupied: true}
		c.lookup[key] = idx
	}

	return nil
}

func snapshotChecksum(header, body []byte) uint64 {
	h := xxhash.New()
	_, _ = h.Write(header)
	_, _ = h.Write(body)

	return h.Sum64()
}

// CommitOptions configure [Commit].
type CommitOptions struct {
	// Compression of the snapshot body. Default: [CompressionNone].
	Compression Compression

	// Perm of the snapshot file. Default: 0o644.
	Perm os.FileMode
}

// Commit writes a snapshot of c to path atomically.
//
// The parent directory is created if needed. The snapshot is written to a
// temp file in the same directory, synced and renamed over path, so a crash
// leaves either the previous snapshot or the new one.
func Commit[V any](fsys fs.FS, path string, c *Cache[V], codec Codec[V], opts CommitOptions) error {
	data, err := Encode(c, codec, opts.Compression)
	if err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	perm := opts.Perm
	if perm == 0 {
		perm = 0o644
	}

	writer := fs.NewAtomicWriter(fsys)

	err = writer.Write(path, bytes.NewReader(data), fs.AtomicWriteOptions{SyncDir: true, Perm: perm})
	if err != nil && !errors.Is(err, fs.ErrAtomicWriteDirSync) {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	return nil
}

// LoadOptions configure [Load].
type LoadOptions struct {
	// CreateIfAbsent makes Load return (and commit) a fresh cache when no
	// snapshot exists at path. Without it, a missing snapshot is an error
	// satisfying errors.Is(err, os.ErrNotExist).
	//
	// Only a missing file counts as absent. Unreadable or undecodable
	// snapshots are always returned as errors.
	CreateIfAbsent bool

	// Compression used when a fresh snapshot is committed.
	Compression Compression
}

// Load reads the snapshot at path.
//
// capacity is the slot capacity the caller expects. A snapshot with a
// different capacity fails with [ErrIncompatible].
func Load[V any](fsys fs.FS, path string, capacity int, codec Codec[V], opts LoadOptions) (*Cache[V], error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && opts.CreateIfAbsent {
			return initSnapshot(fsys, path, capacity, codec, opts.Compression)
		}

		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	c, err := Decode(data, codec)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}

	if c.Cap() != capacity {
		return nil, fmt.Errorf("load snapshot %s: %w: capacity %d, want %d", path, ErrIncompatible, c.Cap(), capacity)
	}

	return c, nil
}

func initSnapshot[V any](fsys fs.FS, path string, capacity int, codec Codec[V], compression Compression) (*Cache[V], error) {
	c, err := New[V](capacity)
	if err != nil {
		return nil, err
	}

	if err := Commit(fsys, path, c, codec, CommitOptions{Compression: compression}); err != nil {
		return nil, err
	}

	return c, nil
}
