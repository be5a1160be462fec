package slotcache

import (
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how the snapshot body is stored.
type Compression uint8

// Snapshot body compression algorithms. The numeric values are part of the
// on-disk format.
const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
	CompressionLZ4  Compression = 2
)

// String returns the config name of the algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses a config name ("none", "zstd", "lz4").
// The empty string selects [CompressionZstd].
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "zstd":
		return CompressionZstd, nil
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q: %w", name, ErrInvalidInput)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}

	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}

	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBodyBytes))
}

// compressBody compresses raw with the requested algorithm. It returns the
// algorithm actually used: LZ4 falls back to none for incompressible input.
func compressBody(raw []byte, c Compression) ([]byte, Compression, error) {
	if len(raw) == 0 {
		return raw, CompressionNone, nil
	}

	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil

	case CompressionZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, 0, fmt.Errorf("zstd encoder: %w", err)
		}

		out := enc.EncodeAll(raw, nil)
		zstdEncoderPool.Put(enc)

		return out, CompressionZstd, nil

	case CompressionLZ4:
		out := make([]byte, lz4.CompressBlockBound(len(raw)))

		n, err := lz4.CompressBlock(raw, out, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("lz4 compress: %w", err)
		}

		if n == 0 || n >= len(raw) {
			return raw, CompressionNone, nil
		}

		return out[:n], CompressionLZ4, nil

	default:
		return nil, 0, fmt.Errorf("unknown compression %d: %w", uint8(c), ErrInvalidInput)
	}
}

// decompressBody reverses compressBody. rawLen is the decompressed length
// recorded in the header.
func decompressBody(body []byte, c Compression, rawLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(body) != rawLen {
			return nil, fmt.Errorf("%w: body length %d, header says %d", ErrCorrupt, len(body), rawLen)
		}

		return body, nil

	case CompressionZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}

		out, err := dec.DecodeAll(body, make([]byte, 0, rawLen))
		zstdDecoderPool.Put(dec)

		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}

		if len(out) != rawLen {
			return nil, fmt.Errorf("%w: decompressed %d bytes, header says %d", ErrCorrupt, len(out), rawLen)
		}

		return out, nil

	case CompressionLZ4:
		out := make([]byte, rawLen)

		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}

		if n != rawLen {
			return nil, fmt.Errorf("%w: decompressed %d bytes, header says %d", ErrCorrupt, n, rawLen)
		}

		return out, nil

	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, uint8(c))
	}
}
