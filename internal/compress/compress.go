// Package compress wraps LZ4 and ZSTD block compression for index snapshots.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores the payload as is.
	None Type = 0
	// LZ4 is fast block compression.
	LZ4 Type = 1
	// ZSTD trades speed for a better ratio.
	ZSTD Type = 2
)

// String returns the configuration name of t.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compress(%d)", uint8(t))
	}
}

// Parse resolves a configuration name; the empty string means None.
func Parse(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	}
	return None, fmt.Errorf("compress: unsupported type %q", name)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// headerSize is [uncompressed uint32][compressed uint32]; a compressed size
// of 0 marks a block stored raw.
const headerSize = 8

// maxRatio is the compressed/raw ratio above which the raw bytes are kept.
const maxRatio = 0.9

// Encode frames data with a size header and compresses it with t when that
// saves space.
func Encode(data []byte, t Type) ([]byte, error) {
	var compressed []byte
	switch t {
	case None:
	case LZ4:
		if len(data) == 0 {
			break
		}
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		compressed = buf[:n]
	case ZSTD:
		if len(data) == 0 {
			break
		}
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unsupported type %v", t)
	}
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*maxRatio {
		compressed = nil
	}
	out := make([]byte, headerSize, headerSize+max(len(compressed), len(data)))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	if compressed == nil {
		return append(out, data...), nil
	}
	return append(out, compressed...), nil
}

// Decode reverses Encode for the same t.
func Decode(data []byte, t Type) ([]byte, error) {
	if len(data) < headerSize {
		return nil, errors.New("compress: block too small for header")
	}
	rawSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])
	body := data[headerSize:]
	if compressedSize == 0 {
		if uint32(len(body)) < rawSize {
			return nil, errors.New("compress: block data too small")
		}
		return body[:rawSize], nil
	}
	if uint32(len(body)) < compressedSize {
		return nil, errors.New("compress: compressed block data too small")
	}
	body = body[:compressedSize]
	result := make([]byte, rawSize)
	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(body, result)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		if uint32(n) != rawSize {
			return nil, errors.New("compress: decompressed size mismatch")
		}
		return result, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(body, result[:0])
		if err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		if uint32(len(decoded)) != rawSize {
			return nil, errors.New("compress: decompressed size mismatch")
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("compress: unsupported type %v", t)
	}
}
