package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the payload compression.
type Compression uint8

const (
	// CompressionNone stores the payload raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", c)
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("export: unknown compression %q", s)
	}
}

var (
	zstdEncoderPool = sync.Pool{
		New: func() any {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			if err != nil {
				panic(fmt.Sprintf("export: zstd encoder: %v", err))
			}
			return enc
		},
	}
	zstdDecoderPool = sync.Pool{
		New: func() any {
			dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				panic(fmt.Sprintf("export: zstd decoder: %v", err))
			}
			return dec
		},
	}
)

const blockHeaderSize = 8

// maxPayload bounds the declared uncompressed size accepted by decompressBlock.
const maxPayload = 1 << 30

var errBlock = errors.New("export: malformed payload block")

// compressBlock returns [uncompressed u32][compressed u32][data]. Data is stored raw when
// compression does not shrink it below 90%.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	if uint64(len(data)) > maxPayload {
		return nil, fmt.Errorf("export: payload of %d bytes exceeds %d", len(data), maxPayload)
	}

	var compressed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := zstdEncoderPool.Get().(*zstd.Encoder)
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("export: unknown compression %d", c)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockHeaderSize:], compressed)
	return out, nil
}

func decompressBlock(block []byte, c Compression) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", errBlock, len(block))
	}
	uncompressed := binary.LittleEndian.Uint32(block[0:])
	compressed := binary.LittleEndian.Uint32(block[4:])
	body := block[blockHeaderSize:]

	if uncompressed > maxPayload {
		return nil, fmt.Errorf("%w: declared size %d", errBlock, uncompressed)
	}

	if compressed == 0 {
		if uint32(len(body)) != uncompressed {
			return nil, fmt.Errorf("%w: raw size %d, want %d", errBlock, len(body), uncompressed)
		}
		return body, nil
	}
	if uint32(len(body)) != compressed {
		return nil, fmt.Errorf("%w: compressed size %d, want %d", errBlock, len(body), compressed)
	}

	out := make([]byte, uncompressed)
	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBlock, err)
		}
		if uint32(n) != uncompressed {
			return nil, fmt.Errorf("%w: decompressed size mismatch", errBlock)
		}
		return out, nil
	case CompressionZSTD:
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBlock, err)
		}
		if uint32(len(decoded)) != uncompressed {
			return nil, fmt.Errorf("%w: decompressed size mismatch", errBlock)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("%w: compressed payload with compression %s", errBlock, c)
	}
}
