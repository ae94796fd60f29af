package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/hupe1980/covmatch"
	"github.com/hupe1980/covmatch/codec"
	"github.com/hupe1980/covmatch/internal/hash"
)

const (
	magic   = "CVMR"
	version = 1
)

var (
	// ErrInvalidFormat is returned for data that is not an export object.
	ErrInvalidFormat = errors.New("export: invalid format")
	// ErrUnsupportedVersion is returned for objects written by a newer format version.
	ErrUnsupportedVersion = errors.New("export: unsupported version")
	// ErrUnknownCodec is returned when the object names a codec that is not built in.
	ErrUnknownCodec = errors.New("export: unknown codec")
	// ErrChecksum is returned when the object trailer does not match its content.
	ErrChecksum = hash.ErrChecksum
)

// Encode serializes res into the export format.
func Encode(res *covmatch.Result, c codec.Codec, compression Compression) ([]byte, error) {
	if res == nil {
		return nil, errors.New("export: nil result")
	}
	if c == nil {
		c = codec.Default
	}
	name := c.Name()
	if len(name) == 0 || len(name) > 255 {
		return nil, fmt.Errorf("export: codec name %q", name)
	}

	payload, err := c.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("export: encode result: %w", err)
	}
	block, err := compressBlock(payload, compression)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(magic) + 3 + len(name) + len(block) + hash.Size)
	buf.WriteString(magic)
	buf.WriteByte(version)
	buf.WriteByte(byte(compression))
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.Write(block)
	return hash.Append(buf.Bytes()), nil
}

// Decode parses an export object. The codec is selected by the name stored in the header.
// Result.Err is restored from the recorded error message.
func Decode(data []byte) (*covmatch.Result, error) {
	if len(data) < len(magic)+3 || string(data[:len(magic)]) != magic {
		return nil, ErrInvalidFormat
	}
	data, err := hash.Strip(data)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	p := len(magic)
	if data[p] != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[p])
	}
	compression := Compression(data[p+1])
	nameLen := int(data[p+2])
	p += 3
	if len(data) < p+nameLen {
		return nil, ErrInvalidFormat
	}
	name := string(data[p : p+nameLen])
	p += nameLen

	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	payload, err := decompressBlock(data[p:], compression)
	if err != nil {
		return nil, err
	}

	var res covmatch.Result
	if err := c.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("export: decode result: %w", err)
	}
	if res.Error != "" {
		res.Err = errors.New(res.Error)
	}
	return &res, nil
}
