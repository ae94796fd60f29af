package hash

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Size is the length of an appended checksum.
const Size = 4

// ErrChecksum is returned when a trailer does not match its data.
var ErrChecksum = errors.New("checksum mismatch")

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// Append appends the little-endian checksum of b to b.
func Append(b []byte) []byte {
	return binary.LittleEndian.AppendUint32(b, CRC32C(b))
}

// Strip verifies the trailing checksum written by Append and returns the data before it.
func Strip(b []byte) ([]byte, error) {
	if len(b) < Size {
		return nil, fmt.Errorf("%w: %d bytes", ErrChecksum, len(b))
	}
	data, trailer := b[:len(b)-Size], b[len(b)-Size:]
	if got, want := CRC32C(data), binary.LittleEndian.Uint32(trailer); got != want {
		return nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, want)
	}
	return data, nil
}
