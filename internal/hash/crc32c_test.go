package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32C_KnownValue(t *testing.T) {
	// RFC 3720 check value.
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
}

func TestAppendStrip(t *testing.T) {
	b := Append([]byte("CVMR payload"))
	require.Len(t, b, len("CVMR payload")+Size)

	data, err := Strip(b)
	require.NoError(t, err)
	assert.Equal(t, "CVMR payload", string(data))

	b[2] ^= 0x01
	_, err = Strip(b)
	assert.ErrorIs(t, err, ErrChecksum)

	_, err = Strip([]byte{1, 2})
	assert.ErrorIs(t, err, ErrChecksum)
}
