package encoder

import (
	"testing"

	"github.com/hupe1980/covmatch/internal/covset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_EqualityFollowsCovariates(t *testing.T) {
	rows := [][]int32{
		{1, 1, 1},
		{1, 0, 1},
		{1, 1, 1},
		{0, 0, 0},
		{7, 1, 1},
	}
	e, err := New(rows)
	require.NoError(t, err)
	assert.Equal(t, 5, e.Len())
	assert.Equal(t, 3, e.Covariates())

	full := covset.Of(0, 1, 2)
	assert.True(t, e.Equal(0, 2, full))
	assert.False(t, e.Equal(0, 1, full))
	assert.True(t, e.Equal(0, 1, covset.Of(0, 2)))
	assert.False(t, e.Equal(0, 4, full))
	assert.True(t, e.Equal(0, 4, covset.Of(1, 2)))

	k0, ok := e.Key(0, full)
	require.True(t, ok)
	k2, ok := e.Key(2, full)
	require.True(t, ok)
	assert.Equal(t, k0, k2)

	k1, ok := e.Key(1, covset.Of(0, 2))
	require.True(t, ok)
	k0sub, _ := e.Key(0, covset.Of(0, 2))
	assert.Equal(t, k0sub, k1)
}

func TestEncoder_MissingNeverEqual(t *testing.T) {
	rows := [][]int32{
		{1, -1, 0},
		{1, -1, 0},
		{1, 2, 0},
	}
	e, err := New(rows)
	require.NoError(t, err)

	assert.Equal(t, covset.Of(1), e.Missing(0))

	_, ok := e.Key(0, covset.Of(0, 1))
	assert.False(t, ok)
	assert.False(t, e.Equal(0, 0, covset.Of(1)))
	assert.False(t, e.Equal(0, 1, covset.Of(0, 1, 2)))

	_, ok = e.Key(0, covset.Of(0, 2))
	assert.True(t, ok)
	assert.True(t, e.Equal(0, 2, covset.Of(0, 2)))
}

func TestEncoder_RaggedRows(t *testing.T) {
	_, err := New([][]int32{{1, 2}, {1}})
	assert.ErrorIs(t, err, ErrRaggedRows)
}

func TestEncoder_WideTable(t *testing.T) {
	// 40 covariates with 8 bits each spill over several words.
	rows := make([][]int32, 2)
	for i := range rows {
		rows[i] = make([]int32, 40)
		for j := range rows[i] {
			rows[i][j] = int32(200 + j%3)
		}
	}
	rows[1][39] = 17

	e, err := New(rows)
	require.NoError(t, err)

	all, err := covset.Full(40)
	require.NoError(t, err)
	assert.False(t, e.Equal(0, 1, all))
	assert.True(t, e.Equal(0, 1, all.Without(39)))
}
