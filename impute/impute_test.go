package impute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeImputer(t *testing.T) {
	rows := [][]int32{{1, 0}, {1, -1}, {2, 3}, {-1, 3}}

	out, err := ModeImputer{}.Impute(context.Background(), rows, 2)
	require.NoError(t, err)
	require.NoError(t, Check(rows, out, 2))

	assert.Equal(t, [][]int32{{1, 0}, {1, 3}, {2, 3}, {1, 3}}, out[0])
	// Input untouched.
	assert.Equal(t, int32(-1), rows[1][1])
}

func TestHotDeckImputer_Reproducible(t *testing.T) {
	rows := [][]int32{{0, 1}, {-1, 2}, {1, -1}, {-1, -1}}

	a, err := HotDeckImputer{Seed: 7}.Impute(context.Background(), rows, 3)
	require.NoError(t, err)
	b, err := HotDeckImputer{Seed: 7}.Impute(context.Background(), rows, 3)
	require.NoError(t, err)

	require.NoError(t, Check(rows, a, 3))
	assert.Equal(t, a, b)
	for _, cp := range a {
		assert.Contains(t, []int32{0, 1}, cp[1][0])
		assert.Contains(t, []int32{1, 2}, cp[2][1])
	}
}

func TestImputer_NoObservedValues(t *testing.T) {
	rows := [][]int32{{-1, 1}, {-1, 2}}

	_, err := ModeImputer{}.Impute(context.Background(), rows, 1)
	assert.ErrorIs(t, err, ErrNoObserved)

	_, err = HotDeckImputer{}.Impute(context.Background(), rows, 1)
	assert.ErrorIs(t, err, ErrNoObserved)
}

func TestCheck(t *testing.T) {
	in := [][]int32{{1, -1}}

	assert.ErrorIs(t, Check(in, nil, 1), ErrMalformedOutput)
	assert.ErrorIs(t, Check(in, [][][]int32{{{1, -1}}}, 1), ErrMalformedOutput)
	assert.ErrorIs(t, Check(in, [][][]int32{{{2, 0}}}, 1), ErrMalformedOutput)
	assert.ErrorIs(t, Check(in, [][][]int32{{{1}}}, 1), ErrMalformedOutput)
	assert.NoError(t, Check(in, [][][]int32{{{1, 4}}}, 1))
}
