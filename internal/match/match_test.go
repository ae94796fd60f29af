package match

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/covmatch/internal/covset"
	"github.com/hupe1980/covmatch/internal/encoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, rows [][]int32, treated []bool) *Engine {
	t.Helper()
	enc, err := encoder.New(rows)
	require.NoError(t, err)
	return New(enc, treated)
}

func TestEngine_MatchFullSet(t *testing.T) {
	// T1 (1,1,1), T2 (1,0,1), C1 (1,1,1), C2 (0,0,0)
	e := newEngine(t,
		[][]int32{{1, 1, 1}, {1, 0, 1}, {1, 1, 1}, {0, 0, 0}},
		[]bool{true, true, false, false},
	)
	pool := roaring.BitmapOf(0, 1, 2, 3)

	got := e.Match(covset.Of(0, 1, 2), pool)
	require.Len(t, got, 1)
	assert.Equal(t, []uint32{0, 2}, got[0].Members)
	assert.Equal(t, 1, got[0].Treated)
	assert.Equal(t, 1, got[0].Control)

	all := e.Buckets(covset.Of(0, 1, 2), pool)
	assert.Len(t, all, 3)

	// Dropping X2 lets T2 join T1 and C1.
	got = e.Match(covset.Of(0, 2), pool)
	require.Len(t, got, 1)
	assert.Equal(t, []uint32{0, 1, 2}, got[0].Members)
}

func TestEngine_MatchRespectsPool(t *testing.T) {
	e := newEngine(t,
		[][]int32{{1, 1}, {1, 1}, {1, 1}},
		[]bool{true, false, false},
	)

	got := e.Match(covset.Of(0, 1), roaring.BitmapOf(1, 2))
	assert.Empty(t, got)

	got = e.Match(covset.Of(0, 1), roaring.BitmapOf(0, 2))
	require.Len(t, got, 1)
	assert.Equal(t, []uint32{0, 2}, got[0].Members)
}

func TestEngine_MissingValuesExcludedFromSet(t *testing.T) {
	e := newEngine(t,
		[][]int32{{1, -1}, {1, 0}, {1, 0}},
		[]bool{true, false, true},
	)
	pool := roaring.BitmapOf(0, 1, 2)

	got := e.Match(covset.Of(0, 1), pool)
	require.Len(t, got, 1)
	assert.NotContains(t, got[0].Members, uint32(0))

	got = e.Match(covset.Of(0), pool)
	require.Len(t, got, 1)
	assert.Equal(t, []uint32{0, 1, 2}, got[0].Members)
}

func TestCovered(t *testing.T) {
	bm := Covered([]Bucket{{Members: []uint32{1, 4}}, {Members: []uint32{2}}})
	assert.Equal(t, []uint32{1, 2, 4}, bm.ToArray())
	assert.True(t, Covered(nil).IsEmpty())
}
