package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorical(t *testing.T) {
	rng := NewRNG(4711)

	rows := rng.Categorical(8, 5, 3)

	require.Len(t, rows, 8)
	for _, row := range rows {
		require.Len(t, row, 5)
		for _, c := range row {
			assert.GreaterOrEqual(t, c, int32(0))
			assert.Less(t, c, int32(3))
		}
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(42)
	a := rng.Categorical(4, 4, 10)
	rng.Reset()
	b := rng.Categorical(4, 4, 10)
	assert.Equal(t, a, b)
	assert.Equal(t, int64(42), rng.Seed())
}

func TestSkewed(t *testing.T) {
	rng := NewRNG(1)
	rows := rng.Skewed(2000, 1, 5, 1.5)

	counts := make([]int, 5)
	for _, row := range rows {
		counts[row[0]]++
	}
	assert.Greater(t, counts[0], counts[4])
}

func TestMask(t *testing.T) {
	rng := NewRNG(7)
	rows := rng.Categorical(100, 10, 2)

	n := rng.Mask(rows, 0.2)

	missing := 0
	for _, row := range rows {
		for _, c := range row {
			if c == Missing {
				missing++
			}
		}
	}
	assert.Equal(t, n, missing)
	assert.InDelta(t, 200, missing, 60)
}

func TestStudy(t *testing.T) {
	rng := NewRNG(3)
	s := rng.Study(StudyConfig{Units: 50, Important: 2, Unimportant: 1, Levels: 2, Effect: 5})

	require.Len(t, s.Rows, 50)
	require.Len(t, s.Treatment, 50)
	require.Len(t, s.Outcome, 50)
	assert.Equal(t, []float64{20, 10, 0}, s.Coefficients)

	// Without noise the outcome is exact.
	for i, row := range s.Rows {
		want := 5*float64(s.Treatment[i]) + 20*float64(row[0]) + 10*float64(row[1])
		assert.Equal(t, want, s.Outcome[i])
	}
}
