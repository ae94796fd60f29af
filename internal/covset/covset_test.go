package covset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFull(t *testing.T) {
	s, err := Full(3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, s.Indices())

	s, err = Full(64)
	require.NoError(t, err)
	assert.Equal(t, 64, s.Len())

	_, err = Full(65)
	assert.ErrorIs(t, err, ErrTooManyCovariates)
}

func TestSetOperations(t *testing.T) {
	s := Of(0, 2, 5)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(2))
	assert.False(t, s.Has(1))
	assert.Equal(t, Of(0, 5), s.Without(2))
	assert.Equal(t, Of(0, 1, 2, 5), s.With(1))
	assert.True(t, Of(0, 5).SubsetOf(s))
	assert.False(t, Of(1).SubsetOf(s))
	assert.Equal(t, "{0,2,5}", s.String())
	assert.Equal(t, "{}", Empty.String())
}

func TestChildren(t *testing.T) {
	s := Of(0, 1, 3)
	assert.Equal(t, []Set{Of(1, 3), Of(0, 3), Of(0, 1)}, s.Children())
	assert.Nil(t, Of(4).Children())
	assert.Nil(t, Empty.Children())
}

func TestParents(t *testing.T) {
	root := Of(0, 1, 2, 3)
	assert.Equal(t, []Set{Of(0, 1), Of(1, 2), Of(1, 3)}, Of(1).Parents(root))
	assert.Empty(t, root.Parents(root))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Set
		want int
	}{
		{"equal", Of(1, 2), Of(1, 2), 0},
		{"smaller first index", Of(0, 5), Of(1), -1},
		{"prefix first", Of(1), Of(1, 2), -1},
		{"second index decides", Of(1, 3), Of(1, 2), 1},
		{"empty first", Empty, Of(0), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
			assert.Equal(t, -tt.want, Compare(tt.b, tt.a))
		})
	}
}
