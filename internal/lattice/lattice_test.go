package lattice

import (
	"testing"

	"github.com/hupe1980/covmatch/internal/covset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLattice_FrontierLevelByLevel(t *testing.T) {
	root := covset.Of(0, 1, 2)
	l := New(root)

	assert.Equal(t, []covset.Set{root}, l.Frontier())
	require.NoError(t, l.Visit(root))

	// Ordered by the dropped covariate: {2} < ... lexicographic on dropped sets.
	level2 := l.Frontier()
	assert.Equal(t, []covset.Set{covset.Of(1, 2), covset.Of(0, 2), covset.Of(0, 1)}, level2)

	// {0} needs both {0,1} and {0,2}.
	require.NoError(t, l.Visit(covset.Of(0, 1)))
	assert.False(t, l.Eligible(covset.Of(0)))
	assert.Equal(t, []covset.Set{covset.Of(1, 2), covset.Of(0, 2)}, l.Frontier())

	require.NoError(t, l.Visit(covset.Of(0, 2)))
	assert.True(t, l.Eligible(covset.Of(0)))
	// Level 2 is not exhausted yet, so the frontier stays on it.
	assert.Equal(t, []covset.Set{covset.Of(1, 2)}, l.Frontier())

	require.NoError(t, l.Exclude(covset.Of(1, 2)))
	assert.Equal(t, []covset.Set{covset.Of(2), covset.Of(1), covset.Of(0)}, l.Frontier())

	for _, s := range l.Frontier() {
		require.NoError(t, l.Visit(s))
	}
	assert.Empty(t, l.Frontier())
	assert.Len(t, l.Order(), 7)
}

func TestLattice_VisitEnforcesDownwardClosure(t *testing.T) {
	root := covset.Of(0, 1, 2)
	l := New(root)

	err := l.Visit(covset.Of(0, 1))
	assert.ErrorIs(t, err, ErrNotEligible)

	require.NoError(t, l.Visit(root))
	err = l.Visit(root)
	assert.ErrorIs(t, err, ErrAlreadyDone)

	err = l.Visit(covset.Of(3))
	assert.ErrorIs(t, err, ErrOutsideRoot)

	err = l.Visit(covset.Of(0))
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestLattice_DownwardClosureHoldsForEveryVisit(t *testing.T) {
	root := covset.Of(0, 1, 2, 3)
	l := New(root)
	for {
		f := l.Frontier()
		if len(f) == 0 {
			break
		}
		require.NoError(t, l.Visit(f[len(f)-1]))
	}

	order := l.Order()
	assert.Len(t, order, 15)
	for _, s := range order {
		for _, sup := range order {
			if sup != s && s.SubsetOf(sup) {
				assert.Less(t, l.Seq(sup), l.Seq(s), "%s visited before superset %s", s, sup)
			}
		}
	}
}

func TestLattice_Descend(t *testing.T) {
	root := covset.Of(0, 1, 2)
	l := New(root)

	require.NoError(t, l.Descend(covset.Of(0, 2)))
	assert.Equal(t, covset.Of(0, 2), l.Root())
	assert.Equal(t, Visited, l.State(root))
	assert.Equal(t, Visited, l.State(covset.Of(0, 2)))
	assert.Equal(t, Excluded, l.State(covset.Of(1, 2)))
	assert.Equal(t, Excluded, l.State(covset.Of(0, 1)))

	assert.True(t, l.Eligible(covset.Of(0)))
	assert.Equal(t, []covset.Set{covset.Of(2), covset.Of(0)}, l.Frontier())

	err := l.Descend(covset.Of(1))
	assert.ErrorIs(t, err, ErrNotEligible)

	require.NoError(t, l.Descend(covset.Of(2)))
	assert.Empty(t, l.Frontier())
	assert.Nil(t, l.Children(covset.Of(2)))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unseen", Unseen.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "visited", Visited.String())
	assert.Equal(t, "excluded", Excluded.String())
}
