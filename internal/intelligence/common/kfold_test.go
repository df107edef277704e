package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKFold_Partition(t *testing.T) {
	folds, err := KFold(23, 5, 42)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := make(map[int]int)
	for _, f := range folds {
		assert.Len(t, f.Train, 23-len(f.Test))
		for _, idx := range f.Test {
			seen[idx]++
		}
		// Sizes differ by at most one.
		assert.InDelta(t, 23.0/5.0, float64(len(f.Test)), 1)
	}
	require.Len(t, seen, 23)
	for idx, n := range seen {
		assert.Equalf(t, 1, n, "index %d held out %d times", idx, n)
	}
}

func TestKFold_TrainTestDisjoint(t *testing.T) {
	folds, err := KFold(10, 3, 1)
	require.NoError(t, err)

	for _, f := range folds {
		inTest := make(map[int]bool)
		for _, idx := range f.Test {
			inTest[idx] = true
		}
		for _, idx := range f.Train {
			assert.False(t, inTest[idx])
		}
	}
}

func TestKFold_Deterministic(t *testing.T) {
	a, err := KFold(50, 5, 9)
	require.NoError(t, err)
	b, err := KFold(50, 5, 9)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKFold_Invalid(t *testing.T) {
	_, err := KFold(10, 1, 0)
	require.Error(t, err)

	_, err = KFold(3, 5, 0)
	require.Error(t, err)
}
