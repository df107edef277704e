package rbfsvm

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// blobs generates two well-separated Gaussian clusters.
func blobs(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, 0, 2*n)
	y := make([]int, 0, 2*n)
	for i := 0; i < n; i++ {
		x = append(x, []float64{rng.NormFloat64() - 3, rng.NormFloat64() - 3})
		y = append(y, common.LabelPositive)
		x = append(x, []float64{rng.NormFloat64() + 3, rng.NormFloat64() + 3})
		y = append(y, common.LabelOther)
	}
	return x, y
}

func TestSVM_SeparableData(t *testing.T) {
	x, y := blobs(40, 1)
	ts, err := common.NewTrainingSet(x, y, nil)
	require.NoError(t, err)

	s, err := New(Config{C: 1, Gamma: 0.5, Seed: 7}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Fit(context.Background(), ts))

	assert.Greater(t, s.SupportVectorCount(), 0)

	correct := 0
	for i := range x {
		pred, err := s.Predict(x[i])
		require.NoError(t, err)
		if pred == y[i] {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(x)), 0.95)
}

func TestSVM_ScoreLogistic(t *testing.T) {
	x, y := blobs(40, 2)
	ts, err := common.NewTrainingSet(x, y, nil)
	require.NoError(t, err)

	s, err := New(Config{C: 1, Gamma: 0.5, Seed: 3}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Fit(context.Background(), ts))

	sPos, err := s.Score([]float64{-3, -3})
	require.NoError(t, err)
	sOther, err := s.Score([]float64{3, 3})
	require.NoError(t, err)

	// Logistic mapping: scores live in (0, 1) and 0.5 separates the classes.
	assert.Greater(t, sPos, 0.5)
	assert.Less(t, sPos, 1.0)
	assert.Less(t, sOther, 0.5)
	assert.Greater(t, sOther, 0.0)

	pred, err := s.Predict([]float64{-3, -3})
	require.NoError(t, err)
	assert.Equal(t, common.LabelPositive, pred)
	pred, err = s.Predict([]float64{3, 3})
	require.NoError(t, err)
	assert.Equal(t, common.LabelOther, pred)
}

func TestSVM_ConstantFeatureSurvives(t *testing.T) {
	// Second column is constant; scaling must not divide by zero.
	x := [][]float64{{-2, 5}, {-1.5, 5}, {-1.8, 5}, {2, 5}, {1.5, 5}, {1.8, 5}}
	y := []int{0, 0, 0, 1, 1, 1}
	ts, err := common.NewTrainingSet(x, y, nil)
	require.NoError(t, err)

	s, err := New(Config{C: 10, Gamma: 1, Seed: 1}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Fit(context.Background(), ts))

	pred, err := s.Predict([]float64{-1.7, 5})
	require.NoError(t, err)
	assert.Equal(t, common.LabelPositive, pred)
}

func TestSVM_NotFitted(t *testing.T) {
	s, err := New(Config{}, nil, nil)
	require.NoError(t, err)

	_, err = s.Predict([]float64{1, 2})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFitted))
}

func TestSVM_DimMismatch(t *testing.T) {
	x, y := blobs(10, 3)
	ts, err := common.NewTrainingSet(x, y, nil)
	require.NoError(t, err)

	s, err := New(Config{Gamma: 0.5}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Fit(context.Background(), ts))

	_, err = s.Score([]float64{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelDimMismatch))
}

func TestSVM_InvalidConfig(t *testing.T) {
	_, err := New(Config{C: -1}, nil, nil)
	require.Error(t, err)

	_, err = New(Config{Gamma: -0.5}, nil, nil)
	require.Error(t, err)
}
