package rbfsvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/intelligence/common"
)

func TestGridSearch_FindsWorkingModel(t *testing.T) {
	x, y := blobs(30, 5)
	ts, err := common.NewTrainingSet(x, y, nil)
	require.NoError(t, err)

	m := common.NewInMemoryTrainingMetrics()
	res, err := GridSearch(context.Background(), GridConfig{
		Cs:     []float64{0.5, 5},
		Gammas: []float64{0.1, 1},
		Folds:  5,
		Seed:   11,
	}, ts, nil, m)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Candidates)
	assert.Greater(t, res.BestScore, 0.8)
	require.NotNil(t, res.Model)
	assert.Equal(t, 1, m.GridRuns)

	// Winning model is usable for prediction.
	pred, err := res.Model.Predict([]float64{-3, -3})
	require.NoError(t, err)
	assert.Equal(t, common.LabelPositive, pred)
}

func TestGridSearch_Defaults(t *testing.T) {
	var cfg GridConfig
	cfg.ApplyDefaults()

	assert.Equal(t, 5, cfg.Folds)
	assert.NotEmpty(t, cfg.Cs)
	assert.NotEmpty(t, cfg.Gammas)
}

func TestGridSearch_TooFewSamples(t *testing.T) {
	ts, err := common.NewTrainingSet([][]float64{{1}, {2}, {3}}, []int{0, 1, 0}, nil)
	require.NoError(t, err)

	_, err = GridSearch(context.Background(), GridConfig{Folds: 5}, ts, nil, nil)
	require.Error(t, err)
}

func TestGridSearch_Cancelled(t *testing.T) {
	x, y := blobs(20, 6)
	ts, err := common.NewTrainingSet(x, y, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = GridSearch(ctx, GridConfig{Cs: []float64{1}, Gammas: []float64{0.1}, Folds: 2}, ts, nil, nil)
	require.Error(t, err)
}
