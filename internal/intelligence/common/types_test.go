package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

func TestNewTrainingSet(t *testing.T) {
	ts, err := NewTrainingSet(
		[][]float64{{1, 2}, {3, 4}, {5, 6}},
		[]int{LabelPositive, LabelOther, LabelPositive},
		[]string{"a", "b"},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, ts.Len())
	assert.Equal(t, 2, ts.Width())
}

func TestNewTrainingSet_Invalid(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    []int
		cols []string
		code errors.ErrorCode
	}{
		{"empty", nil, nil, nil, errors.ErrCodeDatasetEmptyFrame},
		{"length mismatch", [][]float64{{1}}, []int{0, 1}, nil, errors.ErrCodeModelDimMismatch},
		{"ragged rows", [][]float64{{1, 2}, {3}}, []int{0, 1}, nil, errors.ErrCodeModelDimMismatch},
		{"nan feature", [][]float64{{math.NaN()}}, []int{0}, nil, errors.ErrCodeModelDimMismatch},
		{"column count", [][]float64{{1, 2}}, []int{0}, []string{"a"}, errors.ErrCodeModelDimMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrainingSet(tt.x, tt.y, tt.cols)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code))
		})
	}
}

func TestTrainingSet_Subset(t *testing.T) {
	ts, err := NewTrainingSet([][]float64{{1}, {2}, {3}}, []int{0, 1, 0}, nil)
	require.NoError(t, err)

	sub := ts.Subset([]int{2, 0})
	assert.Equal(t, [][]float64{{3}, {1}}, sub.X)
	assert.Equal(t, []int{0, 0}, sub.Y)
}
