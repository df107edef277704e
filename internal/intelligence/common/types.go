// Package common holds the model-facing primitives shared by every
// classifier: the training-set representation, feature scaling, fold
// generation, evaluation, and training metrics.
package common

import (
	"context"
	"math"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

// Binary class labels used throughout the model layer.  LabelPositive maps
// the screened class, LabelOther the reference pool.
const (
	LabelPositive = 0
	LabelOther    = 1
)

// ---------------------------------------------------------------------------
// TrainingSet
// ---------------------------------------------------------------------------

// TrainingSet is a dense feature matrix with aligned integer labels.
type TrainingSet struct {
	// X is row-major: one row per sample, one column per feature.
	X [][]float64

	// Y holds the label of each row.
	Y []int

	// Columns names the feature columns, aligned with X's second axis.
	Columns []string
}

// NewTrainingSet validates shape consistency and builds a training set.
func NewTrainingSet(x [][]float64, y []int, columns []string) (*TrainingSet, error) {
	if len(x) == 0 {
		return nil, errors.New(errors.ErrCodeDatasetEmptyFrame, "training set has no rows")
	}
	if len(x) != len(y) {
		return nil, errors.Newf(errors.ErrCodeModelDimMismatch,
			"%d feature rows but %d labels", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return nil, errors.New(errors.ErrCodeModelDimMismatch, "training set has no feature columns")
	}
	for i, row := range x {
		if len(row) != width {
			return nil, errors.Newf(errors.ErrCodeModelDimMismatch,
				"row %d has %d features, expected %d", i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf(errors.ErrCodeModelDimMismatch,
					"row %d column %d is not finite", i, j)
			}
		}
	}
	if len(columns) != 0 && len(columns) != width {
		return nil, errors.Newf(errors.ErrCodeModelDimMismatch,
			"%d column names for %d features", len(columns), width)
	}
	return &TrainingSet{X: x, Y: y, Columns: columns}, nil
}

// Len returns the number of samples.
func (ts *TrainingSet) Len() int { return len(ts.X) }

// Width returns the number of feature columns.
func (ts *TrainingSet) Width() int {
	if len(ts.X) == 0 {
		return 0
	}
	return len(ts.X[0])
}

// Subset returns a training set restricted to the given row indices.
func (ts *TrainingSet) Subset(indices []int) *TrainingSet {
	x := make([][]float64, len(indices))
	y := make([]int, len(indices))
	for i, idx := range indices {
		x[i] = ts.X[idx]
		y[i] = ts.Y[idx]
	}
	return &TrainingSet{X: x, Y: y, Columns: ts.Columns}
}

// ---------------------------------------------------------------------------
// Classifier interface
// ---------------------------------------------------------------------------

// Classifier is a binary classifier over dense feature vectors.
type Classifier interface {
	// Fit trains the model on the given set.
	Fit(ctx context.Context, ts *TrainingSet) error

	// Predict returns the predicted label for one feature vector.
	Predict(x []float64) (int, error)

	// Score returns a decision score for one feature vector.  Higher scores
	// indicate stronger evidence for LabelPositive; the score is suitable as
	// a ranking input for ROC analysis.
	Score(x []float64) (float64, error)

	// Name identifies the model family for logs and reports.
	Name() string
}
