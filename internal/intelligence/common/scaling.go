package common

import (
	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

// StandardScaler centres each feature column on its mean and divides by its
// standard deviation.  A constant column (standard deviation zero) keeps its
// centring and gets a unit scale, so such features pass through as zeros
// instead of aborting the run.
type StandardScaler struct {
	Means  []float64 `json:"means"`
	Scales []float64 `json:"scales"`
}

// Fit estimates the per-column statistics from the given matrix.
func (s *StandardScaler) Fit(x [][]float64) error {
	if len(x) == 0 || len(x[0]) == 0 {
		return errors.New(errors.ErrCodeModelDimMismatch, "cannot fit scaler on empty matrix")
	}
	width := len(x[0])
	s.Means = make([]float64, width)
	s.Scales = make([]float64, width)

	col := make([]float64, len(x))
	for j := 0; j < width; j++ {
		for i, row := range x {
			if len(row) != width {
				return errors.Newf(errors.ErrCodeModelDimMismatch,
					"row %d has %d features, expected %d", i, len(row), width)
			}
			col[i] = row[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		s.Means[j] = mean
		if std == 0 || len(x) < 2 {
			std = 1
		}
		s.Scales[j] = std
	}
	return nil
}

// Transform returns a scaled copy of the matrix.
func (s *StandardScaler) Transform(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// TransformRow scales a single feature vector.
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if len(s.Means) == 0 {
		return nil, errors.New(errors.ErrCodeModelNotFitted, "scaler has not been fitted")
	}
	if len(row) != len(s.Means) {
		return nil, errors.Newf(errors.ErrCodeModelDimMismatch,
			"vector has %d features, scaler fitted on %d", len(row), len(s.Means))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Means[j]) / s.Scales[j]
	}
	return out, nil
}

// FitTransform fits the scaler and returns the scaled matrix.
func (s *StandardScaler) FitTransform(x [][]float64) ([][]float64, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}
