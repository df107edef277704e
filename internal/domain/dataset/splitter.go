package dataset

import (
	"math"
	"math/rand"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

// Split is the outcome of partitioning a dataset: two frames with disjoint
// identifier sets whose union is the full frame.
type Split struct {
	Train      *Frame
	Validation *Frame
	Seed       int64
	Fraction   float64
}

// Splitter partitions frames into train and validation subsets with a seeded
// shuffle, so the same seed always reproduces the same partition.
type Splitter struct {
	fraction float64
	seed     int64
}

// DefaultValidationFraction is the share of rows held out for validation.
const DefaultValidationFraction = 0.30

// NewSplitter returns a splitter holding out the given fraction of rows.
// Fraction must lie strictly between 0 and 1.
func NewSplitter(fraction float64, seed int64) (*Splitter, error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, errors.Newf(errors.ErrCodeDatasetSplitInvalid,
			"validation fraction %v outside (0, 1)", fraction)
	}
	return &Splitter{fraction: fraction, seed: seed}, nil
}

// Split partitions the frame.  The validation size is round(fraction * n);
// both parts preserve the frame's row order.
func (s *Splitter) Split(frame *Frame) (*Split, error) {
	n := frame.Len()
	if n < 2 {
		return nil, errors.New(errors.ErrCodeDatasetSplitInvalid, "frame too small to split")
	}
	nVal := int(math.Round(s.fraction * float64(n)))
	if nVal == 0 || nVal == n {
		return nil, errors.Newf(errors.ErrCodeDatasetSplitInvalid,
			"fraction %v leaves an empty partition for %d rows", s.fraction, n)
	}

	perm := rand.New(rand.NewSource(s.seed)).Perm(n)
	inVal := make(map[int]bool, nVal)
	for _, idx := range perm[:nVal] {
		inVal[frame.Samples[idx].ID] = true
	}

	split := &Split{Train: &Frame{}, Validation: &Frame{}, Seed: s.seed, Fraction: s.fraction}
	for _, sample := range frame.Samples {
		if inVal[sample.ID] {
			split.Validation.Samples = append(split.Validation.Samples, sample)
		} else {
			split.Train.Samples = append(split.Train.Samples, sample)
		}
	}
	return split, nil
}
