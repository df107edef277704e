package common

import (
	"math/rand"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

// Fold is one cross-validation fold: the held-out indices and the remainder.
type Fold struct {
	Train []int
	Test  []int
}

// KFold partitions n sample indices into k folds after a seeded shuffle.
// Every index appears in exactly one test set; fold sizes differ by at most
// one.
func KFold(n, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, errors.Newf(errors.ErrCodeInvalidParam, "need at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, errors.Newf(errors.ErrCodeInvalidParam,
			"cannot make %d folds from %d samples", k, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)

	folds := make([]Fold, k)
	for i, idx := range perm {
		folds[i%k].Test = append(folds[i%k].Test, idx)
	}
	for f := range folds {
		inTest := make(map[int]bool, len(folds[f].Test))
		for _, idx := range folds[f].Test {
			inTest[idx] = true
		}
		for i := 0; i < n; i++ {
			if !inTest[i] {
				folds[f].Train = append(folds[f].Train, i)
			}
		}
	}
	return folds, nil
}
