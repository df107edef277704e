package molecule

import (
	"math/bits"

	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// SimilarityMetric names the algorithm used for fingerprint comparison.
type SimilarityMetric string

const (
	MetricTanimoto SimilarityMetric = "tanimoto"
	MetricDice     SimilarityMetric = "dice"
)

// IsValid reports whether the metric is supported.
func (m SimilarityMetric) IsValid() bool {
	return m == MetricTanimoto || m == MetricDice
}

// String returns the string form of the metric.
func (m SimilarityMetric) String() string { return string(m) }

// ParseSimilarityMetric parses a string into a SimilarityMetric.
func ParseSimilarityMetric(s string) (SimilarityMetric, error) {
	m := SimilarityMetric(s)
	if !m.IsValid() {
		return "", errors.New(errors.ErrCodeValidation, "unsupported similarity metric: "+s)
	}
	return m, nil
}

// SimilarityCalculator computes a similarity score in [0,1] for two
// fingerprints of identical type and length.
type SimilarityCalculator interface {
	Calculate(fp1, fp2 *Fingerprint) (float64, error)
	Metric() SimilarityMetric
}

func checkComparable(fp1, fp2 *Fingerprint) error {
	if fp1 == nil || fp2 == nil {
		return errors.New(errors.ErrCodeSimilarityFailed, "nil fingerprint")
	}
	if fp1.Type != fp2.Type || fp1.Length != fp2.Length {
		return errors.New(errors.ErrCodeSimilarityFailed,
			"fingerprints must have the same type and length")
	}
	return nil
}

// TanimotoCalculator implements the Tanimoto (Jaccard) coefficient over
// packed bit vectors.
type TanimotoCalculator struct{}

// Calculate returns |A∩B| / |A∪B|; two empty fingerprints score 0.
func (c *TanimotoCalculator) Calculate(fp1, fp2 *Fingerprint) (float64, error) {
	if err := checkComparable(fp1, fp2); err != nil {
		return 0, err
	}
	intersection, union := 0, 0
	for i := range fp1.Bits {
		intersection += bits.OnesCount8(fp1.Bits[i] & fp2.Bits[i])
		union += bits.OnesCount8(fp1.Bits[i] | fp2.Bits[i])
	}
	if union == 0 {
		return 0, nil
	}
	return float64(intersection) / float64(union), nil
}

// Metric returns MetricTanimoto.
func (c *TanimotoCalculator) Metric() SimilarityMetric { return MetricTanimoto }

// DiceCalculator implements the Dice coefficient over packed bit vectors.
type DiceCalculator struct{}

// Calculate returns 2|A∩B| / (|A|+|B|); two empty fingerprints score 0.
func (c *DiceCalculator) Calculate(fp1, fp2 *Fingerprint) (float64, error) {
	if err := checkComparable(fp1, fp2); err != nil {
		return 0, err
	}
	intersection := 0
	for i := range fp1.Bits {
		intersection += bits.OnesCount8(fp1.Bits[i] & fp2.Bits[i])
	}
	denom := fp1.NumOnBits + fp2.NumOnBits
	if denom == 0 {
		return 0, nil
	}
	return 2 * float64(intersection) / float64(denom), nil
}

// Metric returns MetricDice.
func (c *DiceCalculator) Metric() SimilarityMetric { return MetricDice }

// NewSimilarityCalculator is the factory for similarity calculators.
func NewSimilarityCalculator(metric SimilarityMetric) (SimilarityCalculator, error) {
	switch metric {
	case MetricTanimoto:
		return &TanimotoCalculator{}, nil
	case MetricDice:
		return &DiceCalculator{}, nil
	default:
		return nil, errors.New(errors.ErrCodeValidation, "unsupported similarity metric: "+string(metric))
	}
}

// SimilarityMatrix is a symmetric pairwise similarity matrix over a molecule
// set, indexed by load order.  Labels carries the display name for each row.
type SimilarityMatrix struct {
	Labels []string
	Scores [][]float64
	Metric SimilarityMetric
}

// PairwiseSimilarity computes the full pairwise matrix for mols using the
// given fingerprint type and metric.  The computation is sequential and
// quadratic; it exists as a clustering diagnostic, not a search index.
func PairwiseSimilarity(mols []*Molecule, fpType mtypes.FingerprintType, metric SimilarityMetric) (*SimilarityMatrix, error) {
	if len(mols) == 0 {
		return nil, errors.New(errors.ErrCodeDatasetEmptyFrame, "no molecules to compare")
	}
	calc, err := NewSimilarityCalculator(metric)
	if err != nil {
		return nil, err
	}

	fps := make([]*Fingerprint, len(mols))
	labels := make([]string, len(mols))
	for i, m := range mols {
		fp, err := m.CalculateFingerprint(fpType)
		if err != nil {
			return nil, err
		}
		fps[i] = fp
		labels[i] = m.Name
		if labels[i] == "" {
			labels[i] = m.StructureKey
		}
	}

	scores := make([][]float64, len(mols))
	for i := range scores {
		scores[i] = make([]float64, len(mols))
		scores[i][i] = 1.0
	}
	for i := 0; i < len(mols); i++ {
		for j := i + 1; j < len(mols); j++ {
			s, err := calc.Calculate(fps[i], fps[j])
			if err != nil {
				return nil, err
			}
			scores[i][j] = s
			scores[j][i] = s
		}
	}

	return &SimilarityMatrix{Labels: labels, Scores: scores, Metric: metric}, nil
}
