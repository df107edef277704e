package molecule

import (
	"fmt"

	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// Molecule is the aggregate for one chemical structure.  The ordinal Index is
// assigned once, in file order, at load time and never changes; it is the
// identifier every later stage joins on.  The aggregate is immutable after
// load except for lazily computed fingerprints.
type Molecule struct {
	// Index is the ordinal identifier within the loaded class frame.
	Index int `json:"index"`

	// Name is the molecule title from the SDF header, possibly empty.
	Name string `json:"name,omitempty"`

	// Class is the drug-class label stamped at load time.
	Class mtypes.Class `json:"class"`

	// Graph is the parsed atoms/bonds structure.
	Graph *Graph `json:"-"`

	// StructureKey is a content-derived identifier used for descriptor
	// caching and fingerprint indexing; it is independent of Index.
	StructureKey string `json:"structure_key"`

	// Fingerprints holds lazily computed fingerprints keyed by type.
	Fingerprints map[mtypes.FingerprintType]*Fingerprint `json:"-"`
}

// NewMolecule wraps a parsed SDF record with its load-order index and class
// label.  The structure key is derived immediately so callers can use it as
// a cache key without forcing fingerprint computation.
func NewMolecule(rec *SDFRecord, index int, class mtypes.Class) (*Molecule, error) {
	if rec == nil || rec.Graph == nil {
		return nil, errors.InvalidParam("SDF record has no structure")
	}
	if index < 0 {
		return nil, errors.InvalidParam("molecule index must be non-negative")
	}
	if !class.IsValid() {
		return nil, errors.InvalidParam("unknown drug class").WithDetail(string(class))
	}
	if len(rec.Graph.Atoms) == 0 {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidFormat, "molecule has no atoms")
	}

	return &Molecule{
		Index:        index,
		Name:         rec.Title,
		Class:        class,
		Graph:        rec.Graph,
		StructureKey: rec.Graph.StructureKey(),
		Fingerprints: make(map[mtypes.FingerprintType]*Fingerprint),
	}, nil
}

// CalculateFingerprint computes and stores the requested fingerprint type.
// Subsequent calls for the same type reuse the stored fingerprint.
func (m *Molecule) CalculateFingerprint(fpType mtypes.FingerprintType) (*Fingerprint, error) {
	if fp, ok := m.Fingerprints[fpType]; ok {
		return fp, nil
	}

	var fp *Fingerprint
	var err error
	switch fpType {
	case mtypes.FPMorgan:
		fp, err = MorganFingerprint(m.Graph, 2, 2048)
	case mtypes.FPMACCS:
		fp, err = MACCSFingerprint(m.Graph)
	case mtypes.FPPath:
		fp, err = PathFingerprint(m.Graph, 1, 7, 2048)
	default:
		return nil, errors.InvalidParam("unknown fingerprint type").
			WithDetail(fmt.Sprintf("type=%s", fpType))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFingerprintFailed, "fingerprint calculation failed")
	}

	m.Fingerprints[fpType] = fp
	return fp, nil
}

// SimilarityTo computes Tanimoto similarity between this molecule and other
// using the given fingerprint type, computing either fingerprint on demand.
func (m *Molecule) SimilarityTo(other *Molecule, fpType mtypes.FingerprintType) (float64, error) {
	fp1, err := m.CalculateFingerprint(fpType)
	if err != nil {
		return 0, err
	}
	fp2, err := other.CalculateFingerprint(fpType)
	if err != nil {
		return 0, err
	}
	return (&TanimotoCalculator{}).Calculate(fp1, fp2)
}
