// Package dataset provides the tabular model consumed by model training:
// labeled samples joining molecular descriptors to class metadata, the
// assembler that builds binary classification frames, and the seeded
// train/validation splitter.
package dataset

import (
	"math"

	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// Metadata is the tabular record that accompanies one structure: the fields
// from the per-class CSV file.
type Metadata struct {
	// Name is the compound name from the metadata table.
	Name string `json:"name"`

	// MolecularWeight is the tabulated weight, which may differ slightly from
	// the graph-derived descriptor value.
	MolecularWeight float64 `json:"molecular_weight"`

	// Extra holds any further CSV columns verbatim.
	Extra map[string]string `json:"extra,omitempty"`
}

// Record carries one molecule's structure and metadata as a single unit.
// Structure and metadata are bound together at load time, with the ordinal
// identifier attached to both atomically, so no later stage can misalign
// them.
type Record struct {
	Molecule *molecule.Molecule
	Metadata Metadata
}

// LabeledSample is one row of an assembled dataset: descriptors joined to
// metadata, stamped with the class label and the binary target.
type LabeledSample struct {
	// ID is the ordinal identifier within the assembled frame.  It is
	// reassigned by the assembler after concatenation and is unique per frame.
	ID int `json:"id"`

	Name         string              `json:"name"`
	Class        mtypes.Class        `json:"class"`
	Target       mtypes.BinaryTarget `json:"target"`
	StructureKey string              `json:"structure_key"`
	Descriptors  molecule.Descriptors `json:"descriptors"`
}

// Frame is an ordered collection of labeled samples sharing the descriptor
// panel's column set.
type Frame struct {
	Samples []*LabeledSample
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Samples) }

// IDs returns the ordinal identifiers of every row, in frame order.
func (f *Frame) IDs() []int {
	ids := make([]int, len(f.Samples))
	for i, s := range f.Samples {
		ids[i] = s.ID
	}
	return ids
}

// Matrix materialises the named descriptor columns as a row-major feature
// matrix aligned with Targets.
func (f *Frame) Matrix(cols []string) [][]float64 {
	m := make([][]float64, len(f.Samples))
	for i, s := range f.Samples {
		m[i] = s.Descriptors.Vector(cols)
	}
	return m
}

// Targets returns the binary target of every row, in frame order.
func (f *Frame) Targets() []mtypes.BinaryTarget {
	out := make([]mtypes.BinaryTarget, len(f.Samples))
	for i, s := range f.Samples {
		out[i] = s.Target
	}
	return out
}

// CountByTarget tallies rows per binary target value.
func (f *Frame) CountByTarget() map[mtypes.BinaryTarget]int {
	counts := make(map[mtypes.BinaryTarget]int, 2)
	for _, s := range f.Samples {
		counts[s.Target]++
	}
	return counts
}

// Subset returns a new Frame containing the rows whose IDs appear in ids,
// preserving frame order.  Unknown IDs are an error.
func (f *Frame) Subset(ids []int) (*Frame, error) {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := &Frame{}
	for _, s := range f.Samples {
		if want[s.ID] {
			out.Samples = append(out.Samples, s)
			delete(want, s.ID)
		}
	}
	if len(want) != 0 {
		return nil, errors.New(errors.ErrCodeDatasetSplitInvalid, "subset references unknown row IDs")
	}
	return out, nil
}

// Dataset is one binary classification problem: the assembled frame plus the
// positive class it was built for.
type Dataset struct {
	Positive mtypes.Class
	Frame    *Frame

	// Dropped is the number of rows removed for missing key descriptors.
	Dropped int
}

// hasKeyDescriptors reports whether the sample carries usable values for
// every designated key column.
func (s *LabeledSample) hasKeyDescriptors() bool {
	for _, col := range molecule.KeyDescriptors {
		v, ok := s.Descriptors[col]
		if !ok || math.IsNaN(v) {
			return false
		}
	}
	return true
}
