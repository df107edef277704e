package dataset

import (
	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// DescriptorRow pairs one record with its computed descriptors, in load
// order.  It is the assembler's input unit, produced by the extraction stage.
type DescriptorRow struct {
	Record      *Record
	Descriptors molecule.Descriptors
}

// Assembler builds binary classification frames from per-class descriptor
// rows.
type Assembler struct {
	logger logging.Logger
}

// NewAssembler returns an assembler logging through the given logger.
func NewAssembler(logger logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{logger: logger.Named("assembler")}
}

// Assemble joins the positive-class rows against the reference rows into one
// binary dataset.  Every positive row is stamped with the target for its
// class; every reference row becomes the "other" target.  Rows are
// concatenated positives-first, assigned fresh ordinal IDs, and rows lacking
// any key descriptor value are dropped.
func (a *Assembler) Assemble(positive mtypes.Class, positiveRows, otherRows []*DescriptorRow) (*Dataset, error) {
	if len(positiveRows) == 0 || len(otherRows) == 0 {
		return nil, errors.New(errors.ErrCodeDatasetEmptyFrame, "both classes must contribute at least one row")
	}

	frame := &Frame{}
	dropped := 0

	appendRows := func(rows []*DescriptorRow, class mtypes.Class) error {
		for _, row := range rows {
			target, err := mtypes.TargetFor(class, positive)
			if err != nil {
				return err
			}
			sample := &LabeledSample{
				Name:         row.Record.Metadata.Name,
				Class:        class,
				Target:       target,
				StructureKey: row.Record.Molecule.StructureKey,
				Descriptors:  row.Descriptors,
			}
			if !sample.hasKeyDescriptors() {
				dropped++
				a.logger.Warn("dropping row with missing key descriptors",
					logging.String("name", sample.Name),
					logging.String("class", string(class)))
				continue
			}
			frame.Samples = append(frame.Samples, sample)
		}
		return nil
	}

	if err := appendRows(positiveRows, positive); err != nil {
		return nil, err
	}
	if err := appendRows(otherRows, mtypes.ClassOther); err != nil {
		return nil, err
	}

	if frame.Len() == 0 {
		return nil, errors.New(errors.ErrCodeDatasetEmptyFrame, "all rows dropped for missing key descriptors")
	}

	// Identifiers are ordinal positions in the concatenated frame.
	for i, s := range frame.Samples {
		s.ID = i
	}

	a.logger.Info("assembled binary dataset",
		logging.String("positive", string(positive)),
		logging.Int("rows", frame.Len()),
		logging.Int("dropped", dropped))

	return &Dataset{Positive: positive, Frame: frame, Dropped: dropped}, nil
}
