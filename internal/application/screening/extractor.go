// Package screening orchestrates the pipeline: loading per-class inputs,
// descriptor extraction, dataset assembly, model training and evaluation,
// and the similarity diagnostic.  All infrastructure adapters are optional;
// a nil adapter disables its concern without changing pipeline semantics.
package screening

import (
	"context"
	"strings"

	"github.com/turtacn/ChemScreen/internal/domain/dataset"
	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// DescriptorSource caches descriptor panels keyed by structure.  The Redis
// adapter satisfies it; a nil source means every panel is computed fresh.
type DescriptorSource interface {
	GetOrCompute(ctx context.Context, structureKey string,
		compute func() (molecule.Descriptors, error)) (molecule.Descriptors, error)
}

// Extractor computes descriptor rows for loaded records with bounded
// concurrency.
type Extractor struct {
	workers int
	cache   DescriptorSource
	logger  logging.Logger
}

// NewExtractor builds an extractor. workers <= 0 uses the CPU count; cache
// may be nil.
func NewExtractor(workers int, cache DescriptorSource, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{workers: workers, cache: cache, logger: logger.Named("extractor")}
}

// Extract computes the descriptor panel for every record, preserving load
// order. Descriptor groups that fail leave NaN columns; the row survives and
// assembly decides its fate.
func (e *Extractor) Extract(ctx context.Context, records []*dataset.Record) ([]*dataset.DescriptorRow, error) {
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeDatasetEmptyFrame, "no records to extract")
	}

	results, err := common.Map(ctx, records, e.workers,
		func(ctx context.Context, rec *dataset.Record) (*dataset.DescriptorRow, error) {
			desc, err := e.descriptors(ctx, rec.Molecule)
			if err != nil {
				return nil, err
			}
			return &dataset.DescriptorRow{Record: rec, Descriptors: desc}, nil
		})
	if err != nil {
		return nil, err
	}

	rows := make([]*dataset.DescriptorRow, len(results))
	for _, r := range results {
		if r.Err != nil {
			return nil, errors.Wrapf(r.Err, errors.ErrCodeDescriptorFailed,
				"extracting descriptors for record %d", r.Index)
		}
		rows[r.Index] = r.Value
	}
	return rows, nil
}

func (e *Extractor) descriptors(ctx context.Context, m *molecule.Molecule) (molecule.Descriptors, error) {
	compute := func() (molecule.Descriptors, error) {
		desc, failed := molecule.ComputeDescriptors(m.Graph)
		if len(failed) > 0 {
			e.logger.Warn("descriptor groups failed",
				logging.String("structure_key", m.StructureKey),
				logging.String("groups", strings.Join(failed, ",")))
		}
		return desc, nil
	}
	if e.cache == nil {
		return compute()
	}
	return e.cache.GetOrCompute(ctx, m.StructureKey, compute)
}
