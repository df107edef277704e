package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

const searchNProbe = 16

// Hit is one neighbor returned by a similarity search.
type Hit struct {
	StructureKey string
	Name         string
	Class        string
	// Similarity is the Tanimoto coefficient against the query, in [0, 1].
	Similarity float64
}

// FingerprintIndex stores molecular fingerprints and answers top-K
// structural similarity queries.
type FingerprintIndex struct {
	client *Client
	logger logging.Logger
}

// NewFingerprintIndex wraps the client.
func NewFingerprintIndex(c *Client, logger logging.Logger) *FingerprintIndex {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FingerprintIndex{client: c, logger: logger.Named("fingerprint_index")}
}

// Index upserts fingerprints for the given molecules. Molecules whose
// fingerprint cannot be computed are skipped with a warning.
func (x *FingerprintIndex) Index(ctx context.Context, mols []*molecule.Molecule, fpType mtypes.FingerprintType) (int, error) {
	api, err := x.client.guard()
	if err != nil {
		return 0, err
	}
	if len(mols) == 0 {
		return 0, nil
	}

	byteLen := x.client.cfg.Dim / 8
	keys := make([]string, 0, len(mols))
	names := make([]string, 0, len(mols))
	classes := make([]string, 0, len(mols))
	vectors := make([][]byte, 0, len(mols))

	for _, m := range mols {
		fp, err := m.CalculateFingerprint(fpType)
		if err != nil {
			x.logger.Warn("skipping molecule without fingerprint",
				logging.String("structure_key", m.StructureKey),
				logging.Err(err))
			continue
		}
		bits := fp.ToBytes()
		if len(bits) != byteLen {
			x.logger.Warn("skipping fingerprint with unexpected length",
				logging.String("structure_key", m.StructureKey),
				logging.Int("bytes", len(bits)))
			continue
		}
		keys = append(keys, m.StructureKey)
		names = append(names, m.Name)
		classes = append(classes, string(m.Class))
		vectors = append(vectors, bits)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	// Replace any existing rows for these structures so re-runs do not
	// accumulate duplicates.
	expr := fmt.Sprintf("%s in [%s]", fieldStructureKey, quoteList(keys))
	if err := api.Delete(ctx, x.client.cfg.Collection, "", expr); err != nil {
		x.logger.Warn("stale fingerprint cleanup failed", logging.Err(err))
	}

	_, err = api.Insert(ctx, x.client.cfg.Collection, "",
		entity.NewColumnVarChar(fieldStructureKey, keys),
		entity.NewColumnVarChar(fieldName, names),
		entity.NewColumnVarChar(fieldClass, classes),
		entity.NewColumnBinaryVector(fieldFingerprint, x.client.cfg.Dim, vectors),
	)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSearchError, "inserting fingerprints")
	}
	if err := api.Flush(ctx, x.client.cfg.Collection, false); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSearchError, "flushing fingerprint collection")
	}

	x.logger.Info("fingerprints indexed",
		logging.Int("count", len(keys)),
		logging.String("type", string(fpType)))
	return len(keys), nil
}

// Search returns the topK most similar indexed structures to the query
// molecule. topK <= 0 uses the configured default.
func (x *FingerprintIndex) Search(ctx context.Context, query *molecule.Molecule, fpType mtypes.FingerprintType, topK int) ([]Hit, error) {
	api, err := x.client.guard()
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = x.client.cfg.TopK
	}

	fp, err := query.CalculateFingerprint(fpType)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "fingerprinting query molecule")
	}

	sp, err := entity.NewIndexBinIvfFlatSearchParam(searchNProbe)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "building search params")
	}

	results, err := api.Search(ctx, x.client.cfg.Collection, nil, "",
		[]string{fieldStructureKey, fieldName, fieldClass},
		[]entity.Vector{entity.BinaryVector(fp.ToBytes())},
		fieldFingerprint, entity.JACCARD, topK, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchError, "similarity search")
	}

	var hits []Hit
	for _, res := range results {
		keys, err := varCharData(res.Fields.GetColumn(fieldStructureKey))
		if err != nil {
			return nil, err
		}
		names, err := varCharData(res.Fields.GetColumn(fieldName))
		if err != nil {
			return nil, err
		}
		classes, err := varCharData(res.Fields.GetColumn(fieldClass))
		if err != nil {
			return nil, err
		}
		for i := 0; i < res.ResultCount && i < len(keys); i++ {
			sim := 1 - float64(res.Scores[i])
			if sim < 0 {
				sim = 0
			}
			hits = append(hits, Hit{
				StructureKey: keys[i],
				Name:         names[i],
				Class:        classes[i],
				Similarity:   sim,
			})
		}
	}
	return hits, nil
}

func varCharData(col entity.Column) ([]string, error) {
	vc, ok := col.(*entity.ColumnVarChar)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeSearchError, "unexpected column type %T", col)
	}
	return vc.Data(), nil
}

func quoteList(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, ", ")
}
