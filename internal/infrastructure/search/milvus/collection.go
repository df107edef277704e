package milvus

import (
	"context"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// Field names of the fingerprint collection.
const (
	fieldID           = "id"
	fieldStructureKey = "structure_key"
	fieldName         = "name"
	fieldClass        = "class"
	fieldFingerprint  = "fingerprint"
)

const indexNList = 128

// EnsureCollection creates the fingerprint collection, its binary index
// and loads it into memory. Safe to call on every startup.
func (c *Client) EnsureCollection(ctx context.Context) error {
	api, err := c.guard()
	if err != nil {
		return err
	}

	exists, err := api.HasCollection(ctx, c.cfg.Collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "checking fingerprint collection")
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(c.cfg.Collection).
			WithDescription("molecular fingerprints for structural similarity search").
			WithField(entity.NewField().
				WithName(fieldID).
				WithDataType(entity.FieldTypeInt64).
				WithIsPrimaryKey(true).
				WithIsAutoID(true)).
			WithField(entity.NewField().
				WithName(fieldStructureKey).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(128)).
			WithField(entity.NewField().
				WithName(fieldName).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(256)).
			WithField(entity.NewField().
				WithName(fieldClass).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(32)).
			WithField(entity.NewField().
				WithName(fieldFingerprint).
				WithDataType(entity.FieldTypeBinaryVector).
				WithDim(int64(c.cfg.Dim)))

		if err := api.CreateCollection(ctx, schema, 1); err != nil {
			return errors.Wrap(err, errors.ErrCodeSearchError, "creating fingerprint collection")
		}

		// JACCARD distance over binary vectors is 1 - Tanimoto similarity.
		idx, err := entity.NewIndexBinIvfFlat(entity.JACCARD, indexNList)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSearchError, "building fingerprint index definition")
		}
		if err := api.CreateIndex(ctx, c.cfg.Collection, fieldFingerprint, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeSearchError, "creating fingerprint index")
		}

		c.logger.Info("fingerprint collection created",
			logging.String("collection", c.cfg.Collection),
			logging.Int("dim", c.cfg.Dim))
	}

	if err := api.LoadCollection(ctx, c.cfg.Collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "loading fingerprint collection")
	}
	return nil
}
