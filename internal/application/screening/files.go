package screening

import (
	"context"
	"os"
	"path/filepath"

	"github.com/turtacn/ChemScreen/internal/config"
	"github.com/turtacn/ChemScreen/internal/domain/dataset"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// loadClassRecords reads one class's SDF structure file and CSV metadata
// table from the configured data directory.
func loadClassRecords(cfg *config.Config, class mtypes.Class) ([]*dataset.Record, error) {
	base := cfg.Data.Basename(class)
	if base == "" {
		return nil, errors.Newf(errors.ErrCodeInvalidParam, "no input files configured for class %s", class)
	}
	structPath := filepath.Join(cfg.Data.Dir, base+cfg.Data.StructureExt)
	metaPath := filepath.Join(cfg.Data.Dir, base+cfg.Data.MetadataExt)

	sf, err := os.Open(structPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDatasetLoadFailed, "opening %s", structPath)
	}
	defer sf.Close()

	mf, err := os.Open(metaPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDatasetLoadFailed, "opening %s", metaPath)
	}
	defer mf.Close()

	return dataset.LoadRecords(sf, mf, class)
}

// ExtractClass loads one class and computes its descriptor rows, without a
// cache. It backs inspection tooling; the pipeline itself goes through
// Service.Screen.
func ExtractClass(ctx context.Context, cfg *config.Config, class mtypes.Class,
	logger logging.Logger) ([]*dataset.DescriptorRow, error) {
	records, err := loadClassRecords(cfg, class)
	if err != nil {
		return nil, err
	}
	return NewExtractor(cfg.Pipeline.Workers, nil, logger).Extract(ctx, records)
}
