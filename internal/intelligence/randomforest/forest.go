package randomforest

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// ModelName identifies the forest in reports and metrics.
const ModelName = "random_forest"

// Config controls ensemble growth.
type Config struct {
	// NumTrees is the ensemble size.
	NumTrees int `mapstructure:"num_trees" json:"num_trees"`

	// MaxDepth bounds each tree's depth.
	MaxDepth int `mapstructure:"max_depth" json:"max_depth"`

	// MinSamplesLeaf is the smallest admissible leaf.
	MinSamplesLeaf int `mapstructure:"min_samples_leaf" json:"min_samples_leaf"`

	// FeaturesPerSplit is the number of candidate features per split; zero
	// selects the square root of the feature count.
	FeaturesPerSplit int `mapstructure:"features_per_split" json:"features_per_split"`

	// Seed drives bootstrap sampling and feature selection.
	Seed int64 `mapstructure:"seed" json:"seed"`

	// Workers bounds tree-growing concurrency; zero uses the CPU count.
	Workers int `mapstructure:"workers" json:"workers"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.NumTrees == 0 {
		c.NumTrees = 200
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = 16
	}
	if c.MinSamplesLeaf == 0 {
		c.MinSamplesLeaf = 1
	}
}

// Validate rejects unusable configurations.
func (c *Config) Validate() error {
	if c.NumTrees < 1 {
		return errors.Newf(errors.ErrCodeInvalidParam, "num_trees must be positive, got %d", c.NumTrees)
	}
	if c.MaxDepth < 1 {
		return errors.Newf(errors.ErrCodeInvalidParam, "max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.MinSamplesLeaf < 1 {
		return errors.Newf(errors.ErrCodeInvalidParam, "min_samples_leaf must be positive, got %d", c.MinSamplesLeaf)
	}
	if c.FeaturesPerSplit < 0 {
		return errors.Newf(errors.ErrCodeInvalidParam, "features_per_split must be non-negative, got %d", c.FeaturesPerSplit)
	}
	return nil
}

// Forest is a bagged ensemble of CART trees implementing common.Classifier.
type Forest struct {
	cfg     Config
	logger  logging.Logger
	metrics common.TrainingMetrics

	trees []*tree
	width int
}

// New builds an untrained forest.  Logger and metrics may be nil.
func New(cfg Config, logger logging.Logger, metrics common.TrainingMetrics) (*Forest, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = common.NewNoopTrainingMetrics()
	}
	return &Forest{cfg: cfg, logger: logger.Named(ModelName), metrics: metrics}, nil
}

// Name implements common.Classifier.
func (f *Forest) Name() string { return ModelName }

// Fit grows the ensemble.  Each tree draws a bootstrap sample of the rows
// with a per-tree seed derived from the configured seed, so training is
// deterministic for a fixed configuration.
func (f *Forest) Fit(ctx context.Context, ts *common.TrainingSet) error {
	started := time.Now()
	if err := f.fit(ctx, ts); err != nil {
		f.metrics.RecordTraining(ModelName, float64(time.Since(started).Milliseconds()), false)
		return err
	}
	f.metrics.RecordTraining(ModelName, float64(time.Since(started).Milliseconds()), true)
	return nil
}

func (f *Forest) fit(ctx context.Context, ts *common.TrainingSet) error {
	if ts == nil || ts.Len() == 0 {
		return errors.New(errors.ErrCodeModelFitFailed, "empty training set")
	}
	for i, label := range ts.Y {
		if label != common.LabelPositive && label != common.LabelOther {
			return errors.Newf(errors.ErrCodeModelFitFailed, "row %d has label %d outside {0, 1}", i, label)
		}
	}

	width := ts.Width()
	featuresPer := f.cfg.FeaturesPerSplit
	if featuresPer == 0 {
		featuresPer = int(math.Max(1, math.Round(math.Sqrt(float64(width)))))
	}
	if featuresPer > width {
		featuresPer = width
	}
	params := treeParams{
		maxDepth:       f.cfg.MaxDepth,
		minSamplesLeaf: f.cfg.MinSamplesLeaf,
		featuresPer:    featuresPer,
	}

	seeds := make([]int64, f.cfg.NumTrees)
	seedRng := rand.New(rand.NewSource(f.cfg.Seed))
	for i := range seeds {
		seeds[i] = seedRng.Int63()
	}

	results, err := common.Map(ctx, seeds, f.cfg.Workers, func(_ context.Context, seed int64) (*tree, error) {
		rng := rand.New(rand.NewSource(seed))
		idx := make([]int, ts.Len())
		for i := range idx {
			idx[i] = rng.Intn(ts.Len())
		}
		return growTree(ts.X, ts.Y, idx, params, rng), nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeModelFitFailed, "growing trees")
	}

	trees := make([]*tree, len(results))
	for i, r := range results {
		trees[i] = r.Value
	}
	f.trees = trees
	f.width = width

	f.logger.Info("random forest trained",
		logging.Int("trees", len(trees)),
		logging.Int("rows", ts.Len()),
		logging.Int("features", width),
		logging.Int("features_per_split", featuresPer))
	return nil
}

// Score returns the mean positive-class leaf fraction across the ensemble.
func (f *Forest) Score(x []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, errors.New(errors.ErrCodeModelNotFitted, "forest has not been fitted")
	}
	if len(x) != f.width {
		return 0, errors.Newf(errors.ErrCodeModelDimMismatch,
			"vector has %d features, model fitted on %d", len(x), f.width)
	}
	sum := 0.0
	for _, t := range f.trees {
		sum += t.predictProba(x)
	}
	return sum / float64(len(f.trees)), nil
}

// Predict returns LabelPositive when the ensemble's positive probability
// reaches one half.
func (f *Forest) Predict(x []float64) (int, error) {
	p, err := f.Score(x)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return common.LabelPositive, nil
	}
	return common.LabelOther, nil
}
