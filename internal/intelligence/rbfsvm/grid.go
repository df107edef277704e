package rbfsvm

import (
	"context"
	"time"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// GridConfig describes the hyperparameter search.
type GridConfig struct {
	// Cs and Gammas are the candidate values; their cross product is tried.
	Cs     []float64 `mapstructure:"cs" json:"cs"`
	Gammas []float64 `mapstructure:"gammas" json:"gammas"`

	// Folds is the cross-validation fold count.
	Folds int `mapstructure:"folds" json:"folds"`

	// Seed drives fold assignment and each candidate's solver.
	Seed int64 `mapstructure:"seed" json:"seed"`

	// Base carries the non-searched solver settings.
	Base Config `mapstructure:"base" json:"base"`
}

// ApplyDefaults fills unset fields with the conventional coarse grid.
func (c *GridConfig) ApplyDefaults() {
	if len(c.Cs) == 0 {
		c.Cs = []float64{0.1, 1, 10}
	}
	if len(c.Gammas) == 0 {
		c.Gammas = []float64{0.01, 0.1, 1}
	}
	if c.Folds == 0 {
		c.Folds = 5
	}
	c.Base.ApplyDefaults()
}

// GridResult is the outcome of one search.
type GridResult struct {
	Best       Config  `json:"best"`
	BestScore  float64 `json:"best_score"`
	Candidates int     `json:"candidates"`
	Model      *SVM    `json:"-"`
}

// GridSearch tries every (C, gamma) combination with k-fold cross-validation
// on the training set, scores each by mean fold accuracy, and refits the
// winner on the full set.
func GridSearch(ctx context.Context, cfg GridConfig, ts *common.TrainingSet,
	logger logging.Logger, metrics common.TrainingMetrics) (*GridResult, error) {

	cfg.ApplyDefaults()
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = common.NewNoopTrainingMetrics()
	}
	logger = logger.Named("grid_search")

	folds, err := common.KFold(ts.Len(), cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGridSearchExhausted, "building folds")
	}

	started := time.Now()
	result := &GridResult{BestScore: -1}
	for _, c := range cfg.Cs {
		for _, gamma := range cfg.Gammas {
			candidate := cfg.Base
			candidate.C = c
			candidate.Gamma = gamma
			candidate.Seed = cfg.Seed
			result.Candidates++

			score, err := crossValidate(ctx, candidate, ts, folds)
			if err != nil {
				logger.Warn("candidate failed",
					logging.Float64("c", c),
					logging.Float64("gamma", gamma),
					logging.Err(err))
				continue
			}
			logger.Debug("candidate scored",
				logging.Float64("c", c),
				logging.Float64("gamma", gamma),
				logging.Float64("cv_accuracy", score))

			if score > result.BestScore {
				result.BestScore = score
				result.Best = candidate
			}
		}
	}

	if result.BestScore < 0 {
		return nil, errors.New(errors.ErrCodeGridSearchExhausted,
			"no hyperparameter combination produced a usable model")
	}

	model, err := New(result.Best, logger, metrics)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(ctx, ts); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelFitFailed, "refitting winning candidate")
	}
	result.Model = model

	metrics.RecordGridSearch(ModelName, result.Candidates, result.BestScore)
	logger.Info("grid search finished",
		logging.Int("candidates", result.Candidates),
		logging.Float64("best_c", result.Best.C),
		logging.Float64("best_gamma", result.Best.Gamma),
		logging.Float64("best_cv_accuracy", result.BestScore),
		logging.Duration("elapsed", time.Since(started)))
	return result, nil
}

// crossValidate returns the mean hold-out accuracy across the folds.
func crossValidate(ctx context.Context, cfg Config, ts *common.TrainingSet, folds []common.Fold) (float64, error) {
	total := 0.0
	for _, fold := range folds {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		model, err := New(cfg, nil, nil)
		if err != nil {
			return 0, err
		}
		if err := model.Fit(ctx, ts.Subset(fold.Train)); err != nil {
			return 0, err
		}

		correct := 0
		for _, idx := range fold.Test {
			pred, err := model.Predict(ts.X[idx])
			if err != nil {
				return 0, err
			}
			if pred == ts.Y[idx] {
				correct++
			}
		}
		total += float64(correct) / float64(len(fold.Test))
	}
	return total / float64(len(folds)), nil
}
