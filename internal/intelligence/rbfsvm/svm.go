package rbfsvm

import (
	"context"
	"math"
	"time"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// ModelName identifies the SVM in reports and metrics.
const ModelName = "rbf_svm"

// Config holds the SVM hyperparameters.
type Config struct {
	// C is the soft-margin penalty.
	C float64 `mapstructure:"c" json:"c"`

	// Gamma is the RBF kernel width; zero selects 1 / feature count.
	Gamma float64 `mapstructure:"gamma" json:"gamma"`

	// Tol is the KKT violation tolerance.
	Tol float64 `mapstructure:"tol" json:"tol"`

	// MaxPasses is the number of sweeps without an update before the solver
	// stops.
	MaxPasses int `mapstructure:"max_passes" json:"max_passes"`

	// Seed drives the solver's partner selection.
	Seed int64 `mapstructure:"seed" json:"seed"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.C == 0 {
		c.C = 1
	}
	if c.Tol == 0 {
		c.Tol = 1e-3
	}
	if c.MaxPasses == 0 {
		c.MaxPasses = 5
	}
}

// Validate rejects unusable configurations.
func (c *Config) Validate() error {
	if c.C <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParam, "C must be positive, got %v", c.C)
	}
	if c.Gamma < 0 {
		return errors.Newf(errors.ErrCodeInvalidParam, "gamma must be non-negative, got %v", c.Gamma)
	}
	if c.Tol <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParam, "tol must be positive, got %v", c.Tol)
	}
	if c.MaxPasses < 1 {
		return errors.Newf(errors.ErrCodeInvalidParam, "max_passes must be positive, got %d", c.MaxPasses)
	}
	return nil
}

// SVM is an RBF-kernel support vector machine implementing common.Classifier.
// Features are standardised internally; callers pass raw descriptor vectors.
type SVM struct {
	cfg     Config
	logger  logging.Logger
	metrics common.TrainingMetrics

	scaler  common.StandardScaler
	gamma   float64
	vectors [][]float64
	coefs   []float64
	b       float64
	width   int
}

// New builds an untrained SVM.  Logger and metrics may be nil.
func New(cfg Config, logger logging.Logger, metrics common.TrainingMetrics) (*SVM, error) {
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
	return &SVM{cfg: cfg, logger: logger.Named(ModelName), metrics: metrics}, nil
}

// Name implements common.Classifier.
func (s *SVM) Name() string { return ModelName }

// Fit standardises the features and solves the dual problem.  LabelPositive
// maps to +1.
func (s *SVM) Fit(ctx context.Context, ts *common.TrainingSet) error {
	started := time.Now()
	if err := s.fit(ctx, ts); err != nil {
		s.metrics.RecordTraining(ModelName, float64(time.Since(started).Milliseconds()), false)
		return err
	}
	s.metrics.RecordTraining(ModelName, float64(time.Since(started).Milliseconds()), true)
	return nil
}

func (s *SVM) fit(ctx context.Context, ts *common.TrainingSet) error {
	if ts == nil || ts.Len() < 2 {
		return errors.New(errors.ErrCodeModelFitFailed, "training set needs at least two rows")
	}
	y := make([]float64, ts.Len())
	for i, label := range ts.Y {
		switch label {
		case common.LabelPositive:
			y[i] = 1
		case common.LabelOther:
			y[i] = -1
		default:
			return errors.Newf(errors.ErrCodeModelFitFailed, "row %d has label %d outside {0, 1}", i, label)
		}
	}

	scaled, err := s.scaler.FitTransform(ts.X)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeModelFitFailed, "scaling features")
	}

	gamma := s.cfg.Gamma
	if gamma == 0 {
		gamma = 1 / float64(ts.Width())
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeModelFitFailed, "training cancelled")
	}

	k := kernelMatrix(scaled, gamma)
	res := solveSMO(k, y, smoParams{
		c:         s.cfg.C,
		tol:       s.cfg.Tol,
		maxPasses: s.cfg.MaxPasses,
		seed:      s.cfg.Seed,
	})

	// Keep only the support vectors.
	var vectors [][]float64
	var coefs []float64
	for i, a := range res.alphas {
		if a > 0 {
			vectors = append(vectors, scaled[i])
			coefs = append(coefs, a*y[i])
		}
	}
	if len(vectors) == 0 {
		return errors.New(errors.ErrCodeModelFitFailed, "solver produced no support vectors")
	}

	s.gamma = gamma
	s.vectors = vectors
	s.coefs = coefs
	s.b = res.b
	s.width = ts.Width()

	s.logger.Info("svm trained",
		logging.Int("rows", ts.Len()),
		logging.Int("support_vectors", len(vectors)),
		logging.Float64("c", s.cfg.C),
		logging.Float64("gamma", gamma))
	return nil
}

// decision returns the raw kernel expansion value; positive values favour
// LabelPositive.
func (s *SVM) decision(x []float64) (float64, error) {
	if len(s.vectors) == 0 {
		return 0, errors.New(errors.ErrCodeModelNotFitted, "svm has not been fitted")
	}
	if len(x) != s.width {
		return 0, errors.Newf(errors.ErrCodeModelDimMismatch,
			"vector has %d features, model fitted on %d", len(x), s.width)
	}
	scaled, err := s.scaler.TransformRow(x)
	if err != nil {
		return 0, err
	}
	sum := s.b
	for i, sv := range s.vectors {
		sum += s.coefs[i] * rbfKernel(sv, scaled, s.gamma)
	}
	return sum, nil
}

// Score maps the decision value through the logistic function, yielding a
// probability-like value in (0, 1). Values above 0.5 favour LabelPositive.
func (s *SVM) Score(x []float64) (float64, error) {
	d, err := s.decision(x)
	if err != nil {
		return 0, err
	}
	return 1 / (1 + math.Exp(-d)), nil
}

// Predict returns LabelPositive for non-negative decision values.
func (s *SVM) Predict(x []float64) (int, error) {
	d, err := s.decision(x)
	if err != nil {
		return 0, err
	}
	if d >= 0 {
		return common.LabelPositive, nil
	}
	return common.LabelOther, nil
}

// SupportVectorCount reports the size of the trained model.
func (s *SVM) SupportVectorCount() int { return len(s.vectors) }
