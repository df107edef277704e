package screening

import (
	"context"

	"github.com/turtacn/ChemScreen/internal/config"
	"github.com/turtacn/ChemScreen/internal/domain/dataset"
	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemScreen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemScreen/internal/infrastructure/storage/minio"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/internal/intelligence/randomforest"
	"github.com/turtacn/ChemScreen/internal/intelligence/rbfsvm"
	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// EventPublisher publishes run lifecycle events. The Kafka producer
// satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, eventType kafka.EventType, rn *run.Run) error
}

// RunGuard serialises screening runs over a shared data directory. The
// Redis run lock satisfies it.
type RunGuard interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// ArtifactSink persists run outputs. The MinIO store satisfies it.
type ArtifactSink interface {
	SaveReport(ctx context.Context, runID string, report *common.Report) (string, error)
	SaveROC(ctx context.Context, runID, model string, points []common.ROCPoint) (string, error)
}

// Deps carries the service's collaborators. Every field may be nil; a nil
// dependency disables that concern and a nil Logger falls back to a nop.
type Deps struct {
	Logger    logging.Logger
	Cache     DescriptorSource
	Guard     RunGuard
	Runs      run.Repository
	Events    EventPublisher
	Artifacts ArtifactSink
	Metrics   *prometheus.PipelineMetrics
	Training  common.TrainingMetrics
}

// Service runs positive-vs-other screening pipelines.
type Service struct {
	cfg       *config.Config
	logger    logging.Logger
	extractor *Extractor
	assembler *dataset.Assembler
	splitter  *dataset.Splitter

	guard     RunGuard
	runs      run.Repository
	events    EventPublisher
	artifacts ArtifactSink
	metrics   *prometheus.PipelineMetrics
	training  common.TrainingMetrics
}

// NewService wires the pipeline from configuration.
func NewService(cfg *config.Config, deps Deps) (*Service, error) {
	if cfg == nil {
		return nil, errors.InvalidParam("config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("screening")

	splitter, err := cfg.SplitterFromConfig()
	if err != nil {
		return nil, err
	}
	training := deps.Training
	if training == nil {
		training = common.NewNoopTrainingMetrics()
	}

	return &Service{
		cfg:       cfg,
		logger:    logger,
		extractor: NewExtractor(cfg.Pipeline.Workers, deps.Cache, logger),
		assembler: dataset.NewAssembler(logger),
		splitter:  splitter,
		guard:     deps.Guard,
		runs:      deps.Runs,
		events:    deps.Events,
		artifacts: deps.Artifacts,
		metrics:   deps.Metrics,
		training:  training,
	}, nil
}

// Screen executes one full screening run: positive class against the
// reference class, through descriptor extraction, assembly, the seeded
// split, both models, and hold-out evaluation. The returned Run carries
// the evaluation reports; on failure it carries the error and failed
// status, alongside the error itself.
func (s *Service) Screen(ctx context.Context, positive mtypes.Class) (*run.Run, error) {
	rn, err := run.NewRun(positive, s.cfg.Pipeline.Seed)
	if err != nil {
		return nil, err
	}

	if s.guard != nil {
		if err := s.guard.Acquire(ctx); err != nil {
			return nil, err
		}
		defer func() {
			if err := s.guard.Release(ctx); err != nil {
				s.logger.Warn("run lock not released", logging.Err(err))
			}
		}()
	}

	s.createRun(ctx, rn)
	s.publish(ctx, kafka.EventRunStarted, rn)
	s.logger.Info("screening run started",
		logging.String("run_id", rn.ID.String()),
		logging.String("positive", positive.String()),
		logging.Int64("seed", rn.Seed))

	if err := s.execute(ctx, rn); err != nil {
		rn.Fail(err)
		s.updateRun(ctx, rn)
		s.publish(ctx, kafka.EventRunFailed, rn)
		if s.metrics != nil {
			s.metrics.RecordRun(positive.String(), string(run.StatusFailed))
		}
		return rn, err
	}

	rn.Complete()
	s.updateRun(ctx, rn)
	s.publish(ctx, kafka.EventRunCompleted, rn)
	if s.metrics != nil {
		s.metrics.RecordRun(positive.String(), string(run.StatusCompleted))
	}
	s.logger.Info("screening run completed",
		logging.String("run_id", rn.ID.String()),
		logging.Duration("duration", rn.Duration()))
	return rn, nil
}

func (s *Service) execute(ctx context.Context, rn *run.Run) error {
	ds, err := s.buildDataset(ctx, rn.Positive)
	if err != nil {
		return err
	}
	rn.TotalRows = ds.Frame.Len()
	rn.DroppedRows = ds.Dropped

	split, err := s.split(ds)
	if err != nil {
		return err
	}
	rn.TrainRows = split.Train.Len()
	rn.ValidationRows = split.Validation.Len()

	// The forest sees the whole descriptor panel; the SVM trains on the
	// curated feature formula.
	models := []struct {
		cols  []string
		train func(context.Context, *common.TrainingSet) (common.Classifier, error)
	}{
		{s.forestColumns(), s.trainForest},
		{s.svmColumns(), s.trainSVM},
	}

	rn.Reports = make(map[string]*common.Report, len(models))
	for _, m := range models {
		trainSet, err := trainingSet(split.Train, m.cols)
		if err != nil {
			return err
		}
		model, err := m.train(ctx, trainSet)
		if err != nil {
			return err
		}
		report, err := s.evaluate(model, split.Validation, m.cols)
		if err != nil {
			return err
		}
		rn.Reports[report.Model] = report
	}

	s.storeArtifacts(ctx, rn)
	return nil
}

// buildDataset loads both classes, extracts descriptors, and assembles the
// binary frame.
func (s *Service) buildDataset(ctx context.Context, positive mtypes.Class) (*dataset.Dataset, error) {
	var loadTimer *prometheus.Timer
	if s.metrics != nil {
		loadTimer = s.metrics.StageTimer(prometheus.StageLoad)
	}
	posRecords, err := s.loadClass(positive)
	if err != nil {
		return nil, err
	}
	otherRecords, err := s.loadClass(mtypes.ClassOther)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		loadTimer.ObserveDuration()
		s.metrics.MoleculesLoaded.WithLabelValues(positive.String()).Add(float64(len(posRecords)))
		s.metrics.MoleculesLoaded.WithLabelValues(mtypes.ClassOther.String()).Add(float64(len(otherRecords)))
	}

	var extractTimer *prometheus.Timer
	if s.metrics != nil {
		extractTimer = s.metrics.StageTimer(prometheus.StageDescriptors)
	}
	posRows, err := s.extractor.Extract(ctx, posRecords)
	if err != nil {
		return nil, err
	}
	otherRows, err := s.extractor.Extract(ctx, otherRecords)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		extractTimer.ObserveDuration()
	}

	ds, err := s.assembler.Assemble(positive, posRows, otherRows)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil && ds.Dropped > 0 {
		s.metrics.MoleculesDropped.WithLabelValues(positive.String(), "missing_descriptors").
			Add(float64(ds.Dropped))
	}
	return ds, nil
}

func (s *Service) split(ds *dataset.Dataset) (*dataset.Split, error) {
	split, err := s.splitter.Split(ds.Frame)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DatasetRows.WithLabelValues(ds.Positive.String(), "train").
			Set(float64(split.Train.Len()))
		s.metrics.DatasetRows.WithLabelValues(ds.Positive.String(), "validation").
			Set(float64(split.Validation.Len()))
	}
	return split, nil
}

// forestColumns is the forest's feature space: the full descriptor panel.
func (s *Service) forestColumns() []string {
	return molecule.DescriptorColumns
}

// svmColumns is the SVM's feature formula, overridable from configuration.
func (s *Service) svmColumns() []string {
	if len(s.cfg.Pipeline.FeatureColumns) > 0 {
		return s.cfg.Pipeline.FeatureColumns
	}
	return molecule.DefaultFeatureFormula
}

func (s *Service) trainForest(ctx context.Context, ts *common.TrainingSet) (common.Classifier, error) {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = s.metrics.StageTimer(prometheus.StageTrain)
		defer timer.ObserveDuration()
	}
	forest, err := randomforest.New(s.cfg.Models.RandomForest, s.logger, s.training)
	if err != nil {
		return nil, err
	}
	if err := forest.Fit(ctx, ts); err != nil {
		return nil, err
	}
	return forest, nil
}

func (s *Service) trainSVM(ctx context.Context, ts *common.TrainingSet) (common.Classifier, error) {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = s.metrics.StageTimer(prometheus.StageTrain)
		defer timer.ObserveDuration()
	}
	result, err := rbfsvm.GridSearch(ctx, s.cfg.Models.SVMGrid, ts, s.logger, s.training)
	if err != nil {
		return nil, err
	}
	s.logger.Info("grid search selected parameters",
		logging.Float64("c", result.Best.C),
		logging.Float64("gamma", result.Best.Gamma),
		logging.Float64("cv_accuracy", result.BestScore))
	return result.Model, nil
}

// evaluate scores the model on the hold-out frame.
func (s *Service) evaluate(model common.Classifier, holdout *dataset.Frame, cols []string) (*common.Report, error) {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = s.metrics.StageTimer(prometheus.StageEvaluate)
		defer timer.ObserveDuration()
	}

	x := holdout.Matrix(cols)
	truth := labels(holdout)
	predicted := make([]int, len(x))
	scores := make([]float64, len(x))
	for i, row := range x {
		p, err := model.Predict(row)
		if err != nil {
			return nil, err
		}
		score, err := model.Score(row)
		if err != nil {
			return nil, err
		}
		predicted[i] = p
		scores[i] = score
	}

	report, err := common.Evaluate(model.Name(), truth, predicted, scores)
	if err != nil {
		return nil, err
	}
	s.training.RecordEvaluation(report.Model, report.Accuracy, report.AUC)
	s.logger.Info("model evaluated",
		logging.String("model", report.Model),
		logging.Float64("accuracy", report.Accuracy),
		logging.Float64("auc", report.AUC))
	return report, nil
}

func (s *Service) storeArtifacts(ctx context.Context, rn *run.Run) {
	if s.artifacts == nil {
		return
	}
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = s.metrics.StageTimer(prometheus.StagePersist)
		defer timer.ObserveDuration()
	}
	for _, report := range rn.Reports {
		if _, err := s.artifacts.SaveReport(ctx, rn.ID.String(), report); err != nil {
			s.logger.Warn("report artifact not stored",
				logging.String("model", report.Model), logging.Err(err))
		}
		if _, err := s.artifacts.SaveROC(ctx, rn.ID.String(), report.Model, report.ROC); err != nil {
			s.logger.Warn("roc artifact not stored",
				logging.String("model", report.Model), logging.Err(err))
		}
	}
}

func (s *Service) loadClass(class mtypes.Class) ([]*dataset.Record, error) {
	return loadClassRecords(s.cfg, class)
}

func (s *Service) createRun(ctx context.Context, rn *run.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Create(ctx, rn); err != nil {
		s.logger.Warn("run not persisted", logging.String("run_id", rn.ID.String()), logging.Err(err))
	}
}

func (s *Service) updateRun(ctx context.Context, rn *run.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Update(ctx, rn); err != nil {
		s.logger.Warn("run update not persisted", logging.String("run_id", rn.ID.String()), logging.Err(err))
	}
}

func (s *Service) publish(ctx context.Context, eventType kafka.EventType, rn *run.Run) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, rn); err != nil {
		s.logger.Warn("run event not published",
			logging.String("type", string(eventType)), logging.Err(err))
	}
}

// trainingSet converts a frame into the intelligence layer's matrix form.
func trainingSet(frame *dataset.Frame, cols []string) (*common.TrainingSet, error) {
	return common.NewTrainingSet(frame.Matrix(cols), labels(frame), cols)
}

// labels maps binary targets onto the intelligence layer's label ints.
func labels(frame *dataset.Frame) []int {
	out := make([]int, frame.Len())
	for i, t := range frame.Targets() {
		if t == mtypes.TargetPositive {
			out[i] = common.LabelPositive
		} else {
			out[i] = common.LabelOther
		}
	}
	return out
}

var _ ArtifactSink = (*minio.ArtifactStore)(nil)
var _ NewickSink = (*minio.ArtifactStore)(nil)
var _ EventPublisher = (*kafka.Producer)(nil)
var _ RunGuard = (*redis.RunLock)(nil)
