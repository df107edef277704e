package common

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/turtacn/ChemScreen/pkg/errors"
)

// ---------------------------------------------------------------------------
// TrainingMetrics interface
// ---------------------------------------------------------------------------

// TrainingMetrics records model-layer observations.  Implementations must be
// safe for concurrent use.
type TrainingMetrics interface {
	// RecordTraining observes one completed Fit call.
	RecordTraining(model string, durationMs float64, success bool)

	// RecordEvaluation observes one hold-out evaluation.
	RecordEvaluation(model string, accuracy, auc float64)

	// RecordGridSearch observes one finished hyperparameter search.
	RecordGridSearch(model string, candidates int, bestScore float64)
}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

type prometheusTrainingMetrics struct {
	trainingDuration *prometheus.HistogramVec
	trainingTotal    *prometheus.CounterVec
	evalAccuracy     *prometheus.GaugeVec
	evalAUC          *prometheus.GaugeVec
	gridCandidates   *prometheus.GaugeVec
	gridBestScore    *prometheus.GaugeVec
}

// NewPrometheusTrainingMetrics registers the model-layer collectors with the
// given registerer.
func NewPrometheusTrainingMetrics(reg prometheus.Registerer) (TrainingMetrics, error) {
	m := &prometheusTrainingMetrics{
		trainingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chemscreen",
			Subsystem: "model",
			Name:      "training_duration_ms",
			Help:      "Wall-clock duration of model training in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		}, []string{"model"}),
		trainingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemscreen",
			Subsystem: "model",
			Name:      "training_total",
			Help:      "Number of training runs by model and outcome.",
		}, []string{"model", "outcome"}),
		evalAccuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chemscreen",
			Subsystem: "model",
			Name:      "evaluation_accuracy",
			Help:      "Hold-out accuracy of the most recent evaluation.",
		}, []string{"model"}),
		evalAUC: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chemscreen",
			Subsystem: "model",
			Name:      "evaluation_auc",
			Help:      "Hold-out ROC AUC of the most recent evaluation.",
		}, []string{"model"}),
		gridCandidates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chemscreen",
			Subsystem: "model",
			Name:      "grid_search_candidates",
			Help:      "Number of hyperparameter combinations tried in the last search.",
		}, []string{"model"}),
		gridBestScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chemscreen",
			Subsystem: "model",
			Name:      "grid_search_best_score",
			Help:      "Cross-validation score of the winning combination.",
		}, []string{"model"}),
	}

	for _, c := range []prometheus.Collector{
		m.trainingDuration, m.trainingTotal, m.evalAccuracy, m.evalAUC, m.gridCandidates, m.gridBestScore,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "registering training metrics")
		}
	}
	return m, nil
}

func (m *prometheusTrainingMetrics) RecordTraining(model string, durationMs float64, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.trainingDuration.WithLabelValues(model).Observe(durationMs)
	m.trainingTotal.WithLabelValues(model, outcome).Inc()
}

func (m *prometheusTrainingMetrics) RecordEvaluation(model string, accuracy, auc float64) {
	m.evalAccuracy.WithLabelValues(model).Set(accuracy)
	m.evalAUC.WithLabelValues(model).Set(auc)
}

func (m *prometheusTrainingMetrics) RecordGridSearch(model string, candidates int, bestScore float64) {
	m.gridCandidates.WithLabelValues(model).Set(float64(candidates))
	m.gridBestScore.WithLabelValues(model).Set(bestScore)
}

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopTrainingMetrics struct{}

// NewNoopTrainingMetrics returns a metrics sink that discards everything.
func NewNoopTrainingMetrics() TrainingMetrics { return noopTrainingMetrics{} }

func (noopTrainingMetrics) RecordTraining(string, float64, bool)   {}
func (noopTrainingMetrics) RecordEvaluation(string, float64, float64) {}
func (noopTrainingMetrics) RecordGridSearch(string, int, float64)  {}

// ---------------------------------------------------------------------------
// In-memory implementation (tests)
// ---------------------------------------------------------------------------

// TrainingObservation is one recorded Fit call.
type TrainingObservation struct {
	Model      string
	DurationMs float64
	Success    bool
}

// EvaluationObservation is one recorded evaluation.
type EvaluationObservation struct {
	Model    string
	Accuracy float64
	AUC      float64
}

// InMemoryTrainingMetrics captures observations for assertions in tests.
type InMemoryTrainingMetrics struct {
	mu          sync.Mutex
	Trainings   []TrainingObservation
	Evaluations []EvaluationObservation
	GridRuns    int
}

// NewInMemoryTrainingMetrics returns an empty recorder.
func NewInMemoryTrainingMetrics() *InMemoryTrainingMetrics { return &InMemoryTrainingMetrics{} }

func (m *InMemoryTrainingMetrics) RecordTraining(model string, durationMs float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trainings = append(m.Trainings, TrainingObservation{Model: model, DurationMs: durationMs, Success: success})
}

func (m *InMemoryTrainingMetrics) RecordEvaluation(model string, accuracy, auc float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Evaluations = append(m.Evaluations, EvaluationObservation{Model: model, Accuracy: accuracy, AUC: auc})
}

func (m *InMemoryTrainingMetrics) RecordGridSearch(string, int, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GridRuns++
}
