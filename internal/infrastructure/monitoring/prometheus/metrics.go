package prometheus

import "time"

// Pipeline stage label values.
const (
	StageLoad        = "load"
	StageDescriptors = "descriptors"
	StageAssemble    = "assemble"
	StageSplit       = "split"
	StageTrain       = "train"
	StageEvaluate    = "evaluate"
	StageCluster     = "cluster"
	StagePersist     = "persist"
)

var stageDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}

// PipelineMetrics instruments the screening pipeline.
type PipelineMetrics struct {
	RunsTotal         CounterVec // positive_class, status
	StageDuration     HistogramVec
	MoleculesLoaded   CounterVec // class
	MoleculesDropped  CounterVec // class, reason
	DatasetRows       GaugeVec   // positive_class, partition
	CacheHitsTotal    CounterVec // cache
	CacheMissesTotal  CounterVec // cache
	SimilarityQueries CounterVec // backend
}

// NewPipelineMetrics registers the pipeline metrics on the collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	return &PipelineMetrics{
		RunsTotal: collector.RegisterCounter(
			"runs_total", "Screening runs by positive class and final status",
			"positive_class", "status"),
		StageDuration: collector.RegisterHistogram(
			"stage_duration_seconds", "Pipeline stage wall time",
			stageDurationBuckets, "stage"),
		MoleculesLoaded: collector.RegisterCounter(
			"molecules_loaded_total", "Structures parsed per drug class",
			"class"),
		MoleculesDropped: collector.RegisterCounter(
			"molecules_dropped_total", "Structures dropped per class and reason",
			"class", "reason"),
		DatasetRows: collector.RegisterGauge(
			"dataset_rows", "Rows in the most recent dataset partition",
			"positive_class", "partition"),
		CacheHitsTotal: collector.RegisterCounter(
			"cache_hits_total", "Descriptor cache hits",
			"cache"),
		CacheMissesTotal: collector.RegisterCounter(
			"cache_misses_total", "Descriptor cache misses",
			"cache"),
		SimilarityQueries: collector.RegisterCounter(
			"similarity_queries_total", "Structural similarity queries by backend",
			"backend"),
	}
}

// StageTimer starts a timer for one pipeline stage.
func (m *PipelineMetrics) StageTimer(stage string) *Timer {
	return NewTimer(m.StageDuration.WithLabelValues(stage))
}

// ObserveStage records an already-measured stage duration.
func (m *PipelineMetrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts one finished run.
func (m *PipelineMetrics) RecordRun(positiveClass, status string) {
	m.RunsTotal.WithLabelValues(positiveClass, status).Inc()
}

// RecordCacheAccess counts one descriptor cache lookup.
func (m *PipelineMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}
