package screening

import (
	"context"

	"github.com/samber/lo"

	"github.com/turtacn/ChemScreen/internal/config"
	"github.com/turtacn/ChemScreen/internal/domain/dataset"
	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemScreen/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemScreen/internal/intelligence/hcluster"
	"github.com/turtacn/ChemScreen/pkg/errors"
	ctypes "github.com/turtacn/ChemScreen/pkg/types/common"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// NeighborSearcher answers top-K structure similarity queries against an
// external index. The Milvus adapter satisfies it.
type NeighborSearcher interface {
	Index(ctx context.Context, mols []*molecule.Molecule, fpType mtypes.FingerprintType) (int, error)
	Search(ctx context.Context, query *molecule.Molecule, fpType mtypes.FingerprintType, topK int) ([]milvus.Hit, error)
}

// NewickSink persists rendered dendrograms. The MinIO artifact store
// satisfies it.
type NewickSink interface {
	SaveNewick(ctx context.Context, runID, newick string) (string, error)
}

// ClusterResult is the outcome of the similarity diagnostic: the pairwise
// matrix, the dendrogram, and its Newick rendering. ArtifactKey is the
// stored object's key when a sink is configured.
type ClusterResult struct {
	Matrix      *molecule.SimilarityMatrix
	Tree        *hcluster.Node
	Newick      string
	ArtifactKey string
}

// SimilarityService computes pairwise structural similarity and the
// hierarchical clustering diagnostic.
type SimilarityService struct {
	cfg      *config.Config
	logger   logging.Logger
	searcher NeighborSearcher
	sink     NewickSink
	metrics  *prometheus.PipelineMetrics
}

// NewSimilarityService wires the diagnostic from configuration. searcher,
// sink, and metrics may be nil.
func NewSimilarityService(cfg *config.Config, searcher NeighborSearcher, sink NewickSink,
	metrics *prometheus.PipelineMetrics, logger logging.Logger) (*SimilarityService, error) {
	if cfg == nil {
		return nil, errors.InvalidParam("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SimilarityService{
		cfg:      cfg,
		logger:   logger.Named("similarity"),
		searcher: searcher,
		sink:     sink,
		metrics:  metrics,
	}, nil
}

func (s *SimilarityService) fingerprintType() (mtypes.FingerprintType, error) {
	return mtypes.ParseFingerprintType(s.cfg.Similarity.Fingerprint)
}

func (s *SimilarityService) metric() (molecule.SimilarityMetric, error) {
	return molecule.ParseSimilarityMetric(s.cfg.Similarity.Metric)
}

// Analyze computes the full pairwise matrix over mols and clusters it with
// average linkage on similarity distance (1 - similarity).
func (s *SimilarityService) Analyze(ctx context.Context, mols []*molecule.Molecule) (*ClusterResult, error) {
	if len(mols) < 2 {
		return nil, errors.New(errors.ErrCodeDatasetEmptyFrame, "at least two molecules are required")
	}

	fpType, err := s.fingerprintType()
	if err != nil {
		return nil, err
	}
	metric, err := s.metric()
	if err != nil {
		return nil, err
	}

	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = s.metrics.StageTimer(prometheus.StageCluster)
		defer timer.ObserveDuration()
	}

	matrix, err := molecule.PairwiseSimilarity(mols, fpType, metric)
	if err != nil {
		return nil, err
	}

	dist := make([][]float64, len(matrix.Scores))
	for i, row := range matrix.Scores {
		dist[i] = lo.Map(row, func(sim float64, _ int) float64 { return 1 - sim })
	}

	tree, err := hcluster.Cluster(matrix.Labels, dist)
	if err != nil {
		return nil, err
	}

	result := &ClusterResult{Matrix: matrix, Tree: tree, Newick: hcluster.Newick(tree)}
	if s.sink != nil {
		key, err := s.sink.SaveNewick(ctx, ctypes.NewID().String(), result.Newick)
		if err != nil {
			s.logger.Warn("newick artifact not stored", logging.Err(err))
		} else {
			result.ArtifactKey = key
		}
	}

	s.logger.Info("similarity diagnostic computed",
		logging.Int("molecules", len(mols)),
		logging.String("fingerprint", string(fpType)),
		logging.String("metric", string(metric)))
	return result, nil
}

// AnalyzeClasses loads the named classes from the configured data directory
// and runs the diagnostic over their union.
func (s *SimilarityService) AnalyzeClasses(ctx context.Context, classes ...mtypes.Class) (*ClusterResult, error) {
	if len(classes) == 0 {
		classes = []mtypes.Class{mtypes.ClassAntibacterial, mtypes.ClassAntiviral, mtypes.ClassOther}
	}

	var mols []*molecule.Molecule
	for _, class := range classes {
		records, err := s.loadClass(class)
		if err != nil {
			return nil, err
		}
		mols = append(mols, lo.Map(records,
			func(r *dataset.Record, _ int) *molecule.Molecule { return r.Molecule })...)
	}
	return s.Analyze(ctx, mols)
}

// IndexClasses pushes the named classes' fingerprints into the external
// index. Requires a configured searcher.
func (s *SimilarityService) IndexClasses(ctx context.Context, classes ...mtypes.Class) (int, error) {
	if s.searcher == nil {
		return 0, errors.New(errors.ErrCodeSearchError, "no fingerprint index configured")
	}
	if len(classes) == 0 {
		classes = []mtypes.Class{mtypes.ClassAntibacterial, mtypes.ClassAntiviral, mtypes.ClassOther}
	}
	fpType, err := s.fingerprintType()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, class := range classes {
		records, err := s.loadClass(class)
		if err != nil {
			return total, err
		}
		mols := lo.Map(records, func(r *dataset.Record, _ int) *molecule.Molecule { return r.Molecule })
		n, err := s.searcher.Index(ctx, mols, fpType)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Neighbors queries the external index for the topK structures most similar
// to the query molecule.
func (s *SimilarityService) Neighbors(ctx context.Context, query *molecule.Molecule, topK int) ([]milvus.Hit, error) {
	if s.searcher == nil {
		return nil, errors.New(errors.ErrCodeSearchError, "no fingerprint index configured")
	}
	fpType, err := s.fingerprintType()
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SimilarityQueries.WithLabelValues("milvus").Inc()
	}
	return s.searcher.Search(ctx, query, fpType, topK)
}

func (s *SimilarityService) loadClass(class mtypes.Class) ([]*dataset.Record, error) {
	return loadClassRecords(s.cfg, class)
}

var _ NeighborSearcher = (*milvus.FingerprintIndex)(nil)
