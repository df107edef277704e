package screening

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

type fakeSearcher struct {
	indexed  int
	searched int
	hits     []milvus.Hit
}

func (f *fakeSearcher) Index(_ context.Context, mols []*molecule.Molecule, _ mtypes.FingerprintType) (int, error) {
	f.indexed += len(mols)
	return len(mols), nil
}

func (f *fakeSearcher) Search(context.Context, *molecule.Molecule, mtypes.FingerprintType, int) ([]milvus.Hit, error) {
	f.searched++
	return f.hits, nil
}

// fakeNewickSink records the last stored dendrogram.
type fakeNewickSink struct {
	runID  string
	newick string
	fail   bool
}

func (f *fakeNewickSink) SaveNewick(_ context.Context, runID, newick string) (string, error) {
	if f.fail {
		return "", errors.New(errors.ErrCodeStorageError, "bucket unavailable")
	}
	f.runID = runID
	f.newick = newick
	return "runs/" + runID + "/clustering/dendrogram.nwk", nil
}

func TestAnalyzeBuildsDendrogram(t *testing.T) {
	records := loadTestRecords(t, 6, mtypes.ClassAntibacterial)
	mols := make([]*molecule.Molecule, len(records))
	for i, rec := range records {
		mols[i] = rec.Molecule
	}

	svc, err := NewSimilarityService(testConfig(t), nil, nil, nil, nil)
	require.NoError(t, err)

	res, err := svc.Analyze(context.Background(), mols)
	require.NoError(t, err)
	require.NotNil(t, res.Matrix)
	require.NotNil(t, res.Tree)

	assert.Len(t, res.Matrix.Labels, 6)
	for i := range mols {
		assert.InDelta(t, 1.0, res.Matrix.Scores[i][i], 1e-12, "self similarity")
	}

	assert.True(t, strings.HasSuffix(res.Newick, ";"))
	for _, rec := range records {
		assert.Contains(t, res.Newick, rec.Molecule.Name)
	}
}

func TestAnalyzeStoresNewick(t *testing.T) {
	records := loadTestRecords(t, 6, mtypes.ClassAntiviral)
	mols := make([]*molecule.Molecule, len(records))
	for i, rec := range records {
		mols[i] = rec.Molecule
	}

	sink := &fakeNewickSink{}
	svc, err := NewSimilarityService(testConfig(t), nil, sink, nil, nil)
	require.NoError(t, err)

	res, err := svc.Analyze(context.Background(), mols)
	require.NoError(t, err)

	assert.Equal(t, res.Newick, sink.newick)
	require.NotEmpty(t, sink.runID)
	assert.Equal(t, "runs/"+sink.runID+"/clustering/dendrogram.nwk", res.ArtifactKey)
}

func TestAnalyzeSinkFailureDoesNotFail(t *testing.T) {
	records := loadTestRecords(t, 4, mtypes.ClassOther)
	mols := make([]*molecule.Molecule, len(records))
	for i, rec := range records {
		mols[i] = rec.Molecule
	}

	svc, err := NewSimilarityService(testConfig(t), nil, &fakeNewickSink{fail: true}, nil, nil)
	require.NoError(t, err)

	res, err := svc.Analyze(context.Background(), mols)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Newick)
	assert.Empty(t, res.ArtifactKey)
}

func TestAnalyzeRejectsSingleton(t *testing.T) {
	records := loadTestRecords(t, 1, mtypes.ClassOther)
	svc, err := NewSimilarityService(testConfig(t), nil, nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), []*molecule.Molecule{records[0].Molecule})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatasetEmptyFrame, errors.GetCode(err))
}

func TestAnalyzeClassesUnionsFixtures(t *testing.T) {
	svc, err := NewSimilarityService(testConfig(t), nil, nil, nil, nil)
	require.NoError(t, err)

	res, err := svc.AnalyzeClasses(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Matrix.Labels, 60)
}

func TestIndexClasses(t *testing.T) {
	searcher := &fakeSearcher{}
	svc, err := NewSimilarityService(testConfig(t), searcher, nil, nil, nil)
	require.NoError(t, err)

	total, err := svc.IndexClasses(context.Background(), mtypes.ClassAntibacterial, mtypes.ClassOther)
	require.NoError(t, err)
	assert.Equal(t, 40, total)
	assert.Equal(t, 40, searcher.indexed)
}

func TestNeighborsRequiresSearcher(t *testing.T) {
	svc, err := NewSimilarityService(testConfig(t), nil, nil, nil, nil)
	require.NoError(t, err)

	records := loadTestRecords(t, 1, mtypes.ClassAntiviral)
	_, err = svc.Neighbors(context.Background(), records[0].Molecule, 5)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSearchError, errors.GetCode(err))

	_, err = svc.IndexClasses(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSearchError, errors.GetCode(err))
}

func TestNeighborsQueriesSearcher(t *testing.T) {
	searcher := &fakeSearcher{hits: []milvus.Hit{
		{StructureKey: "k1", Name: "mol-01", Class: "antiviral", Similarity: 0.93},
	}}
	svc, err := NewSimilarityService(testConfig(t), searcher, nil, nil, nil)
	require.NoError(t, err)

	records := loadTestRecords(t, 1, mtypes.ClassAntibacterial)
	hits, err := svc.Neighbors(context.Background(), records[0].Molecule, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "mol-01", hits[0].Name)
	assert.Equal(t, 1, searcher.searched)
}
