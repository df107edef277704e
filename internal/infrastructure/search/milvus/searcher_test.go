package milvus

import (
	"context"
	"strings"
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

type fakeMilvusAPI struct {
	hasCollection bool
	created       *entity.Schema
	indexed       bool
	loaded        bool
	flushed       bool
	deleteExprs   []string
	insertedCols  []entity.Column
	searchResults []client.SearchResult
	searchTopK    int
	closed        bool
}

func (f *fakeMilvusAPI) HasCollection(_ context.Context, _ string) (bool, error) {
	return f.hasCollection, nil
}

func (f *fakeMilvusAPI) CreateCollection(_ context.Context, schema *entity.Schema, _ int32, _ ...client.CreateCollectionOption) error {
	f.created = schema
	f.hasCollection = true
	return nil
}

func (f *fakeMilvusAPI) CreateIndex(_ context.Context, _, _ string, _ entity.Index, _ bool, _ ...client.IndexOption) error {
	f.indexed = true
	return nil
}

func (f *fakeMilvusAPI) LoadCollection(_ context.Context, _ string, _ bool, _ ...client.LoadCollectionOption) error {
	f.loaded = true
	return nil
}

func (f *fakeMilvusAPI) Insert(_ context.Context, _, _ string, columns ...entity.Column) (entity.Column, error) {
	f.insertedCols = columns
	return nil, nil
}

func (f *fakeMilvusAPI) Flush(_ context.Context, _ string, _ bool, _ ...client.FlushOption) error {
	f.flushed = true
	return nil
}

func (f *fakeMilvusAPI) Delete(_ context.Context, _, _, expr string) error {
	f.deleteExprs = append(f.deleteExprs, expr)
	return nil
}

func (f *fakeMilvusAPI) Search(_ context.Context, _ string, _ []string, _ string, _ []string, _ []entity.Vector, _ string, _ entity.MetricType, topK int, _ entity.SearchParam, _ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	f.searchTopK = topK
	return f.searchResults, nil
}

func (f *fakeMilvusAPI) Close() error {
	f.closed = true
	return nil
}

func testClient(fake *fakeMilvusAPI) *Client {
	cfg := Config{Address: "localhost:19530"}
	cfg.ApplyDefaults()
	return &Client{api: fake, cfg: cfg, logger: logging.NewNop()}
}

// testMolecule carries a precomputed fingerprint so no graph is needed.
func testMolecule(key, name string, class mtypes.Class, seed byte) *molecule.Molecule {
	bits := make([]byte, 2048/8)
	for i := range bits {
		bits[i] = seed
	}
	fp := molecule.NewFingerprint(mtypes.FPMorgan, bits, 2048)
	return &molecule.Molecule{
		Name:         name,
		Class:        class,
		StructureKey: key,
		Fingerprints: map[mtypes.FingerprintType]*molecule.Fingerprint{mtypes.FPMorgan: fp},
	}
}

func TestEnsureCollectionCreatesAndLoads(t *testing.T) {
	fake := &fakeMilvusAPI{}
	c := testClient(fake)

	require.NoError(t, c.EnsureCollection(context.Background()))
	require.NotNil(t, fake.created)
	assert.Equal(t, "chemscreen_fingerprints", fake.created.CollectionName)
	assert.True(t, fake.indexed)
	assert.True(t, fake.loaded)
}

func TestEnsureCollectionExisting(t *testing.T) {
	fake := &fakeMilvusAPI{hasCollection: true}
	c := testClient(fake)

	require.NoError(t, c.EnsureCollection(context.Background()))
	assert.Nil(t, fake.created)
	assert.False(t, fake.indexed)
	assert.True(t, fake.loaded)
}

func TestIndexInsertsFingerprints(t *testing.T) {
	fake := &fakeMilvusAPI{hasCollection: true}
	idx := NewFingerprintIndex(testClient(fake), nil)

	mols := []*molecule.Molecule{
		testMolecule("key-a", "ampicillin", mtypes.ClassAntibacterial, 0x0f),
		testMolecule("key-b", "acyclovir", mtypes.ClassAntiviral, 0xf0),
	}
	n, err := idx.Index(context.Background(), mols, mtypes.FPMorgan)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, fake.flushed)
	require.Len(t, fake.insertedCols, 4)

	require.Len(t, fake.deleteExprs, 1)
	assert.True(t, strings.Contains(fake.deleteExprs[0], `"key-a"`))
	assert.True(t, strings.Contains(fake.deleteExprs[0], `"key-b"`))
}

func TestIndexSkipsBadMolecules(t *testing.T) {
	fake := &fakeMilvusAPI{hasCollection: true}
	idx := NewFingerprintIndex(testClient(fake), nil)

	// No graph and no cached fingerprint: computation fails and the
	// molecule is skipped.
	broken := &molecule.Molecule{
		StructureKey: "broken",
		Fingerprints: map[mtypes.FingerprintType]*molecule.Fingerprint{},
	}
	n, err := idx.Index(context.Background(), []*molecule.Molecule{broken}, mtypes.FPMorgan)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, fake.insertedCols)
}

func TestIndexEmptyInput(t *testing.T) {
	fake := &fakeMilvusAPI{hasCollection: true}
	idx := NewFingerprintIndex(testClient(fake), nil)

	n, err := idx.Index(context.Background(), nil, mtypes.FPMorgan)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchReturnsHits(t *testing.T) {
	fake := &fakeMilvusAPI{
		hasCollection: true,
		searchResults: []client.SearchResult{
			{
				ResultCount: 2,
				Fields: client.ResultSet{
					entity.NewColumnVarChar(fieldStructureKey, []string{"key-a", "key-b"}),
					entity.NewColumnVarChar(fieldName, []string{"ampicillin", "acyclovir"}),
					entity.NewColumnVarChar(fieldClass, []string{"antibacterial", "antiviral"}),
				},
				Scores: []float32{0.1, 0.6},
			},
		},
	}
	idx := NewFingerprintIndex(testClient(fake), nil)

	query := testMolecule("key-q", "query", mtypes.ClassOther, 0xff)
	hits, err := idx.Search(context.Background(), query, mtypes.FPMorgan, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, fake.searchTopK)

	require.Len(t, hits, 2)
	assert.Equal(t, "key-a", hits[0].StructureKey)
	assert.Equal(t, "ampicillin", hits[0].Name)
	assert.Equal(t, "antibacterial", hits[0].Class)
	assert.InDelta(t, 0.9, hits[0].Similarity, 1e-6)
	assert.InDelta(t, 0.4, hits[1].Similarity, 1e-6)
}

func TestSearchDefaultTopK(t *testing.T) {
	fake := &fakeMilvusAPI{hasCollection: true}
	idx := NewFingerprintIndex(testClient(fake), nil)

	query := testMolecule("key-q", "query", mtypes.ClassOther, 0x01)
	_, err := idx.Search(context.Background(), query, mtypes.FPMorgan, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, fake.searchTopK)
}

func TestClosedClientRejected(t *testing.T) {
	fake := &fakeMilvusAPI{hasCollection: true}
	c := testClient(fake)
	require.NoError(t, c.Close())
	assert.True(t, fake.closed)

	idx := NewFingerprintIndex(c, nil)
	_, err := idx.Index(context.Background(), nil, mtypes.FPMorgan)
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = idx.Search(context.Background(), testMolecule("k", "n", mtypes.ClassOther, 1), mtypes.FPMorgan, 1)
	assert.ErrorIs(t, err, ErrClientClosed)

	// Close is idempotent.
	require.NoError(t, c.Close())
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, "default", cfg.DBName)
	assert.Equal(t, "chemscreen_fingerprints", cfg.Collection)
	assert.Equal(t, 2048, cfg.Dim)
	assert.Equal(t, 10, cfg.TopK)
}

func TestQuoteList(t *testing.T) {
	assert.Equal(t, `"a", "b"`, quoteList([]string{"a", "b"}))
	assert.Equal(t, `"x\"y"`, quoteList([]string{`x"y`}))
}
