package minio

import (
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// fakeObjectAPI keeps objects in a map; enough to exercise the store
// without a live server.
type fakeObjectAPI struct {
	objects map[string][]byte
	buckets map[string]bool
	putErr  error
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{
		objects: make(map[string][]byte),
		buckets: map[string]bool{"chemscreen-artifacts": true},
	}
}

func (f *fakeObjectAPI) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeObjectAPI) MakeBucket(_ context.Context, bucket string, _ miniogo.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeObjectAPI) PutObject(_ context.Context, _, object string, reader io.Reader, _ int64, _ miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	if f.putErr != nil {
		return miniogo.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return miniogo.UploadInfo{}, err
	}
	f.objects[object] = data
	return miniogo.UploadInfo{Key: object, Size: int64(len(data))}, nil
}

func (f *fakeObjectAPI) GetObject(_ context.Context, _, object string, _ miniogo.GetObjectOptions) (io.ReadCloser, error) {
	data, ok := f.objects[object]
	if !ok {
		return nil, errors.NotFound("object " + object)
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeObjectAPI) RemoveObject(_ context.Context, _, object string, _ miniogo.RemoveObjectOptions) error {
	delete(f.objects, object)
	return nil
}

func (f *fakeObjectAPI) ListObjects(_ context.Context, _ string, opts miniogo.ListObjectsOptions) <-chan miniogo.ObjectInfo {
	ch := make(chan miniogo.ObjectInfo)
	go func() {
		defer close(ch)
		keys := make([]string, 0, len(f.objects))
		for k := range f.objects {
			if strings.HasPrefix(k, opts.Prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			ch <- miniogo.ObjectInfo{Key: k, Size: int64(len(f.objects[k]))}
		}
	}()
	return ch
}

func testStore(t *testing.T) (*ArtifactStore, *fakeObjectAPI) {
	t.Helper()
	fake := newFakeObjectAPI()
	client := &Client{api: fake, bucket: "chemscreen-artifacts", logger: logging.NewNop()}
	return NewArtifactStore(client, nil), fake
}

func sampleReport() *common.Report {
	return &common.Report{
		Model:     "random_forest",
		Accuracy:  0.91,
		Precision: 0.88,
		Recall:    0.93,
		F1:        0.9,
		AUC:       0.96,
		ROC: []common.ROCPoint{
			{FPR: 0, TPR: 0, Threshold: 1},
			{FPR: 0.2, TPR: 0.8, Threshold: 0.5},
			{FPR: 1, TPR: 1, Threshold: 0},
		},
	}
}

func TestSaveAndGetReport(t *testing.T) {
	store, fake := testStore(t)
	ctx := context.Background()

	key, err := store.SaveReport(ctx, "run-1", sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "runs/run-1/reports/random_forest.json", key)
	assert.Contains(t, string(fake.objects[key]), `"random_forest"`)

	got, err := store.GetReport(ctx, "run-1", "random_forest")
	require.NoError(t, err)
	assert.InDelta(t, 0.96, got.AUC, 1e-12)
	assert.Len(t, got.ROC, 3)
}

func TestSaveReportRejectsNil(t *testing.T) {
	store, _ := testStore(t)
	_, err := store.SaveReport(context.Background(), "run-1", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidParam, errors.GetCode(err))
}

func TestGetReportMissing(t *testing.T) {
	store, _ := testStore(t)
	_, err := store.GetReport(context.Background(), "run-1", "rbf_svm")
	require.Error(t, err)
}

func TestSaveROC(t *testing.T) {
	store, fake := testStore(t)

	key, err := store.SaveROC(context.Background(), "run-1", "rbf_svm", sampleReport().ROC)
	require.NoError(t, err)
	assert.Equal(t, "runs/run-1/roc/rbf_svm.csv", key)

	lines := strings.Split(strings.TrimSpace(string(fake.objects[key])), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "fpr,tpr,threshold", lines[0])
	assert.Equal(t, "0.2,0.8,0.5", lines[2])
}

func TestSaveNewick(t *testing.T) {
	store, fake := testStore(t)

	key, err := store.SaveNewick(context.Background(), "run-1", "(a:0.1,b:0.1):0;")
	require.NoError(t, err)
	assert.Equal(t, "runs/run-1/clustering.nwk", key)
	assert.Equal(t, "(a:0.1,b:0.1):0;", string(fake.objects[key]))

	_, err = store.SaveNewick(context.Background(), "run-1", "")
	require.Error(t, err)
}

func TestListAndDeleteRun(t *testing.T) {
	store, fake := testStore(t)
	ctx := context.Background()

	_, err := store.SaveReport(ctx, "run-1", sampleReport())
	require.NoError(t, err)
	_, err = store.SaveNewick(ctx, "run-1", "(a,b);")
	require.NoError(t, err)
	_, err = store.SaveNewick(ctx, "run-2", "(c,d);")
	require.NoError(t, err)

	keys, err := store.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	require.NoError(t, store.DeleteRun(ctx, "run-1"))
	keys, err = store.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, keys)

	// Other runs are untouched.
	assert.Contains(t, fake.objects, "runs/run-2/clustering.nwk")
}

func TestPutErrorWrapped(t *testing.T) {
	store, fake := testStore(t)
	fake.putErr = errors.Internal("disk full")

	_, err := store.SaveReport(context.Background(), "run-1", sampleReport())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStorageError, errors.GetCode(err))
}

func TestClosedClient(t *testing.T) {
	store, _ := testStore(t)
	require.NoError(t, store.client.Close())

	_, err := store.SaveReport(context.Background(), "run-1", sampleReport())
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = store.List(context.Background(), "run-1")
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestReportURL(t *testing.T) {
	url := ReportURL("chemscreen-artifacts", "run-1", "rbf_svm")
	assert.Equal(t, "s3://chemscreen-artifacts/runs/run-1/reports/rbf_svm.json", url)
}

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "chemscreen-artifacts", cfg.Bucket)

	cfg = Config{Region: "eu-west-1", Bucket: "custom"}
	cfg.ApplyDefaults()
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "custom", cfg.Bucket)
}
