package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv"
	contentTypeText = "text/plain"
)

// ArtifactStore persists run outputs — evaluation reports, ROC curves and
// clustering trees — under a per-run prefix in the artifact bucket.
type ArtifactStore struct {
	client *Client
	logger logging.Logger
}

// NewArtifactStore wraps the client.
func NewArtifactStore(client *Client, logger logging.Logger) *ArtifactStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ArtifactStore{client: client, logger: logger.Named("artifacts")}
}

func runPrefix(runID string) string { return "runs/" + runID + "/" }

func reportKey(runID, model string) string { return runPrefix(runID) + "reports/" + model + ".json" }
func rocKey(runID, model string) string    { return runPrefix(runID) + "roc/" + model + ".csv" }
func newickKey(runID string) string        { return runPrefix(runID) + "clustering.nwk" }

func (s *ArtifactStore) put(ctx context.Context, key, contentType string, data []byte) error {
	api, err := s.client.guard()
	if err != nil {
		return err
	}
	_, err = api.PutObject(ctx, s.client.bucket, key, bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "storing artifact %s", key)
	}
	s.logger.Debug("artifact stored",
		logging.String("key", key),
		logging.Int("bytes", len(data)))
	return nil
}

// SaveReport stores a model evaluation report as JSON and returns its key.
func (s *ArtifactStore) SaveReport(ctx context.Context, runID string, report *common.Report) (string, error) {
	if report == nil || report.Model == "" {
		return "", errors.New(errors.ErrCodeInvalidParam, "report must have a model name")
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "encoding report")
	}
	key := reportKey(runID, report.Model)
	if err := s.put(ctx, key, contentTypeJSON, data); err != nil {
		return "", err
	}
	return key, nil
}

// GetReport loads a previously stored evaluation report.
func (s *ArtifactStore) GetReport(ctx context.Context, runID, model string) (*common.Report, error) {
	api, err := s.client.guard()
	if err != nil {
		return nil, err
	}
	key := reportKey(runID, model)
	obj, err := api.GetObject(ctx, s.client.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "fetching artifact %s", key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "reading artifact %s", key)
	}
	var report common.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeSerialization, "decoding report %s", key)
	}
	return &report, nil
}

// SaveROC stores a model's ROC curve as a three-column CSV and returns its
// key.
func (s *ArtifactStore) SaveROC(ctx context.Context, runID, model string, points []common.ROCPoint) (string, error) {
	if model == "" {
		return "", errors.New(errors.ErrCodeInvalidParam, "model name is required")
	}
	var buf strings.Builder
	buf.WriteString("fpr,tpr,threshold\n")
	for _, p := range points {
		buf.WriteString(strconv.FormatFloat(p.FPR, 'g', -1, 64))
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatFloat(p.TPR, 'g', -1, 64))
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatFloat(p.Threshold, 'g', -1, 64))
		buf.WriteByte('\n')
	}
	key := rocKey(runID, model)
	if err := s.put(ctx, key, contentTypeCSV, []byte(buf.String())); err != nil {
		return "", err
	}
	return key, nil
}

// SaveNewick stores the clustering tree in Newick format and returns its
// key.
func (s *ArtifactStore) SaveNewick(ctx context.Context, runID, newick string) (string, error) {
	if newick == "" {
		return "", errors.New(errors.ErrCodeInvalidParam, "newick tree is empty")
	}
	key := newickKey(runID)
	if err := s.put(ctx, key, contentTypeText, []byte(newick)); err != nil {
		return "", err
	}
	return key, nil
}

// List returns the keys of all artifacts stored for a run.
func (s *ArtifactStore) List(ctx context.Context, runID string) ([]string, error) {
	api, err := s.client.guard()
	if err != nil {
		return nil, err
	}
	var keys []string
	for info := range api.ListObjects(ctx, s.client.bucket, miniogo.ListObjectsOptions{
		Prefix:    runPrefix(runID),
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, errors.Wrapf(info.Err, errors.ErrCodeStorageError, "listing artifacts for run %s", runID)
		}
		keys = append(keys, info.Key)
	}
	return keys, nil
}

// DeleteRun removes every artifact stored for a run.
func (s *ArtifactStore) DeleteRun(ctx context.Context, runID string) error {
	api, err := s.client.guard()
	if err != nil {
		return err
	}
	keys, err := s.List(ctx, runID)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := api.RemoveObject(ctx, s.client.bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
			return errors.Wrapf(err, errors.ErrCodeStorageError, "removing artifact %s", key)
		}
	}
	if len(keys) > 0 {
		s.logger.Info("run artifacts removed",
			logging.String("run_id", runID),
			logging.Int("count", len(keys)))
	}
	return nil
}

// ReportURL is a convenience for log lines and CLI output; it is not a
// presigned link.
func ReportURL(bucket, runID, model string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, reportKey(runID, model))
}
