package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/application/screening"
	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemScreen/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemScreen/internal/infrastructure/storage/minio"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// TestArtifactsStoredInMinIO verifies that a completed run leaves its
// reports and ROC curves in object storage.
func TestArtifactsStoredInMinIO(t *testing.T) {
	SkipIfNoIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	logger := newTestLogger(t)
	client, err := minio.NewClient(ctx, minio.Config{
		Endpoint:        minioEndpoint(),
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Bucket:          fmt.Sprintf("chemscreen-test-%s", uuid.NewString()[:8]),
	}, logger)
	require.NoError(t, err)
	defer client.Close()

	store := minio.NewArtifactStore(client, logger)
	cfg := writeDataset(t, 20)
	svc, err := screening.NewService(cfg, screening.Deps{Logger: logger, Artifacts: store})
	require.NoError(t, err)

	rn, err := svc.Screen(ctx, mtypes.ClassAntiviral)
	require.NoError(t, err)
	require.Equal(t, run.StatusCompleted, rn.Status)

	keys, err := store.List(ctx, rn.ID.String())
	require.NoError(t, err)

	joined := strings.Join(keys, "\n")
	assert.Contains(t, joined, "reports/random_forest.json")
	assert.Contains(t, joined, "reports/rbf_svm.json")
	assert.Contains(t, joined, "roc/random_forest.csv")
	assert.Contains(t, joined, "roc/rbf_svm.csv")

	report, err := store.GetReport(ctx, rn.ID.String(), "random_forest")
	require.NoError(t, err)
	assert.InDelta(t, rn.Reports["random_forest"].AUC, report.AUC, 1e-12)
}

// TestRunEventsRoundTripKafka verifies that run lifecycle events published
// during a screen arrive for consumers in order.
func TestRunEventsRoundTripKafka(t *testing.T) {
	SkipIfNoIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	logger := newTestLogger(t)
	topic := fmt.Sprintf("chemscreen.test.%s", uuid.NewString()[:8])

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: kafkaBrokers(),
		Topic:   topic,
	}, logger)
	defer producer.Close()

	cfg := writeDataset(t, 20)
	svc, err := screening.NewService(cfg, screening.Deps{Logger: logger, Events: producer})
	require.NoError(t, err)

	rn, err := svc.Screen(ctx, mtypes.ClassAntibacterial)
	require.NoError(t, err)

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: kafkaBrokers(),
		Topic:   topic,
		GroupID: fmt.Sprintf("chemscreen-test-%s", uuid.NewString()[:8]),
		MaxWait: time.Second,
	}, logger)
	defer consumer.Close()

	consumeCtx, stop := context.WithTimeout(ctx, 30*time.Second)
	defer stop()

	var got []kafka.RunEvent
	err = consumer.Consume(consumeCtx, func(event kafka.RunEvent) error {
		if event.RunID != rn.ID.String() {
			return nil
		}
		got = append(got, event)
		if len(got) == 2 {
			stop()
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, kafka.EventRunStarted, got[0].Type)
	assert.Equal(t, kafka.EventRunCompleted, got[1].Type)
	require.NotNil(t, got[1].Summary)
	assert.Equal(t, rn.TotalRows, got[1].Summary.TotalRows)
}

// TestFingerprintSearchMilvus indexes one class and checks that an indexed
// structure is its own nearest neighbor.
func TestFingerprintSearchMilvus(t *testing.T) {
	SkipIfNoIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	logger := newTestLogger(t)
	client, err := milvus.NewClient(ctx, milvus.Config{
		Address:    milvusAddr(),
		Collection: fmt.Sprintf("chemscreen_test_%s", strings.ReplaceAll(uuid.NewString()[:8], "-", "_")),
	}, logger)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.EnsureCollection(ctx))

	cfg := writeDataset(t, 10)
	loaded := loadClassMolecules(t, cfg, mtypes.ClassAntibacterial)

	index := milvus.NewFingerprintIndex(client, logger)
	n, err := index.Index(ctx, loaded, mtypes.FPMorgan)
	require.NoError(t, err)
	assert.Equal(t, len(loaded), n)

	hits, err := index.Search(ctx, loaded[0], mtypes.FPMorgan, 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, loaded[0].StructureKey, hits[0].StructureKey)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}
