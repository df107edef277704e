package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	"github.com/turtacn/ChemScreen/pkg/errors"
	ctypes "github.com/turtacn/ChemScreen/pkg/types/common"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// startPostgres spins up a disposable PostgreSQL container.  The test is
// skipped unless CHEMSCREEN_TEST_POSTGRES=1, so the default test run stays
// hermetic.
func startPostgres(t *testing.T) *Pool {
	t.Helper()
	if os.Getenv("CHEMSCREEN_TEST_POSTGRES") != "1" {
		t.Skip("set CHEMSCREEN_TEST_POSTGRES=1 to run postgres integration tests")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "chemscreen",
				"POSTGRES_PASSWORD": "chemscreen",
				"POSTGRES_DB":       "chemscreen",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := Config{
		Host: host, Port: port.Int(),
		User: "chemscreen", Password: "chemscreen",
		DBName: "chemscreen", SSLMode: "disable",
	}

	require.NoError(t, Migrate(cfg.DSN()))

	pool, err := NewPool(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func sampleRun(t *testing.T) *run.Run {
	t.Helper()
	rn, err := run.NewRun(mtypes.ClassAntibacterial, 42)
	require.NoError(t, err)
	rn.TotalRows = 200
	rn.TrainRows = 140
	rn.ValidationRows = 60
	rn.Reports["random_forest"] = &common.Report{
		Model:    "random_forest",
		Accuracy: 0.92,
		AUC:      0.95,
		Confusion: common.ConfusionMatrix{
			TP: 27, FP: 3, TN: 28, FN: 2,
		},
	}
	return rn
}

func TestRunRepository_CRUD(t *testing.T) {
	pool := startPostgres(t)
	repo := NewRunRepository(pool, nil)
	ctx := context.Background()

	rn := sampleRun(t)
	require.NoError(t, repo.Create(ctx, rn))

	got, err := repo.Get(ctx, rn.ID)
	require.NoError(t, err)
	assert.Equal(t, rn.ID, got.ID)
	assert.Equal(t, mtypes.ClassAntibacterial, got.Positive)
	assert.Equal(t, run.StatusRunning, got.Status)
	assert.Equal(t, 200, got.TotalRows)
	require.Contains(t, got.Reports, "random_forest")
	assert.Equal(t, 0.95, got.Reports["random_forest"].AUC)

	rn.Complete()
	require.NoError(t, repo.Update(ctx, rn))

	got, err = repo.Get(ctx, rn.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, got.Status)
	assert.False(t, got.FinishedAt.IsZero())
}

func TestRunRepository_List(t *testing.T) {
	pool := startPostgres(t)
	repo := NewRunRepository(pool, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rn, err := run.NewRun(mtypes.ClassAntiviral, int64(i))
		require.NoError(t, err)
		rn.StartedAt = rn.StartedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, rn))
	}

	runs, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Most recent first.
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt),
		fmt.Sprintf("expected %v after %v", runs[0].StartedAt, runs[1].StartedAt))
}

func TestRunRepository_NotFound(t *testing.T) {
	pool := startPostgres(t)
	repo := NewRunRepository(pool, nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, ctypes.NewID())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	missing := sampleRun(t)
	err = repo.Update(ctx, missing)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
