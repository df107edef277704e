package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/application/screening"
	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChemScreen/internal/infrastructure/database/redis"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// TestScreenPersistsRun runs the full pipeline against PostgreSQL and Redis
// and verifies the run record and descriptor cache behave end to end.
func TestScreenPersistsRun(t *testing.T) {
	SkipIfNoIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	logger := newTestLogger(t)
	host, port := postgresHostPort(t)

	dbName := "chemscreen_test"
	pgCfg := postgres.Config{
		Host:     host,
		Port:     port,
		User:     "chemscreen",
		Password: "chemscreen",
		DBName:   dbName,
		SSLMode:  "disable",
		MaxConns: 4,
	}

	pool, err := postgres.NewPool(ctx, pgCfg, logger)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, postgres.Migrate(pgCfg.DSN()))

	redisClient, err := redis.NewClient(ctx, redis.Config{
		Addr:        redisAddr(),
		DB:          1,
		DialTimeout: 5 * time.Second,
	}, logger)
	require.NoError(t, err)
	defer redisClient.Close()

	prefix := fmt.Sprintf("chemscreen:test:%s", uuid.NewString())
	cache := redis.NewDescriptorCache(redisClient, prefix, time.Hour, logger)
	repo := postgres.NewRunRepository(pool, logger)

	cfg := writeDataset(t, 20)
	svc, err := screening.NewService(cfg, screening.Deps{
		Logger: logger,
		Cache:  cache,
		Runs:   repo,
	})
	require.NoError(t, err)

	rn, err := svc.Screen(ctx, mtypes.ClassAntibacterial)
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, rn.Status)

	stored, err := repo.Get(ctx, rn.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusCompleted, stored.Status)
	assert.Equal(t, rn.TotalRows, stored.TotalRows)
	require.Contains(t, stored.Reports, "random_forest")
	require.Contains(t, stored.Reports, "rbf_svm")

	// A second run hits the warm descriptor cache and must agree with the
	// first on the evaluation outcome.
	again, err := svc.Screen(ctx, mtypes.ClassAntibacterial)
	require.NoError(t, err)
	for model, report := range rn.Reports {
		assert.InDelta(t, report.AUC, again.Reports[model].AUC, 1e-12, model)
	}
}
