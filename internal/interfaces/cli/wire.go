package cli

import (
	"context"
	"time"

	"github.com/turtacn/ChemScreen/internal/application/screening"
	"github.com/turtacn/ChemScreen/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChemScreen/internal/infrastructure/database/redis"
	"github.com/turtacn/ChemScreen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemScreen/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemScreen/internal/infrastructure/storage/minio"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
)

// pipelineEnv aggregates the infrastructure wired for one pipeline
// invocation. Disabled backends stay nil; the application layer treats nil
// adapters as disabled concerns.
type pipelineEnv struct {
	deps          screening.Deps
	metricsServer *prom.Server
	closers       []func()
}

// close releases wired resources in reverse construction order.
func (e *pipelineEnv) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// buildPipelineEnv constructs every backend the configuration enables.
func buildPipelineEnv(ctx context.Context, cliCtx *CLIContext) (*pipelineEnv, error) {
	cfg := cliCtx.Config
	logger := cliCtx.Logger
	env := &pipelineEnv{deps: screening.Deps{Logger: logger}}

	if cfg.Database.Enabled {
		repo, cleanup, err := buildRunRepo(ctx, cliCtx)
		if err != nil {
			env.close()
			return nil, err
		}
		env.closers = append(env.closers, cleanup)
		env.deps.Runs = repo
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, logger)
		if err != nil {
			env.close()
			return nil, err
		}
		env.closers = append(env.closers, func() { _ = client.Close() })
		env.deps.Cache = redis.NewDescriptorCache(client, cfg.Redis.KeyPrefix, cfg.Redis.DefaultTTL, logger)

		// The lock must outlive the longest run the command allows.
		lockTTL := cliCtx.Timeout
		if lockTTL <= 0 {
			lockTTL = 30 * time.Minute
		}
		env.deps.Guard = redis.NewRunLock(client, cfg.Redis.KeyPrefix, cfg.Data.Dir, lockTTL)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, logger)
		env.closers = append(env.closers, func() { _ = producer.Close() })
		env.deps.Events = producer
	}

	if cfg.MinIO.Enabled {
		store, cleanup, err := buildArtifactStore(ctx, cliCtx)
		if err != nil {
			env.close()
			return nil, err
		}
		env.closers = append(env.closers, cleanup)
		env.deps.Artifacts = store
	}

	if cfg.Metrics.Enabled {
		collector, err := prom.NewMetricsCollector(prom.CollectorConfig{
			Namespace:            "chemscreen",
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			env.close()
			return nil, err
		}
		env.deps.Metrics = prom.NewPipelineMetrics(collector)
		training, err := common.NewPrometheusTrainingMetrics(collector.Registerer())
		if err != nil {
			env.close()
			return nil, err
		}
		env.deps.Training = training
		env.metricsServer = prom.NewServer(prom.ServerConfig{Addr: cfg.Metrics.Addr}, collector, logger)
	}

	return env, nil
}

// startMetrics serves the exposition endpoint for the lifetime of the
// command, when metrics are enabled.
func (e *pipelineEnv) startMetrics(logger logging.Logger) {
	if e.metricsServer == nil {
		return
	}
	server := e.metricsServer
	go func() {
		if err := server.Start(); err != nil {
			logger.Warn("metrics server stopped", logging.Err(err))
		}
	}()
	e.closers = append(e.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
}

// buildRunRepo connects the run history repository. Requires the database
// to be enabled in the configuration.
func buildRunRepo(ctx context.Context, cliCtx *CLIContext) (*postgres.RunRepository, func(), error) {
	cfg := cliCtx.Config
	pool, err := postgres.NewPool(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(cfg.Database.DSN()); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.NewRunRepository(pool, cliCtx.Logger), pool.Close, nil
}

// buildArtifactStore connects the MinIO artifact store. Requires MinIO to
// be enabled in the configuration.
func buildArtifactStore(ctx context.Context, cliCtx *CLIContext) (*minio.ArtifactStore, func(), error) {
	cfg := cliCtx.Config
	client, err := minio.NewClient(ctx, minio.Config{
		Endpoint:        cfg.MinIO.Endpoint,
		AccessKeyID:     cfg.MinIO.AccessKey,
		SecretAccessKey: cfg.MinIO.SecretKey,
		UseSSL:          cfg.MinIO.UseSSL,
		Bucket:          cfg.MinIO.Bucket,
	}, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	return minio.NewArtifactStore(client, cliCtx.Logger), func() { _ = client.Close() }, nil
}

// buildSearcher connects the fingerprint index. Requires Milvus to be
// enabled in the configuration.
func buildSearcher(ctx context.Context, cliCtx *CLIContext) (*milvus.FingerprintIndex, func(), error) {
	cfg := cliCtx.Config
	client, err := milvus.NewClient(ctx, milvus.Config{
		Address:    cfg.Milvus.Addr,
		Collection: cfg.Milvus.Collection,
		Dim:        cfg.Milvus.Dim,
		TopK:       cfg.Milvus.DefaultTopK,
	}, cliCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = client.Close() }
	if err := client.EnsureCollection(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return milvus.NewFingerprintIndex(client, cliCtx.Logger), cleanup, nil
}
