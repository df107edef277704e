package config

import "time"

// ApplyDefaults fills every unset field of cfg with its default value.  It
// never overrides a value the operator set explicitly.
func ApplyDefaults(cfg *Config) {
	// Data
	if cfg.Data.StructureExt == "" {
		cfg.Data.StructureExt = ".sdf"
	}
	if cfg.Data.MetadataExt == "" {
		cfg.Data.MetadataExt = ".csv"
	}
	if cfg.Data.Antibacterial == "" {
		cfg.Data.Antibacterial = "antibacterial"
	}
	if cfg.Data.Antiviral == "" {
		cfg.Data.Antiviral = "antiviral"
	}
	if cfg.Data.Other == "" {
		cfg.Data.Other = "other"
	}

	// Pipeline
	if cfg.Pipeline.ValidationFraction == 0 {
		cfg.Pipeline.ValidationFraction = 0.30
	}
	if cfg.Pipeline.Seed == 0 {
		cfg.Pipeline.Seed = 42
	}

	// Similarity
	if cfg.Similarity.Fingerprint == "" {
		cfg.Similarity.Fingerprint = "morgan"
	}
	if cfg.Similarity.Metric == "" {
		cfg.Similarity.Metric = "tanimoto"
	}

	// Models
	cfg.Models.RandomForest.ApplyDefaults()
	if cfg.Models.RandomForest.Seed == 0 {
		cfg.Models.RandomForest.Seed = cfg.Pipeline.Seed
	}
	cfg.Models.SVMGrid.ApplyDefaults()
	if cfg.Models.SVMGrid.Seed == 0 {
		cfg.Models.SVMGrid.Seed = cfg.Pipeline.Seed
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	// Database
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}

	// Redis
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 24 * time.Hour
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "chemscreen"
	}

	// Kafka
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "chemscreen.runs"
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// MinIO
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "chemscreen-artifacts"
	}

	// Milvus
	if cfg.Milvus.Collection == "" {
		cfg.Milvus.Collection = "chemscreen_fingerprints"
	}
	if cfg.Milvus.Dim == 0 {
		cfg.Milvus.Dim = 2048
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = 10
	}

	// Metrics
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}
