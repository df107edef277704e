// Package config defines the configuration structures for the ChemScreen
// pipeline.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/ChemScreen/internal/domain/dataset"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScreen/internal/intelligence/randomforest"
	"github.com/turtacn/ChemScreen/internal/intelligence/rbfsvm"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// DataConfig locates the per-class input files.  Each class contributes one
// SDF structure file and one CSV metadata table, both under Dir.
type DataConfig struct {
	Dir           string `mapstructure:"dir"`
	StructureExt  string `mapstructure:"structure_ext"`
	MetadataExt   string `mapstructure:"metadata_ext"`
	Antibacterial string `mapstructure:"antibacterial"`
	Antiviral     string `mapstructure:"antiviral"`
	Other         string `mapstructure:"other"`
}

// Basename returns the configured file stem for the class.
func (c *DataConfig) Basename(class mtypes.Class) string {
	switch class {
	case mtypes.ClassAntibacterial:
		return c.Antibacterial
	case mtypes.ClassAntiviral:
		return c.Antiviral
	case mtypes.ClassOther:
		return c.Other
	default:
		return ""
	}
}

// PipelineConfig holds the screening run parameters.
type PipelineConfig struct {
	// ValidationFraction is the hold-out share of the assembled frame.
	ValidationFraction float64 `mapstructure:"validation_fraction"`

	// Seed drives the split, fold assignment, and model training.
	Seed int64 `mapstructure:"seed"`

	// Workers bounds descriptor-extraction concurrency; zero uses the CPU
	// count.
	Workers int `mapstructure:"workers"`

	// FeatureColumns overrides the SVM's feature formula; empty selects the
	// standard panel subset. The random forest always trains on the full
	// descriptor panel.
	FeatureColumns []string `mapstructure:"feature_columns"`
}

// SimilarityConfig holds the pairwise-similarity diagnostic parameters.
type SimilarityConfig struct {
	Fingerprint string `mapstructure:"fingerprint"` // "morgan" | "maccs" | "path"
	Metric      string `mapstructure:"metric"`      // "tanimoto" | "dice"
}

// DatabaseConfig holds PostgreSQL connection parameters for the run
// repository.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the pgx connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisConfig holds the descriptor-cache connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the run-event producer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MinIOConfig holds S3-compatible object-storage parameters for run
// artifacts.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// MilvusConfig holds vector-store parameters for fingerprint search.
type MilvusConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Addr        string `mapstructure:"addr"`
	Collection  string `mapstructure:"collection"`
	Dim         int    `mapstructure:"dim"`
	DefaultTopK int    `mapstructure:"default_top_k"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// ModelsConfig groups the classifier settings.
type ModelsConfig struct {
	RandomForest randomforest.Config `mapstructure:"random_forest"`
	SVMGrid      rbfsvm.GridConfig   `mapstructure:"svm_grid"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration for the whole pipeline.
type Config struct {
	Data       DataConfig       `mapstructure:"data"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Models     ModelsConfig     `mapstructure:"models"`
	Log        logging.Config   `mapstructure:"log"`

	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Milvus   MilvusConfig   `mapstructure:"milvus"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.  It
// returns the first error encountered; callers should treat any error as
// fatal and refuse to start a run.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("config: data.dir is required")
	}
	for _, pair := range []struct{ key, val string }{
		{"data.antibacterial", c.Data.Antibacterial},
		{"data.antiviral", c.Data.Antiviral},
		{"data.other", c.Data.Other},
	} {
		if pair.val == "" {
			return fmt.Errorf("config: %s is required", pair.key)
		}
	}

	if c.Pipeline.ValidationFraction <= 0 || c.Pipeline.ValidationFraction >= 1 {
		return fmt.Errorf("config: pipeline.validation_fraction %v is outside (0, 1)",
			c.Pipeline.ValidationFraction)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("config: pipeline.workers must be ≥ 0, got %d", c.Pipeline.Workers)
	}

	if _, err := mtypes.ParseFingerprintType(c.Similarity.Fingerprint); err != nil {
		return fmt.Errorf("config: similarity.fingerprint %q is invalid", c.Similarity.Fingerprint)
	}
	switch c.Similarity.Metric {
	case "tanimoto", "dice":
	default:
		return fmt.Errorf("config: similarity.metric %q is invalid; expected tanimoto|dice", c.Similarity.Metric)
	}

	if err := c.Models.RandomForest.Validate(); err != nil {
		return fmt.Errorf("config: models.random_forest: %w", err)
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required when database is enabled")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("config: database.user and database.db_name are required when database is enabled")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required when kafka is enabled")
		}
	}
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required when minio is enabled")
		}
	}
	if c.Milvus.Enabled {
		if c.Milvus.Addr == "" {
			return fmt.Errorf("config: milvus.addr is required when milvus is enabled")
		}
		if c.Milvus.Dim < 1 {
			return fmt.Errorf("config: milvus.dim must be ≥ 1, got %d", c.Milvus.Dim)
		}
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("config: metrics.addr is required when metrics are enabled")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

// SplitterFromConfig builds the dataset splitter for the configured run.
func (c *Config) SplitterFromConfig() (*dataset.Splitter, error) {
	return dataset.NewSplitter(c.Pipeline.ValidationFraction, c.Pipeline.Seed)
}
