package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all pipeline settings.
const envPrefix = "CHEMSCREEN"

// newViper builds a pre-configured viper instance: YAML file type,
// CHEMSCREEN_ env prefix, automatic env binding, and a key replacer mapping
// "." to "_" so nested keys like "database.host" resolve to
// CHEMSCREEN_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		// Registering the key makes env-only settings visible to Unmarshal;
		// AutomaticEnv alone resolves keys it already knows about.
		_ = v.BindEnv(key)
	}
	return v
}

// envKeys lists every setting that may arrive purely through the
// environment.
var envKeys = []string{
	"data.dir", "data.structure_ext", "data.metadata_ext",
	"data.antibacterial", "data.antiviral", "data.other",
	"pipeline.validation_fraction", "pipeline.seed", "pipeline.workers",
	"similarity.fingerprint", "similarity.metric",
	"models.random_forest.num_trees", "models.random_forest.max_depth",
	"models.random_forest.min_samples_leaf", "models.random_forest.features_per_split",
	"models.random_forest.seed", "models.random_forest.workers",
	"models.svm_grid.folds", "models.svm_grid.seed",
	"log.level", "log.format",
	"database.enabled", "database.host", "database.port", "database.user",
	"database.password", "database.db_name", "database.ssl_mode", "database.max_conns",
	"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.key_prefix",
	"kafka.enabled", "kafka.brokers", "kafka.topic",
	"minio.enabled", "minio.endpoint", "minio.access_key", "minio.secret_key",
	"minio.bucket", "minio.use_ssl",
	"milvus.enabled", "milvus.addr", "milvus.collection", "milvus.dim",
	"metrics.enabled", "metrics.addr",
}

// Load reads the YAML file at configPath, merges CHEMSCREEN_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CHEMSCREEN_* environment
// variables, with no config file required.
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed
// Config whenever the file changes on disk.  A change that fails to parse or
// validate is dropped without invoking the callback, so the application
// never observes a broken configuration.
//
// Watch is non-blocking; viper manages the background goroutine.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers should have called Load first, so errors here
	// only repeat what Load already reported.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on error.  Intended for main(), where a
// config failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
