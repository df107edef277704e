// Package integration exercises the screening pipeline against real backing
// services. Tests skip themselves unless CHEMSCREEN_INTEGRATION_TEST is set;
// service addresses default to local development ports and can be overridden
// per service through the CHEMSCREEN_TEST_* variables.
package integration

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/config"
	"github.com/turtacn/ChemScreen/internal/domain/dataset"
	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/infrastructure/monitoring/logging"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

const (
	// EnvIntegrationEnabled controls whether integration tests run.
	EnvIntegrationEnabled = "CHEMSCREEN_INTEGRATION_TEST"

	// EnvPostgresAddr overrides the default PostgreSQL host:port.
	EnvPostgresAddr = "CHEMSCREEN_TEST_POSTGRES_ADDR"

	// EnvRedisAddr overrides the default Redis host:port.
	EnvRedisAddr = "CHEMSCREEN_TEST_REDIS_ADDR"

	// EnvKafkaBrokers overrides the default Kafka broker list.
	EnvKafkaBrokers = "CHEMSCREEN_TEST_KAFKA_BROKERS"

	// EnvMinIOEndpoint overrides the default MinIO endpoint.
	EnvMinIOEndpoint = "CHEMSCREEN_TEST_MINIO_ENDPOINT"

	// EnvMilvusAddr overrides the default Milvus gRPC address.
	EnvMilvusAddr = "CHEMSCREEN_TEST_MILVUS_ADDR"

	defaultPostgresAddr  = "localhost:5432"
	defaultRedisAddr     = "localhost:6379"
	defaultKafkaBrokers  = "localhost:9092"
	defaultMinIOEndpoint = "localhost:9000"
	defaultMilvusAddr    = "localhost:19530"

	// TestTimeout bounds a single integration test.
	TestTimeout = 120 * time.Second
)

// SkipIfNoIntegration skips the calling test when the integration flag is
// unset.
func SkipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationEnabled) == "" {
		t.Skipf("skipping integration test: set %s=1 to enable", EnvIntegrationEnabled)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// postgresHostPort returns the PostgreSQL host and port under test.
func postgresHostPort(t *testing.T) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(envOr(EnvPostgresAddr, defaultPostgresAddr))
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func redisAddr() string     { return envOr(EnvRedisAddr, defaultRedisAddr) }
func minioEndpoint() string { return envOr(EnvMinIOEndpoint, defaultMinIOEndpoint) }
func milvusAddr() string    { return envOr(EnvMilvusAddr, defaultMilvusAddr) }

func kafkaBrokers() []string {
	return strings.Split(envOr(EnvKafkaBrokers, defaultKafkaBrokers), ",")
}

// newTestLogger builds a console logger so failures carry pipeline context.
func newTestLogger(t *testing.T) logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(logging.Config{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	require.NoError(t, err)
	return logger
}

// writeDataset generates small per-class structure and metadata fixtures and
// returns a pipeline configuration pointing at them.
func writeDataset(t *testing.T, perClass int) *config.Config {
	t.Helper()
	dir := t.TempDir()

	writeClass := func(base, cap string) {
		var sdf, csv strings.Builder
		csv.WriteString("name,mw\n")
		for i := 0; i < perClass; i++ {
			name := fmt.Sprintf("%s-%02d", base, i)
			chain := 2 + i%10
			fmt.Fprintf(&sdf, "%s\n  ChemScreen\n\n%3d%3d  0  0  0  0  0  0  0  0999 V2000\n",
				name, chain+1, chain)
			for a := 0; a <= chain; a++ {
				elem := "C"
				if a == chain {
					elem = cap
				}
				fmt.Fprintf(&sdf, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n",
					float64(a)*1.5, 0.0, 0.0, elem)
			}
			for b := 1; b <= chain; b++ {
				fmt.Fprintf(&sdf, "%3d%3d%3d  0\n", b, b+1, 1)
			}
			sdf.WriteString("M  END\n$$$$\n")
			fmt.Fprintf(&csv, "%s,%0.1f\n", name, 40.0+float64(i))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, base+".sdf"), []byte(sdf.String()), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, base+".csv"), []byte(csv.String()), 0o644))
	}

	writeClass("antibacterial", "O")
	writeClass("antiviral", "N")
	writeClass("other", "S")

	cfg := &config.Config{}
	cfg.Data.Dir = dir
	config.ApplyDefaults(cfg)
	cfg.Models.RandomForest.NumTrees = 25
	cfg.Models.SVMGrid.Cs = []float64{1}
	cfg.Models.SVMGrid.Gammas = []float64{0.1}
	cfg.Models.SVMGrid.Folds = 3
	require.NoError(t, cfg.Validate())
	return cfg
}

// loadClassMolecules parses one class from the fixture directory into
// molecules.
func loadClassMolecules(t *testing.T, cfg *config.Config, class mtypes.Class) []*molecule.Molecule {
	t.Helper()
	base := cfg.Data.Basename(class)
	structures, err := os.Open(filepath.Join(cfg.Data.Dir, base+cfg.Data.StructureExt))
	require.NoError(t, err)
	defer structures.Close()
	metadata, err := os.Open(filepath.Join(cfg.Data.Dir, base+cfg.Data.MetadataExt))
	require.NoError(t, err)
	defer metadata.Close()

	records, err := dataset.LoadRecords(structures, metadata, class)
	require.NoError(t, err)

	mols := make([]*molecule.Molecule, len(records))
	for i, rec := range records {
		mols[i] = rec.Molecule
	}
	return mols
}
