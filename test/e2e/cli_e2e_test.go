// Package e2e drives the chemscreen command tree end to end on generated
// structure collections, with all external backends disabled.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScreen/internal/interfaces/cli"
)

// writeWorkspace generates three class collections and a config file.
func writeWorkspace(t *testing.T, perClass int) string {
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

	cfgYAML := fmt.Sprintf(`data:
  dir: %s
models:
  random_forest:
    num_trees: 25
  svm_grid:
    cs: [1]
    gammas: [0.1]
    folds: 3
`, dir)
	cfgPath := filepath.Join(dir, "chemscreen.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o644))
	return cfgPath
}

func execCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScreeningRunProducesReports(t *testing.T) {
	cfgPath := writeWorkspace(t, 20)

	out, err := execCLI(t, "run", "-c", cfgPath, "--class", "antibacterial", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")

	// The summary line precedes the JSON document.
	idx := strings.Index(out, "{")
	require.GreaterOrEqual(t, idx, 0)

	var result struct {
		Status         string `json:"status"`
		TotalRows      int    `json:"total_rows"`
		ValidationRows int    `json:"validation_rows"`
		Reports        map[string]struct {
			AUC      float64 `json:"auc"`
			Accuracy float64 `json:"accuracy"`
		} `json:"reports"`
	}
	require.NoError(t, json.Unmarshal([]byte(out[idx:]), &result))

	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, 40, result.TotalRows)
	assert.Equal(t, 12, result.ValidationRows)
	require.Contains(t, result.Reports, "random_forest")
	require.Contains(t, result.Reports, "rbf_svm")
	for model, report := range result.Reports {
		assert.GreaterOrEqual(t, report.AUC, 0.0, model)
		assert.LessOrEqual(t, report.AUC, 1.0, model)
	}
}

func TestClusterDiagnosticAcrossClasses(t *testing.T) {
	cfgPath := writeWorkspace(t, 4)
	outPath := filepath.Join(t.TempDir(), "all.nwk")

	out, err := execCLI(t, "cluster", "-c", cfgPath, "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Clustered 12 structures")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	newick := strings.TrimSpace(string(data))
	assert.True(t, strings.HasSuffix(newick, ";"))
	for _, name := range []string{"antibacterial-00", "antiviral-03", "other-01"} {
		assert.Contains(t, newick, name)
	}
}

func TestRunTableOutput(t *testing.T) {
	cfgPath := writeWorkspace(t, 20)

	out, err := execCLI(t, "run", "-c", cfgPath, "--class", "antiviral", "-o", "table")
	require.NoError(t, err)

	assert.Contains(t, out, "MODEL")
	assert.Contains(t, out, "random_forest")
	assert.Contains(t, out, "rbf_svm")
}
