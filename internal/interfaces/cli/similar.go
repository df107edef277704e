package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemScreen/internal/application/screening"
	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	"github.com/turtacn/ChemScreen/internal/infrastructure/search/milvus"
	"github.com/turtacn/ChemScreen/pkg/errors"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// hitList renders neighbor search results.
type hitList struct {
	Query string       `json:"query"`
	Hits  []milvus.Hit `json:"hits"`
}

func (h *hitList) TableHeaders() []string {
	return []string{"RANK", "NAME", "CLASS", "SIMILARITY", "STRUCTURE KEY"}
}

func (h *hitList) TableRows() [][]string {
	rows := make([][]string, len(h.Hits))
	for i, hit := range h.Hits {
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			hit.Name,
			hit.Class,
			fmt.Sprintf("%.4f", hit.Similarity),
			hit.StructureKey,
		}
	}
	return rows
}

// NewSimilarCmd creates the similar command group: fingerprint index
// management and nearest-neighbor queries.
func NewSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Fingerprint similarity search against the vector index",
	}
	cmd.AddCommand(newSimilarIndexCmd(), newSimilarQueryCmd())
	return cmd
}

func newSimilarIndexCmd() *cobra.Command {
	var classNames []string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index class fingerprints into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if !cliCtx.Config.Milvus.Enabled {
				return errors.New(errors.ErrCodeSearchError, "milvus is not enabled in the configuration")
			}

			classes := make([]mtypes.Class, 0, len(classNames))
			for _, name := range classNames {
				class, err := mtypes.ParseClass(name)
				if err != nil {
					return err
				}
				classes = append(classes, class)
			}

			searcher, cleanup, err := buildSearcher(cmd.Context(), cliCtx)
			if err != nil {
				return err
			}
			defer cleanup()

			svc, err := screening.NewSimilarityService(cliCtx.Config, searcher, nil, nil, cliCtx.Logger)
			if err != nil {
				return err
			}

			total, err := svc.IndexClasses(cmd.Context(), classes...)
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("indexed %d structures", total))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&classNames, "classes", nil, "classes to index (default: all)")

	return cmd
}

func newSimilarQueryCmd() *cobra.Command {
	var (
		sdfPath string
		topK    int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Find the structures most similar to a query molecule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if !cliCtx.Config.Milvus.Enabled {
				return errors.New(errors.ErrCodeSearchError, "milvus is not enabled in the configuration")
			}

			query, err := loadQueryMolecule(sdfPath)
			if err != nil {
				return err
			}

			searcher, cleanup, err := buildSearcher(cmd.Context(), cliCtx)
			if err != nil {
				return err
			}
			defer cleanup()

			svc, err := screening.NewSimilarityService(cliCtx.Config, searcher, nil, nil, cliCtx.Logger)
			if err != nil {
				return err
			}

			hits, err := svc.Neighbors(cmd.Context(), query, topK)
			if err != nil {
				return err
			}
			return PrintResult(cmd, &hitList{Query: query.Name, Hits: hits})
		},
	}

	cmd.Flags().StringVar(&sdfPath, "sdf", "", "SDF file holding the query molecule (first record is used)")
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of neighbors to return")
	_ = cmd.MarkFlagRequired("sdf")

	return cmd
}

// loadQueryMolecule parses the first record of the SDF file at path.
func loadQueryMolecule(path string) (*molecule.Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDatasetLoadFailed, "opening query file %s", path)
	}
	defer f.Close()

	recs, err := molecule.ParseSDF(f)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New(errors.ErrCodeDatasetEmptyFrame, "query file holds no molecules")
	}
	return molecule.NewMolecule(recs[0], 0, mtypes.ClassOther)
}
