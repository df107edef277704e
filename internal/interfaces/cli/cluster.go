package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemScreen/internal/application/screening"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// NewClusterCmd creates the cluster command: the pairwise similarity and
// hierarchical clustering diagnostic.
func NewClusterCmd() *cobra.Command {
	var (
		classNames []string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster structures by pairwise fingerprint similarity",
		Long:  "Compute the pairwise similarity matrix over the selected classes, build the\naverage-linkage dendrogram, and emit it in Newick format.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			classes := make([]mtypes.Class, 0, len(classNames))
			for _, name := range classNames {
				class, err := mtypes.ParseClass(name)
				if err != nil {
					return err
				}
				classes = append(classes, class)
			}

			var sink screening.NewickSink
			if cliCtx.Config.MinIO.Enabled {
				store, cleanup, err := buildArtifactStore(cmd.Context(), cliCtx)
				if err != nil {
					return err
				}
				defer cleanup()
				sink = store
			}

			svc, err := screening.NewSimilarityService(cliCtx.Config, nil, sink, nil, cliCtx.Logger)
			if err != nil {
				return err
			}

			res, err := svc.AnalyzeClasses(cmd.Context(), classes...)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Clustered %d structures (%s similarity, %s fingerprints)\n",
				len(res.Matrix.Labels), cliCtx.Config.Similarity.Metric, cliCtx.Config.Similarity.Fingerprint)
			if res.ArtifactKey != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Dendrogram stored at "+res.ArtifactKey)
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(res.Newick+"\n"), 0o644); err != nil {
					return err
				}
				PrintSuccess(cmd, "dendrogram written to "+outPath)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Newick)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&classNames, "classes", nil, "classes to include (default: all)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the Newick dendrogram to this file instead of stdout")

	return cmd
}
