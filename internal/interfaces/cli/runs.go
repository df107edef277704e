package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/pkg/errors"
	ctypes "github.com/turtacn/ChemScreen/pkg/types/common"
)

// runList renders run history.
type runList struct {
	Runs []*run.Run `json:"runs"`
}

func (l *runList) TableHeaders() []string {
	return []string{"RUN ID", "POSITIVE", "STATUS", "ROWS", "DROPPED", "STARTED", "DURATION"}
}

func (l *runList) TableRows() [][]string {
	rows := make([][]string, len(l.Runs))
	for i, rn := range l.Runs {
		rows[i] = []string{
			rn.ID.String(),
			rn.Positive.String(),
			string(rn.Status),
			fmt.Sprintf("%d", rn.TotalRows),
			fmt.Sprintf("%d", rn.DroppedRows),
			rn.StartedAt.Format("2006-01-02 15:04:05"),
			rn.Duration().Truncate(1e6).String(),
		}
	}
	return rows
}

// NewRunsCmd creates the runs command group: screening run history.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect past screening runs",
	}
	cmd.AddCommand(newRunsListCmd(), newRunsGetCmd())
	return cmd
}

func requireDatabase(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	if !cliCtx.Config.Database.Enabled {
		return nil, errors.New(errors.ErrCodeDatabaseError, "database is not enabled in the configuration")
	}
	return cliCtx, nil
}

func newRunsListCmd() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent screening runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireDatabase(cmd)
			if err != nil {
				return err
			}

			repo, cleanup, err := buildRunRepo(cmd.Context(), cliCtx)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := repo.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			return PrintResult(cmd, &runList{Runs: runs})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "runs to skip")

	return cmd
}

func newRunsGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <run-id>",
		Short: "Show one screening run with its evaluation reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := requireDatabase(cmd)
			if err != nil {
				return err
			}
			id, err := ctypes.ParseID(args[0])
			if err != nil {
				return err
			}

			repo, cleanup, err := buildRunRepo(cmd.Context(), cliCtx)
			if err != nil {
				return err
			}
			defer cleanup()

			rn, err := repo.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return PrintResult(cmd, newRunResult(rn))
		},
	}
	return cmd
}
