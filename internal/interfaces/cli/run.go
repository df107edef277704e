package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemScreen/internal/application/screening"
	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/internal/intelligence/common"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// runResult is the printable outcome of one screening run.
type runResult struct {
	RunID          string                    `json:"run_id"`
	Positive       string                    `json:"positive"`
	Status         string                    `json:"status"`
	Seed           int64                     `json:"seed"`
	TotalRows      int                       `json:"total_rows"`
	TrainRows      int                       `json:"train_rows"`
	ValidationRows int                       `json:"validation_rows"`
	DroppedRows    int                       `json:"dropped_rows"`
	DurationMS     int64                     `json:"duration_ms"`
	Reports        map[string]*common.Report `json:"reports"`
}

func newRunResult(rn *run.Run) *runResult {
	return &runResult{
		RunID:          rn.ID.String(),
		Positive:       rn.Positive.String(),
		Status:         string(rn.Status),
		Seed:           rn.Seed,
		TotalRows:      rn.TotalRows,
		TrainRows:      rn.TrainRows,
		ValidationRows: rn.ValidationRows,
		DroppedRows:    rn.DroppedRows,
		DurationMS:     rn.Duration().Milliseconds(),
		Reports:        rn.Reports,
	}
}

func (r *runResult) TableHeaders() []string {
	return []string{"MODEL", "ACCURACY", "PRECISION", "RECALL", "F1", "AUC", "TP", "FP", "TN", "FN"}
}

func (r *runResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Reports))
	for _, model := range []string{"random_forest", "rbf_svm"} {
		rep, ok := r.Reports[model]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			rep.Model,
			fmt.Sprintf("%.4f", rep.Accuracy),
			fmt.Sprintf("%.4f", rep.Precision),
			fmt.Sprintf("%.4f", rep.Recall),
			fmt.Sprintf("%.4f", rep.F1),
			fmt.Sprintf("%.4f", rep.AUC),
			fmt.Sprintf("%d", rep.Confusion.TP),
			fmt.Sprintf("%d", rep.Confusion.FP),
			fmt.Sprintf("%d", rep.Confusion.TN),
			fmt.Sprintf("%d", rep.Confusion.FN),
		})
	}
	return rows
}

// NewRunCmd creates the run command: one full screening pipeline for a
// positive drug class.
func NewRunCmd() *cobra.Command {
	var positiveClass string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Screen one drug class against the reference set",
		Long:  "Load the positive class and the reference set, compute descriptor panels,\nassemble the binary dataset, train both classifiers, and report hold-out\nperformance.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			positive, err := mtypes.ParseClass(positiveClass)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			env, err := buildPipelineEnv(ctx, cliCtx)
			if err != nil {
				return err
			}
			defer env.close()
			env.startMetrics(cliCtx.Logger)

			svc, err := screening.NewService(cliCtx.Config, env.deps)
			if err != nil {
				return err
			}

			rn, err := svc.Screen(ctx, positive)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Run %s completed: %d rows (%d train, %d validation, %d dropped)\n",
				rn.ID.String(), rn.TotalRows, rn.TrainRows, rn.ValidationRows, rn.DroppedRows)
			return PrintResult(cmd, newRunResult(rn))
		},
	}

	cmd.Flags().StringVar(&positiveClass, "class", "antibacterial", "positive drug class (antibacterial, antiviral)")

	return cmd
}
