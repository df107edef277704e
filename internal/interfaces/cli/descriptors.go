package cli

import (
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemScreen/internal/application/screening"
	"github.com/turtacn/ChemScreen/internal/domain/molecule"
	mtypes "github.com/turtacn/ChemScreen/pkg/types/molecule"
)

// descriptorRow is one molecule's rendered panel slice.
type descriptorRow struct {
	name   string
	values []float64
}

// descriptorTable renders one class's descriptor panel.
type descriptorTable struct {
	Class   string                   `json:"class"`
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`

	raw []descriptorRow
}

func (d *descriptorTable) TableHeaders() []string {
	return append([]string{"NAME"}, d.Columns...)
}

func (d *descriptorTable) TableRows() [][]string {
	rows := make([][]string, len(d.raw))
	for i, r := range d.raw {
		row := make([]string, 0, len(r.values)+1)
		row = append(row, r.name)
		for _, v := range r.values {
			if math.IsNaN(v) {
				row = append(row, "NA")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'g', 6, 64))
		}
		rows[i] = row
	}
	return rows
}

// NewDescriptorsCmd creates the descriptors command: compute and print the
// descriptor panel for one class.
func NewDescriptorsCmd() *cobra.Command {
	var (
		className string
		columns   []string
	)

	cmd := &cobra.Command{
		Use:   "descriptors",
		Short: "Compute the descriptor panel for one class",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			class, err := mtypes.ParseClass(className)
			if err != nil {
				return err
			}
			if len(columns) == 0 {
				columns = molecule.DefaultFeatureFormula
			}

			rows, err := screening.ExtractClass(cmd.Context(), cliCtx.Config, class, cliCtx.Logger)
			if err != nil {
				return err
			}

			table := &descriptorTable{Class: class.String(), Columns: columns}
			for _, row := range rows {
				values := row.Descriptors.Vector(columns)
				table.raw = append(table.raw, descriptorRow{name: row.Record.Metadata.Name, values: values})

				jsonRow := map[string]interface{}{"name": row.Record.Metadata.Name}
				for i, col := range columns {
					if !math.IsNaN(values[i]) {
						jsonRow[col] = values[i]
					}
				}
				table.Rows = append(table.Rows, jsonRow)
			}
			return PrintResult(cmd, table)
		},
	}

	cmd.Flags().StringVar(&className, "class", "antibacterial", "class to extract (antibacterial, antiviral, other)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "descriptor columns to print (default: the model feature formula)")

	return cmd
}
