package app

import (
	"github.com/YuminosukeSato/datalab/correlation"
	"github.com/YuminosukeSato/datalab/ml"
	"github.com/YuminosukeSato/datalab/pkg/log"
	"github.com/YuminosukeSato/datalab/stats"
	"github.com/YuminosukeSato/datalab/table"
	"github.com/spf13/cobra"
)

func newDescribeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "describe FILE [COLUMN...]",
		Short: "Show mean, median, mode and standard deviation per column",
		Long: `Describe prints descriptive statistics over the numeric cells of each
column. Cells that do not parse as numbers are ignored.

Without COLUMN arguments every column holding at least one number is
described. A named column without any number is an error.`,
		Example: `  datalab describe data.csv
  datalab describe data.csv age income -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args[0])
			if err != nil {
				return err
			}
			return o.describe(cmd, t, args[1:])
		},
	}
}

type describeRow struct {
	Column string `json:"column"`
	Mean   number `json:"mean"`
	Median number `json:"median"`
	Mode   number `json:"mode"`
	StdDev number `json:"std_dev"`
}

func (o *options) describe(cmd *cobra.Command, t *table.Table, columns []string) error {
	s := ml.NewSession(t, ml.WithLogger(o.logger))

	var summaries []stats.ColumnStatistics
	if len(columns) == 0 {
		summaries = stats.DescribeAll(t)
	} else {
		for _, c := range columns {
			st, err := s.Describe(c)
			if err != nil {
				return err
			}
			summaries = append(summaries, stats.ColumnStatistics{Name: c, Statistics: st})
		}
	}
	o.logger.Debug("described table", log.RowsKey, t.NumRows(), log.FeaturesKey, len(summaries))

	p := o.printer(cmd)
	if p.json {
		out := make([]describeRow, len(summaries))
		for i, cs := range summaries {
			out[i] = describeRow{
				Column: cs.Name,
				Mean:   number(cs.Mean),
				Median: number(cs.Median),
				Mode:   number(cs.Mode),
				StdDev: number(cs.StdDev),
			}
		}
		return p.encode(out)
	}
	rows := make([][]string, len(summaries))
	for i, cs := range summaries {
		rows[i] = []string{cs.Name, formatFloat(cs.Mean), formatFloat(cs.Median), formatFloat(cs.Mode), formatFloat(cs.StdDev)}
	}
	return p.grid([]string{"column", "mean", "median", "mode", "std_dev"}, rows)
}

func newCorrelateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "correlate FILE [COLUMN...]",
		Short: "Print the Pearson correlation matrix of columns",
		Long: `Correlate prints the full Pearson matrix of the given columns, or of
every numeric column when none is named. Fewer than two columns produce an
empty matrix.`,
		Example: `  datalab correlate data.csv height weight age`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args[0])
			if err != nil {
				return err
			}
			columns := args[1:]
			if len(columns) == 0 {
				for _, cs := range stats.DescribeAll(t) {
					columns = append(columns, cs.Name)
				}
			}
			m, err := ml.NewSession(t, ml.WithLogger(o.logger)).Correlate(columns)
			if err != nil {
				return err
			}
			return o.printMatrix(cmd, m)
		},
	}
}

type correlationCell struct {
	Row   string `json:"row"`
	Col   string `json:"col"`
	Value number `json:"value"`
}

func (o *options) printMatrix(cmd *cobra.Command, m correlation.Matrix) error {
	p := o.printer(cmd)
	if p.json {
		out := make([]correlationCell, len(m.Cells))
		for i, c := range m.Cells {
			out[i] = correlationCell{Row: c.Row, Col: c.Col, Value: number(c.Value)}
		}
		return p.encode(out)
	}

	n := len(m.Labels)
	header := append([]string{""}, m.Labels...)
	rows := make([][]string, n)
	for i, label := range m.Labels {
		rows[i] = make([]string, n+1)
		rows[i][0] = label
		for j := 0; j < n; j++ {
			rows[i][j+1] = formatFloat(m.Cells[i*n+j].Value)
		}
	}
	return p.grid(header, rows)
}
