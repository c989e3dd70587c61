package app

import (
	"strconv"

	"github.com/YuminosukeSato/datalab/table"
	"github.com/spf13/cobra"
)

func newFilterCmd(o *options) *cobra.Command {
	var column, contains, out string
	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Keep the rows whose column contains a substring",
		Example: `  datalab filter data.csv --column city --contains Tok
  datalab filter data.csv --column tag --contains x --out subset.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args[0])
			if err != nil {
				return err
			}
			next, err := t.FilterContains(column, contains)
			if err != nil {
				return err
			}
			return writeTableTo(cmd, out, next)
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "column to match")
	cmd.Flags().StringVar(&contains, "contains", "", "substring the cell must contain")
	cmd.Flags().StringVar(&out, "out", "", "output CSV path (default: stdout)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

func newSortCmd(o *options) *cobra.Command {
	var column, out string
	var desc bool
	cmd := &cobra.Command{
		Use:   "sort FILE",
		Short: "Sort rows by a column",
		Long: `Sort orders rows stably by one column. Numbers compare numerically
and come before text in either direction; text compares lexically.`,
		Example: `  datalab sort data.csv --column price --desc`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args[0])
			if err != nil {
				return err
			}
			next, err := t.SortBy(column, desc)
			if err != nil {
				return err
			}
			return writeTableTo(cmd, out, next)
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "column to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort in descending order")
	cmd.Flags().StringVar(&out, "out", "", "output CSV path (default: stdout)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

type frequencyRow struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

func newFreqCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "freq FILE COLUMN",
		Short:   "Count the distinct values of a column",
		Example: `  datalab freq data.csv city`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args[0])
			if err != nil {
				return err
			}
			freqs, err := t.Frequencies(args[1])
			if err != nil {
				return err
			}
			return o.printFrequencies(cmd, freqs)
		},
	}
}

func (o *options) printFrequencies(cmd *cobra.Command, freqs []table.Frequency) error {
	p := o.printer(cmd)
	if p.json {
		out := make([]frequencyRow, len(freqs))
		for i, f := range freqs {
			out[i] = frequencyRow{Value: f.Value, Count: f.Count}
		}
		return p.encode(out)
	}
	rows := make([][]string, len(freqs))
	for i, f := range freqs {
		rows[i] = []string{f.Value, strconv.Itoa(f.Count)}
	}
	return p.grid([]string{"value", "count"}, rows)
}
