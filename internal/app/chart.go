package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/datalab/internal/chart"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

func newChartCmd(o *options) *cobra.Command {
	var out, format string
	var width, height float64
	cmd := &cobra.Command{
		Use:   "chart FILE COLUMN",
		Short: "Render the value frequencies of a column as a bar chart",
		Long: `Chart counts the distinct values of COLUMN in first-seen order and
renders one bar per value. The format follows the --out extension unless
--format is given.`,
		Example: `  datalab chart data.csv city --out city.png
  datalab chart data.csv grade --out grade.svg --width 8 --height 5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(cmd, args[0])
			if err != nil {
				return err
			}
			freqs, err := t.Frequencies(args[1])
			if err != nil {
				return err
			}
			p, err := chart.Frequency(args[1], freqs)
			if err != nil {
				return err
			}

			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
			}
			f, err := os.Create(out)
			if err != nil {
				return errors.Wrapf(err, "create %s", out)
			}
			if err := chart.Write(f, p, format, vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return errors.Wrapf(err, "close %s", out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bars to %s\n", len(freqs), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "chart.png", "output image path")
	cmd.Flags().StringVar(&format, "format", "", "png or svg (default: from --out extension)")
	cmd.Flags().Float64Var(&width, "width", float64(chart.DefaultWidth/vg.Inch), "image width in inches")
	cmd.Flags().Float64Var(&height, "height", float64(chart.DefaultHeight/vg.Inch), "image height in inches")
	return cmd
}
