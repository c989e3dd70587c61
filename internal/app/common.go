package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/datalab/internal/config"
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/table"
	"github.com/spf13/cobra"
)

// readTable decodes a CSV file whose first record is the header. "-" reads
// stdin. Ragged records are passed through so LoadTable can report the row.
func readTable(cmd *cobra.Command, path string) (*table.Table, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", path)
		}
		defer f.Close()
		r = f
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "read csv %s", path)
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("readTable", fmt.Sprintf("%s has no header row", path))
	}
	return table.LoadTable(records[0], records[1:])
}

// writeTable encodes t as CSV, header first.
func writeTable(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}

// writeTableTo writes t to path, or to the command output when path is empty.
func writeTableTo(cmd *cobra.Command, path string, t *table.Table) error {
	if path == "" {
		return writeTable(cmd.OutOrStdout(), t)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := writeTable(f, t); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", t.NumRows(), path)
	return nil
}

// printer renders command results in the configured output format.
type printer struct {
	w    io.Writer
	json bool
}

func (o *options) printer(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout(), json: o.cfg.Output == config.OutputJSON}
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) grid(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// number is a float64 that encodes NaN and ±Inf as JSON null.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// parseFloats splits a comma-separated list such as "1.5,2,3".
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, ok := table.ParseNumber(p)
		if !ok {
			return nil, errors.NewValidationError("predict", "not a number", p)
		}
		out[i] = v
	}
	return out, nil
}
