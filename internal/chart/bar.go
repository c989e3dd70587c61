// Package chart renders frequency distributions as bar charts with
// gonum/plot.
package chart

import (
	"image/color"
	"io"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/table"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default image size of a rendered chart.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// Supported output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

var barColor = color.RGBA{R: 66, G: 133, B: 244, A: 255}

// Frequency builds a bar chart with one bar per distinct value, in the order
// given. An empty distribution fails with ValueError.
func Frequency(column string, freqs []table.Frequency) (*plot.Plot, error) {
	if len(freqs) == 0 {
		return nil, errors.NewValueError("chart.Frequency", "no values to plot")
	}

	values := make(plotter.Values, len(freqs))
	labels := make([]string, len(freqs))
	for i, f := range freqs {
		values[i] = float64(f.Count)
		labels[i] = f.Value
		if labels[i] == "" {
			labels[i] = "(empty)"
		}
	}

	p := plot.New()
	p.Title.Text = "Frequency of " + column
	p.X.Label.Text = column
	p.Y.Label.Text = "count"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, errors.Wrap(err, "build bar chart")
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}

// Write encodes p in format ("png" or "svg") to w.
func Write(w io.Writer, p *plot.Plot, format string, width, height vg.Length) error {
	switch format {
	case FormatPNG, FormatSVG:
	default:
		return errors.NewValidationError("format", "must be png or svg", format)
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return errors.Wrap(err, "render chart")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write chart")
	}
	return nil
}
