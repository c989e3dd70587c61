package preprocessing

import (
	"fmt"
	"io"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/YuminosukeSato/datalab/table"
	"gopkg.in/yaml.v3"
)

// Bounds is the target interval of a normalize step.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Step is one transform of a Pipeline.
type Step struct {
	Column            string  `yaml:"column"`
	Method            Method  `yaml:"method"`
	Value             string  `yaml:"value,omitempty"`
	Range             *Bounds `yaml:"range,omitempty"`
	RemoveOutliers    bool    `yaml:"remove_outliers,omitempty"`
	OutlierMultiplier float64 `yaml:"outlier_multiplier,omitempty"`
}

// Options converts the step's fields into Apply options.
func (s Step) Options() []Option {
	var opts []Option
	if s.Method == FillCustom {
		opts = append(opts, WithCustomValue(s.Value))
	}
	if s.Range != nil {
		opts = append(opts, WithRange(s.Range.Min, s.Range.Max))
	}
	if s.RemoveOutliers {
		opts = append(opts, WithOutlierRemoval())
	}
	if s.OutlierMultiplier > 0 {
		opts = append(opts, WithOutlierMultiplier(s.OutlierMultiplier))
	}
	return opts
}

// Pipeline is an ordered list of steps, typically loaded from YAML:
//
//	steps:
//	  - column: age
//	    method: fill_median
//	  - column: income
//	    method: normalize
//	    range: {min: -1, max: 1}
//	    remove_outliers: true
type Pipeline struct {
	Steps []Step `yaml:"steps"`
}

// LoadPipeline decodes a pipeline document. Unknown fields are rejected.
func LoadPipeline(r io.Reader) (*Pipeline, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		if err == io.EOF {
			return &p, nil
		}
		return nil, errors.Wrap(err, "decode pipeline")
	}
	for i, s := range p.Steps {
		if s.Column == "" {
			return nil, errors.NewValidationError("column", fmt.Sprintf("step %d has no column", i+1), "")
		}
		if s.Method == 0 {
			return nil, errors.NewValidationError("method", fmt.Sprintf("step %d has no method", i+1), "")
		}
	}
	return &p, nil
}

// Run applies every step in order. The first failing step aborts the run and
// its error is returned wrapped with the step number; no partial result is
// returned.
func (p *Pipeline) Run(t *table.Table) (*table.Table, error) {
	current := t
	for i, s := range p.Steps {
		next, err := Apply(current, s.Column, s.Method, s.Options()...)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline step %d (%s on %q)", i+1, s.Method, s.Column)
		}
		current = next
	}
	return current, nil
}
