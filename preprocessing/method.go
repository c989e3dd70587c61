// Package preprocessing implements the column transforms applied to a table
// before analysis: missing-value removal and imputation, min-max
// normalization, and IQR outlier removal. Every transform returns a new
// table; the input is never modified.
package preprocessing

import (
	"github.com/YuminosukeSato/datalab/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Method selects one transform from the fixed catalog. The zero value is
// not a valid method.
type Method int

const (
	RemoveMissing Method = iota + 1
	FillMean
	FillMedian
	FillMode
	FillCustom
	Normalize
	RemoveOutliers
)

var methodNames = [...]string{
	0:              "",
	RemoveMissing:  "remove_missing",
	FillMean:       "fill_mean",
	FillMedian:     "fill_median",
	FillMode:       "fill_mode",
	FillCustom:     "fill_custom",
	Normalize:      "normalize",
	RemoveOutliers: "remove_outliers",
}

// Methods lists every method in catalog order.
func Methods() []Method {
	out := make([]Method, 0, len(methodNames)-1)
	for i := 1; i < len(methodNames); i++ {
		out = append(out, Method(i))
	}
	return out
}

func (m Method) String() string {
	if m <= 0 || int(m) >= len(methodNames) {
		return "unknown"
	}
	return methodNames[m]
}

// ParseMethod resolves a stable method name such as "fill_mean".
func ParseMethod(name string) (Method, error) {
	for i, n := range methodNames {
		if i > 0 && n == name {
			return Method(i), nil
		}
	}
	return 0, errors.NewValidationError("method", "unknown preprocessing method", name)
}

// UnmarshalYAML decodes a method from its stable name.
func (m *Method) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseMethod(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML encodes a method as its stable name.
func (m Method) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}
