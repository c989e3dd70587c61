package preprocessing

import (
	"strings"
	"testing"

	"github.com/YuminosukeSato/datalab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineYAML = `
steps:
  - column: v
    method: fill_custom
    value: "4"
  - column: v
    method: normalize
    range: {min: 0, max: 10}
`

func TestLoadAndRunPipeline(t *testing.T) {
	p, err := LoadPipeline(strings.NewReader(pipelineYAML))
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)
	assert.Equal(t, FillCustom, p.Steps[0].Method)
	assert.Equal(t, Normalize, p.Steps[1].Method)

	in := sample(t) // v: 1, "", 2, 2, 6
	out, err := p.Run(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.00", "6.00", "2.00", "2.00", "10.00"}, out.Column(1))
	assert.Equal(t, "", in.Cell(1, 1))
}

func TestPipelineAllOrNothing(t *testing.T) {
	p := &Pipeline{Steps: []Step{
		{Column: "v", Method: RemoveMissing},
		{Column: "id", Method: Normalize},
	}}
	out, err := p.Run(sample(t))
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Equal(t, errors.KindEmptyColumn, errors.KindOf(err))
	assert.Contains(t, err.Error(), "pipeline step 2")
}

func TestLoadPipelineValidation(t *testing.T) {
	tests := map[string]string{
		"unknown method": "steps:\n  - column: v\n    method: explode\n",
		"unknown field":  "steps:\n  - column: v\n    method: fill_mean\n    colour: red\n",
		"missing column": "steps:\n  - method: fill_mean\n",
		"missing method": "steps:\n  - column: v\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPipeline(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPipelineEmptyDocument(t *testing.T) {
	p, err := LoadPipeline(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, p.Steps)
}
