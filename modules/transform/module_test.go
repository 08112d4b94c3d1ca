package transform_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/registry"
	"github.com/vk/mediaflowgo/modules/transform"
)

func descriptor(t *testing.T) *registry.Descriptor {
	t.Helper()
	reg := registry.New()
	(&transform.Module{}).Register(reg)
	d, ok := reg.Lookup("transform")
	require.True(t, ok)
	return d
}

func runTransform(t *testing.T, expression string, inputs map[string]any) (*registry.Result, error) {
	t.Helper()
	d := descriptor(t)
	node := &graph.Node{
		ID:      "tr",
		Type:    "transform",
		Enabled: true,
		Config:  &transform.Config{Expression: expression},
	}
	return d.Runner.Run(context.Background(), &registry.Request{Node: node, Inputs: inputs})
}

func TestTransform_ArithmeticOverInput(t *testing.T) {
	result, err := runTransform(t, "input * 2", map[string]any{"input": 21})
	require.NoError(t, err)
	assert.Equal(t, 42, result.Outputs["output"])
}

func TestTransform_StringBuiltins(t *testing.T) {
	result, err := runTransform(t, `upper(input) + "!"`, map[string]any{"input": "render"})
	require.NoError(t, err)
	assert.Equal(t, "RENDER!", result.Outputs["output"])
}

func TestTransform_EmptyExpressionFails(t *testing.T) {
	_, err := runTransform(t, "", map[string]any{"input": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no expression")
}

func TestTransform_CompileErrorSurfaces(t *testing.T) {
	_, err := runTransform(t, "input +", map[string]any{"input": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiling expression")
}

func TestTransform_DescriptorShape(t *testing.T) {
	d := descriptor(t)
	assert.False(t, d.Serial)
	assert.False(t, d.Aggregator)
	require.Len(t, d.Inputs, 1)
	assert.Equal(t, "input", d.Inputs[0].Handle)
	assert.True(t, d.Inputs[0].Required)
}
