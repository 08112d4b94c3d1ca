package prompt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/registry"
	"github.com/vk/mediaflowgo/modules/prompt"
)

func TestPrompt_EmitsConfiguredText(t *testing.T) {
	reg := registry.New()
	(&prompt.Module{}).Register(reg)
	d, ok := reg.Lookup("prompt")
	require.True(t, ok)
	assert.True(t, d.Source)

	node := &graph.Node{
		ID:      "p",
		Type:    "prompt",
		Enabled: true,
		Config:  &prompt.Config{Text: "a castle at dawn"},
	}
	result, err := d.Runner.Run(context.Background(), &registry.Request{Node: node, Inputs: map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, "a castle at dawn", result.Outputs["text"])
}
