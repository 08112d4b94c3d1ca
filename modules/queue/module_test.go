package queue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mediaflowgo/internal/batch"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/registry"
	"github.com/vk/mediaflowgo/modules/queue"
)

func descriptor(t *testing.T) *registry.Descriptor {
	t.Helper()
	reg := registry.New()
	(&queue.Module{}).Register(reg)
	d, ok := reg.Lookup("queue")
	require.True(t, ok)
	return d
}

func runQueue(t *testing.T, cfg *queue.Config) (*registry.Result, error) {
	t.Helper()
	d := descriptor(t)
	node := &graph.Node{ID: "q", Type: "queue", Enabled: true, Config: cfg}
	return d.Runner.Run(context.Background(), &registry.Request{Node: node, Inputs: map[string]any{}})
}

func TestQueue_EmitsActiveVariant(t *testing.T) {
	cfg := &queue.Config{Scripts: []string{"first", "second", "third"}}

	result, err := runQueue(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, "first", result.Outputs["text"])
	assert.Equal(t, 0, result.Outputs["index"])

	cfg.SetActiveVariant(2)
	result, err = runQueue(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, "third", result.Outputs["text"])
	assert.Equal(t, 2, result.Outputs["index"])
}

func TestQueue_EmptyQueueFails(t *testing.T) {
	_, err := runQueue(t, &queue.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestQueue_OutOfRangeVariantFails(t *testing.T) {
	cfg := &queue.Config{Scripts: []string{"only"}}
	cfg.SetActiveVariant(5)

	_, err := runQueue(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestQueue_ConfigIsVariantSource(t *testing.T) {
	var src batch.VariantSource = &queue.Config{Scripts: []string{"a", "b"}}
	assert.Equal(t, 2, src.VariantCount())
}

func TestQueue_CloneConfigIsolatesActiveIndex(t *testing.T) {
	cfg := &queue.Config{Scripts: []string{"a", "b"}}
	var cloner graph.ConfigCloner = cfg

	clone := cloner.CloneConfig().(*queue.Config)
	clone.SetActiveVariant(1)

	result, err := runQueue(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, "a", result.Outputs["text"])

	result, err = runQueue(t, clone)
	require.NoError(t, err)
	assert.Equal(t, "b", result.Outputs["text"])
}

func TestQueue_DescriptorIsSource(t *testing.T) {
	d := descriptor(t)
	assert.True(t, d.Source)
	assert.Empty(t, d.Inputs)
}
