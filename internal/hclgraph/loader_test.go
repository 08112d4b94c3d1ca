package hclgraph_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mediaflowgo/internal/hclgraph"
	"github.com/vk/mediaflowgo/internal/registry"
	"github.com/vk/mediaflowgo/internal/testutil"
)

type promptCfg struct {
	Text string `hcl:"text"`
}

func newLoaderRegistry() *registry.Registry {
	runner := testutil.NewScriptedRunner()
	reg := registry.New()
	testutil.RegisterType(reg, "prompt", runner, testutil.TypeOptions{
		NewConfig: func() any { return &promptCfg{} },
	})
	testutil.RegisterType(reg, "plain", runner, testutil.TypeOptions{})
	return reg
}

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ParsesNodesEdgesAndConfig(t *testing.T) {
	path := writeWorkflow(t, `
node "prompt" "p" {
  text = "a castle at dawn"
}

node "plain" "off" {
  enabled = false
}

node "plain" "sink" {}

edge {
  source        = "p"
  target        = "sink"
  source_handle = "text"
  target_handle = "in"
}
`)

	g, err := hclgraph.Load(context.Background(), path, newLoaderRegistry())
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)

	p := g.NodeByID("p")
	assert.True(t, p.Enabled)
	assert.Equal(t, "a castle at dawn", p.Config.(*promptCfg).Text)

	assert.False(t, g.NodeByID("off").Enabled)

	require.Len(t, g.Edges, 1)
	assert.Equal(t, "p", g.Edges[0].Source)
	assert.Equal(t, "text", g.Edges[0].SourceHandle)
	assert.Equal(t, "in", g.Edges[0].TargetHandle)
}

func TestLoad_UnknownNodeType(t *testing.T) {
	path := writeWorkflow(t, `
node "hologram" "x" {}
`)

	_, err := hclgraph.Load(context.Background(), path, newLoaderRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hologram")
}

func TestLoad_DanglingEdge(t *testing.T) {
	path := writeWorkflow(t, `
node "plain" "a" {}

edge {
  source        = "a"
  target        = "ghost"
  source_handle = "out"
  target_handle = "in"
}
`)

	_, err := hclgraph.Load(context.Background(), path, newLoaderRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestLoad_SyntaxError(t *testing.T) {
	path := writeWorkflow(t, `node "plain" {`)

	_, err := hclgraph.Load(context.Background(), path, newLoaderRegistry())
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := hclgraph.Load(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"), newLoaderRegistry())
	require.Error(t, err)
}
