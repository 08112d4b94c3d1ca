package graph_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mediaflowgo/internal/graph"
)

func TestNew_RejectsDuplicateNodeIDs(t *testing.T) {
	_, err := graph.New(
		[]*graph.Node{
			{ID: "a", Type: "x", Enabled: true},
			{ID: "a", Type: "y", Enabled: true},
		},
		nil,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestNew_RejectsDanglingEdges(t *testing.T) {
	nodes := []*graph.Node{{ID: "a", Type: "x", Enabled: true}}

	_, err := graph.New(nodes, []graph.Edge{{Source: "ghost", Target: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")

	_, err = graph.New(nodes, []graph.Edge{{Source: "a", Target: "ghost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")
}

func TestNew_DefaultsStatusToReady(t *testing.T) {
	g, err := graph.New([]*graph.Node{{ID: "a", Type: "x", Enabled: true}}, nil)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusReady, g.NodeByID("a").Status)
}

func TestEdgeAccessorsKeepDeclarationOrder(t *testing.T) {
	g, err := graph.New(
		[]*graph.Node{
			{ID: "a", Type: "x", Enabled: true},
			{ID: "b", Type: "x", Enabled: true},
			{ID: "sink", Type: "x", Enabled: true},
		},
		[]graph.Edge{
			{Source: "a", Target: "sink", SourceHandle: "out", TargetHandle: "items"},
			{Source: "b", Target: "sink", SourceHandle: "out", TargetHandle: "items"},
			{Source: "a", Target: "b", SourceHandle: "out", TargetHandle: "in"},
		},
	)
	require.NoError(t, err)

	in := g.IncomingEdges("sink")
	require.Len(t, in, 2)
	assert.Equal(t, "a", in[0].Source)
	assert.Equal(t, "b", in[1].Source)

	out := g.OutgoingEdges("a")
	require.Len(t, out, 2)
	assert.Equal(t, "sink", out[0].Target)
	assert.Equal(t, "b", out[1].Target)
}

type cloneableConfig struct {
	Value int
}

func (c *cloneableConfig) CloneConfig() any {
	clone := *c
	return &clone
}

func TestClone_IsolatesOutputsAndCloneableConfigs(t *testing.T) {
	shared := &struct{ Name string }{Name: "shared"}
	g, err := graph.New(
		[]*graph.Node{
			{
				ID: "a", Type: "x", Enabled: true,
				Outputs: map[string]any{"out": 1},
				Config:  &cloneableConfig{Value: 7},
			},
			{ID: "b", Type: "x", Enabled: true, Config: shared},
		},
		[]graph.Edge{{Source: "a", Target: "b", SourceHandle: "out", TargetHandle: "in"}},
	)
	require.NoError(t, err)

	clone := g.Clone()
	clone.NodeByID("a").Outputs["out"] = 99
	clone.NodeByID("a").Config.(*cloneableConfig).Value = 42

	assert.Equal(t, 1, g.NodeByID("a").Outputs["out"])
	assert.Equal(t, 7, g.NodeByID("a").Config.(*cloneableConfig).Value)

	// Plain configs stay shared: the engine treats them as read-only.
	assert.Same(t, shared, clone.NodeByID("b").Config)
}

type promptConfig struct {
	Text string `json:"text"`
}

func testFactory(nodeType string) (any, error) {
	switch nodeType {
	case "prompt":
		return &promptConfig{}, nil
	case "plain":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}
}

func TestDecodeJSON_ParsesEditorDocument(t *testing.T) {
	doc := []byte(`{
	  "nodes": [
	    {"id": "p", "type": "prompt", "config": {"text": "a castle at dawn"}},
	    {"id": "off", "type": "plain", "enabled": false},
	    {"id": "sink", "type": "plain", "outputs": {"out": "seeded"}}
	  ],
	  "edges": [
	    {"source": "p", "target": "sink", "sourceHandle": "text", "targetHandle": "in"}
	  ]
	}`)

	g, err := graph.DecodeJSON(doc, testFactory)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)

	p := g.NodeByID("p")
	assert.True(t, p.Enabled)
	assert.Equal(t, "a castle at dawn", p.Config.(*promptConfig).Text)

	assert.False(t, g.NodeByID("off").Enabled)
	assert.Equal(t, "seeded", g.NodeByID("sink").Outputs["out"])

	require.Len(t, g.Edges, 1)
	assert.Equal(t, "text", g.Edges[0].SourceHandle)
	assert.Equal(t, "in", g.Edges[0].TargetHandle)
}

func TestDecodeJSON_UnknownTypeErrors(t *testing.T) {
	doc := []byte(`{"nodes": [{"id": "x", "type": "hologram"}], "edges": []}`)

	_, err := graph.DecodeJSON(doc, testFactory)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hologram")
}

func TestEncodeJSON_RoundTripsEngineState(t *testing.T) {
	g, err := graph.New(
		[]*graph.Node{
			{
				ID: "p", Type: "prompt", Enabled: true,
				Status:  graph.StatusCompleted,
				Outputs: map[string]any{"text": "done"},
				Config:  &promptConfig{Text: "done"},
			},
			{ID: "off", Type: "plain", Enabled: false, Status: graph.StatusReady},
		},
		[]graph.Edge{{Source: "p", Target: "off", SourceHandle: "text", TargetHandle: "in"}},
	)
	require.NoError(t, err)

	data, err := graph.EncodeJSON(g)
	require.NoError(t, err)

	back, err := graph.DecodeJSON(data, testFactory)
	require.NoError(t, err)

	p := back.NodeByID("p")
	assert.Equal(t, graph.StatusCompleted, p.Status)
	assert.Equal(t, "done", p.Outputs["text"])
	assert.Equal(t, "done", p.Config.(*promptConfig).Text)
	assert.False(t, back.NodeByID("off").Enabled)
	assert.Equal(t, g.Edges, back.Edges)
}
