package topology_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/testutil"
	"github.com/vk/mediaflowgo/internal/topology"
)

func TestAnalyze_LinearChain(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Node{
			testutil.Node("a", "fast"),
			testutil.Node("b", "fast"),
			testutil.Node("c", "fast"),
		},
		[]graph.Edge{
			testutil.Edge("a", "out", "b", "in"),
			testutil.Edge("b", "out", "c", "in"),
		},
	)

	result, err := topology.Analyze(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result.Order)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, result.Levels)
}

func TestAnalyze_DiamondSharesLevel(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Node{
			testutil.Node("top", "fast"),
			testutil.Node("left", "fast"),
			testutil.Node("right", "fast"),
			testutil.Node("bottom", "fast"),
		},
		[]graph.Edge{
			testutil.Edge("top", "out", "left", "in"),
			testutil.Edge("top", "out", "right", "in"),
			testutil.Edge("left", "out", "bottom", "a"),
			testutil.Edge("right", "out", "bottom", "b"),
		},
	)

	result, err := topology.Analyze(g)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"top"}, {"left", "right"}, {"bottom"}}, result.Levels)
}

func TestAnalyze_DisconnectedNodesShareLevelZero(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Node{
			testutil.Node("a", "fast"),
			testutil.Node("b", "fast"),
			testutil.Node("c", "fast"),
		},
		[]graph.Edge{
			testutil.Edge("a", "out", "c", "in"),
		},
	)

	result, err := topology.Analyze(g)
	require.NoError(t, err)
	// b has no path relationship to a or c; it still sits at level 0.
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, result.Levels)
}

func TestAnalyze_CycleDetected(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Node{
			testutil.Node("start", "fast"),
			testutil.Node("x", "fast"),
			testutil.Node("y", "fast"),
		},
		[]graph.Edge{
			testutil.Edge("start", "out", "x", "in"),
			testutil.Edge("x", "out", "y", "in"),
			testutil.Edge("y", "out", "x", "in"),
		},
	)

	result, err := topology.Analyze(g)
	require.Error(t, err)
	assert.Nil(t, result)

	structural, ok := topology.AsError(err)
	require.True(t, ok)
	assert.Equal(t, topology.CycleDetected, structural.Kind)
}

func TestAnalyze_NoStartNode(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Node{
			testutil.Node("x", "fast"),
			testutil.Node("y", "fast"),
		},
		[]graph.Edge{
			testutil.Edge("x", "out", "y", "in"),
			testutil.Edge("y", "out", "x", "in"),
		},
	)

	_, err := topology.Analyze(g)
	require.Error(t, err)

	structural, ok := topology.AsError(err)
	require.True(t, ok)
	assert.Equal(t, topology.NoStartNode, structural.Kind)
}

func TestAnalyze_EmptyGraph(t *testing.T) {
	g := testutil.MustGraph(t, nil, nil)

	result, err := topology.Analyze(g)
	require.NoError(t, err)
	assert.Empty(t, result.Order)
	assert.Empty(t, result.Levels)
}

func TestAnalyze_Deterministic(t *testing.T) {
	g := testutil.MustGraph(t,
		[]*graph.Node{
			testutil.Node("s1", "fast"),
			testutil.Node("s2", "fast"),
			testutil.Node("m1", "fast"),
			testutil.Node("m2", "fast"),
			testutil.Node("sink", "fast"),
		},
		[]graph.Edge{
			testutil.Edge("s1", "out", "m1", "in"),
			testutil.Edge("s2", "out", "m2", "in"),
			testutil.Edge("m1", "out", "sink", "a"),
			testutil.Edge("m2", "out", "sink", "b"),
		},
	)

	first, err := topology.Analyze(g)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		next, err := topology.Analyze(g)
		require.NoError(t, err)
		assert.Equal(t, first.Order, next.Order)
		assert.Equal(t, first.Levels, next.Levels)
	}
}
