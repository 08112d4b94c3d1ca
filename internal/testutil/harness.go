// Package testutil provides shared helpers for engine tests: graph builders,
// a scripted runner standing in for real node executors, and a recording
// notifier for asserting on status propagation.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/registry"
)

// Node builds a graph node with the given id and type, enabled by default.
func Node(id, nodeType string) *graph.Node {
	return &graph.Node{ID: id, Type: nodeType, Enabled: true}
}

// DisabledNode builds a disabled graph node.
func DisabledNode(id, nodeType string) *graph.Node {
	return &graph.Node{ID: id, Type: nodeType, Enabled: false}
}

// Edge builds an edge with explicit handles.
func Edge(source, sourceHandle, target, targetHandle string) graph.Edge {
	return graph.Edge{
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	}
}

// MustGraph builds a graph, failing the test on validation errors.
func MustGraph(t *testing.T, nodes []*graph.Node, edges []graph.Edge) *graph.Graph {
	t.Helper()
	g, err := graph.New(nodes, edges)
	require.NoError(t, err)
	return g
}

// ScriptedRunner is a Node Executor stand-in with canned per-node outcomes.
// It records call counts and call order for assertions.
type ScriptedRunner struct {
	mu         sync.Mutex
	results    map[string]*registry.Result
	errs       map[string][]error
	alwaysFail map[string]error
	calls      map[string]int
	order      []string
}

// NewScriptedRunner creates an empty ScriptedRunner. Unscripted nodes
// succeed with outputs {"out": <nodeID>}.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{
		results:    make(map[string]*registry.Result),
		errs:       make(map[string][]error),
		alwaysFail: make(map[string]error),
		calls:      make(map[string]int),
	}
}

// Script sets the result returned for a node.
func (r *ScriptedRunner) Script(nodeID string, result *registry.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[nodeID] = result
}

// ScriptOutputs sets a successful result with the given outputs.
func (r *ScriptedRunner) ScriptOutputs(nodeID string, outputs map[string]any) {
	r.Script(nodeID, &registry.Result{Outputs: outputs})
}

// Fail appends a failure outcome for a node. Successive calls to the node
// consume the queued failures in order; once exhausted the node succeeds.
func (r *ScriptedRunner) Fail(nodeID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[nodeID] = append(r.errs[nodeID], err)
}

// FailAlways makes every call to the node fail with the same error.
func (r *ScriptedRunner) FailAlways(nodeID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alwaysFail[nodeID] = err
}

// Run implements registry.Runner.
func (r *ScriptedRunner) Run(ctx context.Context, req *registry.Request) (*registry.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := req.Node.ID
	r.calls[id]++
	r.order = append(r.order, id)

	if err, ok := r.alwaysFail[id]; ok {
		return nil, err
	}
	if pending := r.errs[id]; len(pending) > 0 {
		err := pending[0]
		r.errs[id] = pending[1:]
		return nil, err
	}
	if result, ok := r.results[id]; ok && result != nil {
		return result, nil
	}
	return &registry.Result{Outputs: map[string]any{"out": id}}, nil
}

// Calls returns how many times the node's executor body ran.
func (r *ScriptedRunner) Calls(nodeID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[nodeID]
}

// TotalCalls returns the executor invocation count across all nodes.
func (r *ScriptedRunner) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, c := range r.calls {
		total += c
	}
	return total
}

// Order returns node IDs in execution order.
func (r *ScriptedRunner) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
