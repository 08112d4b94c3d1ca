// Package graph defines the workflow graph model: nodes, edges, per-node
// status and outputs. It is pure data plus invariants; all behavior lives in
// the topology, inputs, scheduler and batch packages.
package graph

import "fmt"

// NodeStatus is the engine-managed lifecycle state of a node.
type NodeStatus string

const (
	StatusReady     NodeStatus = "ready"
	StatusExecuting NodeStatus = "executing"
	StatusCompleted NodeStatus = "completed"
	StatusError     NodeStatus = "error"
)

// Node is a single step in a workflow graph. Config holds the node-type
// specific configuration struct declared by the owning module; the engine
// only ever touches the common fields (Status, Outputs, Enabled, Error).
//
// Outputs is written by the engine after a successful execution of the node,
// or seeded by the editor for constant source nodes. Downstream nodes never
// write it.
type Node struct {
	ID      string
	Type    string
	Enabled bool
	Status  NodeStatus
	Error   string
	Outputs map[string]any
	Config  any
}

// Edge routes one output handle of a source node to one input handle of a
// target node.
type Edge struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// Graph is a point-in-time (nodes, edges) pair. Node order and edge order
// are declaration order and are significant: they drive deterministic
// topological tie-breaking and fan-in collection order.
type Graph struct {
	Nodes []*Node
	Edges []Edge

	byID map[string]*Node
}

// New builds a graph from the given nodes and edges, validating that every
// edge endpoint references a known node and that node IDs are unique.
func New(nodes []*Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		Nodes: nodes,
		Edges: edges,
		byID:  make(map[string]*Node, len(nodes)),
	}
	for _, n := range nodes {
		if _, dup := g.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		if n.Status == "" {
			n.Status = StatusReady
		}
		g.byID[n.ID] = n
	}
	for _, e := range edges {
		if _, ok := g.byID[e.Source]; !ok {
			return nil, fmt.Errorf("edge references unknown source node %q", e.Source)
		}
		if _, ok := g.byID[e.Target]; !ok {
			return nil, fmt.Errorf("edge references unknown target node %q", e.Target)
		}
	}
	return g, nil
}

// NodeByID returns the node with the given ID, or nil if absent.
func (g *Graph) NodeByID(id string) *Node {
	return g.byID[id]
}

// IncomingEdges returns the edges targeting the given node, in declaration order.
func (g *Graph) IncomingEdges(id string) []Edge {
	var in []Edge
	for _, e := range g.Edges {
		if e.Target == id {
			in = append(in, e)
		}
	}
	return in
}

// OutgoingEdges returns the edges originating at the given node, in declaration order.
func (g *Graph) OutgoingEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// ConfigCloner is implemented by node configs that carry mutable run state
// (the batch source's active variant index). Clone copies such configs so a
// run never writes through to the editor's live graph.
type ConfigCloner interface {
	CloneConfig() any
}

// Clone returns a deep copy of the graph's engine-managed state. Config
// structs are shared between the copies unless they implement ConfigCloner:
// configs are owned by the editor and treated as read-only by the engine.
func (g *Graph) Clone() *Graph {
	nodes := make([]*Node, len(g.Nodes))
	for i, n := range g.Nodes {
		cp := *n
		cp.Outputs = copyOutputs(n.Outputs)
		if c, ok := n.Config.(ConfigCloner); ok {
			cp.Config = c.CloneConfig()
		}
		nodes[i] = &cp
	}
	edges := make([]Edge, len(g.Edges))
	copy(edges, g.Edges)

	clone, err := New(nodes, edges)
	if err != nil {
		// The source graph already passed the same validation.
		panic(fmt.Sprintf("graph: clone validation failed: %v", err))
	}
	return clone
}

func copyOutputs(outputs map[string]any) map[string]any {
	if outputs == nil {
		return nil
	}
	cp := make(map[string]any, len(outputs))
	for k, v := range outputs {
		cp[k] = v
	}
	return cp
}
