// Package topology analyzes a workflow graph: Kahn topological ordering,
// cycle and no-start-node detection, and grouping of the order into
// execution levels.
package topology

import (
	"fmt"

	"github.com/vk/mediaflowgo/internal/graph"
)

// Kind classifies a structural analysis failure.
type Kind int

const (
	// NoStartNode means the graph has nodes but none with zero in-degree.
	NoStartNode Kind = iota
	// CycleDetected means some nodes never reach in-degree zero.
	CycleDetected
)

// Error is a structural graph error. Structural errors are fatal to a whole
// run: no node executes.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Result is the outcome of a successful analysis. Order is a full
// topological order; Levels partitions Order so that every node in level k
// has all of its dependencies satisfied by the end of level k-1.
type Result struct {
	Order  []string
	Levels [][]string
}

// Analyze builds adjacency and in-degree maps over the graph and runs Kahn's
// algorithm. Iteration follows node and edge declaration order throughout,
// so the returned order and levels are deterministic for a given graph.
func Analyze(g *graph.Graph) (*Result, error) {
	adjacency := make(map[string][]string, len(g.Nodes))
	inDegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range g.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		inDegree[e.Target]++
	}

	var queue []string
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	if len(queue) == 0 && len(g.Nodes) > 0 {
		return nil, &Error{
			Kind:    NoStartNode,
			Message: "workflow has no start node: every node has an incoming connection",
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range adjacency[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if len(order) != len(g.Nodes) {
		return nil, &Error{
			Kind: CycleDetected,
			Message: fmt.Sprintf("workflow contains a cycle: %d of %d nodes unreachable from a start node",
				len(g.Nodes)-len(order), len(g.Nodes)),
		}
	}

	return &Result{Order: order, Levels: levelize(g, order)}, nil
}

// levelize assigns each node to 1 + max(level of its predecessors); nodes
// without predecessors sit at level 0. Within a level, nodes keep their
// relative position in the topological order.
func levelize(g *graph.Graph, order []string) [][]string {
	predecessors := make(map[string][]string)
	for _, e := range g.Edges {
		predecessors[e.Target] = append(predecessors[e.Target], e.Source)
	}

	levelOf := make(map[string]int, len(order))
	maxLevel := 0
	for _, id := range order {
		level := 0
		for _, pred := range predecessors[id] {
			if l := levelOf[pred] + 1; l > level {
				level = l
			}
		}
		levelOf[id] = level
		if level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, id := range order {
		l := levelOf[id]
		levels[l] = append(levels[l], id)
	}
	if len(order) == 0 {
		return nil
	}
	return levels
}

// AsError unwraps a structural Error from err, if present.
func AsError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
