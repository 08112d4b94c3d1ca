// Package inputs assembles a node's input bag from its upstream nodes'
// published outputs and validates required connectors immediately before
// execution.
package inputs

import (
	"fmt"

	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/registry"
)

// OutputReader provides the freshest published outputs for a node. The
// scheduler's run state implements it.
type OutputReader interface {
	NodeOutputs(id string) map[string]any
}

// Gather walks the node's incoming edges in declaration order and reads each
// upstream node's outputs keyed by source handle. An upstream output that is
// not yet published contributes nothing; requiredness is enforced separately
// by Validate. Connectors declared AcceptsMultiple collect an ordered slice;
// for plain connectors the last edge wins when several edges target the same
// handle.
func Gather(g *graph.Graph, nodeID string, specs []registry.ConnectorSpec, state OutputReader) map[string]any {
	multi := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.AcceptsMultiple {
			multi[s.Handle] = true
		}
	}

	bag := make(map[string]any)
	for _, e := range g.IncomingEdges(nodeID) {
		outputs := state.NodeOutputs(e.Source)
		value, ok := outputs[e.SourceHandle]
		if !ok {
			continue
		}
		if multi[e.TargetHandle] {
			list, _ := bag[e.TargetHandle].([]any)
			bag[e.TargetHandle] = append(list, value)
		} else {
			bag[e.TargetHandle] = value
		}
	}
	return bag
}

// ValidationError reports a required connector with no usable value. It is
// scoped to one node: the node is marked failed and the run continues.
type ValidationError struct {
	NodeID string
	Handle string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("node %q: required input %q is missing", e.NodeID, e.Handle)
}

// Validate checks the bag against the node type's connector declarations. A
// required connector fails when its value is absent, nil, an empty string,
// or (for multi connectors) an empty slice.
func Validate(nodeID string, bag map[string]any, specs []registry.ConnectorSpec) error {
	for _, s := range specs {
		if !s.Required {
			continue
		}
		value, ok := bag[s.Handle]
		if !ok || value == nil {
			return &ValidationError{NodeID: nodeID, Handle: s.Handle}
		}
		switch v := value.(type) {
		case string:
			if v == "" {
				return &ValidationError{NodeID: nodeID, Handle: s.Handle}
			}
		case []any:
			if len(v) == 0 {
				return &ValidationError{NodeID: nodeID, Handle: s.Handle}
			}
		}
	}
	return nil
}
