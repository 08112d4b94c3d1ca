// Package registry holds the node type descriptors for a single application
// instance. Node modules register themselves at startup; the engine consults
// the registry for connector declarations, scheduling class, and the runner
// that implements each node type's effect.
package registry

import (
	"context"
	"fmt"

	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/graph"
)

// ConnectorSpec declares one named input port of a node type. It drives both
// input assembly (slice vs scalar) and validation (required-but-missing).
type ConnectorSpec struct {
	Handle          string
	Label           string
	Required        bool
	AcceptsMultiple bool
}

// Request carries everything a runner needs for one node execution.
type Request struct {
	Node   *graph.Node
	Inputs map[string]any
}

// Result is a runner's successful outcome. Outputs wins over Data when both
// are set; Data exists for node types that publish a flat result instead of
// named output handles. Skipped marks a disabled node's passthrough.
type Result struct {
	Outputs map[string]any
	Data    map[string]any
	Skipped bool
}

// Values returns the output map a result folds into the run state.
func (r *Result) Values() map[string]any {
	if r.Outputs != nil {
		return r.Outputs
	}
	return r.Data
}

// Runner is the Node Executor capability: it performs a node's actual effect.
// Implementations may be slow and rate limited; they must honor ctx.
type Runner interface {
	Run(ctx context.Context, req *Request) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, req *Request) (*Result, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}

// Descriptor describes one node type to the engine.
type Descriptor struct {
	// Type is the node type tag used in graphs.
	Type string
	// Inputs and Outputs declare the node's connectors.
	Inputs  []ConnectorSpec
	Outputs []string
	// Serial marks node types that call external rate-limited services and
	// must run one-at-a-time within a level.
	Serial bool
	// Source marks constant-source node types: their outputs survive batch
	// iteration resets and count as fresh for single-node replay.
	Source bool
	// Aggregator marks node types deferred to the post-batch phase so they
	// can consume one artifact per iteration.
	Aggregator bool
	// AggregatorMinArity is the minimum number of collected artifacts an
	// aggregator needs. Zero means the default of 2.
	AggregatorMinArity int
	// ArtifactProducer marks the node type whose output is the per-iteration
	// batch artifact.
	ArtifactProducer bool
	// NewConfig returns a pointer to an empty config struct for decoding
	// workflow files. Nil means the type carries no configuration.
	NewConfig func() any
	// Runner implements the node's effect.
	Runner Runner
}

// Module is the interface node modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry maps node type tags to their descriptors.
type Registry struct {
	types map[string]*Descriptor
	order []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{types: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Registering the same type twice is a
// programmer error and panics, matching startup-time wiring expectations.
func (r *Registry) Register(d *Descriptor) {
	if _, exists := r.types[d.Type]; exists {
		panic(fmt.Sprintf("node type %q already registered", d.Type))
	}
	r.types[d.Type] = d
	r.order = append(r.order, d.Type)
}

// Lookup returns the descriptor for a node type.
func (r *Registry) Lookup(nodeType string) (*Descriptor, bool) {
	d, ok := r.types[nodeType]
	return d, ok
}

// Types returns all registered type tags in registration order.
func (r *Registry) Types() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// NewConfig builds an empty config struct for the given node type, erroring
// on unknown types. It satisfies graph.ConfigFactory.
func (r *Registry) NewConfig(nodeType string) (any, error) {
	d, ok := r.types[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}
	if d.NewConfig == nil {
		return nil, nil
	}
	return d.NewConfig(), nil
}

// Validate checks the integrity of the registered descriptors. Failures are
// wiring mistakes between modules and the engine, not user errors.
func (r *Registry) Validate(ctx context.Context) error {
	for _, name := range r.order {
		d := r.types[name]
		if d.Runner == nil {
			return fmt.Errorf("node type %q has no runner", name)
		}
		if len(d.Outputs) == 0 {
			return fmt.Errorf("node type %q declares no output handles", name)
		}
		if d.Aggregator && d.AggregatorMinArity < 0 {
			return fmt.Errorf("node type %q has negative aggregator arity", name)
		}
		seen := make(map[string]bool, len(d.Inputs))
		for _, in := range d.Inputs {
			if in.Handle == "" {
				return fmt.Errorf("node type %q declares an input with an empty handle", name)
			}
			if seen[in.Handle] {
				return fmt.Errorf("node type %q declares input handle %q twice", name, in.Handle)
			}
			seen[in.Handle] = true
		}
	}
	ctxlog.FromContext(ctx).Debug("Registry validation passed.", "types", len(r.order))
	return nil
}

// MinArity returns the effective aggregator arity for a descriptor.
func (d *Descriptor) MinArity() int {
	if d.AggregatorMinArity > 0 {
		return d.AggregatorMinArity
	}
	return 2
}

// PrimaryOutput returns the handle holding a node type's main result.
func (d *Descriptor) PrimaryOutput() string {
	if len(d.Outputs) == 0 {
		return ""
	}
	return d.Outputs[0]
}
