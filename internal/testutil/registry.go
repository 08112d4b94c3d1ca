package testutil

import "github.com/vk/mediaflowgo/internal/registry"

// TypeOptions tunes a test node type descriptor.
type TypeOptions struct {
	Inputs           []registry.ConnectorSpec
	Outputs          []string
	Serial           bool
	Source           bool
	Aggregator       bool
	MinArity         int
	ArtifactProducer bool
	NewConfig        func() any
}

// RegisterType registers a test node type backed by the given runner.
func RegisterType(r *registry.Registry, name string, runner registry.Runner, opts TypeOptions) {
	outputs := opts.Outputs
	if len(outputs) == 0 {
		outputs = []string{"out"}
	}
	r.Register(&registry.Descriptor{
		Type:               name,
		Inputs:             opts.Inputs,
		Outputs:            outputs,
		Serial:             opts.Serial,
		Source:             opts.Source,
		Aggregator:         opts.Aggregator,
		AggregatorMinArity: opts.MinArity,
		ArtifactProducer:   opts.ArtifactProducer,
		NewConfig:          opts.NewConfig,
		Runner:             runner,
	})
}

// Required is a shorthand for a required scalar input connector.
func Required(handle string) registry.ConnectorSpec {
	return registry.ConnectorSpec{Handle: handle, Required: true}
}

// Optional is a shorthand for an optional scalar input connector.
func Optional(handle string) registry.ConnectorSpec {
	return registry.ConnectorSpec{Handle: handle}
}

// Multi is a shorthand for a required fan-in connector.
func Multi(handle string) registry.ConnectorSpec {
	return registry.ConnectorSpec{Handle: handle, Required: true, AcceptsMultiple: true}
}
