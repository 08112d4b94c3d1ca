// Package merge provides the aggregator node that combines multiple
// artifacts into one. In batch mode it is deferred to the post-batch phase
// and fed one artifact per successful iteration; it needs at least two.
package merge

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/mediaflowgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config selects how collected items combine.
type Config struct {
	// Separator joins string artifacts; ignored for non-string items.
	Separator string `hcl:"separator,optional" json:"separator,omitempty"`
}

func run(ctx context.Context, req *registry.Request) (*registry.Result, error) {
	items, _ := req.Inputs["items"].([]any)
	if len(items) < 2 {
		return nil, fmt.Errorf("merge %q needs at least 2 items, got %d", req.Node.ID, len(items))
	}

	cfg, _ := req.Node.Config.(*Config)
	separator := "\n"
	if cfg != nil && cfg.Separator != "" {
		separator = cfg.Separator
	}

	// String artifacts concatenate; anything else passes through as a list.
	parts := make([]string, 0, len(items))
	allStrings := true
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			allStrings = false
			break
		}
		parts = append(parts, s)
	}

	var artifact any
	if allStrings {
		artifact = strings.Join(parts, separator)
	} else {
		artifact = items
	}

	return &registry.Result{Outputs: map[string]any{
		"artifact": artifact,
		"count":    len(items),
	}}, nil
}

// Register registers the merge node type with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Descriptor{
		Type: "merge",
		Inputs: []registry.ConnectorSpec{
			{Handle: "items", Label: "Items", Required: true, AcceptsMultiple: true},
		},
		Outputs:            []string{"artifact", "count"},
		Aggregator:         true,
		AggregatorMinArity: 2,
		NewConfig:          func() any { return new(Config) },
		Runner:             registry.RunnerFunc(run),
	})
}
