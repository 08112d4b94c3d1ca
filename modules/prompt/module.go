// Package prompt provides the constant text source node: it publishes its
// configured text as an output without any external effect.
package prompt

import (
	"context"

	"github.com/vk/mediaflowgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config holds the node's editor-supplied text.
type Config struct {
	Text string `hcl:"text" json:"text"`
}

func run(ctx context.Context, req *registry.Request) (*registry.Result, error) {
	cfg := req.Node.Config.(*Config)
	return &registry.Result{Outputs: map[string]any{"text": cfg.Text}}, nil
}

// Register registers the prompt node type with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Descriptor{
		Type:      "prompt",
		Outputs:   []string{"text"},
		Source:    true,
		NewConfig: func() any { return new(Config) },
		Runner:    registry.RunnerFunc(run),
	})
}
