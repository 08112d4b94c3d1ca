// Package queue provides the script queue node: an ordered list of prompt
// variants with an engine-driven active index. When it holds more than one
// variant it triggers batch mode, and the batch controller advances the
// active index between iterations.
package queue

import (
	"context"
	"fmt"

	"github.com/vk/mediaflowgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config holds the ordered variants. The active index is run state owned by
// the engine's graph copy, so Config implements graph.ConfigCloner.
type Config struct {
	Scripts []string `hcl:"scripts" json:"scripts"`

	active int
}

// VariantCount implements batch.VariantSource.
func (c *Config) VariantCount() int { return len(c.Scripts) }

// SetActiveVariant implements batch.VariantSource.
func (c *Config) SetActiveVariant(index int) { c.active = index }

// CloneConfig implements graph.ConfigCloner so a run never writes the active
// index through to the editor's live graph.
func (c *Config) CloneConfig() any {
	cp := *c
	cp.Scripts = append([]string(nil), c.Scripts...)
	return &cp
}

func run(ctx context.Context, req *registry.Request) (*registry.Result, error) {
	cfg := req.Node.Config.(*Config)
	if len(cfg.Scripts) == 0 {
		return nil, fmt.Errorf("script queue %q is empty", req.Node.ID)
	}
	if cfg.active < 0 || cfg.active >= len(cfg.Scripts) {
		return nil, fmt.Errorf("script queue %q: active variant %d out of range", req.Node.ID, cfg.active)
	}
	return &registry.Result{Outputs: map[string]any{
		"text":  cfg.Scripts[cfg.active],
		"index": cfg.active,
	}}, nil
}

// Register registers the queue node type with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Descriptor{
		Type:      "queue",
		Outputs:   []string{"text", "index"},
		Source:    true,
		NewConfig: func() any { return new(Config) },
		Runner:    registry.RunnerFunc(run),
	})
}
