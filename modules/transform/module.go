// Package transform provides the local transform node: it evaluates a user
// expression over the node's input bag and publishes the result. Transforms
// are instant and run in the concurrent group.
package transform

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/vk/mediaflowgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config holds the expression. The input bag is the evaluation environment,
// so `input` refers to the connected upstream value.
type Config struct {
	Expression string `hcl:"expression" json:"expression"`
}

func run(ctx context.Context, req *registry.Request) (*registry.Result, error) {
	cfg := req.Node.Config.(*Config)
	if cfg.Expression == "" {
		return nil, fmt.Errorf("transform %q has no expression", req.Node.ID)
	}

	env := make(map[string]any, len(req.Inputs))
	for k, v := range req.Inputs {
		env[k] = v
	}

	program, err := expr.Compile(cfg.Expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compiling expression: %w", err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}

	return &registry.Result{Outputs: map[string]any{"output": output}}, nil
}

// Register registers the transform node type with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Descriptor{
		Type: "transform",
		Inputs: []registry.ConnectorSpec{
			{Handle: "input", Label: "Input", Required: true},
		},
		Outputs:   []string{"output"},
		NewConfig: func() any { return new(Config) },
		Runner:    registry.RunnerFunc(run),
	})
}
