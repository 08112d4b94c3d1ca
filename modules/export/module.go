// Package export provides the output node: it writes its artifact input to a
// file under the configured directory and publishes the resulting path.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config holds the destination.
type Config struct {
	Dir      string `hcl:"dir" json:"dir"`
	FileName string `hcl:"file_name,optional" json:"fileName,omitempty"`
}

func run(ctx context.Context, req *registry.Request) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx).With("node", req.Node.ID, "type", "export")
	cfg := req.Node.Config.(*Config)

	artifact := req.Inputs["artifact"]

	name := cfg.FileName
	if name == "" {
		name = req.Node.ID + ".out"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(cfg.Dir, name)

	var payload []byte
	switch v := artifact.(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding artifact: %w", err)
		}
		payload = b
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return nil, fmt.Errorf("writing artifact: %w", err)
	}

	logger.Info("Artifact exported.", "path", path, "bytes", len(payload))
	return &registry.Result{Outputs: map[string]any{"path": path}}, nil
}

// Register registers the export node type with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Descriptor{
		Type: "export",
		Inputs: []registry.ConnectorSpec{
			{Handle: "artifact", Label: "Artifact", Required: true},
		},
		Outputs:   []string{"path"},
		NewConfig: func() any { return new(Config) },
		Runner:    registry.RunnerFunc(run),
	})
}
