package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/hclgraph"
)

// loadGraph reads a workflow file by extension: .hcl workflow blocks or the
// editor's .json exchange format.
func (a *App) loadGraph(ctx context.Context, path string) (*graph.Graph, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hclgraph.Load(ctx, path, a.registry)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return graph.DecodeJSON(data, a.registry.NewConfig)
	default:
		return nil, fmt.Errorf("unsupported workflow format %q (want .hcl or .json)", filepath.Ext(path))
	}
}
