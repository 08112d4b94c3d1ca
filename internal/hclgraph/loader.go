// Package hclgraph loads workflow graphs from HCL files: `node` blocks
// labeled with type and id, and `edge` blocks wiring output handles to
// input handles.
package hclgraph

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/graph"
	"github.com/vk/mediaflowgo/internal/registry"
)

type fileContent struct {
	Nodes []nodeBlock `hcl:"node,block"`
	Edges []edgeBlock `hcl:"edge,block"`
}

type nodeBlock struct {
	Type    string   `hcl:"type,label"`
	ID      string   `hcl:"id,label"`
	Enabled *bool    `hcl:"enabled,optional"`
	Config  hcl.Body `hcl:",remain"`
}

type edgeBlock struct {
	Source       string `hcl:"source"`
	Target       string `hcl:"target"`
	SourceHandle string `hcl:"source_handle"`
	TargetHandle string `hcl:"target_handle"`
}

// Load parses the file at path and builds a graph, decoding each node's
// config block through the registry's per-type factories.
func Load(ctx context.Context, path string, reg *registry.Registry) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var content fileContent
	if diags := gohcl.DecodeBody(file.Body, nil, &content); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}

	nodes := make([]*graph.Node, 0, len(content.Nodes))
	for _, nb := range content.Nodes {
		cfg, err := reg.NewConfig(nb.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nb.ID, err)
		}
		if cfg != nil {
			if diags := gohcl.DecodeBody(nb.Config, nil, cfg); diags.HasErrors() {
				return nil, fmt.Errorf("node %q: decoding %s config: %w", nb.ID, nb.Type, diags)
			}
		}
		enabled := true
		if nb.Enabled != nil {
			enabled = *nb.Enabled
		}
		nodes = append(nodes, &graph.Node{
			ID:      nb.ID,
			Type:    nb.Type,
			Enabled: enabled,
			Config:  cfg,
		})
	}

	edges := make([]graph.Edge, 0, len(content.Edges))
	for _, eb := range content.Edges {
		edges = append(edges, graph.Edge(eb))
	}

	g, err := graph.New(nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("building workflow from %s: %w", path, err)
	}
	logger.Debug("Workflow loaded.", "path", path, "nodes", len(nodes), "edges", len(edges))
	return g, nil
}
