package graph

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// ConfigFactory returns a pointer to an empty config struct for the given
// node type. The registry's NewConfig factories satisfy this; the indirection
// keeps the graph model free of a registry dependency.
type ConfigFactory func(nodeType string) (any, error)

type jsonDocument struct {
	Nodes []jsonNode `json:"nodes"`
	Edges []jsonEdge `json:"edges"`
}

type jsonNode struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Enabled *bool           `json:"enabled,omitempty"`
	Status  NodeStatus      `json:"status,omitempty"`
	Error   string          `json:"error,omitempty"`
	Outputs map[string]any  `json:"outputs,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
}

type jsonEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
}

// DecodeJSON parses the editor exchange format, a single document holding
// nodes and edges, decoding each node's config through the factory.
func DecodeJSON(data []byte, factory ConfigFactory) (*Graph, error) {
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing workflow document: %w", err)
	}

	nodes := make([]*Node, 0, len(doc.Nodes))
	for _, jn := range doc.Nodes {
		cfg, err := factory(jn.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", jn.ID, err)
		}
		if cfg != nil && len(jn.Config) > 0 {
			if err := json.Unmarshal(jn.Config, cfg); err != nil {
				return nil, fmt.Errorf("node %q: decoding %s config: %w", jn.ID, jn.Type, err)
			}
		}
		enabled := true
		if jn.Enabled != nil {
			enabled = *jn.Enabled
		}
		nodes = append(nodes, &Node{
			ID:      jn.ID,
			Type:    jn.Type,
			Enabled: enabled,
			Status:  jn.Status,
			Error:   jn.Error,
			Outputs: jn.Outputs,
			Config:  cfg,
		})
	}

	edges := make([]Edge, 0, len(doc.Edges))
	for _, je := range doc.Edges {
		edges = append(edges, Edge(je))
	}

	return New(nodes, edges)
}

// EncodeJSON renders the graph back into the editor exchange format,
// including the engine-managed fields so a finished run round-trips node
// status and outputs to the editor.
func EncodeJSON(g *Graph) ([]byte, error) {
	doc := jsonDocument{
		Nodes: make([]jsonNode, 0, len(g.Nodes)),
		Edges: make([]jsonEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		var raw json.RawMessage
		if n.Config != nil {
			b, err := json.Marshal(n.Config)
			if err != nil {
				return nil, fmt.Errorf("node %q: encoding config: %w", n.ID, err)
			}
			raw = b
		}
		enabled := n.Enabled
		doc.Nodes = append(doc.Nodes, jsonNode{
			ID:      n.ID,
			Type:    n.Type,
			Enabled: &enabled,
			Status:  n.Status,
			Error:   n.Error,
			Outputs: n.Outputs,
			Config:  raw,
		})
	}
	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, jsonEdge(e))
	}
	return json.MarshalIndent(&doc, "", "  ")
}
