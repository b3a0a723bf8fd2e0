package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ekaya-inc/ekaya-insight/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-insight/pkg/storage"
)

// nodeLinkData is the node-link JSON layout. Older files name the edge list
// "links"; both are accepted on load and "edges" is written.
type nodeLinkData struct {
	Directed   bool             `json:"directed"`
	Multigraph bool             `json:"multigraph"`
	Graph      map[string]any   `json:"graph"`
	Nodes      []map[string]any `json:"nodes"`
	Edges      []Edge           `json:"edges"`
	Links      []Edge           `json:"links,omitempty"`
}

// Save writes g as node-link JSON, creating the parent directory.
func Save(g *Graph, path string) error {
	data := nodeLinkData{
		Directed: true,
		Graph:    map[string]any{},
		Nodes:    make([]map[string]any, 0, g.NodeCount()),
		Edges:    g.Edges(),
	}
	for _, n := range g.Nodes() {
		obj := n.Properties()
		obj["id"] = n.ID
		data.Nodes = append(data.Nodes, obj)
	}

	return storage.WriteJSON(path, data, false)
}

// Load reads a node-link file. A missing file yields an empty graph and no
// error; a corrupt file yields an empty graph and the decode error.
func Load(path string) (*Graph, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return New(), fmt.Errorf("failed to read graph: %w", err)
	}

	var data nodeLinkData
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return New(), fmt.Errorf("failed to decode graph %s: %w", path, err)
	}

	g := New()
	for _, obj := range data.Nodes {
		id, _ := obj["id"].(string)
		if id == "" {
			continue
		}
		label, _ := obj["label"].(string)
		props := make(map[string]any, len(obj))
		for k, v := range obj {
			if k == "id" || k == "label" {
				continue
			}
			props[k] = jsonutil.SafeValue(v)
		}
		g.UpsertNode(id, Label(label), props)
	}

	edges := data.Edges
	if len(edges) == 0 {
		edges = data.Links
	}
	for _, e := range edges {
		g.AddEdge(e.Source, e.Target, e.Type)
	}
	return g, nil
}
