// Package graph holds the metadata knowledge graph: a small directed property
// graph of databases, schemas, tables and columns.
package graph

// Label classifies a node.
type Label string

const (
	LabelDatabase Label = "Database"
	LabelSchema   Label = "Schema"
	LabelTable    Label = "Table"
	LabelColumn   Label = "Column"
)

// EdgeType classifies a directed edge.
type EdgeType string

const (
	EdgeContains  EdgeType = "CONTAINS"
	EdgeHasColumn EdgeType = "HAS_COLUMN"
)

// Node is a graph vertex. ID is the dotted path of the entity.
type Node struct {
	ID    string
	Label Label
	Props map[string]any
}

// Properties returns the node's properties including its label, as stored in
// the node-link file and shown in search results.
func (n *Node) Properties() map[string]any {
	props := make(map[string]any, len(n.Props)+1)
	for k, v := range n.Props {
		props[k] = v
	}
	props["label"] = string(n.Label)
	return props
}

// Edge is a directed, typed relationship between two existing nodes.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
}

// Graph keeps nodes in insertion order; search depends on that order.
// The zero value is not usable; call New.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []Edge
	seen  map[Edge]struct{}
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		seen:  make(map[Edge]struct{}),
	}
}

// UpsertNode creates the node or merges props into an existing one. A node
// keeps its original position and label when upserted again.
func (g *Graph) UpsertNode(id string, label Label, props map[string]any) *Node {
	if n, ok := g.nodes[id]; ok {
		for k, v := range props {
			n.Props[k] = v
		}
		return n
	}
	n := &Node{ID: id, Label: label, Props: make(map[string]any, len(props))}
	for k, v := range props {
		n.Props[k] = v
	}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// AddEdge adds source -> target. It returns false when either endpoint is
// missing or the same (source, target, type) edge already exists.
func (g *Graph) AddEdge(source, target string, typ EdgeType) bool {
	if _, ok := g.nodes[source]; !ok {
		return false
	}
	if _, ok := g.nodes[target]; !ok {
		return false
	}
	e := Edge{Source: source, Target: target, Type: typ}
	if _, dup := g.seen[e]; dup {
		return false
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
	return true
}

func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// HasEdge reports whether the exact typed edge exists.
func (g *Graph) HasEdge(source, target string, typ EdgeType) bool {
	_, ok := g.seen[Edge{Source: source, Target: target, Type: typ}]
	return ok
}

func (g *Graph) NodeCount() int { return len(g.order) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

// Empty is true for a graph with no nodes.
func (g *Graph) Empty() bool { return len(g.order) == 0 }
