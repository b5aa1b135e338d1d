package graph

import (
	"sort"
)

// Graph is an insertion-ordered node and relationship set. It is mutated
// only by the orchestrating goroutine and is not safe for concurrent writes.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	rels      map[string]*Relationship
	relOrder  []string
	byPath    map[string]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[string]*Node),
		rels:   make(map[string]*Relationship),
		byPath: make(map[string]string),
	}
}

// AddNode inserts n unless a node with the same id exists. It reports
// whether n was inserted.
func (g *Graph) AddNode(n *Node) bool {
	if _, ok := g.nodes[n.ID]; ok {
		return false
	}
	if n.Properties == nil {
		n.Properties = map[string]any{}
	}
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	if n.Label == File {
		if p, _ := n.Properties["path"].(string); p != "" {
			g.byPath[p] = n.ID
		}
	}
	return true
}

// MergeProperties adds props to an existing node. Keys already set are
// overwritten; nothing is ever removed.
func (g *Graph) MergeProperties(id string, props map[string]any) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	for k, v := range props {
		n.Properties[k] = v
	}
	return true
}

// Node returns the node with id, or nil.
func (g *Graph) Node(id string) *Node { return g.nodes[id] }

// HasNode reports whether id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// FileByPath returns the File node created for path by the structure pass.
func (g *Graph) FileByPath(path string) *Node {
	id, ok := g.byPath[path]
	if !ok {
		return nil
	}
	return g.nodes[id]
}

// FilePaths returns every File path in sorted order.
func (g *Graph) FilePaths() []string {
	out := make([]string, 0, len(g.byPath))
	for p := range g.byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AddRelationship inserts r. Both endpoints must exist. A relationship whose
// id already exists is not duplicated; its "count" property is incremented
// instead. It reports whether r was newly inserted.
func (g *Graph) AddRelationship(r *Relationship) bool {
	if !g.HasNode(r.Source) || !g.HasNode(r.Target) {
		return false
	}
	if r.ID == "" {
		r.ID = RelID(r.Type, r.Source, r.Target)
	}
	if existing, ok := g.rels[r.ID]; ok {
		if existing.Properties == nil {
			existing.Properties = map[string]any{}
		}
		c, _ := existing.Properties["count"].(int)
		if c == 0 {
			c = 1
		}
		existing.Properties["count"] = c + 1
		return false
	}
	g.rels[r.ID] = r
	g.relOrder = append(g.relOrder, r.ID)
	return true
}

// Relationship returns the relationship with id, or nil.
func (g *Graph) Relationship(id string) *Relationship { return g.rels[id] }

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodesByLabel returns the nodes with label l in insertion order.
func (g *Graph) NodesByLabel(l NodeLabel) []*Node {
	var out []*Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; n.Label == l {
			out = append(out, n)
		}
	}
	return out
}

// Relationships returns all relationships in insertion order.
func (g *Graph) Relationships() []*Relationship {
	out := make([]*Relationship, 0, len(g.relOrder))
	for _, id := range g.relOrder {
		out = append(out, g.rels[id])
	}
	return out
}

// Incoming returns the relationships of type t that end at id.
func (g *Graph) Incoming(id string, t RelType) []*Relationship {
	var out []*Relationship
	for _, rid := range g.relOrder {
		r := g.rels[rid]
		if r.Type == t && r.Target == id {
			out = append(out, r)
		}
	}
	return out
}

// Outgoing returns the relationships of type t that start at id.
func (g *Graph) Outgoing(id string, t RelType) []*Relationship {
	var out []*Relationship
	for _, rid := range g.relOrder {
		r := g.rels[rid]
		if r.Type == t && r.Source == id {
			out = append(out, r)
		}
	}
	return out
}

// NodeCount and RelationshipCount report the set sizes.
func (g *Graph) NodeCount() int         { return len(g.nodes) }
func (g *Graph) RelationshipCount() int { return len(g.rels) }

// Snapshot is the serialisable form of a finished graph.
type Snapshot struct {
	Nodes         []*Node         `json:"nodes"`
	Relationships []*Relationship `json:"relationships"`
}

// Snapshot returns the graph's nodes and relationships.
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{Nodes: g.Nodes(), Relationships: g.Relationships()}
}
