package graph

// Summary holds aggregate counts for a finished graph.
type Summary struct {
	NodeLabels    map[string]int `json:"node_labels"`
	Relationships map[string]int `json:"relationships"`
	CallKinds     map[string]int `json:"call_kinds"`
	Strategies    map[string]int `json:"call_strategies"`
	TotalNodes    int            `json:"total_nodes"`
	TotalRels     int            `json:"total_relationships"`
}

// Summarize counts nodes per label, relationships per type and CALLS edges
// per call kind and resolution strategy.
func (g *Graph) Summarize() Summary {
	s := Summary{
		NodeLabels:    make(map[string]int),
		Relationships: make(map[string]int),
		CallKinds:     make(map[string]int),
		Strategies:    make(map[string]int),
		TotalNodes:    len(g.nodes),
		TotalRels:     len(g.rels),
	}
	for _, n := range g.nodes {
		s.NodeLabels[n.Label.String()]++
	}
	for _, r := range g.rels {
		s.Relationships[r.Type.String()]++
		if r.Type != Calls {
			continue
		}
		if k, ok := r.Properties["call_kind"].(string); ok {
			s.CallKinds[k]++
		}
		if st, ok := r.Properties["strategy"].(string); ok {
			s.Strategies[st]++
		}
	}
	return s
}
