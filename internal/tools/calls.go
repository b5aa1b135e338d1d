package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/store"
)

type callView struct {
	Caller   string `json:"caller"`
	Callee   string `json:"callee"`
	Name     string `json:"name"`
	FilePath string `json:"file_path,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	CallKind string `json:"call_kind,omitempty"`
	Line     int    `json:"line,omitempty"`
	Count    int    `json:"count,omitempty"`
}

func (s *Server) handleGetCallEdges(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	project, bad := s.requireProject(args)
	if bad != nil {
		return bad, nil
	}
	node, bad := s.lookupNode(project, getStringArg(args, "node_id"), getStringArg(args, "name"))
	if bad != nil {
		return bad, nil
	}
	id := node.ID

	direction := getStringArg(args, "direction")
	if direction == "" {
		direction = "both"
	}
	if direction != "outbound" && direction != "inbound" && direction != "both" {
		return errResult(fmt.Sprintf("invalid direction: %s", direction)), nil
	}

	result := map[string]any{"node": node.ID, "name": node.Name}
	if direction != "inbound" {
		edges, err := s.store.FindEdgesBySource(project, id, graph.Calls.String())
		if err != nil {
			return errResult(fmt.Sprintf("callees: %v", err)), nil
		}
		views, err := s.callViews(project, edges, func(e *store.Edge) string { return e.TargetID })
		if err != nil {
			return errResult(err.Error()), nil
		}
		result["callees"] = views
	}
	if direction != "outbound" {
		edges, err := s.store.FindEdgesByTarget(project, id, graph.Calls.String())
		if err != nil {
			return errResult(fmt.Sprintf("callers: %v", err)), nil
		}
		views, err := s.callViews(project, edges, func(e *store.Edge) string { return e.SourceID })
		if err != nil {
			return errResult(err.Error()), nil
		}
		result["callers"] = views
	}
	return jsonResult(result), nil
}

// lookupNode finds the node by id, or by name when the name is unique among
// callable definitions.
func (s *Server) lookupNode(project, id, name string) (*store.Node, *mcp.CallToolResult) {
	if id != "" {
		node, err := s.store.FindNodeByID(project, id)
		if err != nil {
			return nil, errResult(fmt.Sprintf("find node: %v", err))
		}
		if node == nil {
			return nil, errResult(fmt.Sprintf("node not found: %s", id))
		}
		return node, nil
	}
	if name == "" {
		return nil, errResult("node_id or name is required")
	}
	nodes, err := s.store.FindNodesByName(project, name)
	if err != nil {
		return nil, errResult(fmt.Sprintf("find node: %v", err))
	}
	var matches []*store.Node
	for _, n := range nodes {
		switch n.Label {
		case graph.Function.String(), graph.Method.String():
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return nil, errResult(fmt.Sprintf("no function or method named %s", name))
	case 1:
		return matches[0], nil
	}
	ids := make([]string, len(matches))
	for i, n := range matches {
		ids[i] = n.ID + " (" + n.FilePath + ")"
	}
	return nil, errResult(fmt.Sprintf("%s is ambiguous, pass node_id: %s", name, strings.Join(ids, ", ")))
}

// callViews resolves the far end of each edge, picked by other.
func (s *Server) callViews(project string, edges []*store.Edge, other func(*store.Edge) string) ([]callView, error) {
	views := make([]callView, 0, len(edges))
	for _, e := range edges {
		n, err := s.store.FindNodeByID(project, other(e))
		if err != nil {
			return nil, fmt.Errorf("find node: %w", err)
		}
		v := callView{Caller: e.SourceID, Callee: e.TargetID}
		if n != nil {
			v.Name = n.Name
			v.FilePath = n.FilePath
		}
		v.Strategy, _ = e.Properties["strategy"].(string)
		v.CallKind, _ = e.Properties["call_kind"].(string)
		if l, ok := e.Properties["line"].(float64); ok {
			v.Line = int(l)
		}
		if c, ok := e.Properties["count"].(float64); ok {
			v.Count = int(c)
		}
		views = append(views, v)
	}
	return views, nil
}
