package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codegraph-ingest/internal/store"
)

type nodeView struct {
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	Name          string         `json:"name"`
	QualifiedName string         `json:"qualified_name,omitempty"`
	FilePath      string         `json:"file_path,omitempty"`
	StartLine     int            `json:"start_line,omitempty"`
	EndLine       int            `json:"end_line,omitempty"`
	InDegree      int            `json:"in_degree"`
	OutDegree     int            `json:"out_degree"`
	Properties    map[string]any `json:"properties,omitempty"`
}

func (s *Server) handleSearchGraph(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	project, bad := s.requireProject(args)
	if bad != nil {
		return bad, nil
	}

	out, err := s.store.SearchNodes(store.SearchParams{
		Project:     project,
		Label:       getStringArg(args, "label"),
		NamePattern: getStringArg(args, "name_pattern"),
		FilePattern: getStringArg(args, "file_pattern"),
		Limit:       getIntArg(args, "limit", 10),
		Offset:      getIntArg(args, "offset", 0),
	})
	if err != nil {
		return errResult(fmt.Sprintf("search: %v", err)), nil
	}

	results := make([]nodeView, 0, len(out.Results))
	for _, r := range out.Results {
		n := r.Node
		results = append(results, nodeView{
			ID:            n.ID,
			Label:         n.Label,
			Name:          n.Name,
			QualifiedName: n.QualifiedName,
			FilePath:      n.FilePath,
			StartLine:     n.StartLine,
			EndLine:       n.EndLine,
			InDegree:      r.InDegree,
			OutDegree:     r.OutDegree,
			Properties:    n.Properties,
		})
	}
	return jsonResult(map[string]any{
		"total":    out.Total,
		"results":  results,
		"has_more": out.Total > getIntArg(args, "offset", 0)+len(results),
	}), nil
}
