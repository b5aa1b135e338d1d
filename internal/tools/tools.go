package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codegraph-ingest/internal/store"
)

// Version is reported to MCP clients.
var Version = "dev"

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp     *mcp.Server
	store   *store.Store
	indexMu sync.Mutex
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(s *store.Store) *Server {
	srv := &Server{
		store: s,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "codegraph-ingest",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_repository",
		Description: "Ingest a repository into the code graph. Discovers files, parses definitions, resolves imports, calls and inheritance, and replaces the stored graph of the project.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repo_path": {
					"type": "string",
					"description": "Path to the repository to ingest"
				},
				"project": {
					"type": "string",
					"description": "Project name. Defaults to the directory name."
				},
				"directory_filter": {
					"type": "string",
					"description": "Only ingest files under this relative directory"
				},
				"file_extensions": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Only ingest files with these extensions"
				}
			},
			"required": ["repo_path"]
		}`),
	}, s.handleIndexRepository)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_graph_schema",
		Description: "Return node label and relationship type counts, relationship patterns and sample names for a project.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name"
				}
			},
			"required": ["project"]
		}`),
	}, s.handleGetGraphSchema)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_graph",
		Description: "Search nodes of a project by label, name regex and file glob. Results carry in and out degree.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Project name"},
				"label": {
					"type": "string",
					"description": "Node label, e.g. Function, Method, Class, File"
				},
				"name_pattern": {
					"type": "string",
					"description": "Regex matched against name and qualified name"
				},
				"file_pattern": {
					"type": "string",
					"description": "Glob over the file path, e.g. src/**/*.py"
				},
				"limit": {"type": "integer", "description": "Max results (default 10)"},
				"offset": {"type": "integer", "description": "Results to skip"}
			},
			"required": ["project"]
		}`),
	}, s.handleSearchGraph)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_call_edges",
		Description: "List CALLS relationships into or out of a node, with resolution strategy and call kind.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Project name"},
				"node_id": {"type": "string", "description": "Node id as returned by search_graph"},
				"name": {"type": "string", "description": "Function or method name, used when node_id is absent and the name is unique"},
				"direction": {
					"type": "string",
					"description": "outbound (callees), inbound (callers) or both",
					"enum": ["outbound", "inbound", "both"]
				}
			},
			"required": ["project"]
		}`),
	}, s.handleGetCallEdges)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_projects",
		Description: "List ingested projects with node and edge counts.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleListProjects)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project and its graph.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Project name"}
			},
			"required": ["project"]
		}`),
	}, s.handleDeleteProject)
}

// jsonResult marshals data into a text tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

func getStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	f, ok := args[key].(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

func getStringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// requireProject reads the project argument and checks it is stored.
func (s *Server) requireProject(args map[string]any) (string, *mcp.CallToolResult) {
	name := getStringArg(args, "project")
	if name == "" {
		return "", errResult("project is required")
	}
	if _, err := s.store.GetProject(name); err != nil {
		return "", errResult(err.Error())
	}
	return name, nil
}
