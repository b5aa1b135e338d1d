package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/store"
)

type handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewServer(s)
}

func call(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := h(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: raw},
	})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func callJSON(t *testing.T, h handler, args map[string]any, out any) {
	t.Helper()
	text, isErr := call(t, h, args)
	require.False(t, isErr, text)
	require.NoError(t, json.Unmarshal([]byte(text), out))
}

func writeRepo(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "shop")
	files := map[string]string{
		"svc/orders.py": "from svc.models import Order\n\ndef place(i):\n    o = Order(i)\n    return o.save()\n",
		"svc/models.py": "class Order:\n    def __init__(self, i):\n        self.i = i\n\n    def save(self):\n        return len(str(self.i))\n",
		"web/app.js":    "export function render() {\n  return 1;\n}\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return root
}

func TestIndexSearchAndCalls(t *testing.T) {
	srv := newTestServer(t)
	root := writeRepo(t)

	var idx struct {
		Project       string `json:"project"`
		RootPath      string `json:"root_path"`
		Nodes         int    `json:"nodes"`
		FilesParsed   int    `json:"files_parsed"`
		CallsResolved int    `json:"calls_resolved"`
	}
	callJSON(t, srv.handleIndexRepository, map[string]any{"repo_path": root}, &idx)
	assert.Equal(t, "shop", idx.Project)
	assert.Equal(t, root, idx.RootPath)
	assert.Equal(t, 3, idx.FilesParsed)
	assert.Positive(t, idx.Nodes)
	assert.Positive(t, idx.CallsResolved)

	var projects []store.Project
	callJSON(t, srv.handleListProjects, nil, &projects)
	require.Len(t, projects, 1)
	assert.Equal(t, root, projects[0].RootPath)
	assert.Equal(t, idx.Nodes, projects[0].NodeCount)

	var search struct {
		Total   int        `json:"total"`
		Results []nodeView `json:"results"`
	}
	callJSON(t, srv.handleSearchGraph, map[string]any{
		"project": "shop", "label": "Method", "name_pattern": "save",
	}, &search)
	require.Equal(t, 1, search.Total)
	save := search.Results[0]
	assert.Equal(t, graph.DefinitionID(graph.Method, "svc/models.py", "Order.save"), save.ID)
	assert.Equal(t, "svc/models.py", save.FilePath)
	assert.Positive(t, save.InDegree)

	var edges struct {
		Callers []callView `json:"callers"`
		Callees []callView `json:"callees"`
	}
	callJSON(t, srv.handleGetCallEdges, map[string]any{
		"project": "shop", "node_id": save.ID, "direction": "inbound",
	}, &edges)
	require.Len(t, edges.Callers, 1)
	assert.Equal(t, "place", edges.Callers[0].Name)
	assert.Equal(t, "typed", edges.Callers[0].Strategy)
	assert.Nil(t, edges.Callees)

	var byName struct {
		Node    string     `json:"node"`
		Callees []callView `json:"callees"`
	}
	callJSON(t, srv.handleGetCallEdges, map[string]any{
		"project": "shop", "name": "place", "direction": "outbound",
	}, &byName)
	assert.Equal(t, graph.DefinitionID(graph.Function, "svc/orders.py", "place"), byName.Node)
	require.NotEmpty(t, byName.Callees)
	names := make([]string, len(byName.Callees))
	for i, c := range byName.Callees {
		names[i] = c.Name
	}
	assert.Contains(t, names, "save")
}

func TestIndexWithFilter(t *testing.T) {
	srv := newTestServer(t)
	root := writeRepo(t)

	var idx struct {
		FilesParsed int `json:"files_parsed"`
	}
	callJSON(t, srv.handleIndexRepository, map[string]any{
		"repo_path": root, "project": "web-only", "directory_filter": "web",
	}, &idx)
	assert.Equal(t, 1, idx.FilesParsed)

	var search struct {
		Total int `json:"total"`
	}
	callJSON(t, srv.handleSearchGraph, map[string]any{"project": "web-only", "label": "Class"}, &search)
	assert.Zero(t, search.Total)
}

func TestSchemaAndDelete(t *testing.T) {
	srv := newTestServer(t)
	callJSON(t, srv.handleIndexRepository, map[string]any{"repo_path": writeRepo(t)}, &map[string]any{})

	var schema store.SchemaInfo
	callJSON(t, srv.handleGetGraphSchema, map[string]any{"project": "shop"}, &schema)
	assert.NotEmpty(t, schema.NodeLabels)
	assert.Contains(t, schema.SampleClassNames, "Order")

	text, isErr := call(t, srv.handleDeleteProject, map[string]any{"project": "shop"})
	require.False(t, isErr, text)

	_, isErr = call(t, srv.handleGetGraphSchema, map[string]any{"project": "shop"})
	assert.True(t, isErr)
}

func TestToolErrors(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		h    handler
		args map[string]any
	}{
		{"index without path", srv.handleIndexRepository, nil},
		{"index missing dir", srv.handleIndexRepository, map[string]any{"repo_path": filepath.Join(t.TempDir(), "nope")}},
		{"search without project", srv.handleSearchGraph, nil},
		{"search unknown project", srv.handleSearchGraph, map[string]any{"project": "ghost"}},
		{"calls unknown project", srv.handleGetCallEdges, map[string]any{"project": "ghost", "node_id": "x"}},
		{"delete unknown project", srv.handleDeleteProject, map[string]any{"project": "ghost"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, isErr := call(t, tc.h, tc.args)
			assert.True(t, isErr)
		})
	}

	callJSON(t, srv.handleIndexRepository, map[string]any{"repo_path": writeRepo(t)}, &map[string]any{})
	_, isErr := call(t, srv.handleSearchGraph, map[string]any{"project": "shop", "name_pattern": "("})
	assert.True(t, isErr, "invalid regex")
	_, isErr = call(t, srv.handleGetCallEdges, map[string]any{"project": "shop", "node_id": "missing"})
	assert.True(t, isErr, "unknown node")
	_, isErr = call(t, srv.handleGetCallEdges, map[string]any{"project": "shop"})
	assert.True(t, isErr, "no node given")
	_, isErr = call(t, srv.handleGetCallEdges, map[string]any{"project": "shop", "name": "Order"})
	assert.True(t, isErr, "class is not callable")
	_, isErr = call(t, srv.handleGetCallEdges, map[string]any{"project": "shop", "node_id": graph.DefinitionID(graph.Function, "svc/orders.py", "place"), "direction": "sideways"})
	assert.True(t, isErr, "bad direction")
}

func TestReindexPicksUpChanges(t *testing.T) {
	srv := newTestServer(t)
	root := writeRepo(t)
	callJSON(t, srv.handleIndexRepository, map[string]any{"repo_path": root}, &map[string]any{})
	before, err := srv.store.CountNodes("shop")
	require.NoError(t, err)

	extra := "def extra():\n    return 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "svc", "extra.py"), []byte(extra), 0o600))
	require.NoError(t, srv.Reindex(context.Background(), "shop", root))

	after, err := srv.store.CountNodes("shop")
	require.NoError(t, err)
	assert.Greater(t, after, before)
	p, err := srv.store.GetProject("shop")
	require.NoError(t, err)
	assert.Equal(t, root, p.RootPath)
}

func TestReindexKeepsIngestOptions(t *testing.T) {
	srv := newTestServer(t)
	root := writeRepo(t)
	callJSON(t, srv.handleIndexRepository, map[string]any{
		"repo_path":        root,
		"directory_filter": "svc",
		"file_extensions":  []any{".py"},
	}, &map[string]any{})

	require.NoError(t, os.WriteFile(filepath.Join(root, "web", "more.js"), []byte("export function more() {\n  return 2;\n}\n"), 0o600))
	require.NoError(t, srv.Reindex(context.Background(), "shop", root))

	for _, name := range []string{"render", "more"} {
		nodes, err := srv.store.FindNodesByName("shop", name)
		require.NoError(t, err)
		assert.Empty(t, nodes, "%s is outside the directory filter", name)
	}
	nodes, err := srv.store.FindNodesByName("shop", "place")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
	p, err := srv.store.GetProject("shop")
	require.NoError(t, err)
	assert.Equal(t, "svc", p.Options.DirectoryFilter)
	assert.Equal(t, []string{".py"}, p.Options.FileExtensions)
}
