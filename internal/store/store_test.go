package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/DeusData/codegraph-ingest/internal/config"
	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/pipeline"
)

func ingest(t *testing.T, files map[string]string) *pipeline.Result {
	t.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	res, err := pipeline.New(config.Default()).Run(context.Background(), pipeline.Input{
		ProjectName:  "demo",
		FilePaths:    paths,
		FileContents: files,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

var demoFiles = map[string]string{
	"svc/orders.py": "from svc.models import Order\n\ndef place(i):\n    o = Order(i)\n    return o.save()\n",
	"svc/models.py": "class Order:\n    def __init__(self, i):\n        self.i = i\n\n    def save(self):\n        return len(str(self.i))\n",
	"README.md":     "# demo\n",
}

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteGraphRoundTrip(t *testing.T) {
	s := openMemory(t)
	res := ingest(t, demoFiles)
	var sink pipeline.Sink = s
	if err := sink.WriteGraph(context.Background(), "demo", res.Graph); err != nil {
		t.Fatalf("WriteGraph: %v", err)
	}

	nodes, err := s.CountNodes("demo")
	if err != nil {
		t.Fatal(err)
	}
	edges, err := s.CountEdges("demo")
	if err != nil {
		t.Fatal(err)
	}
	if nodes != res.Summary.TotalNodes || edges != res.Summary.TotalRels {
		t.Fatalf("stored %d nodes/%d edges, graph has %d/%d", nodes, edges, res.Summary.TotalNodes, res.Summary.TotalRels)
	}

	labels, err := s.LabelCounts("demo")
	if err != nil {
		t.Fatal(err)
	}
	for _, lc := range labels {
		if want := res.Summary.NodeLabels[lc.Label]; lc.Count != want {
			t.Errorf("label %s: stored %d, graph %d", lc.Label, lc.Count, want)
		}
	}
	types, err := s.TypeCounts("demo")
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range types {
		if want := res.Summary.Relationships[tc.Type]; tc.Count != want {
			t.Errorf("type %s: stored %d, graph %d", tc.Type, tc.Count, want)
		}
	}

	saveID := graph.DefinitionID(graph.Method, "svc/models.py", "Order.save")
	n, err := s.FindNodeByID("demo", saveID)
	if err != nil || n == nil {
		t.Fatalf("FindNodeByID: %v %v", n, err)
	}
	if n.Label != "Method" || n.Name != "save" || n.QualifiedName != "Order.save" || n.FilePath != "svc/models.py" || n.StartLine != 5 {
		t.Errorf("stored node = %+v", n)
	}
	if n.Properties["parent_class"] != "Order" {
		t.Errorf("properties = %v", n.Properties)
	}

	in, err := s.FindEdgesByTarget("demo", saveID, "CALLS")
	if err != nil {
		t.Fatal(err)
	}
	if len(in) != 1 || in[0].SourceID != graph.DefinitionID(graph.Function, "svc/orders.py", "place") {
		t.Fatalf("callers of save = %+v", in)
	}
	if in[0].Properties["strategy"] != "typed" {
		t.Errorf("edge properties = %v", in[0].Properties)
	}
}

func TestWriteGraphReplacesProject(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	if err := s.WriteGraph(ctx, "demo", ingest(t, demoFiles).Graph); err != nil {
		t.Fatal(err)
	}
	small := ingest(t, map[string]string{"a.py": "def a():\n    pass\n"})
	if err := s.WriteGraph(ctx, "demo", small.Graph); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.CountNodes("demo"); n != small.Summary.TotalNodes {
		t.Fatalf("nodes = %d, want %d", n, small.Summary.TotalNodes)
	}
	if err := s.WriteGraph(ctx, "other", small.Graph); err != nil {
		t.Fatal(err)
	}
	projects, err := s.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 || projects[0].Name != "demo" || projects[1].Name != "other" {
		t.Fatalf("projects = %+v", projects)
	}
	if projects[0].NodeCount != small.Summary.TotalNodes {
		t.Errorf("node_count = %d", projects[0].NodeCount)
	}

	if err := s.DeleteProject("demo"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.CountNodes("demo"); n != 0 {
		t.Errorf("nodes after delete = %d", n)
	}
	if _, err := s.GetProject("demo"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProject err = %v, want ErrNotFound", err)
	}
	if n, _ := s.CountNodes("other"); n != small.Summary.TotalNodes {
		t.Errorf("other project touched: %d nodes", n)
	}
}

func TestSearchNodes(t *testing.T) {
	s := openMemory(t)
	if err := s.WriteGraph(context.Background(), "demo", ingest(t, demoFiles).Graph); err != nil {
		t.Fatal(err)
	}

	out, err := s.SearchNodes(SearchParams{Project: "demo", NamePattern: "^sav", Label: "Method"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 || out.Results[0].Node.Name != "save" {
		t.Fatalf("search = %+v", out)
	}
	if out.Results[0].InDegree == 0 || out.Results[0].OutDegree == 0 {
		t.Errorf("degrees = %d/%d", out.Results[0].InDegree, out.Results[0].OutDegree)
	}

	out, err = s.SearchNodes(SearchParams{Project: "demo", FilePattern: "svc/*.py", Label: "File"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Total != 2 {
		t.Errorf("file search total = %d, want 2", out.Total)
	}

	out, err = s.SearchNodes(SearchParams{Project: "demo", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 2 || out.Total <= 3 {
		t.Errorf("paged search = %d results of %d", len(out.Results), out.Total)
	}

	if _, err := s.SearchNodes(SearchParams{Project: "demo", NamePattern: "("}); err == nil {
		t.Error("expected invalid pattern error")
	}
}

func TestSchemaAndProjectRoot(t *testing.T) {
	s := openMemory(t)
	if err := s.WriteGraph(context.Background(), "demo", ingest(t, demoFiles).Graph); err != nil {
		t.Fatal(err)
	}
	info, err := s.GetSchema("demo")
	if err != nil {
		t.Fatal(err)
	}
	if len(info.NodeLabels) == 0 || len(info.RelationshipTypes) == 0 || len(info.RelationshipPatterns) == 0 {
		t.Fatalf("schema = %+v", info)
	}
	if len(info.SampleClassNames) != 1 || info.SampleClassNames[0] != "Order" {
		t.Errorf("sample classes = %v", info.SampleClassNames)
	}
	if len(info.Languages) != 1 || info.Languages[0].Key != "python" || info.Languages[0].Count != 2 {
		t.Errorf("languages = %+v", info.Languages)
	}
	strategies := map[string]int{}
	for _, kc := range info.CallStrategies {
		strategies[kc.Key] = kc.Count
	}
	if strategies["typed"] != 1 {
		t.Errorf("call strategies = %+v", info.CallStrategies)
	}

	opts := IngestOptions{ConfigPath: "/etc/cg.yaml", DirectoryFilter: "svc", FileExtensions: []string{".py"}}
	if err := s.SetProjectRoot("demo", "/src/demo", opts); err != nil {
		t.Fatal(err)
	}
	p, err := s.GetProject("demo")
	if err != nil || p.RootPath != "/src/demo" {
		t.Fatalf("project = %+v, %v", p, err)
	}
	if p.Options.ConfigPath != opts.ConfigPath || p.Options.DirectoryFilter != "svc" ||
		len(p.Options.FileExtensions) != 1 || p.Options.FileExtensions[0] != ".py" || p.Options.IgnoreFile != "" {
		t.Errorf("ingest options = %+v, want %+v", p.Options, opts)
	}
	list, err := s.ListProjects()
	if err != nil || len(list) != 1 || list[0].Options.DirectoryFilter != "svc" {
		t.Errorf("ListProjects = %+v, %v", list, err)
	}
	if err := s.SetProjectRoot("missing", "/x", IngestOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetProjectRoot(missing) err = %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.WriteGraph(context.Background(), "demo", ingest(t, demoFiles).Graph); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if n, _ := s.CountNodes("demo"); n == 0 {
		t.Fatal("graph not persisted")
	}
	if s.Path() != path {
		t.Errorf("Path = %q", s.Path())
	}
}

func TestOpenResetsOutdatedSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteGraph(context.Background(), "demo", ingest(t, demoFiles).Graph); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if n, _ := s.CountNodes("demo"); n != 0 {
		t.Errorf("outdated graph kept: %d nodes", n)
	}
	var v int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil || v != schemaVersion {
		t.Errorf("user_version = %d, %v", v, err)
	}
}
