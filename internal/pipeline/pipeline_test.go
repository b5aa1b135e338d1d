package pipeline

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/DeusData/codegraph-ingest/internal/config"
	"github.com/DeusData/codegraph-ingest/internal/extract"
	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/workerpool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runFiles(t *testing.T, files map[string]string, opts ...Option) *Result {
	t.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	res, err := New(config.Default(), opts...).Run(context.Background(), Input{
		ProjectName:  "proj",
		FilePaths:    paths,
		FileContents: files,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func callEdge(t *testing.T, g *graph.Graph, src, dst string) *graph.Relationship {
	t.Helper()
	r := g.Relationship(graph.RelID(graph.Calls, src, dst))
	if r == nil {
		t.Fatalf("missing CALLS %s -> %s", src, dst)
	}
	return r
}

var mixedRepo = map[string]string{
	"main.go": `package main

func main() {
	result := Add(1, 2)
	_ = result
}

func Add(a, b int) int {
	return a + b
}
`,
	"service/orders.py": `from service.models import Order

class OrderService:
    def submit(self, order_id):
        o = Order(order_id)
        o.save()
        return self.process(o)

    def process(self, o):
        return len(str(o))
`,
	"service/models.py": `class Order:
    def __init__(self, order_id):
        self.order_id = order_id

    def save(self):
        return True
`,
	"web/app.js": `import { render } from './view';

export function start() {
  console.log("start");
  return render();
}
`,
	"web/view.js": `export function render() {
  return "<div/>";
}
`,
	"config/settings.yaml": "debug: true\n",
}

func idSets(res *Result) (nodes, rels []string) {
	for _, n := range res.Graph.Nodes() {
		nodes = append(nodes, n.ID)
	}
	for _, r := range res.Graph.Relationships() {
		rels = append(rels, r.ID)
	}
	sort.Strings(nodes)
	sort.Strings(rels)
	return nodes, rels
}

func TestRunIsDeterministic(t *testing.T) {
	n1, r1 := idSets(runFiles(t, mixedRepo))
	n2, r2 := idSets(runFiles(t, mixedRepo))
	if len(n1) != len(n2) || len(r1) != len(r2) {
		t.Fatalf("sizes differ: nodes %d/%d rels %d/%d", len(n1), len(n2), len(r1), len(r2))
	}
	for i := range n1 {
		if n1[i] != n2[i] {
			t.Fatalf("node ids differ at %d: %s vs %s", i, n1[i], n2[i])
		}
	}
	for i := range r1 {
		if r1[i] != r2[i] {
			t.Fatalf("relationship ids differ at %d: %s vs %s", i, r1[i], r2[i])
		}
	}
}

func TestContainmentForest(t *testing.T) {
	res := runFiles(t, mixedRepo)
	g := res.Graph
	root := graph.ProjectID("proj")
	for _, label := range []graph.NodeLabel{graph.Folder, graph.File} {
		for _, n := range g.NodesByLabel(label) {
			in := g.Incoming(n.ID, graph.Contains)
			if len(in) != 1 {
				t.Fatalf("%s %s has %d CONTAINS parents", label, n.ID, len(in))
			}
			// Walk up to the project; the bound catches cycles.
			cur := in[0].Source
			for depth := 0; cur != root; depth++ {
				if depth > 32 {
					t.Fatalf("no path from %s to the project", n.ID)
				}
				parents := g.Incoming(cur, graph.Contains)
				if len(parents) != 1 {
					t.Fatalf("%s has %d parents", cur, len(parents))
				}
				cur = parents[0].Source
			}
		}
	}
	if len(g.Incoming(root, graph.Contains)) != 0 {
		t.Fatal("project must be the root")
	}
}

func TestNoOrphanDefinitions(t *testing.T) {
	res := runFiles(t, mixedRepo)
	g := res.Graph
	for _, label := range []graph.NodeLabel{graph.Function, graph.Method, graph.Class} {
		for _, n := range g.NodesByLabel(label) {
			if n.Synthesized() {
				continue
			}
			var owners []string
			for _, rt := range []graph.RelType{graph.Defines, graph.Contains} {
				for _, r := range g.Incoming(n.ID, rt) {
					owners = append(owners, r.Source)
				}
			}
			if len(owners) != 1 || owners[0] != graph.FileID(n.FilePath()) {
				t.Fatalf("%s %q owners = %v, want its file", label, n.Name(), owners)
			}
		}
	}
}

func TestBuiltinNodeIsShared(t *testing.T) {
	res := runFiles(t, map[string]string{
		"a.py": "def f(xs):\n    return len(xs)\n",
		"b.py": "def g(ys):\n    print(ys)\n    return len(ys)\n",
	})
	g := res.Graph
	lenID := graph.BuiltinID("len")
	if n := g.Node(lenID); n == nil || !n.Synthesized() {
		t.Fatalf("builtin len node = %+v", n)
	}
	for _, caller := range []string{
		graph.DefinitionID(graph.Function, "a.py", "f"),
		graph.DefinitionID(graph.Function, "b.py", "g"),
	} {
		if s := callEdge(t, g, caller, lenID).Properties["strategy"]; s != StrategyBuiltin {
			t.Errorf("strategy = %v, want builtin", s)
		}
	}
	if got := len(g.Incoming(lenID, graph.Calls)); got != 2 {
		t.Errorf("len has %d callers, want 2", got)
	}
}

func TestRecursionKeepsSelfEdge(t *testing.T) {
	res := runFiles(t, map[string]string{
		"r.py": "def f(n):\n    if n == 0:\n        return 0\n    return f(n - 1)\n",
	})
	f := graph.DefinitionID(graph.Function, "r.py", "f")
	if s := callEdge(t, res.Graph, f, f).Properties["strategy"]; s != StrategyLocal {
		t.Errorf("strategy = %v, want local", s)
	}
}

func TestAcceptTargetRejectsMismatchedSelfEdge(t *testing.T) {
	rec := &CallRecord{FilePath: "a.py", CallerID: "X", CallerName: "f", CalledName: "g"}
	if acceptTarget(rec, "X") {
		t.Fatal("self edge for a differently named call must be dropped")
	}
	if !acceptTarget(rec, "Y") {
		t.Fatal("edge to another node must be kept")
	}
	rec.CalledName = "f"
	if !acceptTarget(rec, "X") {
		t.Fatal("recursive call must be kept")
	}
}

func TestProximityPrefersSameDirectory(t *testing.T) {
	w := config.Default().EffectiveScoring()
	caller := "app/svc/a.py"
	near := ProximityScore(caller, "app/svc/helper2.py", w)
	far := ProximityScore(caller, "app/svc/q/r/s/helper2.py", w)
	if near <= far {
		t.Fatalf("same directory scored %.3f, three levels away %.3f", near, far)
	}
	test := ProximityScore(caller, "app/svc/test_helper2.py", w)
	if test >= near {
		t.Fatalf("test file scored %.3f, want below %.3f", test, near)
	}
}

func TestGlobalFallback(t *testing.T) {
	res := runFiles(t, map[string]string{
		"a.py": "def f():\n    return g()\n",
		"b.py": "def g():\n    return 1\n",
	})
	r := callEdge(t, res.Graph,
		graph.DefinitionID(graph.Function, "a.py", "f"),
		graph.DefinitionID(graph.Function, "b.py", "g"))
	if s := r.Properties["strategy"]; s != StrategyGlobal {
		t.Errorf("strategy = %v, want global", s)
	}
	if res.CallsResolved != 1 || res.CallsDetected != 1 {
		t.Errorf("calls detected/resolved = %d/%d, want 1/1", res.CallsDetected, res.CallsResolved)
	}
}

func TestGlobalFallbackFilters(t *testing.T) {
	const callsG = "def f():\n    return g()\n"
	const callsP = "def f():\n    return _p()\n"
	tests := []struct {
		name   string
		caller string
		files  map[string]string
		// want is "file:function", or "" when the call stays unresolved.
		want string
	}{
		{
			name:   "shared directory beats unrelated top level",
			caller: "billing/a.py",
			files: map[string]string{
				"billing/a.py":  callsG,
				"shipping/b.py": "def g():\n    return 1\n",
				"utils/c.py":    "def g():\n    return 2\n",
			},
			want: "utils/c.py:g",
		},
		{
			name:   "unrelated top level only",
			caller: "billing/a.py",
			files: map[string]string{
				"billing/a.py":  callsG,
				"shipping/b.py": "def g():\n    return 1\n",
			},
		},
		{
			name:   "same top level",
			caller: "billing/a.py",
			files: map[string]string{
				"billing/a.py":     callsG,
				"billing/sub/b.py": "def g():\n    return 1\n",
			},
			want: "billing/sub/b.py:g",
		},
		{
			name:   "private name within two-level prefix",
			caller: "billing/x/y/a.py",
			files: map[string]string{
				"billing/x/y/a.py": callsP,
				"billing/x/q/b.py": "def _p():\n    return 1\n",
			},
			want: "billing/x/q/b.py:_p",
		},
		{
			name:   "private name outside two-level prefix",
			caller: "billing/x/y/a.py",
			files: map[string]string{
				"billing/x/y/a.py": callsP,
				"billing/z/b.py":   "def _p():\n    return 1\n",
			},
		},
		{
			name:   "legacy directory penalised",
			caller: "billing/a.py",
			files: map[string]string{
				"billing/a.py":      callsG,
				"utils/legacy/h.py": "def g():\n    return 1\n",
				"utils/modern/h.py": "def g():\n    return 2\n",
			},
			want: "utils/modern/h.py:g",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := runFiles(t, tt.files).Graph
			caller := graph.DefinitionID(graph.Function, tt.caller, "f")
			out := g.Outgoing(caller, graph.Calls)
			if tt.want == "" {
				if len(out) != 0 {
					t.Fatalf("call resolved to %s, want unresolved", out[0].Target)
				}
				return
			}
			file, fn, _ := strings.Cut(tt.want, ":")
			r := callEdge(t, g, caller, graph.DefinitionID(graph.Function, file, fn))
			if s := r.Properties["strategy"]; s != StrategyGlobal {
				t.Errorf("strategy = %v, want global", s)
			}
		})
	}
}

func TestConventionOrderBreaksTies(t *testing.T) {
	services := &Symbol{ID: "services", FilePath: "app/services/store.py"}
	models := &Symbol{ID: "models", FilePath: "app/models/store.py"}
	custom := config.Default()
	custom.FrameworkConventions = []config.Convention{{From: "jobs", To: "models"}}

	tests := []struct {
		name   string
		cfg    *config.Config
		caller string
		want   string
	}{
		{"views prefer models", config.Default(), "app/views/page.py", "models"},
		{"controllers prefer services first", config.Default(), "app/controllers/page.py", "services"},
		{"no convention keeps order", config.Default(), "app/jobs/page.py", "services"},
		{"configured convention", custom, "app/jobs/page.py", "models"},
	}
	// Zero weights score every candidate alike, so only ordering decides.
	flat := config.ScoringWeights{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			cands := p.globalCandidates(tt.caller, "load", []*Symbol{services, models})
			if got := bestCandidate(tt.caller, cands, flat); got == nil || got.ID != tt.want {
				t.Errorf("best = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestLegacyPenalty(t *testing.T) {
	caller := "billing/a.py"
	w := config.DefaultScoringWeights()
	// Without the length and name terms only the legacy segment differs.
	w.NameSimilarityWeight = 0
	w.ShortPathWeight = 0
	base := ProximityScore(caller, "utils/modern/h.py", w)
	for _, seg := range []string{"legacy", "Deprecated", "old", "archive", "backup", "obsolete"} {
		got := ProximityScore(caller, "utils/"+seg+"/h.py", w)
		if diff := base - got; diff != w.LegacyPenalty {
			t.Errorf("%s: penalty = %v, want %v", seg, diff, w.LegacyPenalty)
		}
	}
	if got := ProximityScore(caller, "utils/older/h.py", w); got != base {
		t.Errorf("older: score = %v, want %v", got, base)
	}
}

func TestConstructorTypeInference(t *testing.T) {
	res := runFiles(t, map[string]string{
		"u.py": "class User:\n    def __init__(self):\n        pass\n\n    def save(self):\n        return True\n",
		"s.py": "def create_user():\n    x = User()\n    x.save()\n    return x\n",
	})
	vt, ok := res.Types.Lookup("s.py", "create_user", "x")
	if !ok {
		t.Fatal("no type recorded for x")
	}
	want := VarType{Type: "User", Confidence: ConfidenceHigh, Source: SourceConstructor}
	if vt != want {
		t.Fatalf("x = %+v, want %+v", vt, want)
	}
	r := callEdge(t, res.Graph,
		graph.DefinitionID(graph.Function, "s.py", "create_user"),
		graph.DefinitionID(graph.Method, "u.py", "User.save"))
	if s := r.Properties["strategy"]; s != StrategyTyped {
		t.Errorf("strategy = %v, want typed", s)
	}
}

func TestTypedDispatchAcrossFiles(t *testing.T) {
	res := runFiles(t, mixedRepo)
	g := res.Graph
	submit := graph.DefinitionID(graph.Method, "service/orders.py", "OrderService.submit")
	callEdge(t, g, submit, graph.DefinitionID(graph.Method, "service/models.py", "Order.save"))
	if s := callEdge(t, g, submit, graph.DefinitionID(graph.Method, "service/orders.py", "OrderService.process")).Properties["strategy"]; s != StrategyTyped {
		t.Errorf("self.process strategy = %v, want typed", s)
	}
	if s := callEdge(t, g, submit, graph.DefinitionID(graph.Class, "service/models.py", "Order")).Properties["strategy"]; s != StrategyImported {
		t.Errorf("Order() strategy = %v, want imported", s)
	}
}

func TestSuperDispatch(t *testing.T) {
	res := runFiles(t, map[string]string{
		"h.py": `class Base:
    def greet(self):
        return "hi"

class Child(Base):
    def greet(self):
        return super().greet()
`,
	})
	g := res.Graph
	child := graph.DefinitionID(graph.Class, "h.py", "Child")
	base := graph.DefinitionID(graph.Class, "h.py", "Base")
	if g.Relationship(graph.RelID(graph.Extends, child, base)) == nil {
		t.Fatal("missing EXTENDS Child -> Base")
	}
	r := callEdge(t, g,
		graph.DefinitionID(graph.Method, "h.py", "Child.greet"),
		graph.DefinitionID(graph.Method, "h.py", "Base.greet"))
	if s := r.Properties["strategy"]; s != StrategySuper {
		t.Errorf("strategy = %v, want super", s)
	}
}

func TestImportedSymbolEdge(t *testing.T) {
	res := runFiles(t, mixedRepo)
	g := res.Graph
	imp := g.Relationship(graph.RelID(graph.Imports, graph.FileID("web/app.js"), graph.FileID("web/view.js")))
	if imp == nil {
		t.Fatal("missing IMPORTS app.js -> view.js")
	}
	names, _ := imp.Properties["imported_names"].([]string)
	if len(names) != 1 || names[0] != "render" {
		t.Errorf("imported_names = %v", imp.Properties["imported_names"])
	}
	r := callEdge(t, g,
		graph.DefinitionID(graph.Function, "web/app.js", "start"),
		graph.DefinitionID(graph.Function, "web/view.js", "render"))
	if s := r.Properties["strategy"]; s != StrategyImported {
		t.Errorf("strategy = %v, want imported", s)
	}
	callEdge(t, g, graph.DefinitionID(graph.Function, "web/app.js", "start"), graph.BuiltinID("console.log"))
}

func TestSynthesizedNodesAnchorEdges(t *testing.T) {
	res := runFiles(t, map[string]string{
		"app/run.py": "from extlib import Foo, helper\n\n" +
			"class Sub(Foo):\n    def start(self):\n        return super().start()\n\n" +
			"def run():\n    f = Foo()\n    f.bar()\n    helper()\n    return len([])\n",
		"app/only.py": "from extlib import Foo\n\ndef make():\n    f = Foo()\n    return f.bar()\n",
	})
	g := res.Graph

	anchors := []graph.RelType{graph.Calls, graph.Extends, graph.Implements, graph.Imports}
	for _, n := range g.Nodes() {
		if !n.Synthesized() {
			continue
		}
		incoming := 0
		for _, rt := range anchors {
			incoming += len(g.Incoming(n.ID, rt))
		}
		if incoming == 0 {
			t.Errorf("synthesized %s %q anchors no edge", n.Label, n.Name())
		}
	}

	if g.HasNode(graph.ImportedID("extlib", "Foo")) {
		t.Error("instantiating Foo created a second, Function-labelled node")
	}
	foo := graph.ImportedClassID("extlib", "Foo")
	if g.Node(foo) == nil {
		t.Fatal("missing synthesized Class Foo")
	}
	sub := graph.DefinitionID(graph.Class, "app/run.py", "Sub")
	if g.Relationship(graph.RelID(graph.Extends, sub, foo)) == nil {
		t.Error("missing EXTENDS Sub -> Foo")
	}
	callEdge(t, g, graph.DefinitionID(graph.Function, "app/run.py", "run"), foo)
	callEdge(t, g, graph.DefinitionID(graph.Function, "app/only.py", "make"), foo)
	callEdge(t, g, graph.DefinitionID(graph.Function, "app/run.py", "run"), graph.ImportedID("extlib", "helper"))
	callEdge(t, g, graph.DefinitionID(graph.Method, "app/run.py", "Sub.start"), graph.ImportedID("extlib", "Foo.start"))
}

func TestResolveStages(t *testing.T) {
	idx := newFileIndex([]string{
		"app/models.py",
		"lib/app/models.py",
		"pkg/a.py",
		"src/core/db/__init__.py",
		"src/app.ts",
		"src/util.ts",
		"utils/helpers.py",
		"other/missing.py",
	})
	tests := []struct {
		name     string
		importer string
		rec      ImportRecord
		want     string
	}{
		{"exact", "main.py", ImportRecord{FromModule: "app.models", ImportType: ImportModule}, "app/models.py"},
		{"last segment", "main.py", ImportRecord{FromModule: "pkg.helpers", ImportType: ImportModule}, "utils/helpers.py"},
		{"substring", "main.py", ImportRecord{FromModule: "core.db", ImportType: ImportModule}, "src/core/db/__init__.py"},
		{"relative exact", "src/app.ts", ImportRecord{FromModule: "./util", ImportType: ImportNamed, ImportedName: "x"}, "src/util.ts"},
		{"relative miss", "pkg/a.py", ImportRecord{FromModule: ".missing", ImportType: ImportModule}, ""},
		{"other family", "src/app.ts", ImportRecord{FromModule: "app/models", ImportType: ImportModule}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.resolve(tt.importer, tt.rec); got != tt.want {
				t.Errorf("resolve(%s, %s) = %q, want %q", tt.importer, tt.rec.FromModule, got, tt.want)
			}
		})
	}
}

func TestScanImports(t *testing.T) {
	recs := scanImports("import os, sys as system\nfrom .models import User, Post as P\nx = 1\n")
	want := []ImportRecord{
		{FromModule: "os", LocalName: "os", ImportType: ImportModule, Line: 1},
		{FromModule: "sys", Alias: "system", LocalName: "system", ImportType: ImportModule, Line: 1},
		{FromModule: ".models", ImportedName: "User", LocalName: "User", ImportType: ImportNamed, Line: 2},
		{FromModule: ".models", ImportedName: "Post", Alias: "P", LocalName: "P", ImportType: ImportNamed, Line: 2},
	}
	if len(recs) != len(want) {
		t.Fatalf("got %d records: %+v", len(recs), recs)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, recs[i], want[i])
		}
	}
}

type failingUnit struct{}

func (failingUnit) Process(_ context.Context, t extract.Task) (extract.Result, error) {
	return extract.Result{FilePath: t.FilePath, Source: t.Content, Size: len(t.Content), Err: errors.New("grammar unavailable")}, nil
}

func (failingUnit) Close() {}

func TestParseFailureFallsBackToLineScan(t *testing.T) {
	factory := func(int) (workerpool.Unit[extract.Task, extract.Result], error) { return failingUnit{}, nil }
	res := runFiles(t, map[string]string{
		"a.py": "from b import g\n\ndef f():\n    return g()\n",
		"b.py": "def g():\n    return 1\n",
	}, WithUnitFactory(factory))

	if res.FilesParsed != 0 || res.FilesFailed != 2 {
		t.Fatalf("parsed/failed = %d/%d, want 0/2", res.FilesParsed, res.FilesFailed)
	}
	if e, _ := res.Graph.FileByPath("a.py").Properties["parse_error"].(string); e == "" {
		t.Error("a.py has no parse_error")
	}
	r := res.Graph.Relationship(graph.RelID(graph.Imports, graph.FileID("a.py"), graph.FileID("b.py")))
	if r == nil {
		t.Fatal("missing IMPORTS a.py -> b.py from the line scan")
	}
	if it := r.Properties["import_type"]; it != ImportNamed {
		t.Errorf("import_type = %v, want named", it)
	}
	if res.CallsDetected != 0 {
		t.Errorf("calls detected without trees: %d", res.CallsDetected)
	}
}

// slowUnit parses for real, but only after delay and without honouring
// cancellation.
type slowUnit struct {
	*extract.Unit
	delay     time.Duration
	discarded *atomic.Int32
}

func (u slowUnit) Process(_ context.Context, t extract.Task) (extract.Result, error) {
	time.Sleep(u.delay)
	return u.Unit.Process(context.Background(), t)
}

func (u slowUnit) Discard(r extract.Result) {
	u.discarded.Add(1)
	u.Unit.Discard(r)
}

func TestLateParseResultsAreReleased(t *testing.T) {
	var discarded atomic.Int32
	factory := func(id int) (workerpool.Unit[extract.Task, extract.Result], error) {
		u, err := extract.NewUnit(id)
		if err != nil {
			return nil, err
		}
		return slowUnit{Unit: u, delay: 60 * time.Millisecond, discarded: &discarded}, nil
	}
	cfg := config.Default()
	workers, timeout, abandon := 2, 10*time.Millisecond, time.Second
	cfg.Pool.MaxWorkers = &workers
	cfg.Pool.TaskTimeout = &timeout
	cfg.Pool.AbandonAfter = &abandon

	files := map[string]string{
		"a.py": "def f():\n    return 1\n",
		"b.py": "def g():\n    return 2\n",
	}
	res, err := New(cfg, WithUnitFactory(factory)).Run(context.Background(), Input{
		ProjectName:  "proj",
		FilePaths:    []string{"a.py", "b.py"},
		FileContents: files,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FilesFailed != 2 {
		t.Errorf("files failed = %d, want 2", res.FilesFailed)
	}
	if e, _ := res.Graph.FileByPath("a.py").Properties["parse_error"].(string); !strings.Contains(e, "timed out") {
		t.Errorf("parse_error = %q", e)
	}
	if n := discarded.Load(); n != 2 {
		t.Errorf("discarded = %d, want 2 late results released", n)
	}
}

func TestProgressPhases(t *testing.T) {
	var events []Progress
	runFiles(t, mixedRepo, WithProgress(func(p Progress) { events = append(events, p) }))
	if len(events) == 0 {
		t.Fatal("no progress events")
	}
	if events[0].Phase != PhaseStructure {
		t.Errorf("first phase = %s", events[0].Phase)
	}
	last := events[len(events)-1]
	if last.Phase != PhaseComplete || last.Percent != 100 {
		t.Errorf("last event = %+v", last)
	}
	seen := make(map[Phase]bool)
	for i, e := range events {
		seen[e.Phase] = true
		if i > 0 && e.Percent < events[i-1].Percent {
			t.Errorf("percent went back from %d to %d", events[i-1].Percent, e.Percent)
		}
	}
	for _, ph := range []Phase{PhaseStructure, PhaseParsing, PhaseImports, PhaseCalls, PhaseComplete} {
		if !seen[ph] {
			t.Errorf("phase %s not reported", ph)
		}
	}
}

func TestInvalidInput(t *testing.T) {
	p := New(nil)
	for _, in := range []Input{
		{ProjectName: "", FileContents: map[string]string{}},
		{ProjectName: "x"},
	} {
		if _, err := p.Run(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Run(%+v) err = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Run(ctx, Input{ProjectName: "p", FilePaths: []string{"a.py"}, FileContents: map[string]string{"a.py": "x = 1\n"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestIgnoredFilesAreNotParsed(t *testing.T) {
	res := runFiles(t, map[string]string{
		"src/a.js":                  "export function a() { return 1; }\n",
		"node_modules/lib/index.js": "export function lib() { return 2; }\n",
	})
	g := res.Graph
	if g.FileByPath("node_modules/lib/index.js") == nil {
		t.Fatal("ignored file must still appear in the structure")
	}
	if g.HasNode(graph.DefinitionID(graph.Function, "node_modules/lib/index.js", "lib")) {
		t.Error("ignored file was parsed")
	}
	if !g.HasNode(graph.DefinitionID(graph.Function, "src/a.js", "a")) {
		t.Error("src/a.js was not parsed")
	}
}

func TestFilterAndNormalize(t *testing.T) {
	f := &Filter{DirectoryFilter: "./src/", FileExtensions: []string{"py", ".GO"}}
	got := f.Apply([]string{"src/a.py", "src/b.js", "src/c.go", "lib/d.py", "src"})
	if len(got) != 2 || got[0] != "src/a.py" || got[1] != "src/c.go" {
		t.Errorf("Apply = %v", got)
	}
	var nilFilter *Filter
	if got := nilFilter.Apply([]string{"x"}); len(got) != 1 {
		t.Errorf("nil filter dropped paths: %v", got)
	}
	for in, want := range map[string]string{
		`src\pkg\a.go`: "src/pkg/a.go",
		"/abs/b.py":    "abs/b.py",
		"./c/../d.py":  "d.py",
		"../escape.py": "",
		"  ":           "",
	} {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQualifiedNames(t *testing.T) {
	res := runFiles(t, mixedRepo)
	g := res.Graph
	save := g.Node(graph.DefinitionID(graph.Method, "service/models.py", "Order.save"))
	if save == nil {
		t.Fatal("Order.save not defined")
	}
	if got := save.Properties["fqn"]; got != "proj.service.models.Order.save" {
		t.Errorf("fqn = %v", got)
	}
	if got := g.FileByPath("web/app.js").Properties["qualified_name"]; got != "proj.web.app" {
		t.Errorf("file qualified_name = %v", got)
	}
	if cls := save.Properties["parent_class"]; cls != "Order" {
		t.Errorf("parent_class = %v", cls)
	}
}
