package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeIDDeterministic(t *testing.T) {
	a := DefinitionID(Function, "pkg/a.py", "f")
	b := DefinitionID(Function, "pkg/a.py", "f")
	require.Equal(t, a, b)
	require.NotEqual(t, a, DefinitionID(Method, "pkg/a.py", "f"))
	require.NotEqual(t, a, DefinitionID(Function, "pkg/b.py", "f"))
	require.Contains(t, a, "Function:")
}

func TestNodeIDPartsDoNotRun(t *testing.T) {
	// ("ab","c") and ("a","bc") must not collide.
	require.NotEqual(t, NodeID(Function, "ab", "c"), NodeID(Function, "a", "bc"))
}

func TestBuiltinIDIndependentOfCaller(t *testing.T) {
	require.Equal(t, BuiltinID("len"), BuiltinID("len"))
	require.NotEqual(t, BuiltinID("len"), ImportedID("builtins", "len"))
}

func TestLabelRoundTrip(t *testing.T) {
	for _, l := range AllNodeLabels() {
		got, err := ParseNodeLabel(l.String())
		require.NoError(t, err)
		require.Equal(t, l, got)
	}
	for _, rt := range AllRelTypes() {
		got, err := ParseRelType(rt.String())
		require.NoError(t, err)
		require.Equal(t, rt, got)
	}
	_, err := ParseNodeLabel("Widget")
	require.Error(t, err)
	require.False(t, NodeLabel(0).Valid())
	require.Len(t, AllNodeLabels(), 13)
	require.Len(t, AllRelTypes(), 7)
}

func TestAddNodeIdempotent(t *testing.T) {
	g := New()
	id := FileID("a.py")
	require.True(t, g.AddNode(&Node{ID: id, Label: File, Properties: map[string]any{"path": "a.py"}}))
	require.False(t, g.AddNode(&Node{ID: id, Label: File, Properties: map[string]any{"path": "a.py", "x": 1}}))
	require.Equal(t, 1, g.NodeCount())
	require.NotContains(t, g.Node(id).Properties, "x")
	require.Same(t, g.Node(id), g.FileByPath("a.py"))

	require.True(t, g.MergeProperties(id, map[string]any{"language": "python"}))
	require.Equal(t, "python", g.Node(id).Properties["language"])
	require.False(t, g.MergeProperties("missing", map[string]any{"a": 1}))
}

func TestAddRelationshipDedupAndEndpoints(t *testing.T) {
	g := New()
	g.AddNode(&Node{ID: "a", Label: Function})
	g.AddNode(&Node{ID: "b", Label: Function})

	require.False(t, g.AddRelationship(&Relationship{Type: Calls, Source: "a", Target: "missing"}))
	require.True(t, g.AddRelationship(&Relationship{Type: Calls, Source: "a", Target: "b", Properties: map[string]any{"call_kind": "plain"}}))
	require.False(t, g.AddRelationship(&Relationship{Type: Calls, Source: "a", Target: "b"}))
	require.Equal(t, 1, g.RelationshipCount())

	r := g.Relationship(RelID(Calls, "a", "b"))
	require.NotNil(t, r)
	require.Equal(t, 2, r.Properties["count"])
	require.Len(t, g.Outgoing("a", Calls), 1)
	require.Len(t, g.Incoming("b", Calls), 1)
}

func TestSummarize(t *testing.T) {
	g := New()
	g.AddNode(&Node{ID: "f", Label: Function})
	g.AddNode(&Node{ID: "m", Label: Method})
	g.AddRelationship(&Relationship{Type: Calls, Source: "f", Target: "m", Properties: map[string]any{"call_kind": "member", "strategy": "typed"}})

	s := g.Summarize()
	require.Equal(t, 1, s.NodeLabels["Function"])
	require.Equal(t, 1, s.NodeLabels["Method"])
	require.Equal(t, 1, s.Relationships["CALLS"])
	require.Equal(t, 1, s.CallKinds["member"])
	require.Equal(t, 1, s.Strategies["typed"])
}

func TestSnapshotJSON(t *testing.T) {
	g := New()
	g.AddNode(&Node{ID: ProjectID("p"), Label: Project, Properties: map[string]any{"name": "p"}})
	b, err := json.Marshal(g.Snapshot())
	require.NoError(t, err)
	require.Contains(t, string(b), `"label":"Project"`)

	var back Snapshot
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, Project, back.Nodes[0].Label)
}
