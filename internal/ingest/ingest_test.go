package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/pipeline"
	"github.com/DeusData/codegraph-ingest/internal/store"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "shop")
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return root
}

var shop = map[string]string{
	"svc/orders.py":   "from svc.models import Order\n\ndef place(i):\n    o = Order(i)\n    return o.save()\n",
	"svc/models.py":   "class Order:\n    def save(self):\n        return 1\n",
	"vendor/lib.py":   "def hidden():\n    pass\n",
	".codegraph.yaml": "ignore_patterns:\n  - generated\n",
	"generated/x.py":  "def gen():\n    pass\n",
}

func TestDirBuildsGraph(t *testing.T) {
	root := writeTree(t, shop)
	var phases []pipeline.Phase
	out, err := Dir(context.Background(), root, Options{
		Progress: func(p pipeline.Progress) { phases = append(phases, p.Phase) },
	})
	require.NoError(t, err)

	assert.Equal(t, "shop", out.Project)
	assert.Equal(t, root, out.Root)
	assert.Equal(t, pipeline.PhaseComplete, phases[len(phases)-1])

	g := out.Graph
	place := graph.DefinitionID(graph.Function, "svc/orders.py", "place")
	save := graph.DefinitionID(graph.Method, "svc/models.py", "Order.save")
	assert.True(t, g.HasNode(place))
	assert.True(t, g.HasNode(save))
	assert.NotNil(t, g.Relationship(graph.RelID(graph.Calls, place, save)))
	assert.False(t, g.HasNode(graph.DefinitionID(graph.Function, "vendor/lib.py", "hidden")), "vendor dir is skipped")
	assert.False(t, g.HasNode(graph.DefinitionID(graph.Function, "generated/x.py", "gen")), "config ignore pattern applies")
}

func TestDirWritesSink(t *testing.T) {
	root := writeTree(t, shop)
	s, err := store.OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	out, err := Dir(context.Background(), root, Options{Project: "orders", Sink: s})
	require.NoError(t, err)

	n, err := s.CountNodes("orders")
	require.NoError(t, err)
	assert.Equal(t, out.Summary.TotalNodes, n)
}

func TestDirRejectsFile(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n"})
	_, err := Dir(context.Background(), filepath.Join(root, "a.py"), Options{})
	assert.Error(t, err)

	_, err = Dir(context.Background(), filepath.Join(root, "missing"), Options{})
	assert.Error(t, err)
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "shop", ProjectName("/src/shop"))
	assert.Equal(t, "shop", ProjectName("/src/shop/"))
}

func TestRecordedOptionsReplay(t *testing.T) {
	t.Chdir(t.TempDir())
	opts := Options{
		Project:    "shop",
		ConfigPath: "cg.yaml",
		Filter:     &pipeline.Filter{DirectoryFilter: "svc", FileExtensions: []string{".py"}},
	}
	rec := opts.Recorded()
	assert.True(t, filepath.IsAbs(rec.ConfigPath), "config path %q", rec.ConfigPath)
	assert.Empty(t, rec.IgnoreFile)

	replayed := Replay(&store.Project{Name: "shop", Options: rec}, nil)
	assert.Equal(t, "shop", replayed.Project)
	assert.Equal(t, rec.ConfigPath, replayed.ConfigPath)
	require.NotNil(t, replayed.Filter)
	assert.Equal(t, "svc", replayed.Filter.DirectoryFilter)
	assert.Equal(t, []string{".py"}, replayed.Filter.FileExtensions)

	assert.Nil(t, Replay(&store.Project{Name: "bare"}, nil).Filter)
}
