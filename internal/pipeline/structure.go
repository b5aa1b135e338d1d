package pipeline

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/DeusData/codegraph-ingest/internal/fqn"
	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// NormalizePath converts p to the slash-separated, cleaned, root-relative
// form used as the File key. It returns "" for paths that are empty or
// escape the root.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	p = path.Clean(strings.TrimLeft(p, "/"))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return ""
	}
	return p
}

// BuildStructure adds the Project node, one Folder per ancestor directory
// and one File per path, linked by CONTAINS into a single tree. It returns
// the normalised, de-duplicated, sorted file paths.
func BuildStructure(g *graph.Graph, project string, paths []string) []string {
	projectID := graph.ProjectID(project)
	g.AddNode(&graph.Node{
		ID:         projectID,
		Label:      graph.Project,
		Properties: map[string]any{"name": project},
	})

	seen := make(map[string]bool, len(paths))
	files := make([]string, 0, len(paths))
	for _, raw := range paths {
		p := NormalizePath(raw)
		if p == "" {
			slog.Warn("structure.path.skip", "path", raw)
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		files = append(files, p)
	}
	sort.Strings(files)

	dirs := make(map[string]bool)
	for _, f := range files {
		for d := path.Dir(f); d != "."; d = path.Dir(d) {
			if dirs[d] {
				break
			}
			dirs[d] = true
		}
	}
	dirList := make([]string, 0, len(dirs))
	for d := range dirs {
		dirList = append(dirList, d)
	}
	// Parents sort before children, so every CONTAINS source already exists.
	sort.Strings(dirList)

	for _, d := range dirList {
		id := graph.FolderID(d)
		g.AddNode(&graph.Node{
			ID:    id,
			Label: graph.Folder,
			Properties: map[string]any{
				"name":           path.Base(d),
				"path":           d,
				"depth":          strings.Count(d, "/") + 1,
				"qualified_name": fqn.FolderQN(project, d),
			},
		})
		g.AddRelationship(&graph.Relationship{Type: graph.Contains, Source: parentID(projectID, d), Target: id})
	}

	for _, f := range files {
		id := graph.FileID(f)
		var language lang.Language
		if spec := lang.ForPath(f); spec != nil {
			language = spec.Language
		}
		g.AddNode(&graph.Node{
			ID:    id,
			Label: graph.File,
			Properties: map[string]any{
				"name":           path.Base(f),
				"path":           f,
				"extension":      path.Ext(f),
				"language":       string(language),
				"is_test":        isTestPath(f),
				"qualified_name": fqn.Compute(project, f, ""),
			},
		})
		g.AddRelationship(&graph.Relationship{Type: graph.Contains, Source: parentID(projectID, f), Target: id})
	}

	g.MergeProperties(projectID, map[string]any{"file_count": len(files)})
	return files
}

func parentID(projectID, p string) string {
	if d := path.Dir(p); d != "." {
		return graph.FolderID(d)
	}
	return projectID
}
