package pipeline

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/DeusData/codegraph-ingest/internal/graph"
)

// resolveInheritance links every class to its declared bases and
// implemented interfaces. Bases resolve same-file first, then through the
// import table, then to a unique class of that name anywhere.
func (p *Pipeline) resolveInheritance(st *runState) {
	paths := make([]string, 0, len(st.registry.files))
	for f := range st.registry.files {
		paths = append(paths, f)
	}
	sort.Strings(paths)

	count := 0
	for _, f := range paths {
		for _, sym := range st.registry.FileSymbols(f) {
			if sym.Label != graph.Class && sym.Label != graph.Interface {
				continue
			}
			for _, base := range sym.Def.BaseClasses {
				ref := st.resolveClassRef(f, base)
				if ref.ID == sym.ID {
					continue
				}
				target := st.anchorClass(ref)
				if target == "" {
					continue
				}
				rel := graph.Extends
				if ref.Label == graph.Interface && sym.Label == graph.Class {
					rel = graph.Implements
				}
				if st.g.AddRelationship(&graph.Relationship{Type: rel, Source: sym.ID, Target: target}) {
					count++
				}
			}
			for _, iface := range sym.Def.Implements {
				ref := st.resolveClassRef(f, iface)
				if ref.ID == sym.ID {
					continue
				}
				target := st.anchorClass(ref)
				if target == "" {
					continue
				}
				if st.g.AddRelationship(&graph.Relationship{Type: graph.Implements, Source: sym.ID, Target: target}) {
					count++
				}
			}
		}
	}
	slog.Info("inherits.done", "edges", count)
}

// splitQualified splits "pkg.Base" or "pkg::Base" into ("pkg", "Base").
func splitQualified(name string) (qualifier, short string) {
	name = strings.ReplaceAll(name, "::", ".")
	name = strings.ReplaceAll(name, `\`, ".")
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// classRef is a class reference as seen from one file. An imported class
// missing from the tree has no ID, only the Module it comes from.
type classRef struct {
	ID     string
	Label  graph.NodeLabel
	Module string
	Name   string
}

// resolveClassRef looks up the class named by ref as seen from file. It
// never creates nodes.
func (st *runState) resolveClassRef(file, ref string) classRef {
	qualifier, short := splitQualified(ref)
	if short == "" {
		return classRef{}
	}
	if qualifier == "" {
		if c := st.registry.Class(file, short); c != nil {
			return classRef{ID: c.ID, Label: c.Label, Name: short}
		}
	}
	lookup := short
	if qualifier != "" {
		lookup = qualifier
	}
	if rec := st.importFor(file, lookup); rec != nil {
		name := short
		if qualifier == "" && rec.ImportedName != "" && rec.ImportedName != "default" && rec.ImportedName != "*" {
			name = rec.ImportedName
		}
		if rec.ResolvedPath != "" {
			if c := st.registry.Class(rec.ResolvedPath, name); c != nil {
				return classRef{ID: c.ID, Label: c.Label, Name: name}
			}
		}
		return classRef{Label: graph.Class, Module: rec.FromModule, Name: name}
	}
	if c := st.registry.UniqueClass(short); c != nil {
		return classRef{ID: c.ID, Label: c.Label, Name: short}
	}
	return classRef{}
}

// anchorClass returns the node id an edge to ref should target,
// synthesizing the node of an imported class on first use.
func (st *runState) anchorClass(ref classRef) string {
	if ref.ID != "" || ref.Module == "" {
		return ref.ID
	}
	return st.synthImported(graph.Class, ref.Module, ref.Name)
}

// importFor returns the import of file that binds local, or nil.
func (st *runState) importFor(file, local string) *ImportRecord {
	recs := st.imports[file]
	for i := range recs {
		if recs[i].LocalName == local {
			return &recs[i]
		}
	}
	return nil
}

// synthImported returns the id of the synthesized node anchoring name from
// module, creating it on first use.
func (st *runState) synthImported(label graph.NodeLabel, module, name string) string {
	id := graph.ImportedID(module, name)
	if label == graph.Class {
		id = graph.ImportedClassID(module, name)
	}
	st.g.AddNode(&graph.Node{
		ID:    id,
		Label: label,
		Properties: map[string]any{
			"name":   name,
			"type":   graph.SynthImported,
			"module": module,
		},
	})
	return id
}

// synthBuiltin returns the shared node for a builtin name.
func (st *runState) synthBuiltin(name string) string {
	id := graph.BuiltinID(name)
	st.g.AddNode(&graph.Node{
		ID:    id,
		Label: graph.Function,
		Properties: map[string]any{
			"name": name,
			"type": graph.SynthBuiltin,
		},
	})
	return id
}
