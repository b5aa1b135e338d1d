package pipeline

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// Resolution strategies recorded on CALLS edges.
const (
	StrategyBuiltin  = "builtin"
	StrategyImported = "imported"
	StrategySuper    = "super"
	StrategyTyped    = "typed"
	StrategyLocal    = "local"
	StrategyGlobal   = "global"
)

// maxBaseDepth bounds the walk up a class hierarchy.
const maxBaseDepth = 5

// resolveCall runs the strategy chain for rec and returns the target node
// id and the strategy that found it, or "" when the call stays unresolved.
func (p *Pipeline) resolveCall(st *runState, rec *CallRecord) (string, string) {
	spec := lang.ForPath(rec.FilePath)
	if spec == nil {
		return "", ""
	}
	if rec.Kind == CallSuper {
		if t := st.resolveSuper(rec); t != "" {
			return t, StrategySuper
		}
		return "", ""
	}
	if t := st.resolveBuiltin(spec, rec); t != "" {
		return t, StrategyBuiltin
	}
	if t := st.resolveImported(rec); t != "" {
		return t, StrategyImported
	}
	if t := p.resolveTyped(st, rec); t != "" {
		return t, StrategyTyped
	}
	if t := st.resolveLocal(rec); t != "" {
		return t, StrategyLocal
	}
	if t := p.resolveGlobal(st, rec); t != "" {
		return t, StrategyGlobal
	}
	return "", ""
}

// acceptTarget applies the self-edge guard: a call may only target its own
// caller when it names the caller, i.e. genuine recursion.
func acceptTarget(rec *CallRecord, target string) bool {
	if target != rec.CallerID || rec.CalledName == rec.CallerName {
		return true
	}
	slog.Warn("calls.self_edge.dropped", "path", rec.FilePath, "caller", rec.CallerName,
		"called", rec.CalledName, "line", rec.Line)
	return false
}

func (st *runState) resolveBuiltin(spec *lang.LanguageSpec, rec *CallRecord) string {
	switch rec.Kind {
	case CallPlain:
		if spec.IsBuiltin(rec.CalledName) {
			return st.synthBuiltin(rec.CalledName)
		}
	case CallMember:
		if rec.Qualifier == "" || rec.ReceiverIsSelf {
			return ""
		}
		if name := rec.Qualifier + "." + rec.CalledName; spec.IsBuiltin(name) {
			return st.synthBuiltin(name)
		}
	}
	return ""
}

// resolveImported matches a plain name bound by an import, or a member call
// whose receiver is an imported module or class.
func (st *runState) resolveImported(rec *CallRecord) string {
	switch rec.Kind {
	case CallPlain:
		if imp := st.importFor(rec.FilePath, rec.CalledName); imp != nil {
			name := imp.ImportedName
			if name == "" || name == "default" {
				name = rec.CalledName
			}
			if imp.ResolvedPath != "" {
				if t := st.definitionIn(imp.ResolvedPath, name); t != "" {
					return t
				}
			}
			return st.synthImported(importedLabel(rec, name), imp.FromModule, name)
		}
		for _, imp := range st.imports[rec.FilePath] {
			if imp.ImportType == ImportWildcard && imp.ResolvedPath != "" {
				if t := st.definitionIn(imp.ResolvedPath, rec.CalledName); t != "" {
					return t
				}
			}
		}
	case CallMember:
		if rec.ReceiverIsSelf || rec.Qualifier == "" {
			return ""
		}
		root, rest, _ := strings.Cut(strings.ReplaceAll(rec.Qualifier, "::", "."), ".")
		if rec.ReceiverName != "" {
			if _, typed := st.types.Lookup(rec.FilePath, rec.scope(), rec.ReceiverName); typed {
				return ""
			}
		}
		imp := st.importFor(rec.FilePath, root)
		if imp == nil {
			return ""
		}
		if imp.ResolvedPath != "" && rest == "" {
			if cls := imp.ImportedName; cls != "" && cls != "default" && cls != "*" {
				if c := st.registry.Class(imp.ResolvedPath, cls); c != nil {
					if m := st.registry.MethodOf(c, rec.CalledName); m != nil {
						return m.ID
					}
				}
			}
			if t := st.definitionIn(imp.ResolvedPath, rec.CalledName); t != "" {
				return t
			}
		}
		name := rec.CalledName
		if rest != "" {
			name = rest + "." + name
		}
		if imp.ImportedName != "" && imp.ImportType != ImportQualified && imp.ImportType != ImportModule {
			name = imp.ImportedName + "." + name
		}
		label := graph.Function
		if rec.Constructor && name == rec.CalledName {
			label = graph.Class
		}
		return st.synthImported(label, imp.FromModule, name)
	}
	return ""
}

// importedLabel picks the synthesized label for an unresolved imported
// name called plainly. Instantiations share the node a base class
// reference to the same name anchors.
func importedLabel(rec *CallRecord, name string) graph.NodeLabel {
	if rec.Constructor || startsUpper(name) {
		return graph.Class
	}
	return graph.Function
}

// definitionIn returns the function, or the class as constructor, named
// name in file. A Go file stands for its whole package directory.
func (st *runState) definitionIn(file, name string) string {
	files := []string{file}
	if path.Ext(file) == ".go" {
		files = st.packageFiles(path.Dir(file))
	}
	for _, f := range files {
		if fn := st.registry.Function(f, name); fn != nil {
			return fn.ID
		}
		if c := st.registry.Class(f, name); c != nil {
			return c.ID
		}
	}
	return ""
}

// packageFiles lists the registered files directly inside dir, sorted.
func (st *runState) packageFiles(dir string) []string {
	var out []string
	for f := range st.registry.files {
		if path.Dir(f) == dir {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// resolveClassSymbol locates a registered class named ref from file.
func (st *runState) resolveClassSymbol(file, ref string) *Symbol {
	c := st.resolveClassRef(file, ref)
	if c.ID == "" {
		return nil
	}
	return st.registry.ByID(c.ID)
}

// enclosingClassSymbol returns the class declaring rec's caller.
func (st *runState) enclosingClassSymbol(rec *CallRecord) *Symbol {
	if rec.EnclosingClass == "" {
		return nil
	}
	if c := st.registry.Class(rec.FilePath, rec.EnclosingClass); c != nil {
		return c
	}
	return st.registry.UniqueClass(rec.EnclosingClass)
}

// resolveSuper searches the bases of the caller's class, in declaration
// order and depth first, for a method named like the call.
func (st *runState) resolveSuper(rec *CallRecord) string {
	cls := st.enclosingClassSymbol(rec)
	if cls == nil {
		return ""
	}
	return st.searchBases(cls, rec.CalledName, map[string]bool{cls.ID: true}, 0)
}

func (st *runState) searchBases(cls *Symbol, method string, visited map[string]bool, depth int) string {
	if depth >= maxBaseDepth {
		return ""
	}
	for _, base := range cls.Def.BaseClasses {
		ref := st.resolveClassRef(cls.FilePath, base)
		if ref.ID == "" && ref.Module != "" {
			return st.synthImported(graph.Function, ref.Module, ref.Name+"."+method)
		}
		b := st.registry.ByID(ref.ID)
		if b == nil {
			continue
		}
		if visited[b.ID] {
			continue
		}
		visited[b.ID] = true
		if m := st.registry.MethodOf(b, method); m != nil {
			return m.ID
		}
		if t := st.searchBases(b, method, visited, depth+1); t != "" {
			return t
		}
	}
	return ""
}

// receiverType returns the class a member call's receiver is known to be:
// the enclosing class for self receivers, an inferred variable type, or
// the receiver itself when it names a class.
func (st *runState) receiverType(rec *CallRecord) string {
	if rec.ReceiverIsSelf {
		return rec.EnclosingClass
	}
	if rec.ReceiverName == "" {
		return ""
	}
	if vt, ok := st.types.Lookup(rec.FilePath, rec.scope(), rec.ReceiverName); ok {
		return vt.Type
	}
	if st.registry.Class(rec.FilePath, rec.ReceiverName) != nil || st.registry.UniqueClass(rec.ReceiverName) != nil {
		return rec.ReceiverName
	}
	return ""
}

// resolveTyped dispatches a member call on a receiver of known type to that
// type's method, then to inherited methods.
func (p *Pipeline) resolveTyped(st *runState, rec *CallRecord) string {
	if rec.Kind != CallMember {
		return ""
	}
	typ := st.receiverType(rec)
	if typ == "" {
		return ""
	}
	cands := st.registry.MethodsOfType(typ, rec.CalledName)
	for _, c := range cands {
		if c.FilePath == rec.FilePath {
			return c.ID
		}
	}
	if len(cands) > 0 {
		return bestCandidate(rec.FilePath, cands, p.weights).ID
	}
	cls := st.registry.Class(rec.FilePath, typ)
	if cls == nil {
		cls = st.resolveClassSymbol(rec.FilePath, typ)
	}
	if cls == nil {
		return ""
	}
	return st.searchBases(cls, rec.CalledName, map[string]bool{cls.ID: true}, 0)
}

// resolveLocal looks the name up in the caller's own file.
func (st *runState) resolveLocal(rec *CallRecord) string {
	switch rec.Kind {
	case CallPlain:
		if f := st.registry.Function(rec.FilePath, rec.CalledName); f != nil {
			return f.ID
		}
		if rec.EnclosingClass != "" {
			for _, m := range st.registry.Methods(rec.FilePath, rec.CalledName) {
				if m.Class == rec.EnclosingClass {
					return m.ID
				}
			}
		}
		if c := st.registry.Class(rec.FilePath, rec.CalledName); c != nil {
			return c.ID
		}
	case CallMember:
		if ms := st.registry.Methods(rec.FilePath, rec.CalledName); len(ms) > 0 {
			return ms[0].ID
		}
	}
	return ""
}

// resolveGlobal is the heuristic fallback over every same-named callable
// outside the caller's file.
func (p *Pipeline) resolveGlobal(st *runState, rec *CallRecord) string {
	all := st.registry.Callables(rec.CalledName)
	if len(all) == 0 {
		return ""
	}
	cands := p.globalCandidates(rec.FilePath, rec.CalledName, all)
	if len(cands) == 0 {
		return ""
	}
	return bestCandidate(rec.FilePath, cands, p.weights).ID
}
