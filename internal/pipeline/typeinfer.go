package pipeline

import (
	"strings"
	"unicode"

	"github.com/DeusData/codegraph-ingest/internal/graph"
)

// Confidence levels of an inferred variable type.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// Sources of an inferred variable type.
const (
	SourceConstructor     = "constructor"
	SourceReturnHeuristic = "return_heuristic"
)

// moduleScope is the caller name of code outside any function.
const moduleScope = "<module>"

// VarType is the inferred type of one variable.
type VarType struct {
	Type       string
	Confidence string
	Source     string
}

// TypeTable holds inferred variable types per file and caller scope.
type TypeTable struct {
	byFile map[string]map[string]map[string]VarType
}

func newTypeTable() *TypeTable {
	return &TypeTable{byFile: make(map[string]map[string]map[string]VarType)}
}

func (t *TypeTable) set(file, scope, name string, vt VarType) {
	scopes, ok := t.byFile[file]
	if !ok {
		scopes = make(map[string]map[string]VarType)
		t.byFile[file] = scopes
	}
	vars, ok := scopes[scope]
	if !ok {
		vars = make(map[string]VarType)
		scopes[scope] = vars
	}
	vars[name] = vt
}

// Lookup returns the type of name as seen from scope in file, falling back
// to module-level assignments.
func (t *TypeTable) Lookup(file, scope, name string) (VarType, bool) {
	if t == nil {
		return VarType{}, false
	}
	scopes := t.byFile[file]
	if vt, ok := scopes[scope][name]; ok {
		return vt, true
	}
	vt, ok := scopes[moduleScope][name]
	return vt, ok
}

// Len returns the number of recorded variables.
func (t *TypeTable) Len() int {
	n := 0
	for _, scopes := range t.byFile {
		for _, vars := range scopes {
			n += len(vars)
		}
	}
	return n
}

var constructorNames = map[string]bool{
	"__init__":    true,
	"__new__":     true,
	"constructor": true,
	"new":         true,
	"initialize":  true,
}

// buildReturnTable records the known return type of every callable: a
// constructor returns its class, a body that returns a constructor call of
// a known class returns that class, and naming conventions give medium
// confidence guesses.
func (st *runState) buildReturnTable(returnsCtor map[string]string) {
	for id, sym := range st.registry.byID {
		if sym.Label != graph.Function && sym.Label != graph.Method {
			continue
		}
		if sym.Class != "" && (constructorNames[sym.Name] || sym.Name == sym.Class) {
			st.returns[id] = VarType{Type: sym.Class, Confidence: ConfidenceHigh}
			continue
		}
		if cls, ok := returnsCtor[id]; ok && st.knownClass(sym.FilePath, cls) {
			st.returns[id] = VarType{Type: cls, Confidence: ConfidenceHigh}
			continue
		}
		if t, ok := goConstructorType(sym.Name); ok && len(st.registry.Classes(t)) > 0 {
			st.returns[id] = VarType{Type: t, Confidence: ConfidenceHigh}
			continue
		}
		if entity := strings.TrimSuffix(sym.Class, "Factory"); sym.Class != "" && entity != sym.Class && entity != "" {
			st.returns[id] = VarType{Type: entity, Confidence: ConfidenceMedium}
			continue
		}
		if vt, ok := nameReturnHeuristic(sym.Name, sym.Def.HasDecorator("property")); ok {
			st.returns[id] = vt
		}
	}
}

// knownClass reports whether name is a class visible from file.
func (st *runState) knownClass(file, name string) bool {
	if st.registry.Class(file, name) != nil {
		return true
	}
	if rec := st.importFor(file, name); rec != nil {
		return true
	}
	return st.registry.UniqueClass(name) != nil
}

// goConstructorType returns T for the NewT constructor convention.
func goConstructorType(name string) (string, bool) {
	t, ok := strings.CutPrefix(name, "New")
	if !ok || t == "" || !unicode.IsUpper(rune(t[0])) {
		return "", false
	}
	return t, true
}

// nameReturnHeuristic guesses a return type from the callable's name alone.
func nameReturnHeuristic(name string, property bool) (VarType, bool) {
	for _, prefix := range []string{"create", "build", "make"} {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" {
			continue
		}
		if rest[0] == '_' {
			rest = rest[1:]
		} else if !unicode.IsUpper(rune(rest[0])) {
			continue
		}
		if entity := pascalCase(rest); entity != "" {
			return VarType{Type: entity, Confidence: ConfidenceMedium}, true
		}
	}
	if t, ok := goConstructorType(name); ok {
		return VarType{Type: t, Confidence: ConfidenceMedium}, true
	}
	lower := strings.ToLower(name)
	for _, prefix := range []string{"get_", "is_", "has_", "can_"} {
		if strings.HasPrefix(lower, prefix) {
			return VarType{Type: primitiveFor(lower), Confidence: ConfidenceMedium}, true
		}
	}
	if property {
		return VarType{Type: primitiveFor(lower), Confidence: ConfidenceMedium}, true
	}
	return VarType{}, false
}

// primitiveFor maps an accessor name onto int, str, bool, list or dict.
func primitiveFor(name string) string {
	name = strings.TrimPrefix(name, "get_")
	switch {
	case strings.HasPrefix(name, "is_"), strings.HasPrefix(name, "has_"), strings.HasPrefix(name, "can_"):
		return "bool"
	}
	for _, s := range []string{"count", "total", "size", "length", "num", "id", "index", "age"} {
		if strings.HasSuffix(name, s) || strings.HasPrefix(name, s+"_") {
			return "int"
		}
	}
	for _, s := range []string{"dict", "map", "config", "settings", "options", "mapping"} {
		if strings.HasSuffix(name, s) {
			return "dict"
		}
	}
	for _, s := range []string{"list", "items", "all", "ids"} {
		if strings.HasSuffix(name, s) {
			return "list"
		}
	}
	if strings.HasSuffix(name, "s") && !strings.HasSuffix(name, "ss") && !strings.HasSuffix(name, "status") {
		return "list"
	}
	return "str"
}

// pascalCase turns "user_profile" or "UserProfile" into "UserProfile".
func pascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// inferAssignment records the type of rec.AssignedTo after the call rec
// resolved to target (possibly "").
func (st *runState) inferAssignment(rec *CallRecord, target string) {
	if rec.AssignedTo == "" {
		return
	}
	if vt, ok := st.constructorType(rec, target); ok {
		st.types.set(rec.FilePath, rec.scope(), rec.AssignedTo, vt)
		return
	}
	if vt, ok := st.returns[target]; ok && target != "" {
		vt.Source = SourceReturnHeuristic
		st.types.set(rec.FilePath, rec.scope(), rec.AssignedTo, vt)
		return
	}
	if target == "" || st.registry.ByID(target) == nil {
		if vt, ok := nameReturnHeuristic(rec.CalledName, false); ok {
			vt.Source = SourceReturnHeuristic
			st.types.set(rec.FilePath, rec.scope(), rec.AssignedTo, vt)
		}
	}
}

// constructorType detects an instantiation: the called name is a class in
// the same file, an imported class, or the only class of that name.
func (st *runState) constructorType(rec *CallRecord, target string) (VarType, bool) {
	name := rec.CalledName
	hit := rec.Constructor
	if !hit {
		if sym := st.registry.ByID(target); sym != nil && (sym.Label == graph.Class) {
			hit = true
		}
	}
	if !hit && rec.Kind == CallPlain {
		if st.registry.Class(rec.FilePath, name) != nil || st.registry.UniqueClass(name) != nil {
			hit = true
		} else if imp := st.importFor(rec.FilePath, name); imp != nil && startsUpper(name) {
			hit = true
		}
	}
	if !hit && rec.Kind == CallMember && startsUpper(name) && rec.ReceiverName != "" {
		if imp := st.importFor(rec.FilePath, rec.ReceiverName); imp != nil {
			hit = true
		}
	}
	if !hit {
		return VarType{}, false
	}
	return VarType{Type: name, Confidence: ConfidenceHigh, Source: SourceConstructor}, true
}

func startsUpper(s string) bool {
	return s != "" && unicode.IsUpper(rune(s[0]))
}
