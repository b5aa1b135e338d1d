package pipeline

import (
	"context"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/lang"
	"github.com/DeusData/codegraph-ingest/internal/parser"
)

// Import types recorded on ImportRecord.ImportType.
const (
	ImportModule    = "module"
	ImportNamed     = "named"
	ImportDefault   = "default"
	ImportNamespace = "namespace"
	ImportWildcard  = "wildcard"
	ImportQualified = "qualified"
	ImportInclude   = "include"
	ImportRequire   = "require"
)

// ImportRecord is one imported binding of a file.
type ImportRecord struct {
	// ImportedName is the symbol taken from the module; empty for whole
	// module imports.
	ImportedName string
	Alias        string
	// LocalName is the identifier the import binds in the importing file.
	LocalName    string
	FromModule   string
	ImportType   string
	Line         int
	ResolvedPath string
}

// passImports extracts import records from every cached tree, falls back to
// line scanning for files whose parse failed, resolves each module to a
// File and links the files. Inheritance is resolved at the end of the pass
// since it needs the import table.
func (p *Pipeline) passImports(ctx context.Context, st *runState) error {
	paths := make([]string, 0, len(st.asts)+len(st.failed))
	for f := range st.asts {
		paths = append(paths, f)
	}
	for f := range st.failed {
		paths = append(paths, f)
	}
	sort.Strings(paths)

	idx := newFileIndex(st.files)
	for _, f := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		var recs []ImportRecord
		if pf, ok := st.asts[f]; ok {
			recs = extractImports(pf)
		} else {
			recs = scanImports(st.contents[f])
			slog.Info("imports.regex_fallback", "path", f, "records", len(recs))
		}
		for i := range recs {
			recs[i].ResolvedPath = idx.resolve(f, recs[i])
		}
		if len(recs) > 0 {
			st.imports[f] = recs
		}
		linkImports(st.g, f, recs)
	}
	p.resolveInheritance(st)
	return nil
}

// linkImports adds one IMPORTS edge per resolved target file, carrying the
// names imported through it.
func linkImports(g *graph.Graph, importer string, recs []ImportRecord) {
	type link struct {
		names      []string
		importType string
		module     string
	}
	links := make(map[string]*link)
	var order []string
	for _, r := range recs {
		if r.ResolvedPath == "" {
			continue
		}
		l, ok := links[r.ResolvedPath]
		if !ok {
			l = &link{importType: r.ImportType, module: r.FromModule}
			links[r.ResolvedPath] = l
			order = append(order, r.ResolvedPath)
		}
		if n := r.ImportedName; n != "" && !containsString(l.names, n) {
			l.names = append(l.names, n)
		}
	}
	for _, target := range order {
		l := links[target]
		props := map[string]any{"import_type": l.importType, "module": l.module}
		if len(l.names) > 0 {
			props["imported_names"] = l.names
		}
		g.AddRelationship(&graph.Relationship{
			Type:       graph.Imports,
			Source:     graph.FileID(importer),
			Target:     graph.FileID(target),
			Properties: props,
		})
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// extractImports walks one cached tree for the language's import forms.
func extractImports(pf *parsedFile) []ImportRecord {
	if pf.Spec == nil || pf.Tree == nil {
		return nil
	}
	ex := importExtractor{src: pf.Source}
	root := pf.Tree.RootNode()
	switch pf.Spec.Language {
	case lang.Python:
		walkKinds(root, ex.python, "import_statement", "import_from_statement")
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		walkKinds(root, ex.ecmascript, "import_statement", "call_expression")
	case lang.Go:
		walkKinds(root, ex.golang, "import_spec")
	case lang.Java:
		walkKinds(root, ex.jvm, "import_declaration")
	case lang.Kotlin:
		walkKinds(root, ex.jvm, "import", "import_header")
	case lang.Scala:
		walkKinds(root, ex.scala, "import_declaration")
	case lang.CSharp:
		walkKinds(root, ex.csharp, "using_directive")
	case lang.PHP:
		walkKinds(root, ex.php, "namespace_use_declaration")
	case lang.Rust:
		walkKinds(root, ex.rust, "use_declaration")
	case lang.C, lang.CPP:
		walkKinds(root, ex.include, "preproc_include")
	case lang.Ruby:
		walkKinds(root, ex.ruby, "call")
	case lang.Lua:
		walkKinds(root, ex.lua, "function_call")
	case lang.Bash:
		walkKinds(root, ex.bash, "command")
	}
	return ex.recs
}

func walkKinds(root *tree_sitter.Node, fn func(*tree_sitter.Node), kinds ...string) {
	parser.Walk(root, func(n *tree_sitter.Node) bool {
		for _, k := range kinds {
			if n.Kind() == k {
				fn(n)
				break
			}
		}
		return true
	})
}

type importExtractor struct {
	src  []byte
	recs []ImportRecord
}

func (ex *importExtractor) text(n *tree_sitter.Node) string { return parser.NodeText(n, ex.src) }

func (ex *importExtractor) add(n *tree_sitter.Node, r ImportRecord) {
	if r.FromModule == "" {
		return
	}
	if r.LocalName == "" {
		switch {
		case r.Alias != "":
			r.LocalName = r.Alias
		case r.ImportedName != "":
			r.LocalName = r.ImportedName
		}
	}
	r.Line = parser.Line(n)
	ex.recs = append(ex.recs, r)
}

func (ex *importExtractor) python(n *tree_sitter.Node) {
	if n.Kind() == "import_statement" {
		for i := uint(0); i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			mod, alias := ex.pythonName(c)
			local := alias
			if local == "" {
				local, _, _ = strings.Cut(mod, ".")
			}
			ex.add(n, ImportRecord{FromModule: mod, Alias: alias, LocalName: local, ImportType: ImportModule})
		}
		return
	}
	modNode := n.ChildByFieldName("module_name")
	if modNode == nil {
		return
	}
	mod := ex.text(modNode)
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.StartByte() == modNode.StartByte() {
			continue
		}
		switch c.Kind() {
		case "wildcard_import":
			ex.add(n, ImportRecord{FromModule: mod, ImportedName: "*", ImportType: ImportWildcard})
		case "dotted_name", "aliased_import":
			name, alias := ex.pythonName(c)
			ex.add(n, ImportRecord{FromModule: mod, ImportedName: name, Alias: alias, ImportType: ImportNamed})
		}
	}
}

func (ex *importExtractor) pythonName(n *tree_sitter.Node) (name, alias string) {
	if n.Kind() == "aliased_import" {
		return ex.text(n.ChildByFieldName("name")), ex.text(n.ChildByFieldName("alias"))
	}
	return ex.text(n), ""
}

func (ex *importExtractor) ecmascript(n *tree_sitter.Node) {
	if n.Kind() == "call_expression" {
		ex.commonJS(n)
		return
	}
	mod := unquote(ex.text(n.ChildByFieldName("source")))
	clause := parser.FindChildByKind(n, "import_clause")
	if clause == nil {
		ex.add(n, ImportRecord{FromModule: mod, ImportType: ImportModule})
		return
	}
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		c := clause.NamedChild(i)
		switch c.Kind() {
		case "identifier":
			ex.add(n, ImportRecord{FromModule: mod, ImportedName: "default", LocalName: ex.text(c), ImportType: ImportDefault})
		case "namespace_import":
			if id := parser.FindChildByKind(c, "identifier"); id != nil {
				ex.add(n, ImportRecord{FromModule: mod, LocalName: ex.text(id), ImportType: ImportNamespace})
			}
		case "named_imports":
			for j := uint(0); j < c.NamedChildCount(); j++ {
				spec := c.NamedChild(j)
				if spec.Kind() != "import_specifier" {
					continue
				}
				ex.add(n, ImportRecord{
					FromModule:   mod,
					ImportedName: ex.text(spec.ChildByFieldName("name")),
					Alias:        ex.text(spec.ChildByFieldName("alias")),
					ImportType:   ImportNamed,
				})
			}
		}
	}
}

// commonJS records `const x = require("m")` and `const {a, b} = require("m")`.
func (ex *importExtractor) commonJS(n *tree_sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" || ex.text(fn) != "require" {
		return
	}
	mod := ex.firstStringArg(n.ChildByFieldName("arguments"))
	if mod == "" {
		return
	}
	decl := n.Parent()
	if decl == nil || decl.Kind() != "variable_declarator" {
		ex.add(n, ImportRecord{FromModule: mod, ImportType: ImportRequire})
		return
	}
	target := decl.ChildByFieldName("name")
	switch {
	case target == nil:
		ex.add(n, ImportRecord{FromModule: mod, ImportType: ImportRequire})
	case target.Kind() == "object_pattern":
		for i := uint(0); i < target.NamedChildCount(); i++ {
			c := target.NamedChild(i)
			switch c.Kind() {
			case "shorthand_property_identifier_pattern":
				ex.add(n, ImportRecord{FromModule: mod, ImportedName: ex.text(c), ImportType: ImportNamed})
			case "pair_pattern":
				ex.add(n, ImportRecord{
					FromModule:   mod,
					ImportedName: ex.text(c.ChildByFieldName("key")),
					Alias:        ex.text(c.ChildByFieldName("value")),
					ImportType:   ImportNamed,
				})
			}
		}
	default:
		ex.add(n, ImportRecord{FromModule: mod, LocalName: ex.text(target), ImportType: ImportRequire})
	}
}

func (ex *importExtractor) firstStringArg(args *tree_sitter.Node) string {
	if args == nil {
		return ""
	}
	if args.Kind() == "string" || args.Kind() == "string_literal" {
		return unquote(ex.text(args))
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		c := args.NamedChild(i)
		switch c.Kind() {
		case "string", "string_literal", "template_string":
			return unquote(ex.text(c))
		}
	}
	return ""
}

func (ex *importExtractor) golang(n *tree_sitter.Node) {
	mod := unquote(ex.text(n.ChildByFieldName("path")))
	local := path.Base(mod)
	alias := ""
	if name := n.ChildByFieldName("name"); name != nil {
		alias = ex.text(name)
		local = alias
	}
	ex.add(n, ImportRecord{FromModule: mod, Alias: alias, LocalName: local, ImportType: ImportQualified})
}

// jvm handles Java and Kotlin: `import [static] a.b.C [as D];`.
func (ex *importExtractor) jvm(n *tree_sitter.Node) {
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(ex.text(n)), ";"))
	body = strings.TrimSpace(strings.TrimPrefix(body, "import"))
	body = strings.TrimSpace(strings.TrimPrefix(body, "static "))
	body, alias, _ := strings.Cut(body, " as ")
	ex.addDotted(n, strings.TrimSpace(body), strings.TrimSpace(alias))
}

// addDotted records a fully qualified dotted import such as a.b.C or a.b.*.
func (ex *importExtractor) addDotted(n *tree_sitter.Node, full, alias string) {
	if full == "" {
		return
	}
	if mod, ok := strings.CutSuffix(full, ".*"); ok {
		ex.add(n, ImportRecord{FromModule: mod, ImportedName: "*", ImportType: ImportWildcard})
		return
	}
	if mod, ok := strings.CutSuffix(full, "._"); ok {
		ex.add(n, ImportRecord{FromModule: mod, ImportedName: "*", ImportType: ImportWildcard})
		return
	}
	name := full
	if i := strings.LastIndex(full, "."); i >= 0 {
		name = full[i+1:]
	}
	ex.add(n, ImportRecord{FromModule: full, ImportedName: name, Alias: alias, ImportType: ImportQualified})
}

// scala handles `import a.b.C`, `import a.b._` and `import a.b.{C, D => E}`.
func (ex *importExtractor) scala(n *tree_sitter.Node) {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ex.text(n)), "import"))
	prefix, group, ok := splitBraceGroup(body)
	if !ok {
		ex.addDotted(n, body, "")
		return
	}
	prefix = strings.TrimSuffix(prefix, ".")
	for _, item := range group {
		name, alias, _ := strings.Cut(item, "=>")
		name, alias = strings.TrimSpace(name), strings.TrimSpace(alias)
		if name == "_" {
			ex.addDotted(n, prefix+"._", "")
			continue
		}
		ex.addDotted(n, prefix+"."+name, alias)
	}
}

// csharp handles `using A.B;`, `using static A.B;` and `using X = A.B;`.
func (ex *importExtractor) csharp(n *tree_sitter.Node) {
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(ex.text(n)), ";"))
	body = strings.TrimPrefix(body, "global ")
	body = strings.TrimSpace(strings.TrimPrefix(body, "using"))
	body = strings.TrimSpace(strings.TrimPrefix(body, "static "))
	if alias, target, ok := strings.Cut(body, "="); ok {
		ex.add(n, ImportRecord{FromModule: strings.TrimSpace(target), Alias: strings.TrimSpace(alias), ImportType: ImportNamespace})
		return
	}
	ex.add(n, ImportRecord{FromModule: body, ImportType: ImportNamespace})
}

// php handles `use A\B\C;`, `use A\B\C as D;` and `use A\B\{C, D};`.
func (ex *importExtractor) php(n *tree_sitter.Node) {
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(ex.text(n)), ";"))
	body = strings.TrimSpace(strings.TrimPrefix(body, "use"))
	body = strings.TrimSpace(strings.TrimPrefix(body, "function "))
	body = strings.TrimSpace(strings.TrimPrefix(body, "const "))
	body = strings.TrimLeft(strings.ReplaceAll(body, `\`, "."), ".")
	items := strings.Split(body, ",")
	prefix, group, ok := splitBraceGroup(body)
	if ok {
		items = nil
		for _, g := range group {
			items = append(items, strings.TrimSuffix(prefix, ".")+"."+g)
		}
	}
	for _, item := range items {
		full, alias, _ := strings.Cut(strings.TrimSpace(item), " as ")
		ex.addDotted(n, strings.TrimSpace(full), strings.TrimSpace(alias))
	}
}

// rust handles `use a::b::C;`, `use a::b::{C, D as E};`, `use a::*;` and
// the crate/self/super path roots.
func (ex *importExtractor) rust(n *tree_sitter.Node) {
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(ex.text(n)), ";"))
	body = strings.TrimSpace(strings.TrimPrefix(body, "pub"))
	if strings.HasPrefix(body, "(") {
		if i := strings.Index(body, ")"); i >= 0 {
			body = strings.TrimSpace(body[i+1:])
		}
	}
	body = strings.TrimSpace(strings.TrimPrefix(body, "use"))
	items := []string{body}
	if prefix, group, ok := splitBraceGroup(body); ok {
		items = items[:0]
		for _, g := range group {
			items = append(items, strings.TrimSuffix(prefix, "::")+"::"+g)
		}
	}
	for _, item := range items {
		full, alias, _ := strings.Cut(strings.TrimSpace(item), " as ")
		segs := strings.Split(strings.TrimSpace(full), "::")
		if len(segs) == 0 {
			continue
		}
		name := segs[len(segs)-1]
		mod := rustModulePath(segs[:len(segs)-1])
		switch {
		case name == "*":
			ex.add(n, ImportRecord{FromModule: mod, ImportedName: "*", ImportType: ImportWildcard})
		case name == "self":
			ex.add(n, ImportRecord{FromModule: mod, Alias: strings.TrimSpace(alias), ImportType: ImportModule})
		case mod == "":
			ex.add(n, ImportRecord{FromModule: name, Alias: strings.TrimSpace(alias), LocalName: name, ImportType: ImportModule})
		default:
			ex.add(n, ImportRecord{FromModule: mod, ImportedName: name, Alias: strings.TrimSpace(alias), ImportType: ImportNamed})
		}
	}
}

// rustModulePath maps crate/self/super roots onto slash paths: self is the
// importer's directory, super its parent, crate the project root.
func rustModulePath(segs []string) string {
	var prefix []string
	for len(segs) > 0 {
		switch segs[0] {
		case "crate":
			segs = segs[1:]
			continue
		case "self":
			prefix = append(prefix, ".")
			segs = segs[1:]
			continue
		case "super":
			prefix = append(prefix, "..")
			segs = segs[1:]
			continue
		}
		break
	}
	rest := strings.Join(segs, ".")
	if len(prefix) == 0 {
		return rest
	}
	if rest == "" {
		return strings.Join(prefix, "/")
	}
	return strings.Join(prefix, "/") + "/" + strings.ReplaceAll(rest, ".", "/")
}

func (ex *importExtractor) include(n *tree_sitter.Node) {
	mod := unquote(ex.text(n.ChildByFieldName("path")))
	ex.add(n, ImportRecord{FromModule: mod, ImportedName: path.Base(mod), ImportType: ImportInclude})
}

func (ex *importExtractor) ruby(n *tree_sitter.Node) {
	method := ex.text(n.ChildByFieldName("method"))
	if n.ChildByFieldName("receiver") != nil {
		return
	}
	switch method {
	case "require", "require_relative", "load":
	default:
		return
	}
	mod := ex.firstStringArg(n.ChildByFieldName("arguments"))
	if mod == "" {
		return
	}
	if method == "require_relative" && !strings.HasPrefix(mod, ".") {
		mod = "./" + mod
	}
	ex.add(n, ImportRecord{FromModule: mod, ImportType: ImportRequire})
}

func (ex *importExtractor) lua(n *tree_sitter.Node) {
	name := n.ChildByFieldName("name")
	if name == nil || ex.text(name) != "require" {
		return
	}
	mod := ex.firstStringArg(n.ChildByFieldName("arguments"))
	if mod == "" {
		return
	}
	local := ""
	if decl := luaAssignedName(n, ex.src); decl != "" {
		local = decl
	}
	ex.add(n, ImportRecord{FromModule: mod, LocalName: local, ImportType: ImportRequire})
}

// luaAssignedName returns x for `local x = require("m")`.
func luaAssignedName(call *tree_sitter.Node, src []byte) string {
	list := call.Parent()
	if list == nil || list.Kind() != "expression_list" {
		return ""
	}
	assign := list.Parent()
	if assign == nil || assign.Kind() != "assignment_statement" {
		return ""
	}
	vars := parser.FindChildByKind(assign, "variable_list")
	if vars == nil || vars.NamedChildCount() == 0 {
		return ""
	}
	return parser.NodeText(vars.NamedChild(0), src)
}

// bash records `source file` and `. file`.
func (ex *importExtractor) bash(n *tree_sitter.Node) {
	name := ex.text(n.ChildByFieldName("name"))
	if name != "source" && name != "." {
		return
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.Kind() == "command_name" {
			continue
		}
		mod := unquote(ex.text(c))
		if mod != "" && !strings.Contains(mod, "$") {
			ex.add(n, ImportRecord{FromModule: mod, ImportType: ImportInclude})
		}
		return
	}
}

// splitBraceGroup splits "a::b::{C, D}" into ("a::b::", ["C", "D"]).
func splitBraceGroup(s string) (string, []string, bool) {
	open := strings.Index(s, "{")
	closing := strings.LastIndex(s, "}")
	if open < 0 || closing < open {
		return "", nil, false
	}
	var group []string
	for _, item := range strings.Split(s[open+1:closing], ",") {
		if item = strings.TrimSpace(item); item != "" {
			group = append(group, item)
		}
	}
	return strings.TrimSpace(s[:open]), group, true
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'' || first == '`') && last == first ||
			first == '<' && last == '>' {
			s = s[1 : len(s)-1]
			continue
		}
		break
	}
	return s
}

var (
	importLineRe = regexp.MustCompile(`^\s*import\s+([\w.]+(?:\s+as\s+\w+)?(?:\s*,\s*[\w.]+(?:\s+as\s+\w+)?)*)\s*$`)
	fromLineRe   = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s+\(?([^)#]+)\)?`)
)

// scanImports is the line-oriented fallback for the two canonical forms
// `import X` and `from X import Y`.
func scanImports(content string) []ImportRecord {
	var out []ImportRecord
	for i, line := range strings.Split(content, "\n") {
		if m := fromLineRe.FindStringSubmatch(line); m != nil {
			for _, item := range strings.Split(m[2], ",") {
				name, alias, _ := strings.Cut(strings.TrimSpace(item), " as ")
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				r := ImportRecord{FromModule: m[1], ImportedName: name, Alias: strings.TrimSpace(alias), ImportType: ImportNamed, Line: i + 1}
				if name == "*" {
					r.ImportType = ImportWildcard
				}
				r.LocalName = r.Alias
				if r.LocalName == "" && name != "*" {
					r.LocalName = name
				}
				out = append(out, r)
			}
			continue
		}
		if m := importLineRe.FindStringSubmatch(line); m != nil {
			for _, item := range strings.Split(m[1], ",") {
				mod, alias, _ := strings.Cut(strings.TrimSpace(item), " as ")
				mod, alias = strings.TrimSpace(mod), strings.TrimSpace(alias)
				local := alias
				if local == "" {
					local, _, _ = strings.Cut(mod, ".")
				}
				out = append(out, ImportRecord{FromModule: mod, Alias: alias, LocalName: local, ImportType: ImportModule, Line: i + 1})
			}
		}
	}
	return out
}
