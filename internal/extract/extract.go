// Package extract turns one file's content into a syntax tree and a list of
// syntactic definitions by running the language's named query battery.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codegraph-ingest/internal/lang"
	"github.com/DeusData/codegraph-ingest/internal/parser"
)

// ErrUnsupported is returned for a language without grammar or battery.
var ErrUnsupported = errors.New("unsupported language")

// Task is the unit of work submitted for one file. It crosses the worker
// boundary by value.
type Task struct {
	FilePath string
	Content  []byte
}

// Definition is one named syntactic construct found by the battery.
type Definition struct {
	Name      string
	Kind      string
	StartLine int
	EndLine   int

	// Parent is the declaring class for methods.
	Parent      string
	Parameters  []string
	BaseClasses []string
	Implements  []string
	Decorators  []string
	Docstring   string
	Exported    bool
}

// QualifiedName is the in-file key of the definition: Class.method for
// methods, the bare name otherwise.
func (d Definition) QualifiedName() string {
	if d.Kind == lang.KindMethod && d.Parent != "" {
		return d.Parent + "." + d.Name
	}
	return d.Name
}

// HasDecorator reports whether any decorator's bare name equals name.
func (d Definition) HasDecorator(name string) bool {
	for _, dec := range d.Decorators {
		if DecoratorName(dec) == name {
			return true
		}
	}
	return false
}

// Result is the outcome of processing one Task. Ownership of Tree passes
// to the receiver, which must Close it.
type Result struct {
	FilePath    string
	Language    lang.Language
	Definitions []Definition
	Tree        *tree_sitter.Tree
	Source      []byte
	Success     bool
	Err         error

	Size          int
	Lines         int
	ConfigKeys    []string
	QueryFailures int
}

// Close releases the syntax tree, if any.
func (r *Result) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
	}
}

func failed(r Result, err error) Result {
	r.Success = false
	r.Err = err
	return r
}

// Unit is one isolated execution unit. It owns a parser session whose
// grammars are loaded lazily and kept for the unit's lifetime.
type Unit struct {
	id      int
	session *parser.Session
}

// NewUnit creates a unit with an empty session.
func NewUnit(id int) (*Unit, error) {
	s, err := parser.NewSession(parser.DefaultQueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("unit %d: %w", id, err)
	}
	return &Unit{id: id, session: s}, nil
}

// Process extracts one file. Per-file failures are reported on the Result;
// the returned error is non-nil only when ctx ended mid-extraction.
func (u *Unit) Process(ctx context.Context, t Task) (Result, error) {
	return Extract(ctx, u.session, t)
}

// Close releases the unit's session.
func (u *Unit) Close() { u.session.Close() }

// Discard releases a result that was produced but never delivered.
func (u *Unit) Discard(r Result) { r.Close() }

// Session exposes the unit's parser session.
func (u *Unit) Session() *parser.Session { return u.session }

// Extract runs the per-file algorithm against session.
func Extract(ctx context.Context, session *parser.Session, t Task) (Result, error) {
	res := Result{
		FilePath: t.FilePath,
		Source:   t.Content,
		Size:     len(t.Content),
		Lines:    countLines(t.Content),
	}
	spec := lang.ForExtension(filepath.Ext(t.FilePath))
	if spec == nil {
		res.Success = true
		return res, nil
	}
	res.Language = spec.Language

	if spec.Config {
		keys, err := ConfigKeys(spec.Language, t.Content)
		if err != nil {
			return failed(res, err), nil
		}
		res.ConfigKeys = keys
		res.Success = true
		return res, nil
	}

	if !parser.HasGrammar(spec.Language) {
		return failed(res, fmt.Errorf("%w: %s", ErrUnsupported, spec.Language)), nil
	}
	tree, err := session.Parse(spec.Language, t.Content)
	if err != nil {
		return failed(res, err), nil
	}
	battery, err := session.Battery(spec.Language)
	if err != nil {
		tree.Close()
		return failed(res, err), nil
	}
	res.QueryFailures = len(battery.Failures)

	ex := &extractor{spec: spec, src: t.Content, seen: make(map[string]bool)}
	root := tree.RootNode()
	for _, q := range battery.Queries {
		if err := ctx.Err(); err != nil {
			tree.Close()
			return failed(res, err), err
		}
		kind, ok := lang.KindForQuery(q.Name)
		if !ok {
			continue
		}
		matches, err := parser.Matches(q.Query, root, t.Content)
		if err != nil {
			slog.Warn("extract.query.err", "path", t.FilePath, "query", q.Name, "err", err)
			res.QueryFailures++
			continue
		}
		for _, m := range matches {
			ex.add(kind, m)
		}
	}

	res.Tree = tree
	res.Definitions = ex.defs
	res.Success = true
	return res, nil
}

type extractor struct {
	spec *lang.LanguageSpec
	src  []byte
	seen map[string]bool
	defs []Definition
}

func (ex *extractor) add(kind string, captures []parser.Capture) {
	var nameNode, defNode *tree_sitter.Node
	for i := range captures {
		switch captures[i].Name {
		case "name":
			nameNode = &captures[i].Node
		case "definition":
			defNode = &captures[i].Node
		}
	}
	if nameNode == nil {
		return
	}
	if defNode == nil {
		defNode = nameNode.Parent()
		if defNode == nil {
			return
		}
	}

	def := Definition{
		Name:      ex.definitionName(kind, nameNode, defNode),
		Kind:      kind,
		StartLine: parser.Line(defNode),
		EndLine:   parser.EndLine(defNode),
	}
	if def.Name == "" {
		return
	}
	ex.enrich(&def, defNode)

	key := def.Kind + "\x00" + def.QualifiedName()
	if ex.seen[key] {
		return
	}
	ex.seen[key] = true
	ex.defs = append(ex.defs, def)
}

func (ex *extractor) definitionName(kind string, nameNode, defNode *tree_sitter.Node) string {
	switch kind {
	case lang.KindImport:
		return stripQuotes(parser.NodeText(nameNode, ex.src))
	case lang.KindCodeElement:
		return hclBlockName(defNode, ex.src)
	case lang.KindDecorator:
		return DecoratorName(parser.NodeText(nameNode, ex.src))
	}
	switch nameNode.Kind() {
	case "dot_index_expression":
		return parser.NodeText(nameNode.ChildByFieldName("field"), ex.src)
	case "method_index_expression":
		return parser.NodeText(nameNode.ChildByFieldName("method"), ex.src)
	}
	return parser.NodeText(nameNode, ex.src)
}

func (ex *extractor) enrich(def *Definition, node *tree_sitter.Node) {
	l := ex.spec.Language
	switch def.Kind {
	case lang.KindFunction, lang.KindMethod:
		parent, direct := EnclosingClass(ex.spec, node, ex.src)
		switch {
		case def.Kind == lang.KindFunction && parent != "" && direct:
			def.Kind = lang.KindMethod
		case def.Kind == lang.KindMethod && parent == "":
			def.Kind = lang.KindFunction
		}
		if def.Kind == lang.KindMethod {
			def.Parent = parent
		}
		def.Parameters = parameterNames(node, ex.src)
		def.Decorators = decorators(node, ex.src, l)
		def.Docstring = docstring(node, ex.src, l)
		def.Exported = isExported(def.Name, l)
	case lang.KindClass, lang.KindInterface:
		def.BaseClasses, def.Implements = heritage(node, ex.src, l)
		def.Decorators = decorators(node, ex.src, l)
		def.Docstring = docstring(node, ex.src, l)
		def.Exported = isExported(def.Name, l)
	case lang.KindType, lang.KindVariable, lang.KindModule:
		def.Exported = isExported(def.Name, l)
	}
}

func countLines(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	n := bytes.Count(b, []byte("\n"))
	if b[len(b)-1] != '\n' {
		n++
	}
	return n
}
