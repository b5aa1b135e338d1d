package parser

import (
	"fmt"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	tree_sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_c_sharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_scala "github.com/tree-sitter/tree-sitter-scala/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	tree_sitter_hcl "github.com/tree-sitter-grammars/tree-sitter-hcl/bindings/go"
	tree_sitter_kotlin "github.com/tree-sitter-grammars/tree-sitter-kotlin/bindings/go"
	tree_sitter_lua "github.com/tree-sitter-grammars/tree-sitter-lua/bindings/go"

	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// grammars maps each grammar-backed language to its binding constructor.
// The table holds only function values; every Session builds its own
// *tree_sitter.Language from it, so no grammar state is shared.
var grammars = map[lang.Language]func() unsafe.Pointer{
	lang.Python:     tree_sitter_python.Language,
	lang.JavaScript: tree_sitter_javascript.Language,
	lang.TypeScript: tree_sitter_typescript.LanguageTypescript,
	lang.TSX:        tree_sitter_typescript.LanguageTSX,
	lang.Go:         tree_sitter_go.Language,
	lang.Rust:       tree_sitter_rust.Language,
	lang.Java:       tree_sitter_java.Language,
	lang.C:          tree_sitter_c.Language,
	lang.CPP:        tree_sitter_cpp.Language,
	lang.CSharp:     tree_sitter_c_sharp.Language,
	lang.PHP:        tree_sitter_php.LanguagePHPOnly,
	lang.Ruby:       tree_sitter_ruby.Language,
	lang.Scala:      tree_sitter_scala.Language,
	lang.Kotlin:     tree_sitter_kotlin.Language,
	lang.Lua:        tree_sitter_lua.Language,
	lang.Bash:       tree_sitter_bash.Language,
	lang.HCL:        tree_sitter_hcl.Language,
}

// HasGrammar reports whether l can be parsed into a syntax tree.
func HasGrammar(l lang.Language) bool {
	_, ok := grammars[l]
	return ok
}

// WalkFunc is called for each node during AST traversal.
// Return false to skip children.
type WalkFunc func(node *tree_sitter.Node) bool

// Walk traverses the AST in depth-first order.
func Walk(node *tree_sitter.Node, fn WalkFunc) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil {
			Walk(child, fn)
		}
	}
}

// NodeText returns the text content of a node.
func NodeText(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if end > uint(len(source)) || start > end {
		return ""
	}
	return string(source[start:end])
}

// Line returns the 1-based start line of node.
func Line(node *tree_sitter.Node) int { return int(node.StartPosition().Row) + 1 }

// EndLine returns the 1-based end line of node.
func EndLine(node *tree_sitter.Node) int { return int(node.EndPosition().Row) + 1 }

// Column returns the 1-based start column of node.
func Column(node *tree_sitter.Node) int { return int(node.StartPosition().Column) + 1 }

// FindChildByKind returns the first direct child of the given kind.
func FindChildByKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

func unsupported(l lang.Language) error {
	return fmt.Errorf("unsupported language: %s", l)
}
