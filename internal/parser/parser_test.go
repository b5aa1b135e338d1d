package parser

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codegraph-ingest/internal/lang"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(0)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestParseGo(t *testing.T) {
	s := newSession(t)
	source := []byte(`package main

func Hello() string {
	return "hello"
}

func Add(a, b int) int {
	return a + b
}
`)
	tree, err := s.Parse(lang.Go, source)
	if err != nil {
		t.Fatalf("Parse Go: %v", err)
	}
	defer tree.Close()

	var funcCount int
	Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "function_declaration" {
			funcCount++
		}
		return true
	})
	if funcCount != 2 {
		t.Errorf("expected 2 function_declarations, got %d", funcCount)
	}
}

func TestParsePython(t *testing.T) {
	s := newSession(t)
	source := []byte(`def greet(name):
    return f"Hello, {name}"

class MyClass:
    def method(self):
        pass
`)
	tree, err := s.Parse(lang.Python, source)
	if err != nil {
		t.Fatalf("Parse Python: %v", err)
	}
	defer tree.Close()

	var funcCount, classCount int
	Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			funcCount++
		case "class_definition":
			classCount++
		}
		return true
	})
	if funcCount != 2 {
		t.Errorf("expected 2 function_definitions, got %d", funcCount)
	}
	if classCount != 1 {
		t.Errorf("expected 1 class_definition, got %d", classCount)
	}
}

func TestGrammarLoadedOncePerSession(t *testing.T) {
	s := newSession(t)
	for i := 0; i < 3; i++ {
		tree, err := s.Parse(lang.Python, []byte("x = 1\n"))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		tree.Close()
	}
	if got := s.GrammarLoads(); got != 1 {
		t.Errorf("GrammarLoads = %d, want 1", got)
	}
	if _, err := s.Parse(lang.Go, []byte("package x\n")); err != nil {
		t.Fatalf("Parse Go: %v", err)
	}
	if got := s.GrammarLoads(); got != 2 {
		t.Errorf("GrammarLoads = %d, want 2", got)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a, b := newSession(t), newSession(t)
	la, err := a.Language(lang.Python)
	if err != nil {
		t.Fatal(err)
	}
	lb, err := b.Language(lang.Python)
	if err != nil {
		t.Fatal(err)
	}
	if la == lb {
		t.Error("sessions share a grammar instance")
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	s := newSession(t)
	if _, err := s.Parse(lang.JSON, []byte("{}")); err == nil {
		t.Error("expected error for grammar-less language")
	}
	if HasGrammar(lang.YAML) {
		t.Error("YAML should have no grammar")
	}
}

func TestBatteriesCompile(t *testing.T) {
	s := newSession(t)
	for _, l := range []lang.Language{lang.Python, lang.JavaScript, lang.TypeScript, lang.TSX, lang.Go, lang.Java, lang.Rust} {
		b, err := s.Battery(l)
		if err != nil {
			t.Fatalf("Battery(%s): %v", l, err)
		}
		if len(b.Failures) > 0 {
			t.Errorf("%s: query failures: %v", l, b.Failures)
		}
		if len(b.Queries) == 0 {
			t.Errorf("%s: no compiled queries", l)
		}
	}
}

func TestMatchesCapturesNames(t *testing.T) {
	s := newSession(t)
	src := []byte("def a():\n    pass\n\ndef b():\n    pass\n")
	tree, err := s.Parse(lang.Python, src)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()
	b, err := s.Battery(lang.Python)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, q := range b.Queries {
		if q.Name != lang.QueryFunctions {
			continue
		}
		matches, err := Matches(q.Query, tree.RootNode(), src)
		if err != nil {
			t.Fatal(err)
		}
		for _, m := range matches {
			for _, c := range m {
				if c.Name == "name" {
					names = append(names, NodeText(&c.Node, src))
				}
			}
		}
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("captured names = %v, want [a b]", names)
	}
}
