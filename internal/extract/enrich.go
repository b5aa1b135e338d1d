package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codegraph-ingest/internal/lang"
	"github.com/DeusData/codegraph-ingest/internal/parser"
)

// EnclosingClass returns the name of the class-like construct that declares
// node. direct is false when a function scope sits between the two, so a
// nested helper inside a method is not itself a method.
func EnclosingClass(spec *lang.LanguageSpec, node *tree_sitter.Node, src []byte) (name string, direct bool) {
	switch {
	case spec.Language == lang.Go && node.Kind() == "method_declaration":
		return goReceiverType(node, src), true
	case spec.Language == lang.CPP && node.Kind() == "function_definition":
		if scope := cppQualifiedScope(node, src); scope != "" {
			return scope, true
		}
	}
	direct = true
	for p := node.Parent(); p != nil; p = p.Parent() {
		if spec.IsClassNode(p.Kind()) {
			return ClassName(p, src), direct
		}
		if spec.IsFunctionNode(p.Kind()) {
			direct = false
		}
	}
	return "", false
}

// ClassName returns the declared name of a class-like node.
func ClassName(node *tree_sitter.Node, src []byte) string {
	if node.Kind() == "impl_item" {
		return cleanTypeName(parser.NodeText(node.ChildByFieldName("type"), src))
	}
	if n := node.ChildByFieldName("name"); n != nil {
		return cleanTypeName(parser.NodeText(n, src))
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		c := node.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "type_identifier", "identifier", "simple_identifier", "constant":
			return parser.NodeText(c, src)
		}
	}
	return ""
}

func goReceiverType(node *tree_sitter.Node, src []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	var name string
	parser.Walk(recv, func(n *tree_sitter.Node) bool {
		if name != "" {
			return false
		}
		if n.Kind() == "type_identifier" {
			name = parser.NodeText(n, src)
			return false
		}
		return true
	})
	return name
}

// GoReceiverName returns the receiver variable of a Go method, e.g. "s"
// in func (s *Server) Run().
func GoReceiverName(node *tree_sitter.Node, src []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	decl := parser.FindChildByKind(recv, "parameter_declaration")
	if decl == nil {
		return ""
	}
	return parser.NodeText(decl.ChildByFieldName("name"), src)
}

func cppQualifiedScope(node *tree_sitter.Node, src []byte) string {
	decl := node.ChildByFieldName("declarator")
	if decl == nil {
		return ""
	}
	inner := decl.ChildByFieldName("declarator")
	if inner == nil || inner.Kind() != "qualified_identifier" {
		return ""
	}
	return cleanTypeName(parser.NodeText(inner.ChildByFieldName("scope"), src))
}

// cleanTypeName strips generic arguments, constructor parens and a
// leading "extends"/"implements" keyword from a type reference.
func cleanTypeName(s string) string {
	s = strings.TrimSpace(s)
	for _, kw := range []string{"extends ", "implements ", "< "} {
		s = strings.TrimPrefix(s, kw)
	}
	if i := strings.IndexAny(s, "<[("); i > 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// heritage returns a class's base list and implemented interfaces, both in
// declaration order.
func heritage(node *tree_sitter.Node, src []byte, l lang.Language) (bases, impls []string) {
	switch l {
	case lang.Python:
		if sup := node.ChildByFieldName("superclasses"); sup != nil {
			for i := uint(0); i < sup.NamedChildCount(); i++ {
				c := sup.NamedChild(i)
				if c == nil || c.Kind() == "keyword_argument" || c.Kind() == "comment" {
					continue
				}
				bases = appendName(bases, parser.NodeText(c, src))
			}
		}
	case lang.Java:
		if sup := node.ChildByFieldName("superclass"); sup != nil {
			bases = appendName(bases, namedChildrenText(sup, src)...)
		}
		if ifaces := node.ChildByFieldName("interfaces"); ifaces != nil {
			impls = appendName(impls, typeListNames(ifaces, src)...)
		}
		if ext := parser.FindChildByKind(node, "extends_interfaces"); ext != nil {
			bases = appendName(bases, typeListNames(ext, src)...)
		}
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		for i := uint(0); i < node.NamedChildCount(); i++ {
			c := node.NamedChild(i)
			if c == nil {
				continue
			}
			switch c.Kind() {
			case "class_heritage":
				b, im := tsHeritage(c, src)
				bases = appendName(bases, b...)
				impls = appendName(impls, im...)
			case "extends_type_clause":
				bases = appendName(bases, namedChildrenText(c, src)...)
			}
		}
	case lang.CPP:
		if clause := parser.FindChildByKind(node, "base_class_clause"); clause != nil {
			for i := uint(0); i < clause.NamedChildCount(); i++ {
				c := clause.NamedChild(i)
				if c != nil && (c.Kind() == "type_identifier" || c.Kind() == "qualified_identifier" || c.Kind() == "template_type") {
					bases = appendName(bases, parser.NodeText(c, src))
				}
			}
		}
	case lang.Scala:
		if clause := node.ChildByFieldName("extend"); clause != nil {
			bases = appendName(bases, namedChildrenText(clause, src)...)
		} else if clause := parser.FindChildByKind(node, "extends_clause"); clause != nil {
			bases = appendName(bases, namedChildrenText(clause, src)...)
		}
	case lang.CSharp:
		if list := parser.FindChildByKind(node, "base_list"); list != nil {
			for _, name := range namedChildrenText(list, src) {
				if looksLikeInterface(name) {
					impls = appendName(impls, name)
				} else {
					bases = appendName(bases, name)
				}
			}
		}
	case lang.PHP:
		if clause := parser.FindChildByKind(node, "base_clause"); clause != nil {
			bases = appendName(bases, namedChildrenText(clause, src)...)
		}
		if clause := parser.FindChildByKind(node, "class_interface_clause"); clause != nil {
			impls = appendName(impls, namedChildrenText(clause, src)...)
		}
	case lang.Kotlin:
		for i := uint(0); i < node.NamedChildCount(); i++ {
			c := node.NamedChild(i)
			if c != nil && (c.Kind() == "delegation_specifiers" || c.Kind() == "delegation_specifier_list") {
				bases = appendName(bases, namedChildrenText(c, src)...)
			}
		}
	case lang.Ruby:
		if sup := node.ChildByFieldName("superclass"); sup != nil {
			if c := parser.FindChildByKind(sup, "constant"); c != nil {
				bases = appendName(bases, parser.NodeText(c, src))
			} else if c := parser.FindChildByKind(sup, "scope_resolution"); c != nil {
				bases = appendName(bases, parser.NodeText(c, src))
			}
		}
	}
	return bases, impls
}

func tsHeritage(h *tree_sitter.Node, src []byte) (bases, impls []string) {
	for i := uint(0); i < h.NamedChildCount(); i++ {
		c := h.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "extends_clause":
			if v := c.ChildByFieldName("value"); v != nil {
				bases = append(bases, parser.NodeText(v, src))
			} else {
				bases = append(bases, namedChildrenText(c, src)...)
			}
		case "implements_clause":
			impls = append(impls, namedChildrenText(c, src)...)
		case "identifier", "member_expression":
			bases = append(bases, parser.NodeText(c, src))
		}
	}
	return bases, impls
}

func typeListNames(node *tree_sitter.Node, src []byte) []string {
	if list := parser.FindChildByKind(node, "type_list"); list != nil {
		return namedChildrenText(list, src)
	}
	return namedChildrenText(node, src)
}

func namedChildrenText(node *tree_sitter.Node, src []byte) []string {
	var out []string
	for i := uint(0); i < node.NamedChildCount(); i++ {
		c := node.NamedChild(i)
		if c == nil || c.Kind() == "comment" || c.Kind() == "type_arguments" {
			continue
		}
		out = append(out, parser.NodeText(c, src))
	}
	return out
}

func appendName(dst []string, names ...string) []string {
	for _, n := range names {
		if n = cleanTypeName(n); n != "" {
			dst = append(dst, n)
		}
	}
	return dst
}

// looksLikeInterface applies the IFoo naming convention.
func looksLikeInterface(name string) bool {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return len(name) > 1 && name[0] == 'I' && name[1] >= 'A' && name[1] <= 'Z'
}

// decorators collects decorator/annotation/attribute texts attached to a
// definition node.
func decorators(node *tree_sitter.Node, src []byte, l lang.Language) []string {
	var out []string
	add := func(n *tree_sitter.Node) {
		if t := normalizeDecorator(parser.NodeText(n, src)); t != "" {
			out = append(out, t)
		}
	}
	switch l {
	case lang.Python:
		if p := node.Parent(); p != nil && p.Kind() == "decorated_definition" {
			for i := uint(0); i < p.NamedChildCount(); i++ {
				if c := p.NamedChild(i); c != nil && c.Kind() == "decorator" {
					add(c)
				}
			}
		}
	case lang.Java, lang.Kotlin:
		mods := node.ChildByFieldName("modifiers")
		if mods == nil {
			mods = parser.FindChildByKind(node, "modifiers")
		}
		if mods != nil {
			for i := uint(0); i < mods.NamedChildCount(); i++ {
				c := mods.NamedChild(i)
				if c != nil && (c.Kind() == "annotation" || c.Kind() == "marker_annotation") {
					add(c)
				}
			}
		}
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		for i := uint(0); i < node.NamedChildCount(); i++ {
			if c := node.NamedChild(i); c != nil && c.Kind() == "decorator" {
				add(c)
			}
		}
		if len(out) == 0 {
			for s := node.PrevNamedSibling(); s != nil && s.Kind() == "decorator"; s = s.PrevNamedSibling() {
				add(s)
			}
		}
	case lang.CSharp:
		for i := uint(0); i < node.NamedChildCount(); i++ {
			c := node.NamedChild(i)
			if c == nil || c.Kind() != "attribute_list" {
				continue
			}
			for j := uint(0); j < c.NamedChildCount(); j++ {
				if a := c.NamedChild(j); a != nil && a.Kind() == "attribute" {
					add(a)
				}
			}
		}
	case lang.Rust:
		for s := node.PrevNamedSibling(); s != nil && s.Kind() == "attribute_item"; s = s.PrevNamedSibling() {
			add(s)
		}
	}
	return out
}

func normalizeDecorator(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	if strings.HasPrefix(s, "#[") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "#["), "]")
	}
	return strings.TrimSpace(s)
}

// DecoratorName returns the bare decorator name without "@" and arguments,
// e.g. "app.route" for "@app.route('/x')".
func DecoratorName(s string) string {
	s = normalizeDecorator(s)
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// parameterNames returns the declared parameter names of a function node.
func parameterNames(node *tree_sitter.Node, src []byte) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		if d := node.ChildByFieldName("declarator"); d != nil {
			params = d.ChildByFieldName("parameters")
		}
	}
	if params == nil {
		params = parser.FindChildByKind(node, "function_value_parameters")
	}
	if params == nil {
		if p := node.ChildByFieldName("parameter"); p != nil {
			return []string{parser.NodeText(p, src)}
		}
		return nil
	}
	var out []string
	for i := uint(0); i < params.NamedChildCount(); i++ {
		c := params.NamedChild(i)
		if c == nil || c.Kind() == "comment" {
			continue
		}
		if name := paramName(c, src); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func paramName(n *tree_sitter.Node, src []byte) string {
	switch n.Kind() {
	case "identifier", "simple_identifier", "variable_name", "word", "self":
		return parser.NodeText(n, src)
	}
	for _, field := range []string{"name", "pattern", "declarator"} {
		if f := n.ChildByFieldName(field); f != nil {
			return paramName(f, src)
		}
	}
	var found string
	parser.Walk(n, func(c *tree_sitter.Node) bool {
		if found != "" {
			return false
		}
		switch c.Kind() {
		case "identifier", "simple_identifier", "variable_name":
			found = parser.NodeText(c, src)
			return false
		}
		return true
	})
	return found
}

func isExported(name string, l lang.Language) bool {
	if name == "" {
		return false
	}
	switch l {
	case lang.Go:
		return name[0] >= 'A' && name[0] <= 'Z'
	case lang.Python:
		return !strings.HasPrefix(name, "_")
	case lang.Java, lang.CSharp, lang.Kotlin:
		return name[0] >= 'A' && name[0] <= 'Z'
	default:
		return true
	}
}

func hclBlockName(node *tree_sitter.Node, src []byte) string {
	var parts []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			parts = append(parts, parser.NodeText(child, src))
		case "string_lit":
			if tl := parser.FindChildByKind(child, "template_literal"); tl != nil {
				parts = append(parts, parser.NodeText(tl, src))
			}
		}
	}
	return strings.Join(parts, ".")
}

func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), "\"'`<>")
}
