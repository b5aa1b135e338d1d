package extract

import (
	"bytes"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codegraph-ingest/internal/lang"
	"github.com/DeusData/codegraph-ingest/internal/parser"
)

// lineDocPrefix is the line-comment marker treated as documentation when it
// directly precedes a definition.
var lineDocPrefix = map[lang.Language]string{
	lang.Rust:       "///",
	lang.CSharp:     "///",
	lang.Lua:        "---",
	lang.Go:         "//",
	lang.C:          "//",
	lang.CPP:        "//",
	lang.JavaScript: "//",
	lang.TypeScript: "//",
	lang.TSX:        "//",
	lang.Java:       "//",
	lang.Scala:      "//",
	lang.Kotlin:     "//",
	lang.PHP:        "//",
	lang.Ruby:       "#",
	lang.Bash:       "#",
}

// docstring returns the documentation attached to a definition: the leading
// string literal of a Python body, or the comment block right above the
// definition elsewhere.
func docstring(node *tree_sitter.Node, src []byte, l lang.Language) string {
	if l == lang.Python {
		return pythonDocstring(node, src)
	}
	start := node
	if p := node.Parent(); p != nil && (p.Kind() == "export_statement" || p.Kind() == "decorated_definition") {
		start = p
	}
	return leadingComment(src, int(start.StartPosition().Row), l)
}

func pythonDocstring(node *tree_sitter.Node, src []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	return dedentDocstring(parser.NodeText(str, src))
}

func dedentDocstring(s string) string {
	for _, q := range []string{`"""`, `'''`} {
		if len(s) >= 6 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = s[3 : len(s)-3]
			break
		}
	}
	lines := strings.Split(s, "\n")
	if len(lines) == 1 {
		return strings.TrimSpace(strings.Trim(s, `"'`))
	}
	indent := -1
	for _, line := range lines[1:] {
		body := strings.TrimLeft(line, " \t")
		if body == "" {
			continue
		}
		if n := len(line) - len(body); indent < 0 || n < indent {
			indent = n
		}
	}
	for i := 1; indent > 0 && i < len(lines); i++ {
		if len(lines[i]) >= indent {
			lines[i] = lines[i][indent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// leadingComment reads the comment ending on the line above row (0-based).
func leadingComment(src []byte, row int, l lang.Language) string {
	lines := bytes.Split(src, []byte("\n"))
	if row <= 0 || row > len(lines) {
		return ""
	}
	end := row - 1
	last := strings.TrimSpace(string(lines[end]))
	switch {
	case last == "":
		return ""
	case strings.HasSuffix(last, "*/"):
		return blockComment(lines, end, "/*", "*/")
	case l == lang.Lua && strings.HasSuffix(last, "]]"):
		return blockComment(lines, end, "--[[", "]]")
	}
	prefix := lineDocPrefix[l]
	if prefix == "" || !strings.HasPrefix(last, prefix) {
		return ""
	}
	var out []string
	for i := end; i >= 0; i-- {
		t := strings.TrimSpace(string(lines[i]))
		if !strings.HasPrefix(t, prefix) {
			break
		}
		out = append(out, strings.TrimPrefix(strings.TrimPrefix(t, prefix), " "))
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func blockComment(lines [][]byte, end int, open, close string) string {
	start := end
	for start >= 0 && !strings.Contains(string(lines[start]), open) {
		start--
	}
	if start < 0 {
		return ""
	}
	text := string(bytes.Join(lines[start:end+1], []byte("\n")))
	if i := strings.Index(text, open); i >= 0 {
		text = text[i+len(open):]
	}
	if i := strings.LastIndex(text, close); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimPrefix(text, "*")
	parts := strings.Split(text, "\n")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, "* ")
		parts[i] = strings.TrimPrefix(p, "*")
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
