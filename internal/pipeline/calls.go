package pipeline

import (
	"context"
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codegraph-ingest/internal/extract"
	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/lang"
	"github.com/DeusData/codegraph-ingest/internal/parser"
)

// Call kinds recorded on CALLS edges.
const (
	CallPlain  = "plain"
	CallMember = "member"
	CallSuper  = "super"
)

// CallRecord is one call site found in a cached tree.
type CallRecord struct {
	FilePath   string
	CallerName string
	// CallerID is the calling definition, or the File for module-level code.
	CallerID   string
	CallerQN   string
	CalledName string
	Kind       string
	Line       int
	Column     int

	// ReceiverName is set when the receiver is a bare identifier.
	ReceiverName string
	// ReceiverIsSelf marks self/this receivers and Go method receivers.
	ReceiverIsSelf bool
	// Qualifier is the full receiver text, e.g. "console" or "os.path".
	Qualifier string

	// AssignedTo is the variable the call's value is assigned to.
	AssignedTo     string
	Constructor    bool
	EnclosingClass string
}

func (r *CallRecord) scope() string {
	if r.CallerQN == "" {
		return moduleScope
	}
	return r.CallerQN
}

// callEvent is either a call or an identifier copy `dst = src`, kept in
// source order so type inference sees assignments before later uses.
type callEvent struct {
	call *CallRecord

	file, scope string
	dst, src    string
}

// frame is one enclosing definition on the walk stack.
type frame struct {
	sym      *Symbol
	class    string
	selfName string
}

// callWalker collects the call events of one file.
type callWalker struct {
	pf     *parsedFile
	src    []byte
	spec   *lang.LanguageSpec
	byLine map[int][]*Symbol
	stack  []frame
	events []callEvent
	// returnsCtor maps a callable id to the class its body returns by
	// constructing it.
	returnsCtor map[string]string
}

func newCallWalker(pf *parsedFile, syms []*Symbol, returnsCtor map[string]string) *callWalker {
	w := &callWalker{
		pf:          pf,
		src:         pf.Source,
		spec:        pf.Spec,
		byLine:      make(map[int][]*Symbol),
		returnsCtor: returnsCtor,
	}
	for _, s := range syms {
		if s.Label == graph.Function || s.Label == graph.Method {
			w.byLine[s.Def.StartLine] = append(w.byLine[s.Def.StartLine], s)
		}
	}
	return w
}

func (w *callWalker) text(n *tree_sitter.Node) string { return parser.NodeText(n, w.src) }

func (w *callWalker) visit(n *tree_sitter.Node) {
	pushed := false
	kind := n.Kind()
	switch {
	case w.spec.IsFunctionNode(kind):
		if sym := w.symbolFor(n); sym != nil {
			f := frame{sym: sym, class: sym.Class}
			if w.spec.Language == lang.Go && kind == "method_declaration" {
				f.selfName = extract.GoReceiverName(n, w.src)
			}
			w.stack = append(w.stack, f)
			pushed = true
		}
	case w.spec.IsClassNode(kind):
		if name := extract.ClassName(n, w.src); name != "" {
			w.stack = append(w.stack, frame{class: name})
			pushed = true
		}
	}

	if w.spec.IsCallNode(kind) {
		if rec := w.callRecord(n); rec != nil {
			w.events = append(w.events, callEvent{call: rec})
		}
	} else if dst, src := w.identifierCopy(n); dst != "" {
		w.events = append(w.events, callEvent{file: w.pf.Path, scope: w.scope(), dst: dst, src: src})
	}
	if kind == "return_statement" || kind == "return_expression" {
		w.noteReturn(n)
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil {
			w.visit(c)
		}
	}
	if pushed {
		w.stack = w.stack[:len(w.stack)-1]
	}
}

// symbolFor matches a function node to its registered definition by start
// line and name. Anonymous functions match nothing and keep the enclosing
// caller.
func (w *callWalker) symbolFor(n *tree_sitter.Node) *Symbol {
	cands := w.byLine[parser.Line(n)]
	if len(cands) == 0 {
		return nil
	}
	name := definitionName(n, w.src)
	for _, s := range cands {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// definitionName returns the declared name of a function node, looking
// through declarators and the variable a function value is bound to.
func definitionName(n *tree_sitter.Node, src []byte) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return lastSegment(parser.NodeText(name, src))
	}
	for d := n.ChildByFieldName("declarator"); d != nil; {
		if next := d.ChildByFieldName("declarator"); next != nil {
			d = next
			continue
		}
		if name := d.ChildByFieldName("name"); name != nil {
			return lastSegment(parser.NodeText(name, src))
		}
		return lastSegment(parser.NodeText(d, src))
	}
	if p := n.Parent(); p != nil {
		for _, field := range []string{"name", "left", "key"} {
			if t := p.ChildByFieldName(field); t != nil && t.StartByte() != n.StartByte() {
				return lastSegment(parser.NodeText(t, src))
			}
		}
	}
	if id := parser.FindChildByKind(n, "simple_identifier"); id != nil {
		return parser.NodeText(id, src)
	}
	return ""
}

// lastSegment returns the final component of a dotted, scoped or method
// name such as "a.b", "A::b" or "M:b".
func lastSegment(s string) string {
	if i := strings.LastIndexAny(s, ".:"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func (w *callWalker) caller() *Symbol {
	for i := len(w.stack) - 1; i >= 0; i-- {
		if w.stack[i].sym != nil {
			return w.stack[i].sym
		}
	}
	return nil
}

func (w *callWalker) scope() string {
	if c := w.caller(); c != nil {
		return c.QualifiedName
	}
	return moduleScope
}

func (w *callWalker) enclosingClass() string {
	for i := len(w.stack) - 1; i >= 0; i-- {
		if w.stack[i].class != "" {
			return w.stack[i].class
		}
	}
	return ""
}

func (w *callWalker) isSelf(name string) bool {
	if w.spec.IsSelf(name) {
		return true
	}
	for i := len(w.stack) - 1; i >= 0; i-- {
		if w.stack[i].selfName != "" {
			return w.stack[i].selfName == name
		}
	}
	return false
}

var identifierKinds = map[string]bool{
	"identifier":          true,
	"simple_identifier":   true,
	"variable_name":       true,
	"constant":            true,
	"type_identifier":     true,
	"command_name":        true,
	"name":                true,
	"property_identifier": true,
	"field_identifier":    true,
}

func (w *callWalker) callRecord(n *tree_sitter.Node) *CallRecord {
	rec := &CallRecord{
		FilePath:       w.pf.Path,
		Line:           parser.Line(n),
		Column:         parser.Column(n),
		EnclosingClass: w.enclosingClass(),
	}
	if c := w.caller(); c != nil {
		rec.CallerName = c.Name
		rec.CallerID = c.ID
		rec.CallerQN = c.QualifiedName
	} else {
		rec.CallerName = moduleScope
		rec.CallerID = graph.FileID(w.pf.Path)
	}

	if !w.decompose(n, rec) || rec.CalledName == "" {
		return nil
	}
	// The super() receiver of super().m() is recorded through m.
	if rec.Kind == CallSuper && rec.Qualifier == "" {
		if p := n.Parent(); p != nil && (p.Kind() == "attribute" || p.Kind() == "member_expression") {
			return nil
		}
	}
	rec.AssignedTo = w.assignedTarget(n)
	return rec
}

// decompose fills the called name, kind and receiver of call node n.
func (w *callWalker) decompose(n *tree_sitter.Node, rec *CallRecord) bool {
	switch n.Kind() {
	case "new_expression":
		t := n.ChildByFieldName("constructor")
		if t == nil {
			t = n.ChildByFieldName("type")
		}
		return w.constructorCall(t, rec)
	case "object_creation_expression":
		t := n.ChildByFieldName("type")
		if t == nil {
			for i := uint(0); i < n.NamedChildCount(); i++ {
				c := n.NamedChild(i)
				if c.Kind() == "name" || c.Kind() == "qualified_name" {
					t = c
					break
				}
			}
		}
		return w.constructorCall(t, rec)
	case "method_invocation", "member_call_expression":
		return w.member(n.ChildByFieldName("object"), n.ChildByFieldName("name"), rec)
	case "scoped_call_expression":
		return w.member(n.ChildByFieldName("scope"), n.ChildByFieldName("name"), rec)
	case "super":
		rec.Kind = CallSuper
		rec.CalledName = w.callerName()
		return true
	case "command":
		name := w.text(n.ChildByFieldName("name"))
		if name == "source" || name == "." {
			return false
		}
		rec.Kind, rec.CalledName = CallPlain, name
		return true
	}

	if w.spec.Language == lang.Ruby {
		method := n.ChildByFieldName("method")
		if method == nil {
			return false
		}
		if recv := n.ChildByFieldName("receiver"); recv != nil {
			return w.member(recv, method, rec)
		}
		rec.Kind, rec.CalledName = CallPlain, w.text(method)
		return true
	}

	callee := n.ChildByFieldName("function")
	if callee == nil {
		callee = n.ChildByFieldName("name")
	}
	if callee == nil && n.NamedChildCount() > 0 {
		callee = n.NamedChild(0)
	}
	return w.callee(callee, rec)
}

func (w *callWalker) callerName() string {
	if c := w.caller(); c != nil {
		return c.Name
	}
	return ""
}

func (w *callWalker) constructorCall(t *tree_sitter.Node, rec *CallRecord) bool {
	if t == nil {
		return false
	}
	name := w.text(t)
	if i := strings.IndexAny(name, "<[("); i >= 0 {
		name = name[:i]
	}
	name = strings.ReplaceAll(name, `\`, ".")
	qualifier, short := splitQualified(strings.TrimSpace(name))
	rec.Kind, rec.CalledName, rec.Constructor = CallPlain, short, true
	if qualifier != "" {
		rec.Kind = CallMember
		rec.Qualifier = qualifier
		if !strings.Contains(qualifier, ".") {
			rec.ReceiverName = qualifier
		}
	}
	return true
}

// callee classifies the function expression of a call.
func (w *callWalker) callee(c *tree_sitter.Node, rec *CallRecord) bool {
	if c == nil {
		return false
	}
	switch c.Kind() {
	case "attribute":
		return w.member(c.ChildByFieldName("object"), c.ChildByFieldName("attribute"), rec)
	case "member_expression":
		return w.member(c.ChildByFieldName("object"), c.ChildByFieldName("property"), rec)
	case "selector_expression":
		return w.member(c.ChildByFieldName("operand"), c.ChildByFieldName("field"), rec)
	case "field_expression":
		obj := c.ChildByFieldName("value")
		if obj == nil {
			obj = c.ChildByFieldName("argument")
		}
		return w.member(obj, c.ChildByFieldName("field"), rec)
	case "member_access_expression":
		return w.member(c.ChildByFieldName("expression"), c.ChildByFieldName("name"), rec)
	case "dot_index_expression":
		return w.member(c.ChildByFieldName("table"), c.ChildByFieldName("field"), rec)
	case "method_index_expression":
		return w.member(c.ChildByFieldName("table"), c.ChildByFieldName("method"), rec)
	case "scoped_identifier":
		return w.member(c.ChildByFieldName("path"), c.ChildByFieldName("name"), rec)
	case "qualified_identifier":
		return w.member(c.ChildByFieldName("scope"), c.ChildByFieldName("name"), rec)
	case "navigation_expression":
		if c.NamedChildCount() < 2 {
			return false
		}
		suffix := c.NamedChild(c.NamedChildCount() - 1)
		name := parser.FindChildByKind(suffix, "simple_identifier")
		if name == nil {
			name = suffix
		}
		return w.member(c.NamedChild(0), name, rec)
	case "generic_function", "generic_name":
		if f := c.ChildByFieldName("function"); f != nil {
			return w.callee(f, rec)
		}
		if c.NamedChildCount() > 0 {
			return w.callee(c.NamedChild(0), rec)
		}
		return false
	case "super":
		rec.Kind = CallSuper
		rec.CalledName = w.superConstructorName()
		return rec.CalledName != ""
	}
	if identifierKinds[c.Kind()] {
		name := w.text(c)
		if w.spec.IsSuper(name) {
			rec.Kind = CallSuper
			rec.CalledName = w.superConstructorName()
			return rec.CalledName != ""
		}
		rec.Kind, rec.CalledName = CallPlain, name
		return true
	}
	return false
}

// superConstructorName is the method a bare super(...) call dispatches to.
func (w *callWalker) superConstructorName() string {
	if name := w.callerName(); name != "" {
		return name
	}
	return "constructor"
}

// member records a receiver.name(...) call.
func (w *callWalker) member(recv, name *tree_sitter.Node, rec *CallRecord) bool {
	if name == nil {
		return false
	}
	rec.CalledName = lastSegment(w.text(name))
	rec.Kind = CallMember
	if recv == nil {
		rec.Kind = CallPlain
		return true
	}
	recvText := w.text(recv)
	rec.Qualifier = recvText
	switch {
	case w.isSuperReceiver(recv, recvText):
		rec.Kind = CallSuper
	case w.isSelf(recvText):
		rec.ReceiverIsSelf = true
	case identifierKinds[recv.Kind()] || recv.Kind() == "package_identifier":
		rec.ReceiverName = recvText
	}
	return true
}

// isSuperReceiver matches super(), super, base and parent:: receivers.
func (w *callWalker) isSuperReceiver(recv *tree_sitter.Node, text string) bool {
	if w.spec.IsSuper(text) || recv.Kind() == "super" {
		return true
	}
	if w.spec.IsCallNode(recv.Kind()) {
		fn := recv.ChildByFieldName("function")
		return fn != nil && w.spec.IsSuper(w.text(fn))
	}
	return false
}

var assignmentWrappers = map[string]bool{
	"await":                    true,
	"await_expression":         true,
	"parenthesized_expression": true,
	"expression_list":          true,
	"equals_value_clause":      true,
}

// assignedTarget returns x for `x = call()` style assignments and
// declarations, looking through await and parentheses.
func (w *callWalker) assignedTarget(call *tree_sitter.Node) string {
	child := call
	p := call.Parent()
	for p != nil && assignmentWrappers[p.Kind()] {
		if p.Kind() == "expression_list" && p.NamedChildCount() != 1 {
			return ""
		}
		child, p = p, p.Parent()
	}
	if p == nil {
		return ""
	}
	target, value := w.assignmentParts(p)
	if target == nil || value == nil || value.StartByte() != child.StartByte() || value.EndByte() != child.EndByte() {
		return ""
	}
	return w.text(target)
}

// identifierCopy returns (dst, src) for `dst = src` between bare names.
func (w *callWalker) identifierCopy(n *tree_sitter.Node) (string, string) {
	target, value := w.assignmentParts(n)
	if target == nil || value == nil || !identifierKinds[value.Kind()] {
		return "", ""
	}
	return w.text(target), w.text(value)
}

// assignmentParts returns the single identifier target and the value
// expression of an assignment or declaration node.
func (w *callWalker) assignmentParts(n *tree_sitter.Node) (target, value *tree_sitter.Node) {
	switch n.Kind() {
	case "assignment", "assignment_expression", "assignment_statement", "short_var_declaration", "augmented_assignment":
		if n.Kind() == "augmented_assignment" {
			return nil, nil
		}
		target, value = n.ChildByFieldName("left"), n.ChildByFieldName("right")
		if target == nil && n.NamedChildCount() == 2 {
			target, value = n.NamedChild(0), n.NamedChild(1)
		}
	case "variable_declarator":
		target, value = n.ChildByFieldName("name"), n.ChildByFieldName("value")
		if target == nil && n.NamedChildCount() > 0 {
			target = n.NamedChild(0)
		}
		if value == nil {
			if eq := parser.FindChildByKind(n, "equals_value_clause"); eq != nil && eq.NamedChildCount() > 0 {
				value = eq.NamedChild(0)
			} else if n.NamedChildCount() == 2 {
				value = n.NamedChild(1)
			}
		}
	case "let_declaration", "val_definition", "var_definition":
		target, value = n.ChildByFieldName("pattern"), n.ChildByFieldName("value")
	case "init_declarator":
		target, value = n.ChildByFieldName("declarator"), n.ChildByFieldName("value")
	case "property_declaration":
		if d := parser.FindChildByKind(n, "variable_declaration"); d != nil {
			target = parser.FindChildByKind(d, "simple_identifier")
		}
		if n.NamedChildCount() > 0 {
			value = n.NamedChild(n.NamedChildCount() - 1)
		}
	default:
		return nil, nil
	}
	target, value = single(target), single(value)
	if target == nil || value == nil || !identifierKinds[target.Kind()] || target.StartByte() == value.StartByte() {
		return nil, nil
	}
	return target, value
}

// single unwraps a one-element expression or variable list.
func single(n *tree_sitter.Node) *tree_sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "expression_list", "variable_list", "pattern_list":
		if n.NamedChildCount() != 1 {
			return nil
		}
		return n.NamedChild(0)
	}
	return n
}

// noteReturn records `return Foo(...)` and Go `return &Foo{...}` as a
// constructor return of the enclosing callable.
func (w *callWalker) noteReturn(n *tree_sitter.Node) {
	c := w.caller()
	if c == nil || n.NamedChildCount() == 0 {
		return
	}
	expr := single(n.NamedChild(0))
	if expr == nil {
		return
	}
	if expr.Kind() == "unary_expression" {
		if op := expr.ChildByFieldName("operand"); op != nil {
			expr = op
		}
	}
	var name string
	switch {
	case expr.Kind() == "composite_literal":
		name = w.text(expr.ChildByFieldName("type"))
	case w.spec.IsCallNode(expr.Kind()):
		rec := &CallRecord{}
		if w.decompose(expr, rec) && (rec.Kind == CallPlain || rec.Constructor) {
			name = rec.CalledName
		}
	}
	if name = lastSegment(name); startsUpper(name) {
		w.returnsCtor[c.ID] = name
	}
}

// passCalls walks every cached tree for call sites, builds the return
// table, then resolves calls and infers variable types in source order.
func (p *Pipeline) passCalls(ctx context.Context, st *runState) error {
	paths := make([]string, 0, len(st.asts))
	for f := range st.asts {
		paths = append(paths, f)
	}
	sort.Strings(paths)

	returnsCtor := make(map[string]string)
	var events []callEvent
	for _, f := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		pf := st.asts[f]
		if pf.Spec == nil || len(pf.Spec.CallNodeTypes) == 0 {
			continue
		}
		w := newCallWalker(pf, st.registry.FileSymbols(f), returnsCtor)
		w.visit(pf.Tree.RootNode())
		events = append(events, w.events...)
	}
	st.buildReturnTable(returnsCtor)

	for i, ev := range events {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if ev.call == nil {
			if vt, ok := st.types.Lookup(ev.file, ev.scope, ev.src); ok {
				st.types.set(ev.file, ev.scope, ev.dst, vt)
			}
			continue
		}
		st.callsDetected++
		target, strategy := p.resolveCall(st, ev.call)
		if target != "" && !acceptTarget(ev.call, target) {
			target = ""
		}
		if target != "" {
			st.addCallEdge(ev.call, target, strategy)
		}
		st.inferAssignment(ev.call, target)
	}
	return nil
}

func (st *runState) addCallEdge(rec *CallRecord, target, strategy string) {
	if !st.g.HasNode(rec.CallerID) || !st.g.HasNode(target) {
		return
	}
	st.g.AddRelationship(&graph.Relationship{
		Type:   graph.Calls,
		Source: rec.CallerID,
		Target: target,
		Properties: map[string]any{
			"call_kind":   rec.Kind,
			"strategy":    strategy,
			"line":        rec.Line,
			"column":      rec.Column,
			"called_name": rec.CalledName,
		},
	})
	st.callsResolved++
}
