package csharp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Declaration node types.
var typeNodes = map[string]declKind{
	"class_declaration":     declClass,
	"struct_declaration":    declStruct,
	"interface_declaration": declInterface,
	"enum_declaration":      declEnum,
	"record_declaration":    declRecord,
	"delegate_declaration":  declDelegate,
}

var memberNodes = map[string]memberKind{
	"field_declaration":               memberField,
	"event_field_declaration":         memberEventField,
	"event_declaration":               memberEvent,
	"property_declaration":            memberProperty,
	"indexer_declaration":             memberIndexer,
	"method_declaration":              memberMethod,
	"constructor_declaration":         memberConstructor,
	"operator_declaration":            memberOperator,
	"conversion_operator_declaration": memberConversion,
}

// walker turns a concrete syntax tree into the declaration skeleton of one
// file. Bodies are never looked at.
type walker struct {
	src  []byte
	file *fileSyntax
	log  *slog.Logger
}

func readSyntax(ctx context.Context, parser *sitter.Parser, path string, src []byte, log *slog.Logger) (*fileSyntax, error) {
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("csharp: parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := &scope{}
	w := &walker{src: src, file: &fileSyntax{path: path, root: root}, log: log}
	w.syntaxErrors(tree.RootNode())
	w.walkScope(tree.RootNode(), root, nil)
	return w.file, nil
}

func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

// name returns the identifier n spells, or "" for nil.
func (w *walker) name(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return identName(w.text(n))
}

func line(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }

// syntaxErrors records every ERROR and MISSING node under n. Subtrees
// without errors are skipped.
func (w *walker) syntaxErrors(n *sitter.Node) {
	if !n.HasError() {
		return
	}
	switch {
	case n.IsMissing():
		w.syntaxError(n, "missing %s", n.Type())
		return
	case n.Type() == "ERROR":
		w.syntaxError(n, "unexpected %q", firstLine(w.text(n)))
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.syntaxErrors(n.Child(i))
	}
}

func (w *walker) syntaxError(n *sitter.Node, format string, args ...any) {
	w.file.syntaxErrors = append(w.file.syntaxErrors, syntaxError{
		line:   line(n),
		column: int(n.StartPoint().Column) + 1,
		text:   fmt.Sprintf(format, args...),
	})
}

// walkScope visits the children of a compilation unit or namespace body.
// Types found are appended to outer when it is non-nil, otherwise to the
// file. A file-scoped namespace applies to every later sibling.
func (w *walker) walkScope(n *sitter.Node, sc *scope, outer *typeDecl) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch kind := child.Type(); {
		case kind == "ERROR":
			w.walkScope(child, sc, outer)
		case kind == "using_directive":
			u, ok := w.using(child)
			switch {
			case !ok:
			case u.global:
				w.file.globalUsings = append(w.file.globalUsings, u)
			default:
				sc.usings = append(sc.usings, u)
			}
		case kind == "global_attribute":
			for _, a := range w.globalAttributes(child) {
				if a.target == "assembly" {
					w.file.assemblyAttrs = append(w.file.assemblyAttrs, a)
				}
			}
		case kind == "namespace_declaration":
			inner := w.namespaceScope(child, sc)
			if body := child.ChildByFieldName("body"); body != nil {
				w.walkScope(body, inner, outer)
			}
		case kind == "file_scoped_namespace_declaration":
			sc = w.namespaceScope(child, sc)
			w.walkScope(child, sc, outer)
		default:
			if _, ok := typeNodes[kind]; !ok {
				continue
			}
			if d := w.typeDecl(child, sc); d != nil {
				if outer != nil {
					outer.nested = append(outer.nested, d)
				} else {
					w.file.types = append(w.file.types, d)
				}
			}
		}
	}
}

func (w *walker) using(n *sitter.Node) (usingSyntax, bool) {
	u := usingSyntax{global: hasToken(n, "global"), static: hasToken(n, "static")}
	alias := n.ChildByFieldName("name")
	if alias != nil {
		u.alias = w.name(alias)
	}
	for _, c := range namedChildren(n) {
		if alias != nil && c.Equal(alias) {
			continue
		}
		u.target = w.typ(c)
	}
	return u, u.target != nil
}

func (w *walker) namespaceScope(n *sitter.Node, parent *scope) *scope {
	name := ""
	if t := w.typ(n.ChildByFieldName("name")); t != nil {
		name = t.dotted()
	}
	ns := name
	if parent.namespace != "" && name != "" {
		ns = parent.namespace + "." + name
	} else if name == "" {
		ns = parent.namespace
	}
	return &scope{parent: parent, namespace: ns}
}

func (w *walker) typeDecl(n *sitter.Node, sc *scope) *typeDecl {
	d := &typeDecl{
		kind:  typeNodes[n.Type()],
		attrs: w.attributes(n),
		mods:  w.modifiers(n),
		name:  w.name(n.ChildByFieldName("name")),
		scope: sc,
		file:  w.file.path,
		line:  line(n),
	}
	if d.name == "" {
		return nil
	}
	if d.kind == declRecord && hasToken(n, "struct") {
		d.kind = declRecordStruct
	}
	d.tparams = w.typeParams(n)
	if list := n.ChildByFieldName("parameters"); list != nil || hasChildOfType(n, "parameter_list") {
		if list == nil {
			list = childOfType(n, "parameter_list")
		}
		d.params = w.params(list)
		d.hasParams = true
	}
	if bases := childOfType(n, "base_list"); bases != nil {
		for _, c := range namedChildren(bases) {
			if c.Type() == "primary_constructor_base_type" {
				c = c.ChildByFieldName("type")
			}
			if t := w.typ(c); t != nil {
				d.bases = append(d.bases, t)
			}
		}
	}
	d.constraints = w.constraints(n)
	if d.kind == declDelegate {
		if d.ret = w.returnType(n, "type", &d.mods); d.ret == nil {
			return nil
		}
		return d
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return d
	}
	if d.kind == declEnum {
		for _, child := range childrenOfType(body, "enum_member_declaration") {
			m := &enumMemberDecl{
				attrs: w.attributes(child),
				name:  w.name(child.ChildByFieldName("name")),
				line:  line(child),
			}
			if v := child.ChildByFieldName("value"); v != nil {
				m.value = w.expr(v)
			}
			if m.name != "" {
				d.enumMembers = append(d.enumMembers, m)
			}
		}
		return d
	}

	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		kind := child.Type()
		if _, ok := typeNodes[kind]; ok {
			if nd := w.typeDecl(child, sc); nd != nil {
				d.nested = append(d.nested, nd)
			}
			continue
		}
		if mk, ok := memberNodes[kind]; ok {
			if m := w.memberDecl(child, mk); m != nil {
				d.members = append(d.members, m)
			}
		}
	}
	return d
}

// hasBody reports whether a member or accessor has a block or expression
// body.
func hasBody(n *sitter.Node) bool {
	return hasChildOfType(n, "block") || hasChildOfType(n, "arrow_expression_clause")
}

func (w *walker) memberDecl(n *sitter.Node, kind memberKind) *memberDecl {
	m := &memberDecl{
		kind:    kind,
		attrs:   w.attributes(n),
		mods:    w.modifiers(n),
		line:    line(n),
		hasBody: hasBody(n),
	}
	if spec := childOfType(n, "explicit_interface_specifier"); spec != nil {
		m.explicit = w.typ(firstNamed(spec))
	}

	switch kind {
	case memberField, memberEventField:
		return w.fieldDecl(n, m)
	case memberMethod:
		m.typ = w.returnType(n, "returns", &m.mods)
		m.name = w.name(n.ChildByFieldName("name"))
		m.tparams = w.typeParams(n)
		m.params = w.params(n.ChildByFieldName("parameters"))
		m.constraints = w.constraints(n)
	case memberConstructor:
		m.name = w.name(n.ChildByFieldName("name"))
		m.params = w.params(n.ChildByFieldName("parameters"))
		if m.name == "" {
			return nil
		}
		return m
	case memberOperator:
		m.typ = w.returnType(n, "type", &m.mods)
		m.params = w.params(n.ChildByFieldName("parameters"))
		m.name = operatorMethodName(fieldType(n, "operator"), len(m.params))
	case memberConversion:
		m.typ = w.returnType(n, "type", &m.mods)
		m.params = w.params(n.ChildByFieldName("parameters"))
		m.name = "op_Implicit"
		if hasToken(n, "explicit") {
			m.name = "op_Explicit"
		}
	case memberProperty, memberEvent:
		m.typ = w.returnType(n, "type", &m.mods)
		m.name = w.name(n.ChildByFieldName("name"))
		w.accessors(n, m)
	case memberIndexer:
		m.typ = w.returnType(n, "type", &m.mods)
		m.name = "this"
		m.params = w.params(n.ChildByFieldName("parameters"))
		w.accessors(n, m)
	}
	if m.typ == nil || m.name == "" {
		return nil
	}
	return m
}

// accessors reads the accessor list of a property, indexer or event. An
// expression-bodied property has a get accessor only.
func (w *walker) accessors(n *sitter.Node, m *memberDecl) {
	list := n.ChildByFieldName("accessors")
	if list == nil {
		list = childOfType(n, "accessor_list")
	}
	if list == nil {
		if hasChildOfType(n, "arrow_expression_clause") {
			m.accessors = []accessorDecl{{keyword: "get", hasBody: true}}
		}
		return
	}
	m.hasBody = false
	for _, acc := range childrenOfType(list, "accessor_declaration") {
		keyword := acc.ChildByFieldName("name")
		if keyword == nil {
			continue
		}
		m.accessors = append(m.accessors, accessorDecl{
			keyword: w.text(keyword),
			attrs:   w.attributes(acc),
			mods:    w.modifiers(acc),
			hasBody: hasBody(acc),
		})
	}
}

// fieldDecl reads the variable declaration of a field or event field:
// the shared type and one declarator per variable.
func (w *walker) fieldDecl(n *sitter.Node, m *memberDecl) *memberDecl {
	vd := childOfType(n, "variable_declaration")
	if vd == nil {
		return nil
	}
	if m.typ = w.typ(vd.ChildByFieldName("type")); m.typ == nil {
		return nil
	}
	for _, dn := range childrenOfType(vd, "variable_declarator") {
		d := declarator{name: w.name(dn.ChildByFieldName("name"))}
		if d.name == "" {
			continue
		}
		if d.init = w.assigned(dn); d.init != nil && d.init.kind == exprOther {
			w.log.Debug("initializer.unparsed", "file", w.file.path, "line", line(dn), "name", d.name, "node", d.init.name)
		}
		m.declarators = append(m.declarators, d)
	}
	return m
}

var operatorNames = map[string][2]string{
	// unary, binary
	"+":     {"op_UnaryPlus", "op_Addition"},
	"-":     {"op_UnaryNegation", "op_Subtraction"},
	"*":     {"", "op_Multiply"},
	"/":     {"", "op_Division"},
	"%":     {"", "op_Modulus"},
	"&":     {"", "op_BitwiseAnd"},
	"|":     {"", "op_BitwiseOr"},
	"^":     {"", "op_ExclusiveOr"},
	"<<":    {"", "op_LeftShift"},
	">>":    {"", "op_RightShift"},
	">>>":   {"", "op_UnsignedRightShift"},
	"==":    {"", "op_Equality"},
	"!=":    {"", "op_Inequality"},
	"<":     {"", "op_LessThan"},
	">":     {"", "op_GreaterThan"},
	"<=":    {"", "op_LessThanOrEqual"},
	">=":    {"", "op_GreaterThanOrEqual"},
	"!":     {"op_LogicalNot", ""},
	"~":     {"op_OnesComplement", ""},
	"++":    {"op_Increment", ""},
	"--":    {"op_Decrement", ""},
	"true":  {"op_True", ""},
	"false": {"op_False", ""},
}

func operatorMethodName(op string, arity int) string {
	names, ok := operatorNames[op]
	if !ok {
		return "op_" + op
	}
	if arity == 1 && names[0] != "" || names[1] == "" {
		return names[0]
	}
	return names[1]
}

// Node helpers.

// namedChildren returns the named children of n, comments excluded.
func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if named := namedChildren(n); len(named) > 0 {
		return named[0]
	}
	return nil
}

func childOfType(n *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == kind {
			return c
		}
	}
	return nil
}

func childrenOfType(n *sitter.Node, kind string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == kind {
			out = append(out, c)
		}
	}
	return out
}

func hasChildOfType(n *sitter.Node, kind string) bool {
	return childOfType(n, kind) != nil
}

// hasToken reports whether n has the anonymous child tok, such as a
// keyword or punctuation.
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

func countTokens(n *sitter.Node, tok string) int {
	count := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == tok {
			count++
		}
	}
	return count
}

// fieldType returns the node type of the field child of n, which for a
// token is its spelling.
func fieldType(n *sitter.Node, field string) string {
	if c := n.ChildByFieldName(field); c != nil {
		return c.Type()
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if len(s) > 60 {
		s = s[:60] + "..."
	}
	return s
}
