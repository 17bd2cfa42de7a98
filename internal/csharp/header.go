package csharp

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/apisurface/internal/metadata"
)

// Readers for the parts of a declaration header: types, attributes,
// modifiers, type parameters, constraints and parameters.

// typ reads a type node. Type syntax this model has no room for, such as
// function pointers, reads as void*.
func (w *walker) typ(n *sitter.Node) *typeExpr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "predefined_type", "implicit_type", "generic_name":
		return &typeExpr{kind: typeNamed, segs: []nameSeg{w.nameSeg(n)}}
	case "qualified_name":
		t := w.typ(n.ChildByFieldName("qualifier"))
		name := n.ChildByFieldName("name")
		if t == nil || t.kind != typeNamed || name == nil {
			return nil
		}
		t.segs = append(t.segs, w.nameSeg(name))
		return t
	case "alias_qualified_name":
		name := n.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		return &typeExpr{
			kind:  typeNamed,
			alias: identName(w.text(n.ChildByFieldName("alias"))),
			segs:  []nameSeg{w.nameSeg(name)},
		}
	case "array_type":
		// The leftmost rank specifier is the outermost array, and the
		// innermost node of the tree.
		var ranks []int
		for n.Type() == "array_type" {
			ranks = append(ranks, rankOf(n.ChildByFieldName("rank")))
			n = n.ChildByFieldName("type")
		}
		t := w.typ(n)
		if t == nil {
			return nil
		}
		for _, r := range ranks {
			t = &typeExpr{kind: typeArray, elem: t, rank: r}
		}
		return t
	case "nullable_type":
		return w.wrap(typeNullable, n.ChildByFieldName("type"))
	case "pointer_type":
		return w.wrap(typePointer, n.ChildByFieldName("type"))
	case "tuple_type":
		t := &typeExpr{kind: typeTuple}
		for _, el := range childrenOfType(n, "tuple_element") {
			et := w.typ(el.ChildByFieldName("type"))
			if et == nil {
				return nil
			}
			t.elems = append(t.elems, tupleElem{typ: et, name: w.name(el.ChildByFieldName("name"))})
		}
		return t
	case "ref_type", "scoped_type":
		return w.typ(n.ChildByFieldName("type"))
	case "function_pointer_type":
		return &typeExpr{kind: typePointer, elem: &typeExpr{kind: typeNamed, segs: []nameSeg{{name: "void"}}}}
	}
	return nil
}

func (w *walker) wrap(kind typeExprKind, elem *sitter.Node) *typeExpr {
	t := w.typ(elem)
	if t == nil {
		return nil
	}
	return &typeExpr{kind: kind, elem: t}
}

func rankOf(spec *sitter.Node) int {
	if spec == nil {
		return 1
	}
	return countTokens(spec, ",") + 1
}

// nameSeg reads an identifier or generic name.
func (w *walker) nameSeg(n *sitter.Node) nameSeg {
	if n.Type() != "generic_name" {
		return nameSeg{name: identName(w.text(n))}
	}
	seg := nameSeg{name: w.name(childOfType(n, "identifier"))}
	list := childOfType(n, "type_argument_list")
	if list == nil {
		return seg
	}
	seg.args = w.typeArgs(n)
	if len(seg.args) == 0 {
		// Dictionary<,> only has an arity.
		seg.arity = countTokens(list, ",") + 1
	}
	return seg
}

// typeArgs reads the type argument list of a generic name.
func (w *walker) typeArgs(n *sitter.Node) []*typeExpr {
	list := childOfType(n, "type_argument_list")
	if list == nil {
		return nil
	}
	var args []*typeExpr
	for _, c := range namedChildren(list) {
		if c.Type() == "attribute_list" {
			continue
		}
		if t := w.typ(c); t != nil {
			args = append(args, t)
		}
	}
	return args
}

// returnType reads the type in field of n. A by-ref return adds modRef to
// mods.
func (w *walker) returnType(n *sitter.Node, field string, mods *modifier) *typeExpr {
	t := n.ChildByFieldName(field)
	if t != nil && t.Type() == "ref_type" {
		*mods |= modRef
	}
	return w.typ(t)
}

// attributes reads the attribute lists among the children of n.
func (w *walker) attributes(n *sitter.Node) []*attrSyntax {
	var out []*attrSyntax
	for _, list := range childrenOfType(n, "attribute_list") {
		out = append(out, w.attributeList(list)...)
	}
	return out
}

func (w *walker) attributeList(list *sitter.Node) []*attrSyntax {
	target := ""
	if spec := childOfType(list, "attribute_target_specifier"); spec != nil && spec.ChildCount() > 0 {
		target = w.text(spec.Child(0))
	}
	var out []*attrSyntax
	for _, a := range childrenOfType(list, "attribute") {
		if attr := w.attribute(a, target); attr != nil {
			out = append(out, attr)
		}
	}
	return out
}

// globalAttributes reads "[assembly: A, B]".
func (w *walker) globalAttributes(n *sitter.Node) []*attrSyntax {
	target := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && (c.Type() == "assembly" || c.Type() == "module") {
			target = c.Type()
			break
		}
	}
	var out []*attrSyntax
	for _, a := range childrenOfType(n, "attribute") {
		if attr := w.attribute(a, target); attr != nil {
			out = append(out, attr)
		}
	}
	return out
}

func (w *walker) attribute(n *sitter.Node, target string) *attrSyntax {
	name := w.typ(n.ChildByFieldName("name"))
	if name == nil {
		return nil
	}
	a := &attrSyntax{target: target, name: name}
	args := childOfType(n, "attribute_argument_list")
	if args == nil {
		return a
	}
	for _, arg := range childrenOfType(args, "attribute_argument") {
		named := namedChildren(arg)
		if len(named) == 0 {
			continue
		}
		value := named[len(named)-1]
		switch {
		case hasToken(arg, "=") && len(named) > 1:
			a.named = append(a.named, namedArg{name: identName(w.text(named[0])), value: w.expr(value)})
		case value.Type() == "assignment_expression" && fieldType(value, "operator") == "=":
			left := value.ChildByFieldName("left")
			a.named = append(a.named, namedArg{name: identName(w.text(left)), value: w.expr(value.ChildByFieldName("right"))})
		default:
			// Positional, possibly with a "name:" label.
			a.args = append(a.args, w.expr(value))
		}
	}
	return a
}

// modifiers reads the modifier keywords among the children of n. The
// "ref" of a ref struct is not a modifier node but counts as one.
func (w *walker) modifiers(n *sitter.Node) modifier {
	var m modifier
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch {
		case c.Type() == "modifier":
			m |= modifierKeywords[w.text(c)]
		case !c.IsNamed() && c.Type() == "ref":
			m |= modRef
		}
	}
	return m
}

func (w *walker) typeParams(n *sitter.Node) []typeParamSyntax {
	list := n.ChildByFieldName("type_parameters")
	if list == nil {
		list = childOfType(n, "type_parameter_list")
	}
	if list == nil {
		return nil
	}
	var out []typeParamSyntax
	for _, tp := range childrenOfType(list, "type_parameter") {
		p := typeParamSyntax{name: w.name(tp.ChildByFieldName("name")), attrs: w.attributes(tp)}
		switch {
		case hasToken(tp, "in"):
			p.variance = metadata.Contravariant
		case hasToken(tp, "out"):
			p.variance = metadata.Covariant
		}
		out = append(out, p)
	}
	return out
}

func (w *walker) constraints(n *sitter.Node) []constraintSyntax {
	var out []constraintSyntax
	for _, clause := range childrenOfType(n, "type_parameter_constraints_clause") {
		c := constraintSyntax{param: w.name(childOfType(clause, "identifier"))}
		for _, tc := range childrenOfType(clause, "type_parameter_constraint") {
			if tn := tc.ChildByFieldName("type"); tn != nil {
				t := w.typ(tn)
				switch t.simpleName() {
				case "unmanaged":
					c.valueType = true
				case "notnull":
				default:
					if t != nil {
						c.types = append(c.types, t)
					}
				}
				continue
			}
			switch {
			case hasToken(tc, "class"):
				c.class = true
			case hasToken(tc, "struct"), hasToken(tc, "unmanaged"):
				c.valueType = true
			case hasChildOfType(tc, "constructor_constraint"):
				c.constructor = true
			}
		}
		out = append(out, c)
	}
	return out
}

// params reads a parameter list or bracketed parameter list. A params
// array is not wrapped in a parameter node, so parameters are told apart
// by the commas between them.
func (w *walker) params(list *sitter.Node) []*paramSyntax {
	if list == nil {
		return nil
	}
	var out []*paramSyntax
	var group []*sitter.Node
	flush := func() {
		if ps := w.param(group, len(out)); ps != nil {
			out = append(out, ps)
		}
		group = nil
	}
	for i := 0; i < int(list.ChildCount()); i++ {
		c := list.Child(i)
		switch c.Type() {
		case "(", ")", "[", "]", "comment":
		case ",":
			flush()
		case "parameter":
			for j := 0; j < int(c.ChildCount()); j++ {
				group = append(group, c.Child(j))
			}
		default:
			group = append(group, c)
		}
	}
	flush()
	return out
}

// param reads one parameter from its nodes: attributes, modifier
// keywords, the type, the name and an optional default. __arglist yields
// nil.
func (w *walker) param(nodes []*sitter.Node, position int) *paramSyntax {
	ps := &paramSyntax{position: position}
	var parts []*sitter.Node
scan:
	for i, c := range nodes {
		kind := c.Type()
		if kind == "modifier" {
			kind = w.text(c)
		}
		switch kind {
		case "attribute_list":
			ps.attrs = append(ps.attrs, w.attributeList(c)...)
		case "this":
			ps.this = true
		case "ref":
			ps.ref = true
		case "out":
			ps.out = true
		case "in":
			ps.in = true
		case "params":
			ps.params = true
		case "scoped", "readonly":
		case "=":
			for _, d := range nodes[i+1:] {
				if d.IsNamed() && d.Type() != "comment" {
					ps.def = w.expr(d)
					break
				}
			}
			break scan
		default:
			if c.IsNamed() && kind != "comment" {
				parts = append(parts, c)
			}
		}
	}
	if len(parts) < 2 {
		return nil
	}
	t := parts[0]
	if t.Type() == "ref_type" {
		ps.ref = true
	}
	ps.typ = w.typ(t)
	ps.name = w.name(parts[len(parts)-1])
	if ps.typ == nil {
		return nil
	}
	return ps
}
