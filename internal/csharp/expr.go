package csharp

import (
	sitter "github.com/smacker/go-tree-sitter"
)

type exprKind uint8

const (
	exprLiteral exprKind = iota
	exprName
	exprMember
	exprUnary
	exprBinary
	exprCond
	exprCast
	exprDefault
	exprTypeof
	exprSizeof
	exprNameof
	exprNew
	exprCall
	exprIndex
	exprChecked
	exprTuple
	exprArray
	exprOther
)

// expr is an expression as written. Only the forms that can appear in
// constant initializers, parameter defaults, attribute arguments and simple
// static initializers are modelled; anything else is exprOther, which never
// evaluates.
type expr struct {
	kind  exprKind
	lit   literal
	op    string
	name  string
	targs []*typeExpr
	x     *expr
	y     *expr
	z     *expr
	typ   *typeExpr
	list  []*expr
}

// expr reads an expression node.
func (w *walker) expr(n *sitter.Node) *expr {
	if n == nil {
		return &expr{kind: exprOther}
	}
	switch kind := n.Type(); kind {
	case "integer_literal":
		return &expr{kind: exprLiteral, lit: literal{kind: litInt, text: w.text(n)}}
	case "real_literal":
		return &expr{kind: exprLiteral, lit: literal{kind: litReal, text: w.text(n)}}
	case "string_literal", "verbatim_string_literal", "raw_string_literal":
		return &expr{kind: exprLiteral, lit: literal{kind: litString, text: decodeString(w.text(n))}}
	case "interpolated_string_expression":
		if hasChildOfType(n, "interpolation") {
			return &expr{kind: exprOther, name: kind}
		}
		return &expr{kind: exprLiteral, lit: literal{kind: litInterpolated, text: decodeString(w.text(n))}}
	case "character_literal":
		return &expr{kind: exprLiteral, lit: literal{kind: litChar, text: string(decodeChar(w.text(n)))}}
	case "boolean_literal":
		return &expr{kind: exprLiteral, lit: literal{kind: litBool, text: w.text(n)}}
	case "null_literal":
		return &expr{kind: exprLiteral, lit: literal{kind: litNull}}

	case "identifier", "predefined_type", "implicit_type":
		return &expr{kind: exprName, name: identName(w.text(n))}
	case "generic_name":
		return &expr{kind: exprName, name: identName(w.text(n.NamedChild(0))), targs: w.typeArgs(n)}
	case "alias_qualified_name":
		// global::System.X and extern aliases resolve from the root.
		return w.expr(n.ChildByFieldName("name"))
	case "qualified_name":
		return w.memberExpr(w.expr(n.ChildByFieldName("qualifier")), n.ChildByFieldName("name"))
	case "member_access_expression":
		return w.memberExpr(w.expr(n.ChildByFieldName("expression")), n.ChildByFieldName("name"))
	case "conditional_access_expression":
		binding := childOfType(n, "member_binding_expression")
		if binding == nil {
			return &expr{kind: exprOther, name: kind}
		}
		return w.memberExpr(w.expr(n.ChildByFieldName("condition")), binding.ChildByFieldName("name"))

	case "parenthesized_expression":
		return w.expr(firstNamed(n))
	case "prefix_unary_expression":
		return &expr{kind: exprUnary, op: n.Child(0).Type(), x: w.expr(firstNamed(n))}
	case "postfix_unary_expression":
		// x++, x-- and the null-forgiving x! keep the operand's value.
		return w.expr(firstNamed(n))
	case "binary_expression":
		return &expr{
			kind: exprBinary,
			op:   fieldType(n, "operator"),
			x:    w.expr(n.ChildByFieldName("left")),
			y:    w.expr(n.ChildByFieldName("right")),
		}
	case "conditional_expression":
		return &expr{
			kind: exprCond,
			x:    w.expr(n.ChildByFieldName("condition")),
			y:    w.expr(n.ChildByFieldName("consequence")),
			z:    w.expr(n.ChildByFieldName("alternative")),
		}
	case "cast_expression":
		return w.typed(&expr{kind: exprCast, x: w.expr(n.ChildByFieldName("value"))}, n)
	case "default_expression":
		if n.ChildByFieldName("type") == nil {
			return &expr{kind: exprDefault}
		}
		return w.typed(&expr{kind: exprDefault}, n)
	case "typeof_expression":
		return w.typed(&expr{kind: exprTypeof}, n)
	case "sizeof_expression":
		return w.typed(&expr{kind: exprSizeof}, n)
	case "checked_expression":
		return &expr{kind: exprChecked, op: n.Child(0).Type(), x: w.expr(firstNamed(n))}
	case "invocation_expression":
		fn := n.ChildByFieldName("function")
		args := w.args(n.ChildByFieldName("arguments"))
		if fn != nil && fn.Type() == "identifier" && w.text(fn) == "nameof" && len(args) == 1 {
			return &expr{kind: exprNameof, x: args[0]}
		}
		return &expr{kind: exprCall, x: w.expr(fn), list: args}
	case "object_creation_expression":
		x := w.typed(&expr{kind: exprNew}, n)
		if x.kind != exprNew {
			return x
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			x.list = w.args(args)
		}
		if n.ChildByFieldName("initializer") != nil {
			x.op = "init"
		}
		return x
	case "implicit_object_creation_expression":
		x := &expr{kind: exprNew}
		if args := childOfType(n, "argument_list"); args != nil {
			x.list = w.args(args)
		}
		if hasChildOfType(n, "initializer_expression") {
			x.op = "init"
		}
		return x
	case "array_creation_expression", "implicit_array_creation_expression", "initializer_expression",
		"stackalloc_expression", "implicit_stackalloc_expression":
		return &expr{kind: exprArray}
	case "element_access_expression":
		return &expr{kind: exprIndex, x: w.expr(n.ChildByFieldName("expression"))}
	case "tuple_expression":
		x := &expr{kind: exprTuple}
		for _, a := range childrenOfType(n, "argument") {
			x.list = append(x.list, w.argument(a))
		}
		return x
	}
	return &expr{kind: exprOther, name: n.Type()}
}

// typed sets the type of x from the type field of n. A type that cannot
// be read makes the whole expression exprOther.
func (w *walker) typed(x *expr, n *sitter.Node) *expr {
	if x.typ = w.typ(n.ChildByFieldName("type")); x.typ == nil {
		return &expr{kind: exprOther, name: n.Type()}
	}
	return x
}

func (w *walker) memberExpr(x *expr, name *sitter.Node) *expr {
	if name == nil {
		return &expr{kind: exprOther}
	}
	m := &expr{kind: exprMember, x: x}
	if name.Type() == "generic_name" {
		m.name = identName(w.text(name.NamedChild(0)))
		m.targs = w.typeArgs(name)
		return m
	}
	m.name = identName(w.text(name))
	return m
}

// args reads an argument list. Names and ref kinds of arguments are
// dropped.
func (w *walker) args(n *sitter.Node) []*expr {
	if n == nil {
		return nil
	}
	var out []*expr
	for _, a := range childrenOfType(n, "argument") {
		out = append(out, w.argument(a))
	}
	return out
}

func (w *walker) argument(n *sitter.Node) *expr {
	named := namedChildren(n)
	if len(named) == 0 {
		return w.expr(nil)
	}
	return w.expr(named[len(named)-1])
}

// assigned returns the expression after the '=' among the children of n,
// or nil.
func (w *walker) assigned(n *sitter.Node) *expr {
	seen := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch {
		case !c.IsNamed() && c.Type() == "=":
			seen = true
		case seen && c.IsNamed() && c.Type() != "comment":
			return w.expr(c)
		}
	}
	return nil
}
