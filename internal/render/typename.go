package render

import (
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

// keywords maps built-in types to their language keyword.
var keywords = map[string]string{
	"System.Void":    "void",
	"System.Boolean": "bool",
	"System.Int16":   "short",
	"System.Int32":   "int",
	"System.Int64":   "long",
	"System.Single":  "float",
	"System.Object":  "object",
	"System.Byte":    "byte",
	"System.Double":  "double",
	"System.Decimal": "decimal",
	"System.Char":    "char",
	"System.String":  "string",
}

// TypeName renders a type reference. names are the tuple element names of
// the consuming slot; they apply to the outermost tuple reached through
// nullable and array wrappers, and an empty name is left out.
func TypeName(t *metadata.Type, names []string) string {
	var b strings.Builder
	writeTypeName(&b, t, names, false)
	return b.String()
}

// DeclaredTypeName renders a type definition as it is declared, with in and
// out on variant generic parameters.
func DeclaredTypeName(t *metadata.Type) string {
	var b strings.Builder
	writeTypeName(&b, t, nil, true)
	return b.String()
}

func writeTypeName(b *strings.Builder, t *metadata.Type, names []string, declaration bool) {
	if t == nil {
		return
	}
	if t.IsByRef() {
		t = t.Elem
	}
	switch {
	case t.IsNullable():
		writeTypeName(b, t.Args[0], names, false)
		b.WriteByte('?')
		return
	case t.IsArray():
		writeTypeName(b, t.Elem, names, false)
		b.WriteByte('[')
		b.WriteString(strings.Repeat(",", t.Rank-1))
		b.WriteByte(']')
		return
	case t.IsPointer(), t.IsByRef():
		b.WriteString(t.ClrName())
		return
	case t.IsGenericParam():
		b.WriteString(t.Name)
		return
	}

	def := t.Def()
	if kw, ok := keywords[def.FullName()]; ok {
		b.WriteString(kw)
		return
	}
	if t.IsValueTuple() {
		b.WriteByte('(')
		for i, arg := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTypeName(b, arg, nil, false)
			if i < len(names) && names[i] != "" {
				b.WriteByte(' ')
				b.WriteString(names[i])
			}
		}
		b.WriteByte(')')
		return
	}
	writeNestedName(b, def, t.GenericArguments(), declaration)
}

// writeNestedName writes def and its enclosing types joined by '+'. A
// nested type carries the generic parameters of its enclosing types first,
// so each enclosing type takes its share of args from the front and def
// shows only the rest.
func writeNestedName(b *strings.Builder, def *metadata.Type, args []*metadata.Type, declaration bool) {
	own := args
	if outer := def.DeclaringType; outer != nil {
		n := min(len(outer.GenericParams), len(args))
		writeNestedName(b, outer, args[:n], false)
		b.WriteByte('+')
		own = args[n:]
	}
	b.WriteString(def.SimpleName())
	if len(own) == 0 {
		return
	}
	b.WriteByte('<')
	for i, arg := range own {
		if i > 0 {
			b.WriteString(", ")
		}
		if declaration && arg.IsGenericParam() {
			b.WriteString(variancePrefix(arg))
		}
		writeTypeName(b, arg, nil, false)
	}
	b.WriteByte('>')
}
