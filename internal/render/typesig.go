package render

import (
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

var kindWords = [...]string{
	metadata.KindClass:     "class",
	metadata.KindStruct:    "struct",
	metadata.KindInterface: "interface",
	metadata.KindEnum:      "enum",
}

func typeAccess(t *metadata.Type) string {
	switch t.Access {
	case metadata.AccessPublic:
		return "public"
	case metadata.AccessFamily:
		return "protected"
	case metadata.AccessFamORAssem:
		return "protected internal"
	case metadata.AccessFamANDAssem:
		return "private protected"
	}
	return ""
}

// TypeSignature renders the declaration line of a type definition:
//
//	public sealed class Name<T> : Base, IFace where T : struct [Attr]
//
// The base type is left out when it is System.Object. A class lists an
// interface only if it provides an implementation of one of its methods
// itself; interfaces list every inherited interface.
func TypeSignature(t *metadata.Type) string {
	var b strings.Builder
	if a := typeAccess(t); a != "" {
		b.WriteString(a)
	}
	if t.Kind == metadata.KindClass {
		switch {
		case t.Abstract && t.Sealed:
			b.WriteString(" static")
		case t.Abstract:
			b.WriteString(" abstract")
		case t.Sealed:
			b.WriteString(" sealed")
		}
	}
	b.WriteByte(' ')
	b.WriteString(kindWords[t.Kind])
	b.WriteByte(' ')
	b.WriteString(DeclaredTypeName(t))

	if !t.IsEnum() {
		var inherits []string
		if t.IsClass() && t.BaseType != nil && t.BaseType.FullName() != "System.Object" {
			inherits = append(inherits, TypeName(t.BaseType, nil))
		}
		for _, iface := range t.AllInterfaces() {
			if !t.IsInterface() && !implementsDirectly(t, iface) {
				continue
			}
			if iface.IsPubliclyVisible() {
				inherits = append(inherits, TypeName(iface, nil))
			}
		}
		if len(inherits) > 0 {
			b.WriteString(" : ")
			b.WriteString(strings.Join(inherits, ", "))
		}
	}

	if c := Constraints(t.GenericParams); c != "" {
		b.WriteByte(' ')
		b.WriteString(c)
	}
	writeAttributes(&b, t.Attributes)
	return strings.TrimSpace(b.String())
}

func implementsDirectly(t, iface *metadata.Type) bool {
	for _, e := range t.InterfaceMap(iface) {
		if e.Target != nil && e.Target.DeclaringType != nil && e.Target.DeclaringType.Def() == t {
			return true
		}
	}
	return false
}
