package render

import (
	"slices"
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

const (
	asyncStateMachineAttribute = "System.Runtime.CompilerServices.AsyncStateMachineAttribute"
	extensionAttribute         = "System.Runtime.CompilerServices.ExtensionAttribute"
	paramArrayAttribute        = "System.ParamArrayAttribute"
	editorBrowsableAttribute   = "System.ComponentModel.EditorBrowsableAttribute"
	editorBrowsableState       = "System.ComponentModel.EditorBrowsableState"
)

// hiddenAttributes are compiler and tooling bookkeeping, either noise or
// already expressed by the signature itself.
var hiddenAttributes = map[string]bool{
	"System.Diagnostics.CodeAnalysis.SuppressMessageAttribute":      true,
	"System.Diagnostics.DebuggerDisplayAttribute":                   true,
	"System.Diagnostics.DebuggerStepThroughAttribute":               true,
	"System.Diagnostics.DebuggerTypeProxyAttribute":                 true,
	"System.Runtime.CompilerServices.AsyncStateMachineAttribute":    true,
	"System.Runtime.CompilerServices.IteratorStateMachineAttribute": true,
	"System.Runtime.CompilerServices.ExtensionAttribute":            true,
	"System.Runtime.CompilerServices.TupleElementNamesAttribute":    true,
	"System.Reflection.DefaultMemberAttribute":                      true,
}

// actionNameAttributes render their single string argument.
var actionNameAttributes = map[string]bool{
	"System.Web.Http.ActionNameAttribute":          true,
	"System.Web.Mvc.ActionNameAttribute":           true,
	"Microsoft.AspNetCore.Mvc.ActionNameAttribute": true,
}

// Attribute renders a single custom attribute as "[Short(args)]", or ""
// when it is hidden or its type is not publicly visible.
func Attribute(a *metadata.Attribute) string {
	if a.Type == nil || !a.Type.IsPubliclyVisible() {
		return ""
	}
	full := a.Type.FullName()
	if hiddenAttributes[full] {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strings.TrimSuffix(a.Type.ClrName(), "Attribute"))
	b.WriteString(attributeArgs(full, a.Args))
	b.WriteByte(']')
	return b.String()
}

func attributeArgs(full string, args []any) string {
	if len(args) != 1 {
		return ""
	}
	switch {
	case actionNameAttributes[full]:
		if s, ok := args[0].(string); ok {
			return `("` + s + `")`
		}
	case full == editorBrowsableAttribute:
		if ev, ok := args[0].(metadata.EnumValue); ok && ev.Type != nil && ev.Type.FullName() == editorBrowsableState {
			return "(" + ev.String() + ")"
		}
	}
	return ""
}

// sortedAttributes orders attributes by type name, keeping the original
// order between equal names.
func sortedAttributes(attrs []*metadata.Attribute) []*metadata.Attribute {
	sorted := slices.Clone(attrs)
	slices.SortStableFunc(sorted, func(a, b *metadata.Attribute) int {
		return strings.Compare(attributeName(a), attributeName(b))
	})
	return sorted
}

func attributeName(a *metadata.Attribute) string {
	if a.Type == nil {
		return ""
	}
	return a.Type.ClrName()
}

// writeAttributes appends " [A] [B]" for the rendered attributes.
func writeAttributes(b *strings.Builder, attrs []*metadata.Attribute) {
	for _, a := range sortedAttributes(attrs) {
		if s := Attribute(a); s != "" {
			b.WriteByte(' ')
			b.WriteString(s)
		}
	}
}
