package render

import (
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

// IsExportedMethod reports whether m belongs to the visible surface of its
// declaring type. Special-name methods other than operators are left out.
func IsExportedMethod(m *metadata.Method) bool {
	if m == nil || (m.IsSpecialName() && !strings.HasPrefix(m.Name, "op_")) {
		return false
	}
	return isExportedMethod(m)
}

// isExportedMethod applies to methods and accessors alike. Overrides are
// only listed when they seal the slot on a type that is not itself sealed.
func isExportedMethod(m *metadata.Method) bool {
	if m == nil || m.DeclaringType.IsEnum() {
		return false
	}
	if m.ReusesSlot() && (m.DeclaringType.Def().Sealed || !m.IsFinal()) {
		return false
	}
	return IsVisibleAccess(m.Access)
}

func IsExportedConstructor(m *metadata.Method) bool { return IsVisibleAccess(m.Access) }

// IsExportedProperty reports whether either accessor of p is exported.
func IsExportedProperty(p *metadata.Property) bool {
	return isExportedMethod(p.Getter) || isExportedMethod(p.Setter)
}

func IsExportedEvent(e *metadata.Event) bool {
	return isExportedMethod(e.Adder) || isExportedMethod(e.Remover)
}

func IsExportedField(f *metadata.Field) bool {
	return !f.IsSpecialName() && IsVisibleAccess(f.Access)
}

// IsExportedDelegate reports whether a nested type is a delegate rendered
// as a member of its enclosing type.
func IsExportedDelegate(t *metadata.Type) bool {
	return t.IsDelegate() && t.IsPubliclyVisible()
}
