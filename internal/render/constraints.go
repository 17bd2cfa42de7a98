package render

import (
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

// Constraints renders the where clauses for params, e.g.
// "where T1 : class, new() where T2 : struct". Parameters without
// constraints contribute nothing.
func Constraints(params []*metadata.Type) string {
	var b strings.Builder
	for _, p := range params {
		var items []string
		for _, c := range p.Constraints {
			// struct is encoded as a System.ValueType constraint.
			if c.Form == metadata.FormDefinition && c.FullName() == "System.ValueType" {
				continue
			}
			items = append(items, TypeName(c, nil))
		}
		if p.Constraint&metadata.ConstraintValueType != 0 {
			items = append(items, "struct")
		} else {
			if p.Constraint&metadata.ConstraintReferenceType != 0 {
				items = append(items, "class")
			}
			if p.Constraint&metadata.ConstraintDefaultConstructor != 0 {
				items = append(items, "new()")
			}
		}
		if len(items) == 0 {
			continue
		}
		b.WriteString(" where ")
		b.WriteString(p.Name)
		b.WriteString(" : ")
		b.WriteString(strings.Join(items, ", "))
	}
	return strings.TrimSpace(b.String())
}
