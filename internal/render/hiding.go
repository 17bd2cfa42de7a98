package render

import (
	"errors"
	"fmt"

	"github.com/jward/apisurface/internal/metadata"
)

// ErrAmbiguousHiding is returned when a method matches more than one
// visible method of the same base type. That takes a generic base whose
// methods collapse to one signature once its arguments are substituted.
var ErrAmbiguousHiding = errors.New("ambiguous hiding candidates")

// IsVisibleAccess reports whether members with access a can be reached from
// outside their library.
func IsVisibleAccess(a metadata.Access) bool {
	switch a {
	case metadata.AccessPublic, metadata.AccessFamily, metadata.AccessFamORAssem:
		return true
	}
	return false
}

// IsHiding reports whether m hides a method of the same shape declared
// higher in the hierarchy instead of overriding or implementing it.
//
// On interfaces any visible same-shaped method of an inherited interface is
// hidden. On classes and structs the nearest base type with a visible
// candidate of the same static-ness must have exactly one, and m hides it
// unless m reuses its virtual slot.
func IsHiding(m *metadata.Method) (bool, error) {
	t := m.DeclaringType
	if t == nil || t.IsEnum() || !IsVisibleAccess(m.Access) {
		return false, nil
	}

	if t.IsInterface() {
		for _, iface := range t.AllInterfaces() {
			for _, c := range iface.MethodList() {
				if IsVisibleAccess(c.Access) && sameShape(m, c) {
					return true, nil
				}
			}
		}
		return false, nil
	}

	// The nearest base type declaring a match shadows those further up.
	for base := t.Base(); base != nil; base = base.Base() {
		var candidates []*metadata.Method
		for _, c := range base.MethodList() {
			if IsVisibleAccess(c.Access) && c.IsStatic() == m.IsStatic() && sameShape(m, c) {
				candidates = append(candidates, c)
			}
		}
		switch len(candidates) {
		case 0:
			continue
		case 1:
			return !m.ReusesSlot(), nil
		}
		return false, fmt.Errorf("%s: %d methods of %s match: %w", m, len(candidates), TypeName(base, nil), ErrAmbiguousHiding)
	}
	return false, nil
}

func sameShape(m, c *metadata.Method) bool {
	return m.Name == c.Name && len(m.GenericParams) == len(c.GenericParams) && metadata.SameParams(m, c)
}
