// Package render turns metadata into canonical declaration text. It holds
// the accessibility and modifier rules, the hiding resolver, the type-name
// renderer and the signature renderers for types and every member kind.
//
// All renderers are pure functions of the metadata they are given: the same
// input always yields the same text.
package render

import (
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

// Accessibility is the rendered accessibility of a member. Private,
// internal and private protected members are never visible outside their
// library and all render as AccessNone.
type Accessibility uint8

const (
	AccessNone Accessibility = iota
	AccessProtected
	AccessProtectedInternal
	AccessPublic
)

// Modifier returns the modifier bit for a.
func (a Accessibility) Modifier() Modifiers {
	switch a {
	case AccessProtected:
		return ModProtected
	case AccessProtectedInternal:
		return ModProtectedInternal
	case AccessPublic:
		return ModPublic
	}
	return 0
}

func (a Accessibility) String() string { return a.Modifier().String() }

// Modifiers is a set of declaration modifiers. Bits are declared in the
// order they are written.
type Modifiers uint16

const (
	ModNew Modifiers = 1 << iota
	ModProtected
	ModProtectedInternal
	ModPublic
	ModStatic
	ModVirtual
	ModAbstract
	ModSealed
	ModOverride
	ModAsync
	ModReadonly
	ModConst
	ModEvent
)

var modifierWords = [...]string{
	"new",
	"protected",
	"protected internal",
	"public",
	"static",
	"virtual",
	"abstract",
	"sealed",
	"override",
	"async",
	"readonly",
	"const",
	"event",
}

// String renders the set as space-separated keywords.
func (m Modifiers) String() string {
	var words []string
	for i, w := range modifierWords {
		if m&(1<<i) != 0 {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

func accessibilityOf(a metadata.Access) Accessibility {
	switch a {
	case metadata.AccessPublic:
		return AccessPublic
	case metadata.AccessFamORAssem:
		return AccessProtectedInternal
	case metadata.AccessFamily:
		return AccessProtected
	}
	return AccessNone
}

// MethodAccessibility is the rendered accessibility of a method or
// accessor. Interface members render none; a nil method is AccessNone.
func MethodAccessibility(m *metadata.Method) Accessibility {
	if m == nil || m.DeclaringType.IsInterface() {
		return AccessNone
	}
	return accessibilityOf(m.Access)
}

// FieldAccessibility is the rendered accessibility of a field.
func FieldAccessibility(f *metadata.Field) Accessibility {
	if f.DeclaringType.IsInterface() {
		return AccessNone
	}
	return accessibilityOf(f.Access)
}

// PropertyAccessibility is the most visible accessibility of p's accessors.
func PropertyAccessibility(p *metadata.Property) Accessibility {
	return max(MethodAccessibility(p.Getter), MethodAccessibility(p.Setter))
}

// BaseModifiers computes the inheritance, hiding and async modifiers of a
// method or constructor. Interface members get no inheritance modifiers.
func BaseModifiers(m *metadata.Method) (Modifiers, error) {
	var mods Modifiers
	if !m.DeclaringType.IsInterface() {
		if m.IsStatic() {
			mods |= ModStatic
		}
		switch {
		case m.IsFinal() && m.IsVirtual():
			// Final virtual new-slot methods are implicit interface
			// implementations and carry no keyword.
			if !m.IsNewSlot() {
				mods |= ModSealed | ModOverride
			}
		case m.IsFinal():
			mods |= ModSealed
		case m.IsAbstract():
			mods |= ModAbstract
		case m.IsVirtual() && !m.IsConstructor:
			if m.ReusesSlot() {
				mods |= ModOverride
			} else {
				mods |= ModVirtual
			}
		}
	}
	if m.IsConstructor {
		return mods, nil
	}
	hiding, err := IsHiding(m)
	if err != nil {
		return 0, err
	}
	if hiding {
		mods |= ModNew
	}
	if m.HasAttribute(asyncStateMachineAttribute) {
		mods |= ModAsync
	}
	return mods, nil
}
