// Package model is the extracted API surface: a tree of libraries,
// namespaces, types and members, each identified for comparison purposes by
// its rendered signature text.
//
// Every container keeps its children in a meaningful order. Two extractions
// of the same surface produce identical trees, which is what makes them
// comparable with the diff engine.
package model

import "fmt"

//go:generate go tool stringer -type=TypeKind,MemberKind -output=kind_string.go

// TypeKind is the declaration kind of a type.
type TypeKind uint8

const (
	Class TypeKind = iota
	Struct
	Interface
	Enum
)

// MemberKind is the kind of a type member.
type MemberKind uint8

const (
	Constructor MemberKind = iota
	Event
	Field
	Method
	Property
	Delegate
)

// ParseTypeKind is the inverse of TypeKind.String.
func ParseTypeKind(s string) (TypeKind, error) {
	for k := Class; k <= Enum; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown type kind %q", s)
}

// ParseMemberKind is the inverse of MemberKind.String.
func ParseMemberKind(s string) (MemberKind, error) {
	for k := Constructor; k <= Delegate; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown member kind %q", s)
}

// LibrarySet is the root of an extraction. Libraries are sorted by their
// identity name.
type LibrarySet struct {
	Libraries []*Library
}

// Library is one compiled library. Display carries the name together with
// the version information.
type Library struct {
	Name       string
	Display    string
	Namespaces []*Namespace
}

// Namespace holds the visible types of one namespace, sorted by full name.
type Namespace struct {
	Name  string
	Types []*Type
}

// Type is a visible type with its visible members. Enum members keep their
// declaration order; the members of other types are grouped by kind and
// sorted by name.
type Type struct {
	Name      string
	Kind      TypeKind
	Signature string
	Members   []*Member
}

// Member is a visible member of a type.
type Member struct {
	Name      string
	Kind      MemberKind
	Signature string
}

// Library returns the library with the given name, or nil.
func (s *LibrarySet) Library(name string) *Library {
	if s == nil {
		return nil
	}
	for _, l := range s.Libraries {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Namespace returns the namespace with the given name, or nil.
func (l *Library) Namespace(name string) *Namespace {
	if l == nil {
		return nil
	}
	for _, n := range l.Namespaces {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Type returns the type with the given name, or nil.
func (n *Namespace) Type(name string) *Type {
	if n == nil {
		return nil
	}
	for _, t := range n.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Member returns the first member with the given signature, or nil.
func (t *Type) Member(signature string) *Member {
	if t == nil {
		return nil
	}
	for _, m := range t.Members {
		if m.Signature == signature {
			return m
		}
	}
	return nil
}

// Counts summarizes the size of a set.
type Counts struct {
	Libraries  int
	Namespaces int
	Types      int
	Members    int
}

// Counts walks the set and counts its elements.
func (s *LibrarySet) Counts() Counts {
	var c Counts
	if s == nil {
		return c
	}
	c.Libraries = len(s.Libraries)
	for _, l := range s.Libraries {
		c.Namespaces += len(l.Namespaces)
		for _, n := range l.Namespaces {
			c.Types += len(n.Types)
			for _, t := range n.Types {
				c.Members += len(t.Members)
			}
		}
	}
	return c
}
