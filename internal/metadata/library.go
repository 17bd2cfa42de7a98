package metadata

import "fmt"

// DefaultVersion is the version of a library that declares none.
const DefaultVersion = "1.0.0.0"

// Library is a compiled library (an assembly): its identity and the type
// definitions it declares.
type Library struct {
	Name        string
	Version     string
	FileVersion string
	Attributes  []*Attribute

	// Types lists every definition, nested types included, in declaration
	// order.
	Types []*Type

	index map[string]*Type
}

// NewLibrary creates an empty library.
func NewLibrary(name string) *Library {
	return &Library{Name: name, Version: DefaultVersion, FileVersion: DefaultVersion, index: map[string]*Type{}}
}

// Display is the library's display string.
func (l *Library) Display() string {
	return fmt.Sprintf("%s (File Version %s, Assembly Version %s)", l.Name, l.FileVersion, l.Version)
}

// FullName is the library identity in assembly-name form.
func (l *Library) FullName() string {
	return fmt.Sprintf("%s, Version=%s, Culture=neutral, PublicKeyToken=null", l.Name, l.Version)
}

// Add registers a definition with the library.
func (l *Library) Add(t *Type) {
	if l.index == nil {
		l.index = map[string]*Type{}
	}
	t.Library = l
	l.Types = append(l.Types, t)
	l.index[t.FullName()] = t
}

// Lookup finds a definition by full metadata name ("Ns.Outer+Inner`1").
func (l *Library) Lookup(fullName string) *Type {
	return l.index[fullName]
}

// Universe is an ordered set of libraries searched for type definitions.
type Universe struct {
	Libraries []*Library
}

// Lookup returns the first definition with the given full name.
func (u *Universe) Lookup(fullName string) *Type {
	for _, l := range u.Libraries {
		if t := l.Lookup(fullName); t != nil {
			return t
		}
	}
	return nil
}

// MustLookup is Lookup for names that are known to exist.
func (u *Universe) MustLookup(fullName string) *Type {
	t := u.Lookup(fullName)
	if t == nil {
		panic("metadata: unknown type " + fullName)
	}
	return t
}
