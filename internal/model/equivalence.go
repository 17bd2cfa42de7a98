package model

// Equivalence is structural equality on rendered text. Members compare by
// signature; types by signature and their member lists; namespaces and
// libraries by name and their child lists. Children are compared pairwise
// in order, so a reordering is a difference.
//
// A nil value is equivalent only to nil.

// Equivalent reports whether s and o describe the same surface.
func (s *LibrarySet) Equivalent(o *LibrarySet) bool {
	if s == nil || o == nil {
		return s == o
	}
	return equivalentLists(s.Libraries, o.Libraries, (*Library).Equivalent)
}

func (l *Library) Equivalent(o *Library) bool {
	if l == nil || o == nil {
		return l == o
	}
	return l.Name == o.Name && equivalentLists(l.Namespaces, o.Namespaces, (*Namespace).Equivalent)
}

func (n *Namespace) Equivalent(o *Namespace) bool {
	if n == nil || o == nil {
		return n == o
	}
	return n.Name == o.Name && equivalentLists(n.Types, o.Types, (*Type).Equivalent)
}

func (t *Type) Equivalent(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Signature == o.Signature && equivalentLists(t.Members, o.Members, (*Member).Equivalent)
}

func (m *Member) Equivalent(o *Member) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.Signature == o.Signature
}

func equivalentLists[T any](a, b []T, eq func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eq(a[i], b[i]) {
			return false
		}
	}
	return true
}
