// Package diff compares two extracted library sets.
//
// Elements are paired by identity: libraries, namespaces and types by name,
// members by their full signature text. A member whose signature changed is
// therefore reported as one removal and one addition. Subtrees that are
// equivalent on both sides contribute nothing.
package diff

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jward/apisurface/internal/model"
)

//go:generate go tool stringer -type=Change -output=change_string.go

// Change classifies a reported element.
type Change uint8

const (
	Modified Change = iota
	Added
	Removed
)

// Report is the difference between two library sets. Libraries
// keep the order in which they were first seen, old set first.
type Report struct {
	Libraries []*Library
}

type Library struct {
	Name       string
	Display    string
	Change     Change
	Namespaces []*Namespace
}

type Namespace struct {
	Name   string
	Change Change
	Types  []*Type
}

// Type is a changed type. Signature is the old signature when the type
// exists in the old set. OldSignature and NewSignature are set when the
// declaration line itself differs, including for added and removed types.
type Type struct {
	Name         string
	Kind         model.TypeKind
	Change       Change
	Signature    string
	OldSignature string
	NewSignature string
	Members      []Member
}

// SignatureChanged reports whether the type's own declaration differs.
func (t *Type) SignatureChanged() bool {
	return t.OldSignature != t.NewSignature
}

// Member is an added or removed member.
type Member struct {
	Change    Change
	Kind      model.MemberKind
	Signature string
}

// Empty reports whether the two sets were equivalent.
func (r *Report) Empty() bool {
	return r == nil || len(r.Libraries) == 0
}

// Summary counts added and removed members and changed type signatures.
type Summary struct {
	Added      int
	Removed    int
	Signatures int
}

func (r *Report) Summary() Summary {
	var s Summary
	if r == nil {
		return s
	}
	for _, l := range r.Libraries {
		for _, n := range l.Namespaces {
			for _, t := range n.Types {
				if t.SignatureChanged() {
					s.Signatures++
				}
				for _, m := range t.Members {
					switch m.Change {
					case Added:
						s.Added++
					case Removed:
						s.Removed++
					}
				}
			}
		}
	}
	return s
}

// Compare diffs before against after. Either set may be nil, which stands
// for an empty set.
func Compare(before, after *model.LibrarySet) *Report {
	r := &Report{}
	if before.Equivalent(after) {
		return r
	}
	c := comparer{fold: cases.Fold()}

	var names []string
	seen := map[string]bool{}
	for _, s := range []*model.LibrarySet{before, after} {
		if s == nil {
			continue
		}
		for _, l := range s.Libraries {
			if !seen[l.Name] {
				seen[l.Name] = true
				names = append(names, l.Name)
			}
		}
	}
	for _, name := range names {
		l1, l2 := before.Library(name), after.Library(name)
		if l1 != nil && l2 != nil && l1.Equivalent(l2) {
			continue
		}
		if l := c.library(l1, l2); l.Change != Modified || len(l.Namespaces) > 0 {
			r.Libraries = append(r.Libraries, l)
		}
	}
	return r
}

type comparer struct {
	fold cases.Caser
}

func changeOf(oldPresent, newPresent bool) Change {
	switch {
	case !oldPresent:
		return Added
	case !newPresent:
		return Removed
	}
	return Modified
}

func (c *comparer) library(l1, l2 *model.Library) *Library {
	shown := l2
	if shown == nil {
		shown = l1
	}
	out := &Library{Name: shown.Name, Display: shown.Display, Change: changeOf(l1 != nil, l2 != nil)}

	var names []string
	for _, l := range []*model.Library{l1, l2} {
		if l == nil {
			continue
		}
		for _, n := range l.Namespaces {
			names = append(names, n.Name)
		}
	}
	for _, name := range c.foldSorted(names) {
		n1, n2 := l1.Namespace(name), l2.Namespace(name)
		if n1 != nil && n2 != nil && n1.Equivalent(n2) {
			continue
		}
		if n := c.namespace(name, n1, n2); n.Change != Modified || len(n.Types) > 0 {
			out.Namespaces = append(out.Namespaces, n)
		}
	}
	return out
}

func (c *comparer) namespace(name string, n1, n2 *model.Namespace) *Namespace {
	out := &Namespace{Name: name, Change: changeOf(n1 != nil, n2 != nil)}

	var names []string
	for _, n := range []*model.Namespace{n1, n2} {
		if n == nil {
			continue
		}
		for _, t := range n.Types {
			names = append(names, t.Name)
		}
	}
	for _, name := range c.foldSorted(names) {
		t1, t2 := n1.Type(name), n2.Type(name)
		if t1 != nil && t2 != nil && t1.Equivalent(t2) {
			continue
		}
		// Members that only moved leave a type with nothing to report.
		if t := c.typ(t1, t2); t.Change != Modified || len(t.Members) > 0 || t.SignatureChanged() {
			out.Types = append(out.Types, t)
		}
	}
	return out
}

func (c *comparer) typ(t1, t2 *model.Type) *Type {
	shown := t1
	if shown == nil {
		shown = t2
	}
	out := &Type{
		Name:      shown.Name,
		Kind:      shown.Kind,
		Change:    changeOf(t1 != nil, t2 != nil),
		Signature: shown.Signature,
	}
	if t1 != nil {
		out.OldSignature = t1.Signature
	}
	if t2 != nil {
		out.NewSignature = t2.Signature
	}

	var sigs []string
	seen := map[string]bool{}
	for _, t := range []*model.Type{t1, t2} {
		if t == nil {
			continue
		}
		for _, m := range t.Members {
			if !seen[m.Signature] {
				seen[m.Signature] = true
				sigs = append(sigs, m.Signature)
			}
		}
	}
	if shown.Kind != model.Enum {
		sigs = c.foldSorted(sigs)
	}
	for _, sig := range sigs {
		m1, m2 := t1.Member(sig), t2.Member(sig)
		switch {
		case m1 != nil && m2 != nil:
			continue
		case m1 != nil:
			out.Members = append(out.Members, Member{Change: Removed, Kind: m1.Kind, Signature: sig})
		default:
			out.Members = append(out.Members, Member{Change: Added, Kind: m2.Kind, Signature: sig})
		}
	}
	return out
}

// foldSorted returns the distinct names ordered case-insensitively. Names
// that fold equal keep their first-seen order.
func (c *comparer) foldSorted(names []string) []string {
	type keyed struct{ name, key string }
	var out []keyed
	seen := map[string]bool{}
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, keyed{name: n, key: c.fold.String(n)})
	}
	slices.SortStableFunc(out, func(a, b keyed) int {
		return strings.Compare(a.key, b.key)
	})
	result := make([]string, len(out))
	for i, k := range out {
		result[i] = k.name
	}
	return result
}
