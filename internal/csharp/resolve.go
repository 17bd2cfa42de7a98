package csharp

import (
	"strconv"
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

// typeOf resolves a type as written in source. Names that resolve to
// nothing become placeholder definitions so that signatures still render;
// ok is false when any part of te was unresolved.
func (b *binder) typeOf(e *env, te *typeExpr) (*metadata.Type, bool) {
	switch te.kind {
	case typeArray:
		elem, ok := b.typeOf(e, te.elem)
		return metadata.ArrayOf(elem, te.rank), ok
	case typePointer:
		elem, ok := b.typeOf(e, te.elem)
		return metadata.PointerOf(elem), ok
	case typeNullable:
		elem, ok := b.typeOf(e, te.elem)
		if elem.IsValueType() && !elem.IsNullable() {
			return b.coreType("System.Nullable`1").Instantiate(elem), ok
		}
		return elem, ok
	case typeTuple:
		all := true
		elems := make([]*metadata.Type, len(te.elems))
		for i, el := range te.elems {
			t, ok := b.typeOf(e, el.typ)
			elems[i] = t
			all = all && ok
		}
		return b.tupleType(elems), all
	}

	t, ok := b.namedType(e, te)
	if !ok {
		b.log.Debug("type.unresolved", "type", te.String(), "library", e.lib.lib.Name)
		return b.placeholder(e, te), false
	}
	return t, true
}

// tupleType builds System.ValueTuple`N, nesting the elements past the
// seventh in the TRest argument.
func (b *binder) tupleType(elems []*metadata.Type) *metadata.Type {
	if len(elems) <= 7 {
		return b.coreType(metadataName("System.ValueTuple", len(elems))).Instantiate(elems...)
	}
	args := append(append([]*metadata.Type(nil), elems[:7]...), b.tupleType(elems[7:]))
	return b.coreType("System.ValueTuple`8").Instantiate(args...)
}

// tupleNames lists the element names of every tuple in te, outermost
// tuple first, the way TupleElementNamesAttribute stores them. It is nil
// when no tuple has a name.
func tupleNames(te *typeExpr) []string {
	var names []string
	named := false
	var walk func(te *typeExpr)
	walk = func(te *typeExpr) {
		if te == nil {
			return
		}
		switch te.kind {
		case typeTuple:
			for _, el := range te.elems {
				names = append(names, el.name)
				named = named || el.name != ""
			}
			for _, el := range te.elems {
				walk(el.typ)
			}
		case typeArray, typeNullable, typePointer:
			walk(te.elem)
		case typeNamed:
			for _, seg := range te.segs {
				for _, a := range seg.args {
					walk(a)
				}
			}
		}
	}
	walk(te)
	if !named {
		return nil
	}
	return names
}

func (b *binder) namedType(e *env, te *typeExpr) (*metadata.Type, bool) {
	segs := te.segs
	if te.alias == "" && len(segs) == 1 && segs[0].genericArity() == 0 {
		if kw, ok := predefinedTypes[segs[0].name]; ok {
			return b.coreType("System." + kw), true
		}
	}
	if te.alias != "" {
		ns := ""
		if te.alias != "global" {
			if target, isNs := b.lookupAliasNamespace(e, te.alias); isNs {
				ns = target
			}
		}
		return b.fromNamespace(e, ns, segs)
	}

	t, nsAlias := b.lookupSimple(e, segs[0])
	switch {
	case t != nil:
		return b.nestedChain(e, t, segs[1:])
	case nsAlias != "":
		return b.fromNamespace(e, nsAlias, segs[1:])
	}
	if len(segs) > 1 {
		for _, ns := range enclosingNamespaces(e.scope) {
			if t, ok := b.fromNamespace(e, ns, segs); ok {
				return t, true
			}
		}
	}
	return nil, false
}

// lookupSimple resolves the first segment of a name: method and type
// parameters, nested types of the enclosing types and their bases, then
// each enclosing namespace followed by the using directives of the
// declaration that encloses it. A using alias of a namespace is returned
// as nsAlias.
func (b *binder) lookupSimple(e *env, seg nameSeg) (t *metadata.Type, nsAlias string) {
	if seg.genericArity() == 0 {
		for i := len(e.method) - 1; i >= 0; i-- {
			if e.method[i].Name == seg.name {
				return e.method[i], ""
			}
		}
		if e.typ != nil {
			params := e.typ.t.GenericParams
			for i := len(params) - 1; i >= 0; i-- {
				if params[i].Name == seg.name {
					return params[i], ""
				}
			}
		}
	}

	for sym := e.typ; sym != nil; sym = sym.outer {
		if e.baseClause && sym == e.typ {
			continue
		}
		view := sym.t
		if sym != e.typ {
			view = sym.t.Instantiate(e.typ.t.GenericParams[:len(sym.t.GenericParams)]...)
		}
		if nt := b.findNested(e, view, seg); nt != nil {
			return nt, ""
		}
	}

	for sc := e.scope; sc != nil; sc = sc.parent {
		for _, ns := range contributedNamespaces(sc) {
			if t := b.lookupTop(e, ns, seg); t != nil {
				return t, ""
			}
		}
		if e.noUsings {
			continue
		}
		if t, alias := b.lookupUsings(e, sc.usings, seg); t != nil || alias != "" {
			return t, alias
		}
		if sc.parent == nil {
			if t, alias := b.lookupUsings(e, e.lib.globalUsings, seg); t != nil || alias != "" {
				return t, alias
			}
		}
	}
	if e.scope == nil {
		return b.lookupTop(e, "", seg), ""
	}
	return nil, ""
}

func (b *binder) lookupUsings(e *env, usings []usingSyntax, seg nameSeg) (*metadata.Type, string) {
	for _, u := range usings {
		switch {
		case u.alias != "":
			if u.alias != seg.name || seg.genericArity() != 0 {
				continue
			}
			if target := u.target.dotted(); u.target.isPlainName() && b.namespaces[target] {
				return nil, target
			}
			t, _ := b.typeOf(&env{lib: e.lib, noUsings: true}, u.target)
			return t, ""
		case u.static:
			t, ok := b.typeOf(&env{lib: e.lib, noUsings: true}, u.target)
			if !ok {
				continue
			}
			if nt := b.findNested(e, t, seg); nt != nil {
				return nt, ""
			}
		default:
			if t := b.lookupTop(e, u.target.dotted(), seg); t != nil {
				return t, ""
			}
		}
	}
	return nil, ""
}

// lookupAliasNamespace finds a using alias of a namespace in scope, for
// "alias::Name".
func (b *binder) lookupAliasNamespace(e *env, alias string) (string, bool) {
	check := func(usings []usingSyntax) (string, bool) {
		for _, u := range usings {
			if u.alias == alias && u.target.isPlainName() {
				return u.target.dotted(), true
			}
		}
		return "", false
	}
	for sc := e.scope; sc != nil; sc = sc.parent {
		if ns, ok := check(sc.usings); ok {
			return ns, true
		}
	}
	return check(e.lib.globalUsings)
}

// contributedNamespaces lists the namespaces a scope adds over its
// parent, innermost first: "namespace A.B" contributes A.B and A.
func contributedNamespaces(sc *scope) []string {
	if sc.parent == nil {
		return []string{sc.namespace}
	}
	stop := sc.parent.namespace
	var out []string
	for ns := sc.namespace; ns != stop && len(ns) > len(stop); ns = parentNamespace(ns) {
		out = append(out, ns)
	}
	return out
}

func enclosingNamespaces(sc *scope) []string {
	var out []string
	for ; sc != nil; sc = sc.parent {
		out = append(out, contributedNamespaces(sc)...)
	}
	if len(out) == 0 || out[len(out)-1] != "" {
		out = append(out, "")
	}
	return out
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}

// lookupTop finds a top-level type in a namespace across the libraries
// the current one can see. Types of other libraries must be public.
func (b *binder) lookupTop(e *env, ns string, seg nameSeg) *metadata.Type {
	full := qualify(ns, metadataName(seg.name, seg.genericArity()))
	for _, l := range e.lib.universe.Libraries {
		def := l.Lookup(full)
		if def == nil || def.DeclaringType != nil {
			continue
		}
		if l != e.lib.lib && def.Access != metadata.AccessPublic {
			continue
		}
		return b.instantiate(e, def, nil, seg)
	}
	return nil
}

// fromNamespace resolves segs relative to ns: leading segments extend the
// namespace until one names a type, and the rest are nested types.
func (b *binder) fromNamespace(e *env, ns string, segs []nameSeg) (*metadata.Type, bool) {
	for k := 0; k < len(segs); k++ {
		prefix := ns
		for _, s := range segs[:k] {
			prefix = qualify(prefix, s.name)
		}
		if t := b.lookupTop(e, prefix, segs[k]); t != nil {
			return b.nestedChain(e, t, segs[k+1:])
		}
		if segs[k].genericArity() > 0 {
			break
		}
	}
	return nil, false
}

func (b *binder) nestedChain(e *env, t *metadata.Type, rest []nameSeg) (*metadata.Type, bool) {
	for _, seg := range rest {
		nt := b.findNested(e, t, seg)
		if nt == nil {
			return nil, false
		}
		t = nt
	}
	return t, true
}

// findNested looks up a nested type of x or of one of its base types. The
// nested type's copies of the enclosing parameters take the arguments of
// the type it was found in.
func (b *binder) findNested(e *env, x *metadata.Type, seg nameSeg) *metadata.Type {
	want := metadataName(seg.name, seg.genericArity())
	seen := 0
	for c := x; c != nil && seen < 64; c = b.baseOf(c) {
		seen++
		def := c.Def()
		if def == nil {
			return nil
		}
		for _, nt := range def.NestedTypes {
			if nt.Name == want {
				return b.instantiate(e, nt, c.GenericArguments(), seg)
			}
		}
	}
	return nil
}

// baseOf returns the base type of c without building member views of
// generic instances, which must wait until every member is declared.
func (b *binder) baseOf(c *metadata.Type) *metadata.Type {
	def := c.Def()
	if def == nil {
		return nil
	}
	if sym := b.syms[def]; sym != nil {
		b.ensureBases(sym)
	}
	if def.BaseType == nil {
		return nil
	}
	return metadata.Substitute(def.BaseType, c)
}

// instantiate closes def over the enclosing arguments and the explicit
// arguments of seg. An unbound name such as List<> yields the definition.
func (b *binder) instantiate(e *env, def *metadata.Type, enclosing []*metadata.Type, seg nameSeg) *metadata.Type {
	if len(seg.args) == 0 && seg.arity > 0 {
		return def
	}
	args := append([]*metadata.Type(nil), enclosing...)
	for _, a := range seg.args {
		t, _ := b.typeOf(e, a)
		args = append(args, t)
	}
	if len(args) != len(def.GenericParams) {
		return def
	}
	return def.Instantiate(args...)
}

// placeholder stands in for a type that is not declared in any library
// being compiled: a public class named as written.
func (b *binder) placeholder(e *env, te *typeExpr) *metadata.Type {
	if te.kind != typeNamed || len(te.segs) == 0 {
		return b.placeholderNamed(te.String(), 0)
	}
	last := te.segs[len(te.segs)-1]
	prefix := make([]string, 0, len(te.segs)-1)
	for _, s := range te.segs[:len(te.segs)-1] {
		prefix = append(prefix, s.name)
	}
	full := qualify(strings.Join(prefix, "."), last.name)
	def := b.placeholderNamed(full, last.genericArity())
	if len(last.args) == 0 {
		return def
	}
	args := make([]*metadata.Type, len(last.args))
	for i, a := range last.args {
		args[i], _ = b.typeOf(e, a)
	}
	return def.Instantiate(args...)
}

func (b *binder) placeholderNamed(full string, arity int) *metadata.Type {
	key := metadataName(full, arity)
	if t, ok := b.placeholders[key]; ok {
		return t
	}
	ns, name := parentNamespace(full), full[strings.LastIndexByte(full, '.')+1:]
	t := &metadata.Type{
		Name:      metadataName(name, arity),
		Namespace: ns,
		Access:    metadata.AccessPublic,
		Kind:      metadata.KindClass,
	}
	for i := range arity {
		t.GenericParams = append(t.GenericParams, metadata.NewGenericParam("T"+strconv.Itoa(i+1), i, t))
	}
	b.placeholders[key] = t
	return t
}
