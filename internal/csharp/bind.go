package csharp

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/jward/apisurface/internal/metadata"
)

// libState is one unit being compiled.
type libState struct {
	unit         Unit
	lib          *metadata.Library
	files        []*fileSyntax
	universe     metadata.Universe
	globalUsings []usingSyntax
}

// typeSym tracks a type definition while it is bound: its partial
// declarations and how far binding has got.
type typeSym struct {
	lib       *libState
	t         *metadata.Type
	decls     []*typeDecl
	outer     *typeSym
	kind      declKind
	accessSet bool

	basesDone bool
	basesBusy bool
}

// env is the context names are resolved in.
type env struct {
	lib        *libState
	scope      *scope
	typ        *typeSym
	method     []*metadata.Type
	baseClause bool // resolving the base list of typ
	noUsings   bool // resolving a using alias target
}

func (e *env) withMethod(params []*metadata.Type) *env {
	cp := *e
	cp.method = params
	return &cp
}

// fieldInit is a field whose value comes from an initializer: a constant,
// an enum member or a static readonly field.
type fieldInit struct {
	field *metadata.Field
	init  *expr
	env   *env
	enum  bool
	prev  *metadata.Field // preceding enum member

	state uint8
	val   cval
	err   error
}

const (
	stateNew uint8 = iota
	stateBusy
	stateDone
)

type binder struct {
	log  *slog.Logger
	core *metadata.Library
	libs []*libState

	syms         map[*metadata.Type]*typeSym
	order        []*typeSym
	namespaces   map[string]bool
	placeholders map[string]*metadata.Type

	inits     map[*metadata.Field]*fieldInit
	initOrder []*fieldInit

	// deferred runs once every member of every type is declared:
	// parameter defaults and attributes, which need constants.
	deferred []func()
}

// newBinder prepares binding of states. core is nil when the core library
// itself is being compiled.
func newBinder(log *slog.Logger, core *metadata.Library, states []*libState) *binder {
	b := &binder{
		log:          log,
		core:         core,
		libs:         states,
		syms:         map[*metadata.Type]*typeSym{},
		namespaces:   map[string]bool{"": true},
		placeholders: map[string]*metadata.Type{},
		inits:        map[*metadata.Field]*fieldInit{},
	}
	if core == nil && len(states) > 0 {
		b.core = states[0].lib
	}
	for _, s := range states {
		libs := []*metadata.Library{s.lib}
		if b.core != s.lib {
			libs = append(libs, b.core)
		}
		for _, o := range states {
			if o != s {
				libs = append(libs, o.lib)
			}
		}
		s.universe = metadata.Universe{Libraries: libs}
		for _, f := range s.files {
			s.globalUsings = append(s.globalUsings, f.globalUsings...)
		}
		if s.unit.ImplicitUsings {
			s.globalUsings = append(s.globalUsings, implicitUsings()...)
		}
	}
	return b
}

func (b *binder) bind(ctx context.Context) error {
	// ---- Phase 1: declare every type definition ----
	for _, s := range b.libs {
		for _, f := range s.files {
			for _, d := range f.types {
				b.declareType(s, nil, d)
			}
		}
	}
	b.indexNamespaces()
	if err := ctx.Err(); err != nil {
		return err
	}

	// ---- Phase 2: base types, interfaces and generic constraints ----
	for _, sym := range b.order {
		b.ensureBases(sym)
	}
	for _, sym := range b.order {
		b.bindTypeConstraints(sym)
	}

	// ---- Phase 3: members ----
	for _, sym := range b.order {
		b.declareMembers(sym)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// ---- Phase 4: constants, defaults, attributes and field values ----
	for _, fi := range b.initOrder {
		if fi.field.IsLiteral() {
			b.constant(fi)
		}
	}
	for _, fn := range b.deferred {
		fn()
	}
	for _, fi := range b.initOrder {
		if !fi.field.IsLiteral() {
			b.staticValue(fi)
		}
	}

	// ---- Phase 5: compiler-emitted flags and library identity ----
	for _, sym := range b.order {
		b.markInterfaceImplementations(sym)
	}
	for _, s := range b.libs {
		b.bindLibrary(s)
	}
	return ctx.Err()
}

func kindOf(k declKind) metadata.Kind {
	switch k {
	case declStruct, declRecordStruct:
		return metadata.KindStruct
	case declInterface:
		return metadata.KindInterface
	case declEnum:
		return metadata.KindEnum
	}
	return metadata.KindClass
}

func metadataName(name string, arity int) string {
	if arity == 0 {
		return name
	}
	return name + "`" + strconv.Itoa(arity)
}

func (b *binder) declareType(s *libState, outer *typeSym, d *typeDecl) {
	name := metadataName(d.name, len(d.tparams))
	ns := d.scope.namespace
	full := name
	switch {
	case outer != nil:
		full = outer.t.FullName() + "+" + name
	case ns != "":
		full = ns + "." + name
	}

	sym := b.syms[s.lib.Lookup(full)]
	if sym != nil {
		if !d.mods.has(modPartial) {
			b.log.Warn("type.duplicate", "library", s.lib.Name, "type", full, "file", d.file, "line", d.line)
		}
		sym.decls = append(sym.decls, d)
	} else {
		t := &metadata.Type{Name: name, Namespace: ns, Kind: kindOf(d.kind), Access: metadata.AccessAssembly}
		if outer != nil {
			t.DeclaringType = outer.t
			t.Namespace = outer.t.Namespace
			t.Access = metadata.AccessPrivate
			if outer.kind == declInterface {
				t.Access = metadata.AccessPublic
			}
			for i, p := range outer.t.GenericParams {
				t.GenericParams = append(t.GenericParams, metadata.NewGenericParam(p.Name, i, t))
			}
		}
		for _, tp := range d.tparams {
			gp := metadata.NewGenericParam(tp.name, len(t.GenericParams), t)
			gp.Variance = tp.variance
			t.GenericParams = append(t.GenericParams, gp)
		}
		s.lib.Add(t)
		if outer != nil {
			outer.t.NestedTypes = append(outer.t.NestedTypes, t)
		}
		sym = &typeSym{lib: s, t: t, decls: []*typeDecl{d}, outer: outer, kind: d.kind}
		b.syms[t] = sym
		b.order = append(b.order, sym)
	}
	b.mergeTypeFlags(sym, d)

	for _, nd := range d.nested {
		b.declareType(s, sym, nd)
	}
}

func (b *binder) mergeTypeFlags(sym *typeSym, d *typeDecl) {
	t := sym.t
	if a, ok := d.mods.access(); ok && !sym.accessSet {
		t.Access = a
		sym.accessSet = true
	}
	switch d.kind {
	case declInterface:
		t.Abstract = true
	case declStruct, declRecordStruct, declEnum, declDelegate:
		t.Sealed = true
	}
	if d.mods.has(modStatic) {
		t.Abstract, t.Sealed = true, true
	}
	if d.mods.has(modAbstract) {
		t.Abstract = true
	}
	if d.mods.has(modSealed) {
		t.Sealed = true
	}
}

// indexNamespaces records every namespace that declares a type, so that
// qualified names can tell namespaces from types.
func (b *binder) indexNamespaces() {
	add := func(ns string) {
		for ns != "" && !b.namespaces[ns] {
			b.namespaces[ns] = true
			ns = parentNamespace(ns)
		}
	}
	for _, t := range b.core.Types {
		add(t.Namespace)
	}
	for _, s := range b.libs {
		for _, t := range s.lib.Types {
			add(t.Namespace)
		}
	}
}

func parentNamespace(ns string) string {
	for i := len(ns) - 1; i >= 0; i-- {
		if ns[i] == '.' {
			return ns[:i]
		}
	}
	return ""
}

func (b *binder) typeEnv(sym *typeSym, d *typeDecl) *env {
	return &env{lib: sym.lib, scope: d.scope, typ: sym}
}

// coreType returns a definition from the core library.
func (b *binder) coreType(fullName string) *metadata.Type {
	if t := b.core.Lookup(fullName); t != nil {
		return t
	}
	return b.placeholderNamed(fullName, 0)
}

func (b *binder) ensureBases(sym *typeSym) {
	if sym.basesDone || sym.basesBusy {
		return
	}
	sym.basesBusy = true
	defer func() {
		sym.basesBusy = false
		sym.basesDone = true
	}()

	t := sym.t
	var bases []*metadata.Type
	for _, d := range sym.decls {
		e := b.typeEnv(sym, d)
		e.baseClause = true
		for _, be := range d.bases {
			bt, ok := b.typeOf(e, be)
			if !ok {
				b.log.Warn("base.unresolved", "type", t.FullName(), "base", be.String(), "file", d.file, "line", d.line)
				continue
			}
			bases = append(bases, bt)
		}
	}

	switch sym.kind {
	case declEnum:
		t.BaseType = b.coreType("System.Enum")
		t.EnumUnderlying = b.coreType("System.Int32")
		if len(bases) > 0 {
			t.EnumUnderlying = bases[0]
		}
		return
	case declDelegate:
		t.BaseType = b.coreType("System.MulticastDelegate")
		return
	case declStruct, declRecordStruct:
		t.BaseType = b.coreType("System.ValueType")
	case declClass, declRecord:
		if t.FullName() != "System.Object" {
			t.BaseType = b.coreType("System.Object")
		}
		if len(bases) > 0 && !bases[0].IsInterface() {
			t.BaseType = bases[0]
			bases = bases[1:]
		}
	}
	for _, i := range bases {
		if !containsType(t.Interfaces, i) {
			t.Interfaces = append(t.Interfaces, i)
		}
	}
}

func containsType(list []*metadata.Type, t *metadata.Type) bool {
	for _, o := range list {
		if metadata.Identical(o, t) {
			return true
		}
	}
	return false
}

// bindTypeConstraints binds the where clauses of a generic type. The
// copies of an enclosing type's parameters inherit its constraints.
func (b *binder) bindTypeConstraints(sym *typeSym) {
	t := sym.t
	if sym.outer != nil {
		outer := sym.outer.t
		n := len(outer.GenericParams)
		view := outer.Instantiate(t.GenericParams[:n]...)
		for i, op := range outer.GenericParams {
			cp := t.GenericParams[i]
			cp.Constraint = op.Constraint
			for _, c := range op.Constraints {
				cp.Constraints = append(cp.Constraints, metadata.Substitute(c, view))
			}
		}
	}
	for _, d := range sym.decls {
		b.bindConstraints(b.typeEnv(sym, d), t.GenericParams, d.constraints)
	}
}

func (b *binder) bindConstraints(e *env, params []*metadata.Type, clauses []constraintSyntax) {
	for _, c := range clauses {
		var p *metadata.Type
		for _, gp := range params {
			if gp.Name == c.param {
				p = gp
			}
		}
		if p == nil {
			continue
		}
		if c.class {
			p.Constraint |= metadata.ConstraintReferenceType
		}
		if c.valueType {
			p.Constraint |= metadata.ConstraintValueType | metadata.ConstraintDefaultConstructor
			p.Constraints = append(p.Constraints, b.coreType("System.ValueType"))
		}
		if c.constructor {
			p.Constraint |= metadata.ConstraintDefaultConstructor
		}
		for _, ct := range c.types {
			bt, _ := b.typeOf(e, ct)
			p.Constraints = append(p.Constraints, bt)
		}
	}
}

// markInterfaceImplementations gives non-virtual public methods that
// implement an interface the type declares the flags a compiler emits for
// them: virtual, final and a new slot.
func (b *binder) markInterfaceImplementations(sym *typeSym) {
	t := sym.t
	if t.Kind != metadata.KindClass && t.Kind != metadata.KindStruct {
		return
	}
	var ifaces []*metadata.Type
	var walk func(list []*metadata.Type)
	walk = func(list []*metadata.Type) {
		for _, i := range list {
			if !containsType(ifaces, i) {
				ifaces = append(ifaces, i)
				walk(i.DeclaredInterfaces())
			}
		}
	}
	walk(t.Interfaces)

	for _, iface := range ifaces {
		for _, im := range iface.MethodList() {
			if im.IsStatic() {
				continue
			}
			for _, m := range t.Methods {
				if m.IsStatic() || m.IsVirtual() || m.ExplicitInterface != nil || m.Access != metadata.AccessPublic {
					continue
				}
				if metadata.SameSignature(m, im) {
					m.Flags |= metadata.MethodVirtual | metadata.MethodFinal | metadata.MethodNewSlot
				}
			}
		}
	}
}
