package csharp

import (
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

const (
	asyncStateMachineAttribute = "System.Runtime.CompilerServices.AsyncStateMachineAttribute"
	extensionAttribute         = "System.Runtime.CompilerServices.ExtensionAttribute"
	paramArrayAttribute        = "System.ParamArrayAttribute"
)

func (b *binder) declareMembers(sym *typeSym) {
	t := sym.t
	for _, d := range sym.decls {
		b.deferAttributes(&t.Attributes, b.typeEnv(sym, d), d.attrs, "type", true)
	}

	switch sym.kind {
	case declEnum:
		b.declareEnum(sym)
		return
	case declDelegate:
		b.declareDelegate(sym)
		return
	}

	skip := partialsToSkip(sym)
	for _, d := range sym.decls {
		e := b.typeEnv(sym, d)
		for _, m := range d.members {
			if skip[m] {
				continue
			}
			switch m.kind {
			case memberField:
				b.declareField(sym, e, m)
			case memberEventField, memberEvent:
				b.declareEvent(sym, e, m)
			case memberProperty, memberIndexer:
				b.declareProperty(sym, e, m)
			case memberMethod:
				b.declareMethod(sym, e, m)
			case memberConstructor:
				b.declareConstructor(sym, e, m)
			case memberOperator, memberConversion:
				b.declareOperator(sym, e, m)
			}
		}
	}

	if sym.kind == declRecord || sym.kind == declRecordStruct {
		b.declareRecord(sym)
		return
	}
	b.declareDefaultConstructor(sym)
}

// partialsToSkip picks one declaration of each partial method: the
// implementing one when there is one. A partial method without an
// accessibility modifier and without an implementation is removed by the
// compiler entirely.
func partialsToSkip(sym *typeSym) map[*memberDecl]bool {
	type key struct {
		name   string
		params int
	}
	impl := map[key]*memberDecl{}
	var partials []*memberDecl
	for _, d := range sym.decls {
		for _, m := range d.members {
			if m.kind != memberMethod || !m.mods.has(modPartial) {
				continue
			}
			partials = append(partials, m)
			k := key{m.name, len(m.params)}
			if m.hasBody || impl[k] == nil {
				impl[k] = m
			}
		}
	}
	skip := map[*memberDecl]bool{}
	for _, m := range partials {
		chosen := impl[key{m.name, len(m.params)}]
		if chosen != m {
			skip[m] = true
			continue
		}
		if _, explicitAccess := m.mods.access(); !explicitAccess && !m.hasBody {
			skip[m] = true
		}
	}
	return skip
}

// memberAccess is the declared accessibility, or the default for the
// kind of type the member is in.
func memberAccess(sym *typeSym, mods modifier) metadata.Access {
	if a, ok := mods.access(); ok {
		return a
	}
	if sym.kind == declInterface {
		return metadata.AccessPublic
	}
	return metadata.AccessPrivate
}

func methodFlags(sym *typeSym, mods modifier, hasBody bool) metadata.MethodFlags {
	var f metadata.MethodFlags
	if mods.has(modStatic) {
		f |= metadata.MethodStatic
	}
	if sym.kind == declInterface {
		switch {
		case mods.has(modStatic):
			if mods.has(modAbstract) {
				f |= metadata.MethodAbstract | metadata.MethodVirtual
			} else if mods.has(modVirtual) {
				f |= metadata.MethodVirtual
			}
		case mods.has(modPrivate), mods.has(modSealed):
		case !hasBody || mods.has(modAbstract):
			f |= metadata.MethodAbstract | metadata.MethodVirtual | metadata.MethodNewSlot
		default:
			f |= metadata.MethodVirtual | metadata.MethodNewSlot
		}
		return f
	}
	switch {
	case mods.has(modAbstract) && mods.has(modOverride):
		f |= metadata.MethodAbstract | metadata.MethodVirtual
	case mods.has(modAbstract):
		f |= metadata.MethodAbstract | metadata.MethodVirtual | metadata.MethodNewSlot
	case mods.has(modOverride) && mods.has(modSealed):
		f |= metadata.MethodVirtual | metadata.MethodFinal
	case mods.has(modOverride):
		f |= metadata.MethodVirtual
	case mods.has(modVirtual):
		f |= metadata.MethodVirtual | metadata.MethodNewSlot
	}
	return f
}

// setAccessAndFlags fills in accessibility and vtable flags. An explicit
// interface implementation is a private, sealed new slot named after the
// interface.
func (b *binder) setAccessAndFlags(sym *typeSym, m *metadata.Method, mods modifier, iface *metadata.Type, hasBody bool) {
	if iface != nil {
		m.ExplicitInterface = iface
		m.ExplicitName = m.Name
		m.Name = explicitName(iface) + "." + m.Name
		m.Access = metadata.AccessPrivate
		if mods.has(modStatic) {
			m.Flags |= metadata.MethodStatic
		} else {
			m.Flags |= metadata.MethodVirtual | metadata.MethodFinal | metadata.MethodNewSlot
		}
		return
	}
	m.Access = memberAccess(sym, mods)
	m.Flags |= methodFlags(sym, mods, hasBody)
}

// explicitName spells an interface the way explicit implementation names
// carry it: namespace-qualified, with C# type argument lists.
func explicitName(t *metadata.Type) string {
	var sb strings.Builder
	writeExplicitName(&sb, t)
	return sb.String()
}

func writeExplicitName(sb *strings.Builder, t *metadata.Type) {
	switch {
	case t.IsGenericParam():
		sb.WriteString(t.Name)
		return
	case t.IsArray():
		writeExplicitName(sb, t.Elem)
		sb.WriteString("[" + strings.Repeat(",", t.Rank-1) + "]")
		return
	case t.IsPointer(), t.IsByRef():
		writeExplicitName(sb, t.Elem)
		sb.WriteByte('*')
		return
	}
	def := t.Def()
	args := t.GenericArguments()
	if def.DeclaringType != nil {
		outer := len(def.DeclaringType.GenericParams)
		writeExplicitName(sb, def.DeclaringType.Instantiate(args[:outer]...))
		sb.WriteByte('.')
		args = args[outer:]
	} else if def.Namespace != "" {
		sb.WriteString(def.Namespace)
		sb.WriteByte('.')
	}
	sb.WriteString(def.SimpleName())
	if len(args) > 0 {
		sb.WriteByte('<')
		for i, a := range args {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeExplicitName(sb, a)
		}
		sb.WriteByte('>')
	}
}

func (b *binder) attr(fullName string) *metadata.Attribute {
	return &metadata.Attribute{Type: b.coreType(fullName)}
}

func (b *binder) voidReturn() *metadata.Parameter {
	return &metadata.Parameter{Position: -1, Type: b.coreType("System.Void")}
}

func (b *binder) returnParam(e *env, te *typeExpr, mods modifier) *metadata.Parameter {
	rt, _ := b.typeOf(e, te)
	if mods.has(modRef) {
		rt = metadata.ByRefOf(rt)
	}
	return &metadata.Parameter{Position: -1, Type: rt, TupleNames: tupleNames(te)}
}

// params binds a parameter list. Defaults and attributes are bound later,
// once constants can be evaluated.
func (b *binder) params(e *env, list []*paramSyntax) []*metadata.Parameter {
	out := make([]*metadata.Parameter, 0, len(list))
	for i, ps := range list {
		pt, _ := b.typeOf(e, ps.typ)
		if ps.ref || ps.out || ps.in {
			pt = metadata.ByRefOf(pt)
		}
		p := &metadata.Parameter{
			Name:       ps.name,
			Position:   i,
			Type:       pt,
			In:         ps.in,
			Out:        ps.out,
			TupleNames: tupleNames(ps.typ),
		}
		if ps.params {
			p.Attributes = append(p.Attributes, b.attr(paramArrayAttribute))
		}
		b.deferParamAttributes(e, p, ps.attrs)
		if ps.def != nil {
			def := ps.def
			b.deferred = append(b.deferred, func() { b.bindDefault(e, p, def) })
		}
		out = append(out, p)
	}
	return out
}

func cloneParams(list []*metadata.Parameter) []*metadata.Parameter {
	out := make([]*metadata.Parameter, len(list))
	for i, p := range list {
		cp := *p
		out[i] = &cp
	}
	return out
}

func (b *binder) declareMethod(sym *typeSym, e *env, m *memberDecl) {
	t := sym.t
	meth := &metadata.Method{Name: m.name, DeclaringType: t}
	for i, tp := range m.tparams {
		gp := metadata.NewGenericParam(tp.name, i, nil)
		gp.DeclaringMethod = meth
		meth.GenericParams = append(meth.GenericParams, gp)
	}
	me := e.withMethod(meth.GenericParams)
	b.bindConstraints(me, meth.GenericParams, m.constraints)

	var iface *metadata.Type
	if m.explicit != nil {
		iface, _ = b.typeOf(e, m.explicit)
	}
	meth.Return = b.returnParam(me, m.typ, m.mods)
	meth.Params = b.params(me, m.params)
	b.setAccessAndFlags(sym, meth, m.mods, iface, m.hasBody)

	if m.mods.has(modAsync) {
		meth.Attributes = append(meth.Attributes, b.attr(asyncStateMachineAttribute))
	}
	if len(m.params) > 0 && m.params[0].this {
		meth.Attributes = append(meth.Attributes, b.attr(extensionAttribute))
	}
	b.deferAttributes(&meth.Attributes, me, m.attrs, "method", true)
	b.deferAttributes(&meth.Return.Attributes, me, m.attrs, "return", false)
	t.Methods = append(t.Methods, meth)
}

func (b *binder) declareConstructor(sym *typeSym, e *env, m *memberDecl) {
	t := sym.t
	ctor := &metadata.Method{
		Name:          ".ctor",
		DeclaringType: t,
		Access:        memberAccess(sym, m.mods),
		Flags:         metadata.MethodSpecialName,
		IsConstructor: true,
		Return:        b.voidReturn(),
		Params:        b.params(e, m.params),
	}
	if m.mods.has(modStatic) {
		ctor.Name = ".cctor"
		ctor.Access = metadata.AccessPrivate
		ctor.Flags |= metadata.MethodStatic
	}
	b.deferAttributes(&ctor.Attributes, e, m.attrs, "method", true)
	t.Constructors = append(t.Constructors, ctor)
}

func (b *binder) declareOperator(sym *typeSym, e *env, m *memberDecl) {
	t := sym.t
	op := &metadata.Method{Name: m.name, DeclaringType: t}
	var iface *metadata.Type
	if m.explicit != nil {
		iface, _ = b.typeOf(e, m.explicit)
	}
	op.Return = b.returnParam(e, m.typ, m.mods)
	op.Params = b.params(e, m.params)
	b.setAccessAndFlags(sym, op, m.mods|modStatic, iface, m.hasBody)
	op.Flags |= metadata.MethodSpecialName | metadata.MethodStatic
	b.deferAttributes(&op.Attributes, e, m.attrs, "method", true)
	b.deferAttributes(&op.Return.Attributes, e, m.attrs, "return", false)
	t.Methods = append(t.Methods, op)
}

func (b *binder) declareProperty(sym *typeSym, e *env, m *memberDecl) {
	t := sym.t
	name := m.name
	if m.kind == memberIndexer {
		name = b.indexerName(e, m.attrs)
	}
	pt, _ := b.typeOf(e, m.typ)
	if m.mods.has(modRef) {
		pt = metadata.ByRefOf(pt)
	}
	names := tupleNames(m.typ)
	index := b.params(e, m.params)

	var iface *metadata.Type
	prop := &metadata.Property{Name: name, DeclaringType: t, Type: pt, Params: index, TupleNames: names}
	if m.explicit != nil {
		iface, _ = b.typeOf(e, m.explicit)
		prop.Name = explicitName(iface) + "." + name
	}

	for _, a := range m.accessors {
		acc := &metadata.Method{DeclaringType: t}
		switch a.keyword {
		case "get":
			acc.Name = "get_" + name
			acc.Return = &metadata.Parameter{Position: -1, Type: pt, TupleNames: names}
			acc.Params = cloneParams(index)
			prop.Getter = acc
		case "set", "init":
			acc.Name = "set_" + name
			acc.Return = b.voidReturn()
			acc.Params = append(cloneParams(index), &metadata.Parameter{
				Name:       "value",
				Position:   len(index),
				Type:       pt,
				TupleNames: names,
			})
			prop.Setter = acc
		default:
			continue
		}
		b.finishAccessor(sym, e, acc, m.mods, a, iface)
		t.Methods = append(t.Methods, acc)
	}
	b.deferAttributes(&prop.Attributes, e, m.attrs, "property", true)
	t.Properties = append(t.Properties, prop)
}

// finishAccessor gives an accessor method its flags. An accessor without
// its own accessibility modifier takes the property's.
func (b *binder) finishAccessor(sym *typeSym, e *env, acc *metadata.Method, mods modifier, a accessorDecl, iface *metadata.Type) {
	b.setAccessAndFlags(sym, acc, mods, iface, a.hasBody)
	if iface == nil {
		if access, ok := a.mods.access(); ok {
			acc.Access = access
		}
	}
	acc.Flags |= metadata.MethodSpecialName
	b.deferAttributes(&acc.Attributes, e, a.attrs, "method", true)
	b.deferAttributes(&acc.Return.Attributes, e, a.attrs, "return", false)
}

// indexerName honours [IndexerName("...")]; indexers are otherwise named
// Item.
func (b *binder) indexerName(e *env, attrs []*attrSyntax) string {
	for _, a := range attrs {
		if a.target != "" || a.name.kind != typeNamed || len(a.args) != 1 {
			continue
		}
		switch a.name.segs[len(a.name.segs)-1].name {
		case "IndexerName", "IndexerNameAttribute":
		default:
			continue
		}
		v, err := b.evalExpr(evalCtx{env: e, mode: modeAttribute, checked: true}, a.args[0])
		if s, ok := v.v.(string); err == nil && ok && s != "" {
			return s
		}
	}
	return "Item"
}

func (b *binder) declareEvent(sym *typeSym, e *env, m *memberDecl) {
	t := sym.t
	ht, _ := b.typeOf(e, m.typ)
	names := tupleNames(m.typ)

	type eventName struct {
		name  string
		iface *metadata.Type
	}
	var list []eventName
	if m.kind == memberEventField {
		for _, d := range m.declarators {
			list = append(list, eventName{name: d.name})
		}
	} else {
		en := eventName{name: m.name}
		if m.explicit != nil {
			en.iface, _ = b.typeOf(e, m.explicit)
		}
		list = append(list, en)
	}

	accessors := m.accessors
	if len(accessors) == 0 {
		hasBody := sym.kind != declInterface
		accessors = []accessorDecl{{keyword: "add", hasBody: hasBody}, {keyword: "remove", hasBody: hasBody}}
	}
	for _, en := range list {
		ev := &metadata.Event{Name: en.name, DeclaringType: t, HandlerType: ht, TupleNames: names}
		if en.iface != nil {
			ev.Name = explicitName(en.iface) + "." + en.name
		}
		for _, a := range accessors {
			acc := &metadata.Method{
				DeclaringType: t,
				Return:        b.voidReturn(),
				Params:        []*metadata.Parameter{{Name: "value", Type: ht, TupleNames: names}},
			}
			switch a.keyword {
			case "add":
				acc.Name = "add_" + en.name
				ev.Adder = acc
			case "remove":
				acc.Name = "remove_" + en.name
				ev.Remover = acc
			default:
				continue
			}
			b.finishAccessor(sym, e, acc, m.mods, a, en.iface)
			t.Methods = append(t.Methods, acc)
		}
		b.deferAttributes(&ev.Attributes, e, m.attrs, "event", true)
		t.Events = append(t.Events, ev)
	}
}

func (b *binder) declareField(sym *typeSym, e *env, m *memberDecl) {
	t := sym.t
	ft, _ := b.typeOf(e, m.typ)
	if m.mods.has(modRef) {
		ft = metadata.ByRefOf(ft)
	}
	var flags metadata.FieldFlags
	switch {
	case m.mods.has(modConst):
		flags |= metadata.FieldStatic | metadata.FieldLiteral
	case m.mods.has(modStatic):
		flags |= metadata.FieldStatic
	}
	if m.mods.has(modReadonly) {
		flags |= metadata.FieldInitOnly
	}
	names := tupleNames(m.typ)

	for _, d := range m.declarators {
		f := &metadata.Field{
			Name:          d.name,
			DeclaringType: t,
			Access:        memberAccess(sym, m.mods),
			Flags:         flags,
			Type:          ft,
			TupleNames:    names,
		}
		b.deferAttributes(&f.Attributes, e, m.attrs, "field", true)
		if f.IsLiteral() || f.IsStatic() && f.IsInitOnly() {
			fi := &fieldInit{field: f, init: d.init, env: e}
			b.addInit(fi)
			if !f.IsLiteral() {
				f.Reader = fi.read
			}
		}
		t.Fields = append(t.Fields, f)
	}
}

func (b *binder) addInit(fi *fieldInit) {
	b.inits[fi.field] = fi
	b.initOrder = append(b.initOrder, fi)
}

// read is the Reader of a static readonly field. Values are computed
// during binding; reading never evaluates anything.
func (fi *fieldInit) read() (any, error) {
	if fi.state != stateDone {
		return nil, metadata.ErrNoValue
	}
	if fi.err != nil {
		return nil, fi.err
	}
	return fi.val.boxed(), nil
}

// declareDefaultConstructor adds the parameterless constructor a class
// gets when it declares no instance constructor.
func (b *binder) declareDefaultConstructor(sym *typeSym) {
	t := sym.t
	if sym.kind != declClass && sym.kind != declRecord {
		return
	}
	if t.Abstract && t.Sealed {
		return
	}
	for _, c := range t.Constructors {
		if !c.IsStatic() {
			return
		}
	}
	access := metadata.AccessPublic
	if t.Abstract {
		access = metadata.AccessFamily
	}
	t.Constructors = append(t.Constructors, &metadata.Method{
		Name:          ".ctor",
		DeclaringType: t,
		Access:        access,
		Flags:         metadata.MethodSpecialName,
		IsConstructor: true,
		Return:        b.voidReturn(),
	})
}

// bindDefault records a parameter's default value. default(S) and new S()
// for a struct that is not a primitive leave the parameter optional
// without a constant.
func (b *binder) bindDefault(e *env, p *metadata.Parameter, x *expr) {
	target := p.Type
	if target.IsByRef() {
		target = target.Elem
	}
	p.Optional = true
	if x.kind == exprNew && x.op == "" && len(x.list) == 0 && target.IsValueType() && primOf(target) == primNone {
		return
	}
	c := evalCtx{env: e, checked: true}
	v, err := b.evalExpr(c, x)
	if err == nil {
		v, err = b.convert(c, v, target)
	}
	if err != nil {
		b.log.Warn("default.unevaluated", "param", p.Name, "err", err)
		return
	}
	if v.v == nil && target.IsValueType() && !target.IsNullable() && !target.IsEnum() && primOf(target) == primNone {
		return
	}
	p.HasDefault = true
	p.Default = v.v
}
