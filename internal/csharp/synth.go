package csharp

import "github.com/jward/apisurface/internal/metadata"

// Members the compiler generates for enums, delegates and records.

func (b *binder) declareEnum(sym *typeSym) {
	t := sym.t
	t.Fields = append(t.Fields, &metadata.Field{
		Name:          "value__",
		DeclaringType: t,
		Access:        metadata.AccessPublic,
		Flags:         metadata.FieldSpecialName,
		Type:          t.EnumUnderlying,
	})
	var prev *metadata.Field
	for _, d := range sym.decls {
		e := b.typeEnv(sym, d)
		for _, em := range d.enumMembers {
			f := &metadata.Field{
				Name:          em.name,
				DeclaringType: t,
				Access:        metadata.AccessPublic,
				Flags:         metadata.FieldStatic | metadata.FieldLiteral,
				Type:          t,
			}
			b.deferAttributes(&f.Attributes, e, em.attrs, "field", true)
			b.addInit(&fieldInit{field: f, init: em.value, env: e, enum: true, prev: prev})
			t.Fields = append(t.Fields, f)
			prev = f
		}
	}
}

func (b *binder) declareDelegate(sym *typeSym) {
	t := sym.t
	d := sym.decls[0]
	e := b.typeEnv(sym, d)

	object := b.coreType("System.Object")
	asyncResult := b.coreType("System.IAsyncResult")

	t.Constructors = append(t.Constructors, &metadata.Method{
		Name:          ".ctor",
		DeclaringType: t,
		Access:        metadata.AccessPublic,
		Flags:         metadata.MethodSpecialName,
		IsConstructor: true,
		Return:        b.voidReturn(),
		Params: []*metadata.Parameter{
			{Name: "object", Position: 0, Type: object},
			{Name: "method", Position: 1, Type: b.coreType("System.IntPtr")},
		},
	})

	virtual := metadata.MethodVirtual | metadata.MethodNewSlot
	ret := b.returnParam(e, d.ret, d.mods)
	b.deferAttributes(&ret.Attributes, e, d.attrs, "return", false)
	params := b.params(e, d.params)
	invoke := &metadata.Method{
		Name:          "Invoke",
		DeclaringType: t,
		Access:        metadata.AccessPublic,
		Flags:         virtual,
		Return:        ret,
		Params:        params,
	}

	begin := &metadata.Method{
		Name:          "BeginInvoke",
		DeclaringType: t,
		Access:        metadata.AccessPublic,
		Flags:         virtual,
		Return:        &metadata.Parameter{Position: -1, Type: asyncResult},
		Params: append(cloneParams(params),
			&metadata.Parameter{Name: "callback", Position: len(params), Type: b.coreType("System.AsyncCallback")},
			&metadata.Parameter{Name: "object", Position: len(params) + 1, Type: object},
		),
	}

	var byRef []*metadata.Parameter
	for _, p := range params {
		if p.Type.IsByRef() {
			cp := *p
			cp.Position = len(byRef)
			byRef = append(byRef, &cp)
		}
	}
	end := &metadata.Method{
		Name:          "EndInvoke",
		DeclaringType: t,
		Access:        metadata.AccessPublic,
		Flags:         virtual,
		Return:        &metadata.Parameter{Position: -1, Type: ret.Type, TupleNames: ret.TupleNames},
		Params:        append(byRef, &metadata.Parameter{Name: "result", Position: len(byRef), Type: asyncResult}),
	}
	t.Methods = append(t.Methods, invoke, begin, end)
}

// declareRecord adds the positional properties, primary constructor,
// deconstructor and value equality members of a record. Members the record
// declares itself are not replaced.
func (b *binder) declareRecord(sym *typeSym) {
	t := sym.t
	isStruct := sym.kind == declRecordStruct
	var primary *typeDecl
	for _, d := range sym.decls {
		if d.hasParams {
			primary = d
			break
		}
	}

	boolType := b.coreType("System.Boolean")
	public := metadata.AccessPublic

	if primary != nil {
		e := b.typeEnv(sym, primary)
		params := b.params(e, primary.params)
		t.Constructors = append(t.Constructors, &metadata.Method{
			Name:          ".ctor",
			DeclaringType: t,
			Access:        public,
			Flags:         metadata.MethodSpecialName,
			IsConstructor: true,
			Return:        b.voidReturn(),
			Params:        params,
		})

		var outs []*metadata.Parameter
		for i, ps := range primary.params {
			p := params[i]
			outs = append(outs, &metadata.Parameter{
				Name:       p.Name,
				Position:   i,
				Type:       metadata.ByRefOf(p.Type),
				Out:        true,
				TupleNames: p.TupleNames,
			})
			if hasProperty(t, ps.name) {
				continue
			}
			prop := &metadata.Property{Name: ps.name, DeclaringType: t, Type: p.Type, TupleNames: p.TupleNames}
			prop.Getter = &metadata.Method{
				Name:          "get_" + ps.name,
				DeclaringType: t,
				Access:        public,
				Flags:         metadata.MethodSpecialName,
				Return:        &metadata.Parameter{Position: -1, Type: p.Type, TupleNames: p.TupleNames},
			}
			prop.Setter = &metadata.Method{
				Name:          "set_" + ps.name,
				DeclaringType: t,
				Access:        public,
				Flags:         metadata.MethodSpecialName,
				Return:        b.voidReturn(),
				Params:        []*metadata.Parameter{{Name: "value", Type: p.Type, TupleNames: p.TupleNames}},
			}
			b.deferAttributes(&prop.Attributes, e, ps.attrs, "property", false)
			t.Properties = append(t.Properties, prop)
			t.Methods = append(t.Methods, prop.Getter, prop.Setter)
		}
		if !hasMethod(t, "Deconstruct", len(outs)) {
			t.Methods = append(t.Methods, &metadata.Method{
				Name:          "Deconstruct",
				DeclaringType: t,
				Access:        public,
				Return:        b.voidReturn(),
				Params:        outs,
			})
		}
	}

	b.declareDefaultConstructor(sym)
	if !isStruct && !hasConstructor(t, t) {
		access := metadata.AccessFamily
		if t.Sealed {
			access = metadata.AccessPrivate
		}
		t.Constructors = append(t.Constructors, &metadata.Method{
			Name:          ".ctor",
			DeclaringType: t,
			Access:        access,
			Flags:         metadata.MethodSpecialName,
			IsConstructor: true,
			Return:        b.voidReturn(),
			Params:        []*metadata.Parameter{{Name: "original", Type: t}},
		})
	}

	b.declareRecordContract(sym)

	override := metadata.MethodVirtual
	if !hasMethod(t, "ToString", 0) {
		t.Methods = append(t.Methods, &metadata.Method{
			Name: "ToString", DeclaringType: t, Access: public, Flags: override,
			Return: &metadata.Parameter{Position: -1, Type: b.coreType("System.String")},
		})
	}
	if !hasMethod(t, "GetHashCode", 0) {
		t.Methods = append(t.Methods, &metadata.Method{
			Name: "GetHashCode", DeclaringType: t, Access: public, Flags: override,
			Return: &metadata.Parameter{Position: -1, Type: b.coreType("System.Int32")},
		})
	}
	if !hasEquals(t, b.coreType("System.Object")) {
		t.Methods = append(t.Methods, &metadata.Method{
			Name: "Equals", DeclaringType: t, Access: public, Flags: override,
			Return: &metadata.Parameter{Position: -1, Type: boolType},
			Params: []*metadata.Parameter{{Name: "obj", Type: b.coreType("System.Object")}},
		})
	}
	if !hasEquals(t, t) {
		eq := &metadata.Method{
			Name: "Equals", DeclaringType: t, Access: public,
			Return: &metadata.Parameter{Position: -1, Type: boolType},
			Params: []*metadata.Parameter{{Name: "other", Type: t}},
		}
		if !isStruct && !t.Sealed {
			eq.Flags = metadata.MethodVirtual | metadata.MethodNewSlot
		}
		t.Methods = append(t.Methods, eq)
	}
	for _, name := range []string{"op_Equality", "op_Inequality"} {
		if hasMethod(t, name, 2) {
			continue
		}
		t.Methods = append(t.Methods, &metadata.Method{
			Name:          name,
			DeclaringType: t,
			Access:        public,
			Flags:         metadata.MethodStatic | metadata.MethodSpecialName,
			Return:        &metadata.Parameter{Position: -1, Type: boolType},
			Params: []*metadata.Parameter{
				{Name: "left", Position: 0, Type: t},
				{Name: "right", Position: 1, Type: t},
			},
		})
	}

	equatable := b.coreType("System.IEquatable`1").Instantiate(t)
	if !containsType(t.Interfaces, equatable) {
		t.Interfaces = append(t.Interfaces, equatable)
	}
}

// declareRecordContract adds EqualityContract and PrintMembers. A record
// class starts both as protected virtual members, or private ones when it
// is sealed; a record deriving from another record overrides them. A
// record struct has a private PrintMembers only.
func (b *binder) declareRecordContract(sym *typeSym) {
	t := sym.t
	access := metadata.AccessFamily
	var flags metadata.MethodFlags
	switch {
	case sym.kind == declRecordStruct:
		access = metadata.AccessPrivate
	case b.isRecord(t.BaseType):
		flags = metadata.MethodVirtual
		if t.Sealed {
			flags |= metadata.MethodFinal
		}
	case t.Sealed:
		access = metadata.AccessPrivate
	default:
		flags = metadata.MethodVirtual | metadata.MethodNewSlot
	}

	if sym.kind != declRecordStruct && !hasProperty(t, "EqualityContract") {
		typeType := b.coreType("System.Type")
		prop := &metadata.Property{Name: "EqualityContract", DeclaringType: t, Type: typeType}
		prop.Getter = &metadata.Method{
			Name:          "get_EqualityContract",
			DeclaringType: t,
			Access:        access,
			Flags:         flags | metadata.MethodSpecialName,
			Return:        &metadata.Parameter{Position: -1, Type: typeType},
		}
		t.Properties = append(t.Properties, prop)
		t.Methods = append(t.Methods, prop.Getter)
	}
	if !hasMethod(t, "PrintMembers", 1) {
		t.Methods = append(t.Methods, &metadata.Method{
			Name:          "PrintMembers",
			DeclaringType: t,
			Access:        access,
			Flags:         flags,
			Return:        &metadata.Parameter{Position: -1, Type: b.coreType("System.Boolean")},
			Params:        []*metadata.Parameter{{Name: "builder", Type: b.coreType("System.Text.StringBuilder")}},
		})
	}
}

// isRecord reports whether base is a record class: one declared as a
// record here, or one that carries the EqualityContract records have.
func (b *binder) isRecord(base *metadata.Type) bool {
	if base == nil || base.Def() == nil {
		return false
	}
	if sym := b.syms[base.Def()]; sym != nil {
		return sym.kind == declRecord
	}
	return hasProperty(base.Def(), "EqualityContract")
}

func hasProperty(t *metadata.Type, name string) bool {
	for _, p := range t.Properties {
		if p.Name == name {
			return true
		}
	}
	return false
}

func hasMethod(t *metadata.Type, name string, params int) bool {
	for _, m := range t.Methods {
		if m.Name == name && len(m.Params) == params {
			return true
		}
	}
	return false
}

func hasEquals(t, param *metadata.Type) bool {
	for _, m := range t.Methods {
		if m.Name == "Equals" && len(m.Params) == 1 && metadata.Identical(m.Params[0].Type, param) {
			return true
		}
	}
	return false
}

// hasConstructor reports whether t declares a constructor taking a single
// parameter of type param.
func hasConstructor(t, param *metadata.Type) bool {
	for _, c := range t.Constructors {
		if !c.IsStatic() && len(c.Params) == 1 && metadata.Identical(c.Params[0].Type, param) {
			return true
		}
	}
	return false
}
