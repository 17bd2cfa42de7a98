package metadata

import "sync"

// substitution maps the generic parameters of a definition to arguments.
type substitution struct {
	params []*Type
	args   []*Type
}

func substitutionOf(t *Type) substitution {
	if t.Form != FormGenericInstance {
		return substitution{}
	}
	return substitution{params: t.Definition.GenericParams, args: t.Args}
}

func (s substitution) empty() bool { return len(s.params) == 0 }

func (s substitution) apply(t *Type) *Type {
	if t == nil || s.empty() {
		return t
	}
	switch t.Form {
	case FormGenericParam:
		for i, p := range s.params {
			if p == t && i < len(s.args) {
				return s.args[i]
			}
		}
	case FormArray:
		if e := s.apply(t.Elem); e != t.Elem {
			return ArrayOf(e, t.Rank)
		}
	case FormByRef:
		if e := s.apply(t.Elem); e != t.Elem {
			return ByRefOf(e)
		}
	case FormPointer:
		if e := s.apply(t.Elem); e != t.Elem {
			return PointerOf(e)
		}
	case FormGenericInstance:
		args := make([]*Type, len(t.Args))
		changed := false
		for i, a := range t.Args {
			args[i] = s.apply(a)
			changed = changed || args[i] != a
		}
		if changed {
			return t.Definition.Instantiate(args...)
		}
	}
	return t
}

// Substitute replaces the generic parameters of owner's definition with the
// arguments of owner inside t.
func Substitute(t, owner *Type) *Type {
	return substitutionOf(owner).apply(t)
}

func (s substitution) param(p *Parameter) *Parameter {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Type = s.apply(p.Type)
	return &cp
}

func (s substitution) method(m *Method, declaring *Type) *Method {
	cp := *m
	cp.DeclaringType = declaring
	cp.Return = s.param(m.Return)
	cp.Params = make([]*Parameter, len(m.Params))
	for i, p := range m.Params {
		cp.Params[i] = s.param(p)
	}
	cp.ExplicitInterface = s.apply(m.ExplicitInterface)
	cp.origin = m.Origin()
	return &cp
}

// instanceView holds the substituted members of a generic instance.
type instanceView struct {
	once       sync.Once
	base       *Type
	interfaces []*Type
	methods    []*Method
	ctors      []*Method
	fields     []*Field
	properties []*Property
	events     []*Event
}

func (t *Type) instance() *instanceView {
	if t.view == nil {
		t.view = &instanceView{}
	}
	v := t.view
	v.once.Do(func() {
		def := t.Definition
		s := substitutionOf(t)
		v.base = s.apply(def.BaseType)
		for _, i := range def.Interfaces {
			v.interfaces = append(v.interfaces, s.apply(i))
		}
		views := make(map[*Method]*Method, len(def.Methods))
		for _, m := range def.Methods {
			mv := s.method(m, t)
			views[m] = mv
			v.methods = append(v.methods, mv)
		}
		for _, m := range def.Constructors {
			v.ctors = append(v.ctors, s.method(m, t))
		}
		for _, f := range def.Fields {
			cp := *f
			cp.DeclaringType = t
			cp.Type = s.apply(f.Type)
			v.fields = append(v.fields, &cp)
		}
		for _, p := range def.Properties {
			cp := *p
			cp.DeclaringType = t
			cp.Type = s.apply(p.Type)
			cp.Getter, cp.Setter = views[p.Getter], views[p.Setter]
			cp.Params = make([]*Parameter, len(p.Params))
			for i, ip := range p.Params {
				cp.Params[i] = s.param(ip)
			}
			v.properties = append(v.properties, &cp)
		}
		for _, e := range def.Events {
			cp := *e
			cp.DeclaringType = t
			cp.HandlerType = s.apply(e.HandlerType)
			cp.Adder, cp.Remover = views[e.Adder], views[e.Remover]
			v.events = append(v.events, &cp)
		}
	})
	return v
}

// Base returns the base type, substituted for generic instances.
func (t *Type) Base() *Type {
	switch t.Form {
	case FormDefinition:
		return t.BaseType
	case FormGenericInstance:
		return t.instance().base
	}
	return nil
}

// DeclaredInterfaces returns the directly declared interfaces.
func (t *Type) DeclaredInterfaces() []*Type {
	switch t.Form {
	case FormDefinition:
		return t.Interfaces
	case FormGenericInstance:
		return t.instance().interfaces
	}
	return nil
}

// MethodList returns the declared methods, excluding constructors.
func (t *Type) MethodList() []*Method {
	switch t.Form {
	case FormDefinition:
		return t.Methods
	case FormGenericInstance:
		return t.instance().methods
	}
	return nil
}

// ConstructorList returns the declared instance and static constructors.
func (t *Type) ConstructorList() []*Method {
	switch t.Form {
	case FormDefinition:
		return t.Constructors
	case FormGenericInstance:
		return t.instance().ctors
	}
	return nil
}

// FieldList returns the declared fields.
func (t *Type) FieldList() []*Field {
	switch t.Form {
	case FormDefinition:
		return t.Fields
	case FormGenericInstance:
		return t.instance().fields
	}
	return nil
}

// PropertyList returns the declared properties.
func (t *Type) PropertyList() []*Property {
	switch t.Form {
	case FormDefinition:
		return t.Properties
	case FormGenericInstance:
		return t.instance().properties
	}
	return nil
}

// EventList returns the declared events.
func (t *Type) EventList() []*Event {
	switch t.Form {
	case FormDefinition:
		return t.Events
	case FormGenericInstance:
		return t.instance().events
	}
	return nil
}
