package metadata

// SameParams reports whether a and b take the same parameter types in the
// same order.
func SameParams(a, b *Method) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !SameShape(a.Params[i].Type, b.Params[i].Type) {
			return false
		}
	}
	return true
}

// SameSignature reports whether a and b have the same name, generic arity
// and parameter types.
func SameSignature(a, b *Method) bool {
	return a.Name == b.Name && len(a.GenericParams) == len(b.GenericParams) && SameParams(a, b)
}

// SameMethod reports whether a and b are views of the same declared method.
func SameMethod(a, b *Method) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Origin() == b.Origin()
}

// AllInterfaces returns every interface t implements: those of its base
// type first, then its declared interfaces each followed by the interfaces
// they inherit, without duplicates.
func (t *Type) AllInterfaces() []*Type {
	var out []*Type
	add := func(i *Type) bool {
		for _, o := range out {
			if Identical(o, i) {
				return false
			}
		}
		out = append(out, i)
		return true
	}
	var closure func(i *Type)
	closure = func(i *Type) {
		if add(i) {
			for _, b := range i.DeclaredInterfaces() {
				closure(b)
			}
		}
	}
	if !t.IsInterface() {
		if b := t.Base(); b != nil {
			for _, i := range b.AllInterfaces() {
				add(i)
			}
		}
	}
	for _, i := range t.DeclaredInterfaces() {
		closure(i)
	}
	return out
}

// declaresInterface reports whether c itself (not its base types) lists
// iface, directly or through an interface it lists.
func declaresInterface(c, iface *Type) bool {
	var walk func(list []*Type) bool
	walk = func(list []*Type) bool {
		for _, i := range list {
			if Identical(i, iface) || walk(i.DeclaredInterfaces()) {
				return true
			}
		}
		return false
	}
	return walk(c.DeclaredInterfaces())
}

// MapEntry pairs an interface method with the method that implements it.
// Target is nil when no implementation was found.
type MapEntry struct {
	InterfaceMethod *Method
	Target          *Method
}

// InterfaceMap maps every instance method of iface to its implementation
// on t.
func (t *Type) InterfaceMap(iface *Type) []MapEntry {
	var out []MapEntry
	for _, im := range iface.MethodList() {
		if im.IsStatic() {
			continue
		}
		out = append(out, MapEntry{InterfaceMethod: im, Target: t.FindImplementation(iface, im)})
	}
	return out
}

// FindImplementation resolves the method of t that runs when im is called
// through iface. The most derived class re-declaring iface is searched
// first, explicit implementations before public implicit ones, then its
// base classes; a virtual match resolves to its most derived override.
func (t *Type) FindImplementation(iface *Type, im *Method) *Method {
	if t.IsInterface() {
		return nil
	}
	var chain []*Type
	for c := t; c != nil; c = c.Base() {
		chain = append(chain, c)
	}
	start := -1
	for i, c := range chain {
		if declaresInterface(c, iface) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	for i := start; i < len(chain); i++ {
		c := chain[i]
		if m := explicitImplementation(c, iface, im); m != nil {
			return m
		}
		if m := implicitImplementation(c, im); m != nil {
			return mostDerivedOverride(chain[:i], m)
		}
	}
	if !im.IsAbstract() {
		return im
	}
	return nil
}

func explicitImplementation(c, iface *Type, im *Method) *Method {
	for _, m := range c.MethodList() {
		if m.ExplicitInterface != nil && Identical(m.ExplicitInterface, iface) &&
			m.ExplicitName == im.Name && len(m.GenericParams) == len(im.GenericParams) && SameParams(m, im) {
			return m
		}
	}
	return nil
}

func implicitImplementation(c *Type, im *Method) *Method {
	for _, m := range c.MethodList() {
		if m.IsStatic() || m.Access != AccessPublic || m.ExplicitInterface != nil {
			continue
		}
		if SameSignature(m, im) {
			return m
		}
	}
	return nil
}

// mostDerivedOverride follows the slot of a virtual method m down through
// derived, ordered from most derived to the class just below m's
// declaring class. A same-signature method that does not reuse the slot
// ends the walk.
func mostDerivedOverride(derived []*Type, m *Method) *Method {
	if !m.IsVirtual() || m.IsFinal() {
		return m
	}
	current := m
	for i := len(derived) - 1; i >= 0; i-- {
		for _, cand := range derived[i].MethodList() {
			if cand.IsStatic() || cand.ExplicitInterface != nil || !SameSignature(cand, current) {
				continue
			}
			if !cand.ReusesSlot() {
				return current
			}
			current = cand
		}
	}
	return current
}

// MethodsWithInherited returns the methods of t and its base types, most
// derived first. Private methods of base types and methods hidden or
// overridden by a more derived declaration with the same signature and
// static-ness are left out.
func (t *Type) MethodsWithInherited() []*Method {
	var out []*Method
	for c := t; c != nil; c = c.Base() {
	next:
		for _, m := range c.MethodList() {
			if c != t && m.Access == AccessPrivate {
				continue
			}
			for _, o := range out {
				if o.IsStatic() == m.IsStatic() && SameSignature(o, m) {
					continue next
				}
			}
			out = append(out, m)
		}
	}
	return out
}

// Overridden returns the nearest base-type method whose virtual slot m
// reuses, or nil when m starts its own slot.
func (m *Method) Overridden() *Method {
	if !m.ReusesSlot() || m.DeclaringType == nil {
		return nil
	}
	for c := m.DeclaringType.Base(); c != nil; c = c.Base() {
		for _, cand := range c.MethodList() {
			if cand.IsVirtual() && !cand.IsStatic() && cand.ExplicitInterface == nil && SameSignature(cand, m) {
				return cand
			}
		}
	}
	return nil
}
