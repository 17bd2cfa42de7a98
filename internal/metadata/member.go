package metadata

import (
	"errors"
	"fmt"
)

// MethodFlags are the method attribute bits that drive modifier rendering.
type MethodFlags uint16

const (
	MethodStatic MethodFlags = 1 << iota
	MethodFinal
	MethodVirtual
	MethodNewSlot // starts a new vtable slot instead of reusing an inherited one
	MethodAbstract
	MethodSpecialName
)

// Method is a method or constructor.
type Method struct {
	Name          string
	DeclaringType *Type
	Access        Access
	Flags         MethodFlags
	Return        *Parameter // Position -1; Type is the return type
	Params        []*Parameter
	GenericParams []*Type
	Attributes    []*Attribute
	IsConstructor bool

	// Explicit interface implementation: the implemented interface and the
	// name of the member on it.
	ExplicitInterface *Type
	ExplicitName      string

	origin *Method
}

func (m *Method) Has(f MethodFlags) bool { return m.Flags&f == f }
func (m *Method) IsStatic() bool         { return m.Has(MethodStatic) }
func (m *Method) IsVirtual() bool        { return m.Has(MethodVirtual) }
func (m *Method) IsFinal() bool          { return m.Has(MethodFinal) }
func (m *Method) IsAbstract() bool       { return m.Has(MethodAbstract) }
func (m *Method) IsNewSlot() bool        { return m.Has(MethodNewSlot) }
func (m *Method) IsSpecialName() bool    { return m.Has(MethodSpecialName) }
func (m *Method) IsGeneric() bool        { return len(m.GenericParams) > 0 }

// ReturnType is System.Void for methods without a result.
func (m *Method) ReturnType() *Type {
	if m.Return == nil {
		return nil
	}
	return m.Return.Type
}

// Origin returns the declared method behind a member view of a generic
// instance, or m itself.
func (m *Method) Origin() *Method {
	if m.origin != nil {
		return m.origin
	}
	return m
}

// ReusesSlot reports whether a virtual method occupies a slot inherited
// from its base type, which is how an override is encoded.
func (m *Method) ReusesSlot() bool {
	return m.IsVirtual() && !m.IsNewSlot()
}

// HasAttribute reports whether m carries an attribute of the given full
// type name.
func (m *Method) HasAttribute(fullName string) bool {
	return findAttribute(m.Attributes, fullName) != nil
}

// ParamTypes returns the parameter types in order.
func (m *Method) ParamTypes() []*Type {
	types := make([]*Type, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	return types
}

func (m *Method) String() string {
	if m.DeclaringType == nil {
		return m.Name
	}
	return m.DeclaringType.FullName() + "::" + m.Name
}

// Parameter is a method parameter or a method's return slot.
type Parameter struct {
	Name       string
	Position   int
	Type       *Type
	In         bool
	Out        bool
	Optional   bool
	HasDefault bool
	Default    any // constant default; nil is the null constant
	Attributes []*Attribute
	TupleNames []string
}

// Pseudo-attribute types surfaced for the In, Out and Optional flags.
var (
	InAttributeType       = pseudoAttribute("InAttribute")
	OutAttributeType      = pseudoAttribute("OutAttribute")
	OptionalAttributeType = pseudoAttribute("OptionalAttribute")
)

func pseudoAttribute(name string) *Type {
	return &Type{Name: name, Namespace: "System.Runtime.InteropServices", Access: AccessPublic, Kind: KindClass, Sealed: true}
}

// CustomAttributes returns the parameter's custom attributes followed by
// attributes for its In, Out and Optional flags, the way reflection reports
// them.
func (p *Parameter) CustomAttributes() []*Attribute {
	attrs := append([]*Attribute(nil), p.Attributes...)
	if p.In {
		attrs = append(attrs, &Attribute{Type: InAttributeType})
	}
	if p.Out {
		attrs = append(attrs, &Attribute{Type: OutAttributeType})
	}
	if p.Optional {
		attrs = append(attrs, &Attribute{Type: OptionalAttributeType})
	}
	return attrs
}

// HasAttribute reports whether p carries a custom attribute of the given
// full type name.
func (p *Parameter) HasAttribute(fullName string) bool {
	return findAttribute(p.Attributes, fullName) != nil
}

// FieldFlags are the field attribute bits that drive modifier rendering.
type FieldFlags uint8

const (
	FieldStatic FieldFlags = 1 << iota
	FieldInitOnly
	FieldLiteral
	FieldSpecialName
)

// ErrNoValue is returned by Field.Value when a field's runtime value cannot
// be produced.
var ErrNoValue = errors.New("value not available")

// Field is a field, enum member or constant.
type Field struct {
	Name          string
	DeclaringType *Type
	Access        Access
	Flags         FieldFlags
	Type          *Type
	Constant      any // raw constant of a literal field
	Attributes    []*Attribute
	TupleNames    []string

	// Reader produces the runtime value of a static field.
	Reader func() (any, error)
}

func (f *Field) Has(fl FieldFlags) bool { return f.Flags&fl == fl }
func (f *Field) IsStatic() bool         { return f.Has(FieldStatic) }
func (f *Field) IsLiteral() bool        { return f.Has(FieldLiteral) }
func (f *Field) IsInitOnly() bool       { return f.Has(FieldInitOnly) }
func (f *Field) IsSpecialName() bool    { return f.Has(FieldSpecialName) }

// Value reads the field's runtime value. Literal fields yield their
// constant. A panicking reader is reported as an error.
func (f *Field) Value() (v any, err error) {
	if f.IsLiteral() {
		return f.Constant, nil
	}
	if f.Reader == nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, ErrNoValue)
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("field %s: reader panicked: %v", f.Name, r)
		}
	}()
	return f.Reader()
}

// Property is a property or indexer.
type Property struct {
	Name          string
	DeclaringType *Type
	Type          *Type
	Getter        *Method
	Setter        *Method
	Params        []*Parameter // index parameters
	Attributes    []*Attribute
	TupleNames    []string
}

// Accessors returns the getter and setter that exist, getter first.
func (p *Property) Accessors() []*Method {
	var out []*Method
	if p.Getter != nil {
		out = append(out, p.Getter)
	}
	if p.Setter != nil {
		out = append(out, p.Setter)
	}
	return out
}

// Event is an event with its add and remove accessors.
type Event struct {
	Name          string
	DeclaringType *Type
	HandlerType   *Type
	Adder         *Method
	Remover       *Method
	Attributes    []*Attribute
	TupleNames    []string
}

// Attribute is a custom attribute application.
type Attribute struct {
	Type  *Type
	Args  []any
	Named []NamedArg
}

// NamedArg is a field or property assignment inside an attribute.
type NamedArg struct {
	Name  string
	Value any
}

func findAttribute(attrs []*Attribute, fullName string) *Attribute {
	for _, a := range attrs {
		if a.Type != nil && a.Type.FullName() == fullName {
			return a
		}
	}
	return nil
}

// FindAttribute returns the first attribute of the given full type name.
func FindAttribute(attrs []*Attribute, fullName string) *Attribute {
	return findAttribute(attrs, fullName)
}
