// Package metadata models the type-system metadata of a compiled library:
// type definitions and constructed types, their members, custom attributes
// and constant values. It mirrors the parts of a reflection API that API
// surface rendering needs, plus the slot and interface-map queries built on
// top of them.
package metadata

import "strings"

// Form distinguishes type definitions from constructed types.
type Form uint8

const (
	FormDefinition Form = iota
	FormGenericInstance
	FormArray
	FormByRef
	FormPointer
	FormGenericParam
)

// Kind is the declaration kind of a type definition. Delegates are classes
// deriving from System.MulticastDelegate.
type Kind uint8

const (
	KindClass Kind = iota
	KindStruct
	KindInterface
	KindEnum
)

// Access is a metadata accessibility level, ordered from least to most
// visible.
type Access uint8

const (
	AccessPrivate     Access = iota // private
	AccessFamANDAssem               // private protected
	AccessAssembly                  // internal
	AccessFamily                    // protected
	AccessFamORAssem                // protected internal
	AccessPublic
)

// Variance of a generic type parameter.
type Variance uint8

const (
	Invariant Variance = iota
	Covariant
	Contravariant
)

// Constraint is the set of special constraints on a generic parameter.
type Constraint uint8

const (
	ConstraintReferenceType Constraint = 1 << iota
	ConstraintValueType
	ConstraintDefaultConstructor
)

// Type is a type reference. Definitions are compared by identity; every
// other form is structural and compared with Identical.
type Type struct {
	Form Form

	// Definition.
	Name           string // metadata name, including the `N arity suffix
	Namespace      string
	Library        *Library
	DeclaringType  *Type
	Access         Access
	Kind           Kind
	Abstract       bool
	Sealed         bool
	BaseType       *Type
	Interfaces     []*Type // declared, in declaration order
	GenericParams  []*Type
	EnumUnderlying *Type
	Fields         []*Field
	Methods        []*Method
	Constructors   []*Method
	Properties     []*Property
	Events         []*Event
	NestedTypes    []*Type
	Attributes     []*Attribute

	// Array, ByRef, Pointer.
	Elem *Type
	Rank int

	// GenericInstance.
	Definition *Type
	Args       []*Type

	// GenericParam. Name holds the parameter name.
	Position        int
	Owner           *Type
	DeclaringMethod *Method
	Variance        Variance
	Constraint      Constraint
	Constraints     []*Type

	view *instanceView
}

// ArrayOf returns an array type of the given rank.
func ArrayOf(elem *Type, rank int) *Type {
	if rank < 1 {
		rank = 1
	}
	return &Type{Form: FormArray, Elem: elem, Rank: rank}
}

// ByRefOf returns a managed reference to elem.
func ByRefOf(elem *Type) *Type {
	return &Type{Form: FormByRef, Elem: elem}
}

// PointerOf returns an unmanaged pointer to elem.
func PointerOf(elem *Type) *Type {
	return &Type{Form: FormPointer, Elem: elem}
}

// NewGenericParam creates a generic parameter owned by a type definition.
func NewGenericParam(name string, position int, owner *Type) *Type {
	return &Type{Form: FormGenericParam, Name: name, Position: position, Owner: owner}
}

// Instantiate closes a generic type definition over args. Instantiating
// with the definition's own parameters yields the definition.
func (t *Type) Instantiate(args ...*Type) *Type {
	if len(args) == 0 {
		return t
	}
	own := len(args) == len(t.GenericParams)
	for i := range args {
		if !own || args[i] != t.GenericParams[i] {
			own = false
			break
		}
	}
	if own {
		return t
	}
	return &Type{Form: FormGenericInstance, Definition: t, Args: args}
}

func (t *Type) IsGenericParam() bool    { return t.Form == FormGenericParam }
func (t *Type) IsGenericInstance() bool { return t.Form == FormGenericInstance }
func (t *Type) IsArray() bool           { return t.Form == FormArray }
func (t *Type) IsByRef() bool           { return t.Form == FormByRef }
func (t *Type) IsPointer() bool         { return t.Form == FormPointer }
func (t *Type) IsGenericDefinition() bool {
	return t.Form == FormDefinition && len(t.GenericParams) > 0
}

// IsGeneric reports whether t is a generic definition or an instance of one.
func (t *Type) IsGeneric() bool {
	return t.IsGenericDefinition() || t.IsGenericInstance()
}

// Def returns the definition behind t: the type itself for definitions, the
// generic definition for instances and nil for every other form.
func (t *Type) Def() *Type {
	switch t.Form {
	case FormDefinition:
		return t
	case FormGenericInstance:
		return t.Definition
	}
	return nil
}

// GenericArguments returns the parameters of a definition or the arguments
// of an instance.
func (t *Type) GenericArguments() []*Type {
	switch t.Form {
	case FormDefinition:
		return t.GenericParams
	case FormGenericInstance:
		return t.Args
	}
	return nil
}

func (t *Type) IsInterface() bool {
	d := t.Def()
	return d != nil && d.Kind == KindInterface
}

func (t *Type) IsEnum() bool {
	d := t.Def()
	return d != nil && d.Kind == KindEnum
}

// IsValueType reports whether t is a struct, an enum, or a generic
// parameter constrained to value types.
func (t *Type) IsValueType() bool {
	switch t.Form {
	case FormDefinition, FormGenericInstance:
		k := t.Def().Kind
		return k == KindStruct || k == KindEnum
	case FormGenericParam:
		return t.Constraint&ConstraintValueType != 0
	}
	return false
}

// IsClass reports whether t is a reference type that is not an interface.
func (t *Type) IsClass() bool {
	switch t.Form {
	case FormDefinition, FormGenericInstance:
		return t.Def().Kind == KindClass
	case FormArray:
		return true
	}
	return false
}

// IsDelegate reports whether t is a delegate type.
func (t *Type) IsDelegate() bool {
	d := t.Def()
	return d != nil && d.Kind == KindClass && d.BaseType != nil &&
		d.BaseType.FullName() == "System.MulticastDelegate"
}

// IsNested reports whether t is a nested type definition.
func (t *Type) IsNested() bool {
	d := t.Def()
	return d != nil && d.DeclaringType != nil
}

// IsNullable reports whether t is an instance of System.Nullable`1.
func (t *Type) IsNullable() bool {
	return t.IsGenericInstance() && t.Definition.FullName() == "System.Nullable`1"
}

// IsValueTuple reports whether t is an instance of System.ValueTuple`N.
func (t *Type) IsValueTuple() bool {
	return t.IsGenericInstance() && t.Definition.Namespace == "System" &&
		strings.HasPrefix(t.Definition.Name, "ValueTuple`")
}

// SimpleName returns the name without the generic arity suffix.
func (t *Type) SimpleName() string {
	name := t.Name
	if t.Form == FormGenericInstance {
		name = t.Definition.Name
	}
	if i := strings.IndexByte(name, '`'); i >= 0 {
		return name[:i]
	}
	return name
}

// FullName returns the namespace-qualified metadata name of a definition,
// using '+' between nested types. Constructed types derive theirs from the
// definition they are built on; generic parameters have none.
func (t *Type) FullName() string {
	switch t.Form {
	case FormDefinition:
		if t.DeclaringType != nil {
			return t.DeclaringType.FullName() + "+" + t.Name
		}
		if t.Namespace == "" {
			return t.Name
		}
		return t.Namespace + "." + t.Name
	case FormGenericInstance:
		return t.Definition.FullName()
	case FormArray:
		return t.Elem.FullName() + "[" + strings.Repeat(",", t.Rank-1) + "]"
	case FormByRef:
		return t.Elem.FullName() + "&"
	case FormPointer:
		return t.Elem.FullName() + "*"
	}
	return ""
}

// ClrName is the reflection-style Name of any type form: the metadata name
// for definitions and instances, the element name plus a suffix for arrays,
// references and pointers, and the parameter name for generic parameters.
func (t *Type) ClrName() string {
	switch t.Form {
	case FormGenericInstance:
		return t.Definition.Name
	case FormArray:
		return t.Elem.ClrName() + "[" + strings.Repeat(",", t.Rank-1) + "]"
	case FormByRef:
		return t.Elem.ClrName() + "&"
	case FormPointer:
		return t.Elem.ClrName() + "*"
	}
	return t.Name
}

// IsPubliclyVisible reports whether a type definition can be named from
// outside its library: it is public, or nested public, protected or
// protected internal inside a publicly visible type.
func (t *Type) IsPubliclyVisible() bool {
	d := t.Def()
	if d == nil {
		return false
	}
	if d.DeclaringType == nil {
		return d.Access == AccessPublic
	}
	switch d.Access {
	case AccessPublic, AccessFamily, AccessFamORAssem:
		return d.DeclaringType.IsPubliclyVisible()
	}
	return false
}

// Identical reports whether a and b denote the same type.
func Identical(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Form != b.Form {
		return false
	}
	switch a.Form {
	case FormArray:
		return a.Rank == b.Rank && Identical(a.Elem, b.Elem)
	case FormByRef, FormPointer:
		return Identical(a.Elem, b.Elem)
	case FormGenericInstance:
		return a.Definition == b.Definition && identicalLists(a.Args, b.Args, Identical)
	}
	return false
}

// SameShape is Identical except that generic parameters of methods match by
// position, which is how method signatures are compared across declarations.
func SameShape(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Form != b.Form {
		return false
	}
	switch a.Form {
	case FormArray:
		return a.Rank == b.Rank && SameShape(a.Elem, b.Elem)
	case FormByRef, FormPointer:
		return SameShape(a.Elem, b.Elem)
	case FormGenericInstance:
		return a.Definition == b.Definition && identicalLists(a.Args, b.Args, SameShape)
	case FormGenericParam:
		return a.DeclaringMethod != nil && b.DeclaringMethod != nil && a.Position == b.Position
	}
	return false
}

func identicalLists(a, b []*Type, eq func(a, b *Type) bool) bool {
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

// HasAttribute reports whether the definition carries an attribute of the
// given full type name.
func (t *Type) HasAttribute(fullName string) bool {
	d := t.Def()
	return d != nil && findAttribute(d.Attributes, fullName) != nil
}
