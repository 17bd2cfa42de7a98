package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

// signature collects the parts of a member declaration in the order they
// are written.
type signature struct {
	annotation  string
	mods        Modifiers
	returnType  *metadata.Type
	returnNames []string
	returnAttrs []*metadata.Attribute
	name        string
	body        string
	attrs       []*metadata.Attribute
}

func (s signature) String() string {
	var b strings.Builder
	if s.annotation != "" {
		b.WriteString(" (")
		b.WriteString(s.annotation)
		b.WriteByte(')')
	}
	if s.mods != 0 {
		b.WriteByte(' ')
		b.WriteString(s.mods.String())
	}
	if s.returnType != nil {
		b.WriteByte(' ')
		b.WriteString(TypeName(s.returnType, s.returnNames))
		writeAttributes(&b, s.returnAttrs)
	}
	b.WriteByte(' ')
	b.WriteString(s.name)
	b.WriteString(s.body)
	writeAttributes(&b, s.attrs)
	return strings.TrimSpace(b.String())
}

// Method renders a method or constructor signature.
func Method(m *metadata.Method) (string, error) {
	mods, err := BaseModifiers(m)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", m, err)
	}
	sig := signature{
		mods:  mods | MethodAccessibility(m).Modifier(),
		name:  m.Name,
		body:  methodBody(m),
		attrs: m.Attributes,
	}
	if !m.IsConstructor {
		sig.annotation = interfaceAnnotation(m)
		sig.returnType = m.ReturnType()
		if m.Return != nil {
			sig.returnNames = m.Return.TupleNames
			sig.returnAttrs = m.Return.Attributes
		}
	}
	return sig.String(), nil
}

// Property renders a property or indexer signature.
func Property(p *metadata.Property) (string, error) {
	primary := p.Getter
	if primary == nil {
		primary = p.Setter
	}
	var mods Modifiers
	if primary != nil {
		var err error
		if mods, err = BaseModifiers(primary); err != nil {
			return "", fmt.Errorf("render property %s: %w", p.Name, err)
		}
	}
	get, set := MethodAccessibility(p.Getter), MethodAccessibility(p.Setter)
	highest := max(get, set)
	iface := p.DeclaringType.IsInterface()

	var body strings.Builder
	name := p.Name
	if len(p.Params) > 0 {
		name = "this"
		body.WriteByte('[')
		for i, ip := range p.Params {
			if i > 0 {
				body.WriteString(", ")
			}
			body.WriteString(TypeName(ip.Type, nil))
			body.WriteByte(' ')
			body.WriteString(ip.Name)
		}
		body.WriteByte(']')
	}
	body.WriteString(" {")
	accessor := func(m *metadata.Method, access Accessibility, keyword string) {
		if m == nil || (!iface && access == AccessNone) {
			return
		}
		if access != highest {
			body.WriteByte(' ')
			body.WriteString(access.String())
		}
		body.WriteByte(' ')
		body.WriteString(keyword)
	}
	accessor(p.Getter, get, "get;")
	accessor(p.Setter, set, "set;")
	body.WriteString(" }")

	return signature{
		annotation:  interfaceAnnotation(p.Getter),
		mods:        mods | highest.Modifier(),
		returnType:  p.Type,
		returnNames: p.TupleNames,
		name:        name,
		body:        body.String(),
		attrs:       p.Attributes,
	}.String(), nil
}

// Event renders an event signature. Only the add accessor contributes
// modifiers.
func Event(e *metadata.Event) string {
	mods := ModEvent
	target := e.Adder
	if target == nil {
		target = e.Remover
	}
	if e.Adder != nil && e.Adder.IsStatic() {
		mods |= ModStatic
	}
	return signature{
		annotation:  interfaceAnnotation(target),
		mods:        mods | MethodAccessibility(e.Adder).Modifier(),
		returnType:  e.HandlerType,
		returnNames: e.TupleNames,
		name:        e.Name,
		attrs:       e.Attributes,
	}.String()
}

// Field renders a field signature. Enum members render only their name and
// raw value. The value of a static read-only field is shown only when it
// has a meaningful text form; failing to read it drops the value.
func Field(f *metadata.Field) string {
	sig := signature{name: f.Name, attrs: f.Attributes}
	if !f.DeclaringType.IsEnum() {
		switch {
		case f.IsLiteral():
			sig.mods |= ModConst
		case f.IsStatic():
			sig.mods |= ModStatic
		}
		if f.IsInitOnly() {
			sig.mods |= ModReadonly
		}
		sig.mods |= FieldAccessibility(f).Modifier()
		sig.returnType = f.Type
		sig.returnNames = f.TupleNames
	}
	switch {
	case f.IsLiteral():
		sig.body = quotedValue(metadata.FormatValue(f.Constant))
	case f.IsStatic() && f.IsInitOnly():
		sig.body = staticValue(f)
	}
	return sig.String()
}

func quotedValue(s string) string {
	return ` = "` + s + `"`
}

func staticValue(f *metadata.Field) string {
	v, err := f.Value()
	if err != nil {
		return ""
	}
	switch x := v.(type) {
	case nil:
		return " = <null>"
	case metadata.Object:
		if !x.HasText {
			return ""
		}
		return quotedValue(x.Text)
	}
	return quotedValue(metadata.FormatValue(v))
}

// Delegate renders a nested delegate type as a member of its enclosing
// type: "public delegate void Handler<T>(T item)".
func Delegate(t *metadata.Type) string {
	var b strings.Builder
	b.WriteString(typeAccess(t))
	b.WriteString(" delegate")
	invoke := invokeMethod(t)
	if invoke != nil && invoke.Return != nil {
		b.WriteByte(' ')
		b.WriteString(TypeName(invoke.Return.Type, invoke.Return.TupleNames))
		writeAttributes(&b, invoke.Return.Attributes)
	}
	b.WriteByte(' ')
	b.WriteString(t.SimpleName())
	if own := ownGenericParams(t); len(own) > 0 {
		b.WriteByte('<')
		for i, p := range own {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(variancePrefix(p))
			b.WriteString(p.Name)
		}
		b.WriteByte('>')
	}
	if invoke != nil {
		b.WriteString(parameterList(invoke))
	}
	if c := Constraints(ownGenericParams(t)); c != "" {
		b.WriteByte(' ')
		b.WriteString(c)
	}
	writeAttributes(&b, t.Attributes)
	return strings.TrimSpace(b.String())
}

func invokeMethod(t *metadata.Type) *metadata.Method {
	for _, m := range t.MethodList() {
		if m.Name == "Invoke" {
			return m
		}
	}
	return nil
}

// ownGenericParams drops the parameters a nested type copies from its
// enclosing types.
func ownGenericParams(t *metadata.Type) []*metadata.Type {
	params := t.GenericParams
	if t.DeclaringType != nil {
		inherited := len(t.DeclaringType.GenericParams)
		if inherited <= len(params) {
			params = params[inherited:]
		}
	}
	return params
}

func variancePrefix(p *metadata.Type) string {
	switch p.Variance {
	case metadata.Covariant:
		return "out "
	case metadata.Contravariant:
		return "in "
	}
	return ""
}

func methodBody(m *metadata.Method) string {
	var b strings.Builder
	if m.IsGeneric() {
		b.WriteByte('<')
		for i, p := range m.GenericParams {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name)
		}
		b.WriteByte('>')
	}
	b.WriteString(parameterList(m))
	if m.IsGeneric() {
		if c := Constraints(m.GenericParams); c != "" {
			b.WriteByte(' ')
			b.WriteString(c)
		}
	}
	return b.String()
}

func parameterList(m *metadata.Method) string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = parameter(p)
	}
	if m.IsStatic() && len(params) > 0 && m.HasAttribute(extensionAttribute) {
		params[0] = "this " + params[0]
	}
	return "(" + strings.Join(params, ", ") + ")"
}

func parameter(p *metadata.Parameter) string {
	var words []string
	out := false
	switch {
	case p.Type.IsByRef() && p.Out:
		words = append(words, "out")
		out = true
	case p.Type.IsByRef():
		words = append(words, "ref")
	case p.HasAttribute(paramArrayAttribute):
		words = append(words, "params")
	}
	for _, a := range sortedAttributes(p.CustomAttributes()) {
		switch {
		case a.Type == metadata.OutAttributeType && out:
			continue
		case a.Type == metadata.OptionalAttributeType:
			continue
		case a.Type != nil && a.Type.FullName() == paramArrayAttribute:
			continue
		}
		if s := Attribute(a); s != "" {
			words = append(words, s)
		}
	}
	words = append(words, TypeName(p.Type, p.TupleNames))
	if p.Name != "" {
		words = append(words, p.Name)
	}
	s := strings.Join(words, " ")

	switch {
	case p.HasDefault:
		s += " = " + defaultValue(p)
	case p.Optional:
		s += " = default(" + p.Type.ClrName() + ")"
	}
	return s
}

func defaultValue(p *metadata.Parameter) string {
	t := p.Type
	switch v := p.Default.(type) {
	case nil:
		if t.IsValueType() {
			return "default(" + t.ClrName() + ")"
		}
		return "null"
	case string:
		return `"` + v + `"`
	}
	if t.IsEnum() {
		name := metadata.EnumName(t, p.Default)
		if name == "" {
			name = metadata.FormatValue(p.Default)
		}
		return t.ClrName() + "." + name
	}
	if v, ok := p.Default.(bool); ok {
		return strconv.FormatBool(v)
	}
	if isNumeric(p.Default) {
		return metadata.FormatValue(p.Default)
	}
	return "{" + metadata.FormatValue(p.Default) + "}"
}

// isNumeric matches the constant types a default value prints bare. Signed
// bytes and characters are not among them.
func isNumeric(v any) bool {
	switch v.(type) {
	case uint8, int16, int32, int64, uint16, uint32, uint64, float32, float64, metadata.Decimal:
		return true
	}
	return false
}

// interfaceAnnotation names the interface a member implements when exactly
// one publicly visible interface of its declaring type maps to target.
func interfaceAnnotation(target *metadata.Method) string {
	if target == nil {
		return ""
	}
	t := target.DeclaringType
	if t == nil || t.IsInterface() {
		return ""
	}
	var found *metadata.Type
	matches := 0
	for _, iface := range t.AllInterfaces() {
		if !iface.IsPubliclyVisible() {
			continue
		}
		for _, e := range t.InterfaceMap(iface) {
			if metadata.SameMethod(e.Target, target) {
				found = iface
				matches++
				break
			}
		}
	}
	if matches != 1 {
		return ""
	}
	return TypeName(found, nil)
}
