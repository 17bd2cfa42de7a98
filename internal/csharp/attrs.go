package csharp

import (
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

// Attributes the runtime stores as parameter flags rather than as custom
// attributes.
const (
	inAttribute                    = "System.Runtime.InteropServices.InAttribute"
	outAttribute                   = "System.Runtime.InteropServices.OutAttribute"
	optionalAttribute              = "System.Runtime.InteropServices.OptionalAttribute"
	defaultParameterValueAttribute = "System.Runtime.InteropServices.DefaultParameterValueAttribute"
)

// compilerOnlyAttributes steer compilation and are not emitted into
// metadata.
var compilerOnlyAttributes = map[string]bool{
	"System.Runtime.CompilerServices.IndexerNameAttribute": true,
}

// selectAttributes returns the attributes aimed at target. Attributes
// without an explicit target count when implicit is set.
func selectAttributes(attrs []*attrSyntax, target string, implicit bool) []*attrSyntax {
	var out []*attrSyntax
	for _, a := range attrs {
		if a.target == target || implicit && a.target == "" {
			out = append(out, a)
		}
	}
	return out
}

// deferAttributes binds the attributes for target once constants are
// known, appending them to *dst.
func (b *binder) deferAttributes(dst *[]*metadata.Attribute, e *env, attrs []*attrSyntax, target string, implicit bool) {
	list := selectAttributes(attrs, target, implicit)
	if len(list) == 0 {
		return
	}
	b.deferred = append(b.deferred, func() {
		*dst = append(*dst, b.bindAttributes(e, list)...)
	})
}

func (b *binder) deferParamAttributes(e *env, p *metadata.Parameter, attrs []*attrSyntax) {
	list := selectAttributes(attrs, "param", true)
	if len(list) == 0 {
		return
	}
	b.deferred = append(b.deferred, func() {
		for _, a := range b.bindAttributes(e, list) {
			switch a.Type.FullName() {
			case inAttribute:
				p.In = true
			case outAttribute:
				p.Out = true
			case optionalAttribute:
				p.Optional = true
			case defaultParameterValueAttribute:
				if len(a.Args) == 1 {
					p.HasDefault = true
					p.Default = unboxEnum(a.Args[0])
				}
			default:
				p.Attributes = append(p.Attributes, a)
			}
		}
	})
}

func unboxEnum(v any) any {
	if ev, ok := v.(metadata.EnumValue); ok {
		return ev.Raw
	}
	return v
}

func (b *binder) bindAttributes(e *env, list []*attrSyntax) []*metadata.Attribute {
	out := make([]*metadata.Attribute, 0, len(list))
	c := evalCtx{env: e, mode: modeAttribute, checked: true}
	for _, a := range list {
		attr := &metadata.Attribute{Type: b.attributeType(e, a.name)}
		if compilerOnlyAttributes[attr.Type.FullName()] {
			continue
		}
		for _, x := range a.args {
			attr.Args = append(attr.Args, b.attributeArg(c, attr, x))
		}
		for _, na := range a.named {
			attr.Named = append(attr.Named, metadata.NamedArg{Name: na.name, Value: b.attributeArg(c, attr, na.value)})
		}
		out = append(out, attr)
	}
	return out
}

func (b *binder) attributeArg(c evalCtx, attr *metadata.Attribute, x *expr) any {
	v, err := b.evalExpr(c, x)
	if err != nil {
		b.log.Debug("attribute.argument", "attribute", attr.Type.FullName(), "err", err)
		return nil
	}
	return v.boxed()
}

// attributeType resolves an attribute name, trying the Attribute suffix
// first the way the compiler does.
func (b *binder) attributeType(e *env, te *typeExpr) *metadata.Type {
	if te.kind == typeNamed && len(te.segs) > 0 {
		last := te.segs[len(te.segs)-1]
		if !strings.HasSuffix(last.name, "Attribute") {
			suffixed := *te
			suffixed.segs = append([]nameSeg(nil), te.segs...)
			suffixed.segs[len(suffixed.segs)-1].name = last.name + "Attribute"
			if t, ok := b.namedType(e, &suffixed); ok {
				return t
			}
			if t, ok := b.namedType(e, te); ok {
				return t
			}
			return b.placeholder(e, &suffixed)
		}
	}
	t, _ := b.typeOf(e, te)
	return t
}

// bindLibrary sets the library's assembly attributes and versions.
// Versions given on the unit win over the attributes.
func (b *binder) bindLibrary(s *libState) {
	for _, f := range s.files {
		if len(f.assemblyAttrs) == 0 {
			continue
		}
		e := &env{lib: s, scope: f.root}
		s.lib.Attributes = append(s.lib.Attributes, b.bindAttributes(e, f.assemblyAttrs)...)
	}

	version := s.unit.Version
	if version == "" {
		version = stringArg(s.lib.Attributes, "System.Reflection.AssemblyVersionAttribute")
	}
	if version == "" {
		version = metadata.DefaultVersion
	}
	fileVersion := s.unit.FileVersion
	if fileVersion == "" {
		fileVersion = stringArg(s.lib.Attributes, "System.Reflection.AssemblyFileVersionAttribute")
	}
	if fileVersion == "" {
		fileVersion = version
	}
	s.lib.Version = version
	s.lib.FileVersion = fileVersion
}

func stringArg(attrs []*metadata.Attribute, fullName string) string {
	a := metadata.FindAttribute(attrs, fullName)
	if a == nil || len(a.Args) != 1 {
		return ""
	}
	s, _ := a.Args[0].(string)
	return s
}

// implicitUsings are the global usings the SDK adds to a project with
// implicit usings enabled.
func implicitUsings() []usingSyntax {
	var out []usingSyntax
	for _, ns := range []string{
		"System",
		"System.Collections.Generic",
		"System.IO",
		"System.Linq",
		"System.Net.Http",
		"System.Threading",
		"System.Threading.Tasks",
	} {
		te := &typeExpr{kind: typeNamed}
		for _, part := range strings.Split(ns, ".") {
			te.segs = append(te.segs, nameSeg{name: part})
		}
		out = append(out, usingSyntax{global: true, target: te})
	}
	return out
}
