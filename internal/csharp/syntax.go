package csharp

import (
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

type typeExprKind uint8

const (
	typeNamed typeExprKind = iota
	typeTuple
	typeArray
	typeNullable
	typePointer
)

// typeExpr is a type as written in source.
type typeExpr struct {
	kind  typeExprKind
	alias string // qualifier before "::"
	segs  []nameSeg
	elems []tupleElem
	elem  *typeExpr
	rank  int
}

// nameSeg is one dotted segment of a type name. arity counts the slots of
// an unbound generic name such as Dictionary<,>.
type nameSeg struct {
	name  string
	args  []*typeExpr
	arity int
}

func (s nameSeg) genericArity() int {
	if len(s.args) > 0 {
		return len(s.args)
	}
	return s.arity
}

type tupleElem struct {
	typ  *typeExpr
	name string
}

// simpleName returns the identifier of a single-segment name without type
// arguments, or "".
func (t *typeExpr) simpleName() string {
	if t == nil || t.kind != typeNamed || t.alias != "" || len(t.segs) != 1 || t.segs[0].genericArity() > 0 {
		return ""
	}
	return t.segs[0].name
}

// isPlainName reports whether t is a dotted name without type arguments.
func (t *typeExpr) isPlainName() bool {
	if t.kind != typeNamed || t.alias != "" {
		return false
	}
	for _, s := range t.segs {
		if s.genericArity() > 0 {
			return false
		}
	}
	return true
}

func (t *typeExpr) String() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *typeExpr) write(b *strings.Builder) {
	switch t.kind {
	case typeArray:
		t.elem.write(b)
		b.WriteByte('[')
		b.WriteString(strings.Repeat(",", t.rank-1))
		b.WriteByte(']')
	case typeNullable:
		t.elem.write(b)
		b.WriteByte('?')
	case typePointer:
		t.elem.write(b)
		b.WriteByte('*')
	case typeTuple:
		b.WriteByte('(')
		for i, el := range t.elems {
			if i > 0 {
				b.WriteString(", ")
			}
			el.typ.write(b)
			if el.name != "" {
				b.WriteByte(' ')
				b.WriteString(el.name)
			}
		}
		b.WriteByte(')')
	default:
		if t.alias != "" {
			b.WriteString(t.alias)
			b.WriteString("::")
		}
		for i, seg := range t.segs {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.name)
			switch {
			case len(seg.args) > 0:
				b.WriteByte('<')
				for j, a := range seg.args {
					if j > 0 {
						b.WriteString(", ")
					}
					a.write(b)
				}
				b.WriteByte('>')
			case seg.arity > 0:
				b.WriteByte('<')
				b.WriteString(strings.Repeat(",", seg.arity-1))
				b.WriteByte('>')
			}
		}
	}
}

// dotted joins the segment names, ignoring type arguments.
func (t *typeExpr) dotted() string {
	s := ""
	for i, seg := range t.segs {
		if i > 0 {
			s += "."
		}
		s += seg.name
	}
	return s
}

type attrSyntax struct {
	target string
	name   *typeExpr
	args   []*expr
	named  []namedArg
}

type namedArg struct {
	name  string
	value *expr
}

// modifier is a set of declaration modifier keywords.
type modifier uint32

const (
	modPublic modifier = 1 << iota
	modPrivate
	modProtected
	modInternal
	modStatic
	modAbstract
	modSealed
	modVirtual
	modOverride
	modNew
	modReadonly
	modConst
	modExtern
	modUnsafe
	modVolatile
	modAsync
	modPartial
	modRef
	modRequired
	modFile
	modFixed
)

// predefinedTypes maps keyword types to their System type names.
var predefinedTypes = map[string]string{
	"bool":    "Boolean",
	"byte":    "Byte",
	"sbyte":   "SByte",
	"char":    "Char",
	"short":   "Int16",
	"ushort":  "UInt16",
	"int":     "Int32",
	"uint":    "UInt32",
	"long":    "Int64",
	"ulong":   "UInt64",
	"float":   "Single",
	"double":  "Double",
	"decimal": "Decimal",
	"string":  "String",
	"object":  "Object",
	"nint":    "IntPtr",
	"nuint":   "UIntPtr",
	"dynamic": "Object",
	"void":    "Void",
}

var modifierKeywords = map[string]modifier{
	"public":    modPublic,
	"private":   modPrivate,
	"protected": modProtected,
	"internal":  modInternal,
	"static":    modStatic,
	"abstract":  modAbstract,
	"sealed":    modSealed,
	"virtual":   modVirtual,
	"override":  modOverride,
	"new":       modNew,
	"readonly":  modReadonly,
	"const":     modConst,
	"extern":    modExtern,
	"unsafe":    modUnsafe,
	"volatile":  modVolatile,
	"async":     modAsync,
	"partial":   modPartial,
	"ref":       modRef,
	"required":  modRequired,
	"file":      modFile,
	"fixed":     modFixed,
}

func (m modifier) has(f modifier) bool { return m&f != 0 }

// access maps the accessibility keywords to a metadata access level, or
// reports false when none was written.
func (m modifier) access() (metadata.Access, bool) {
	switch {
	case m.has(modProtected) && m.has(modInternal):
		return metadata.AccessFamORAssem, true
	case m.has(modPrivate) && m.has(modProtected):
		return metadata.AccessFamANDAssem, true
	case m.has(modPublic):
		return metadata.AccessPublic, true
	case m.has(modProtected):
		return metadata.AccessFamily, true
	case m.has(modInternal), m.has(modFile):
		return metadata.AccessAssembly, true
	case m.has(modPrivate):
		return metadata.AccessPrivate, true
	}
	return metadata.AccessPrivate, false
}

type typeParamSyntax struct {
	name     string
	variance metadata.Variance
	attrs    []*attrSyntax
}

type constraintSyntax struct {
	param       string
	class       bool
	valueType   bool
	constructor bool
	types       []*typeExpr
}

type paramSyntax struct {
	attrs    []*attrSyntax
	this     bool
	ref      bool
	out      bool
	in       bool
	params   bool
	typ      *typeExpr
	name     string
	def      *expr
	position int
}

type declKind uint8

const (
	declClass declKind = iota
	declStruct
	declInterface
	declEnum
	declRecord
	declRecordStruct
	declDelegate
)

// typeDecl is a type declaration. Partial declarations stay separate
// until binding merges them.
type typeDecl struct {
	kind        declKind
	attrs       []*attrSyntax
	mods        modifier
	name        string
	tparams     []typeParamSyntax
	params      []*paramSyntax
	hasParams   bool
	bases       []*typeExpr
	constraints []constraintSyntax
	ret         *typeExpr

	members     []*memberDecl
	nested      []*typeDecl
	enumMembers []*enumMemberDecl

	scope *scope
	file  string
	line  int
}

type memberKind uint8

const (
	memberField memberKind = iota
	memberEventField
	memberEvent
	memberProperty
	memberIndexer
	memberMethod
	memberConstructor
	memberOperator
	memberConversion
)

type memberDecl struct {
	kind        memberKind
	attrs       []*attrSyntax
	mods        modifier
	typ         *typeExpr
	explicit    *typeExpr
	name        string
	tparams     []typeParamSyntax
	params      []*paramSyntax
	constraints []constraintSyntax
	declarators []declarator
	accessors   []accessorDecl
	hasBody     bool
	line        int
}

// declarator is one variable of a field or event declaration.
type declarator struct {
	name string
	init *expr
}

type accessorDecl struct {
	keyword string
	attrs   []*attrSyntax
	mods    modifier
	hasBody bool
}

type enumMemberDecl struct {
	attrs []*attrSyntax
	name  string
	value *expr
	line  int
}

type usingSyntax struct {
	global bool
	static bool
	alias  string
	target *typeExpr
}

// scope is a namespace body or compilation unit: the namespace it declares
// and the using directives written in it.
type scope struct {
	parent    *scope
	namespace string
	usings    []usingSyntax
}

// fileSyntax is the declaration skeleton of one source file.
type fileSyntax struct {
	path          string
	root          *scope
	types         []*typeDecl
	assemblyAttrs []*attrSyntax
	globalUsings  []usingSyntax
	syntaxErrors  []syntaxError
}

type syntaxError struct {
	line   int
	column int
	text   string
}
