package csharp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jward/apisurface/internal/metadata"
)

// cval is the value of a constant expression and its type. A nil t with a
// nil v is the null literal; def marks the typeless default literal.
type cval struct {
	v   any
	t   *metadata.Type
	def bool
}

func (v cval) isNull() bool { return v.v == nil && !v.def }

// boxed returns the value the way reflection hands it out: enum values
// carry their type.
func (v cval) boxed() any {
	if v.t != nil && v.t.IsEnum() && v.v != nil {
		return metadata.EnumValue{Type: v.t, Raw: v.v}
	}
	return v.v
}

type evalMode uint8

const (
	modeConst     evalMode = iota // constants and parameter defaults
	modeAttribute                 // attribute arguments, which also allow typeof
	modeRuntime                   // static readonly initializers
)

type evalCtx struct {
	env     *env
	mode    evalMode
	checked bool
	enum    *metadata.Type // enum whose member initializers are evaluated
	target  *metadata.Type // type of a target-typed new
}

var errNotConstant = errors.New("not a constant expression")

func (b *binder) evalExpr(c evalCtx, x *expr) (cval, error) {
	switch x.kind {
	case exprLiteral:
		return b.literal(x.lit)
	case exprName:
		return b.nameValue(c, x)
	case exprMember:
		return b.memberValue(c, x)
	case exprUnary:
		v, err := b.evalExpr(c, x.x)
		if err != nil {
			return cval{}, err
		}
		return b.unary(c, x.op, v)
	case exprBinary:
		l, err := b.evalExpr(c, x.x)
		if err != nil {
			return cval{}, err
		}
		r, err := b.evalExpr(c, x.y)
		if err != nil {
			return cval{}, err
		}
		return b.binary(c, x.op, l, r)
	case exprCond:
		cond, err := b.evalExpr(c, x.x)
		if err != nil {
			return cval{}, err
		}
		pick, ok := cond.v.(bool)
		if !ok {
			return cval{}, fmt.Errorf("condition is not boolean")
		}
		if pick {
			return b.evalExpr(c, x.y)
		}
		return b.evalExpr(c, x.z)
	case exprCast:
		t, _ := b.typeOf(c.env, x.typ)
		v, err := b.evalExpr(c, x.x)
		if err != nil {
			return cval{}, err
		}
		return b.convert(c, v, t)
	case exprDefault:
		if x.typ == nil {
			return cval{def: true}, nil
		}
		t, _ := b.typeOf(c.env, x.typ)
		return b.zero(t), nil
	case exprSizeof:
		t, _ := b.typeOf(c.env, x.typ)
		if n := primSizes[primOf(t)]; n > 0 {
			return b.val(int32(n)), nil
		}
		return cval{}, fmt.Errorf("sizeof(%s): %w", x.typ, errNotConstant)
	case exprNameof:
		return b.val(lastName(x.x)), nil
	case exprChecked:
		cc := c
		cc.checked = x.op == "checked"
		return b.evalExpr(cc, x.x)
	case exprTypeof:
		if c.mode == modeConst {
			return cval{}, fmt.Errorf("typeof: %w", errNotConstant)
		}
		t, _ := b.typeOf(c.env, x.typ)
		return cval{v: t, t: b.coreType("System.Type")}, nil
	case exprNew, exprCall:
		if c.mode == modeRuntime {
			return b.runtimeExpr(c, x)
		}
	case exprOther:
		if x.name != "" {
			return cval{}, fmt.Errorf("%s: %w", x.name, errNotConstant)
		}
	}
	return cval{}, errNotConstant
}

func lastName(x *expr) string {
	switch x.kind {
	case exprName, exprMember:
		return x.name
	case exprCall, exprIndex:
		return lastName(x.x)
	}
	return ""
}

func (b *binder) literal(l literal) (cval, error) {
	switch l.kind {
	case litInt:
		return b.intLiteral(l.text)
	case litReal:
		return b.realLiteral(l.text)
	case litString, litInterpolated:
		return b.val(l.text), nil
	case litChar:
		r, _ := utf8.DecodeRuneInString(l.text)
		return b.val(metadata.Char(r)), nil
	case litBool:
		return b.val(l.text == "true"), nil
	}
	return cval{}, nil
}

// intLiteral types an integer literal: the first of int, uint, long and
// ulong that holds it, narrowed by any U or L suffix.
func (b *binder) intLiteral(text string) (cval, error) {
	s := strings.ToLower(strings.ReplaceAll(text, "_", ""))
	i := len(s)
	for i > 0 && (s[i-1] == 'u' || s[i-1] == 'l') {
		i--
	}
	digits, suffix := s[:i], s[i:]
	base := 10
	switch {
	case strings.HasPrefix(digits, "0x"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0b"):
		base, digits = 2, digits[2:]
	}
	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return cval{}, fmt.Errorf("integer literal %s: %w", text, err)
	}
	unsigned := strings.Contains(suffix, "u")
	long := strings.Contains(suffix, "l")
	switch {
	case !unsigned && !long && u <= math.MaxInt32:
		return b.val(int32(u)), nil
	case !long && u <= math.MaxUint32:
		return b.val(uint32(u)), nil
	case !unsigned && u <= math.MaxInt64:
		return b.val(int64(u)), nil
	}
	return b.val(u), nil
}

func (b *binder) realLiteral(text string) (cval, error) {
	s := strings.ToLower(strings.ReplaceAll(text, "_", ""))
	switch s[len(s)-1] {
	case 'f':
		f, err := strconv.ParseFloat(s[:len(s)-1], 32)
		if err != nil {
			return cval{}, fmt.Errorf("real literal %s: %w", text, err)
		}
		return b.val(float32(f)), nil
	case 'm':
		d, err := parseDecimal(s[:len(s)-1])
		if err != nil {
			return cval{}, fmt.Errorf("decimal literal %s: %w", text, err)
		}
		return b.val(d), nil
	case 'd':
		s = s[:len(s)-1]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return cval{}, fmt.Errorf("real literal %s: %w", text, err)
	}
	return b.val(f), nil
}

// val pairs a Go constant with its core type.
func (b *binder) val(v any) cval {
	k := primOfValue(v)
	if k == primNone {
		return cval{v: v}
	}
	return cval{v: v, t: b.coreType("System." + primTypeNames[k])}
}

// zero is default(T).
func (b *binder) zero(t *metadata.Type) cval {
	if t == nil {
		return cval{}
	}
	if t.IsEnum() {
		u := b.zero(t.Def().EnumUnderlying)
		return cval{v: u.v, t: t}
	}
	if z, ok := primZero[primOf(t)]; ok {
		return cval{v: z, t: t}
	}
	return cval{t: t}
}

func fieldNamed(t *metadata.Type, name string) *metadata.Field {
	d := t.Def()
	if d == nil {
		return nil
	}
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// nameValue resolves a simple name to a field of the enclosing types or
// their bases.
func (b *binder) nameValue(c evalCtx, x *expr) (cval, error) {
	for sym := c.env.typ; sym != nil; sym = sym.outer {
		for t := sym.t; t != nil; t = b.baseOf(t) {
			if f := fieldNamed(t, x.name); f != nil {
				return b.fieldValue(c, f)
			}
		}
	}
	return cval{}, fmt.Errorf("%s: %w", x.name, errNotConstant)
}

// memberValue resolves Type.Field.
func (b *binder) memberValue(c evalCtx, x *expr) (cval, error) {
	te := exprType(x.x)
	if te == nil {
		return cval{}, fmt.Errorf("%s: %w", x.name, errNotConstant)
	}
	t, ok := b.namedType(c.env, te)
	if !ok {
		return cval{}, fmt.Errorf("%s.%s: unknown type", te, x.name)
	}
	for bt := t; bt != nil; bt = b.baseOf(bt) {
		if f := fieldNamed(bt, x.name); f != nil {
			return b.fieldValue(c, f)
		}
	}
	return cval{}, fmt.Errorf("%s.%s: %w", t.FullName(), x.name, errNotConstant)
}

// exprType reads a name expression as a type name, or returns nil.
func exprType(x *expr) *typeExpr {
	switch x.kind {
	case exprName:
		return &typeExpr{kind: typeNamed, segs: []nameSeg{{name: x.name, args: x.targs}}}
	case exprMember:
		outer := exprType(x.x)
		if outer == nil {
			return nil
		}
		outer.segs = append(outer.segs, nameSeg{name: x.name, args: x.targs})
		return outer
	}
	return nil
}

func (b *binder) fieldValue(c evalCtx, f *metadata.Field) (cval, error) {
	fi := b.inits[f]
	if fi == nil {
		// A field of a library bound earlier, such as the core library.
		switch {
		case f.IsLiteral():
			return cval{v: f.Constant, t: f.Type}, nil
		case c.mode == modeRuntime && f.IsStatic() && f.IsInitOnly():
			v, err := f.Value()
			if err != nil {
				return cval{}, err
			}
			return cval{v: unboxEnum(v), t: f.Type}, nil
		}
		return cval{}, fmt.Errorf("field %s: %w", f.Name, errNotConstant)
	}
	var v cval
	var err error
	switch {
	case f.IsLiteral():
		v, err = b.constant(fi)
	case c.mode == modeRuntime:
		v, err = b.staticValue(fi)
	default:
		return cval{}, fmt.Errorf("field %s: %w", f.Name, errNotConstant)
	}
	if err != nil {
		return cval{}, err
	}
	// Inside an enum body its members have the underlying type.
	if c.enum != nil && f.DeclaringType == c.enum {
		v.t = c.enum.EnumUnderlying
	}
	return v, nil
}

// constant evaluates a const field or enum member once and records its
// value on the field.
func (b *binder) constant(fi *fieldInit) (cval, error) {
	switch fi.state {
	case stateDone:
		return fi.val, fi.err
	case stateBusy:
		return cval{}, fmt.Errorf("constant %s depends on itself", fi.field.Name)
	}
	fi.state = stateBusy
	v, err := b.evalConstant(fi)
	fi.val, fi.err, fi.state = v, err, stateDone
	if err != nil {
		b.log.Warn("constant.unevaluated", "field", fieldName(fi.field), "err", err)
		return v, err
	}
	fi.field.Constant = v.v
	return v, nil
}

func fieldName(f *metadata.Field) string {
	return f.DeclaringType.FullName() + "." + f.Name
}

func (b *binder) evalConstant(fi *fieldInit) (cval, error) {
	f := fi.field
	c := evalCtx{env: fi.env, checked: true}
	if !fi.enum {
		if fi.init == nil {
			return cval{}, fmt.Errorf("constant %s has no value", f.Name)
		}
		v, err := b.evalExpr(c, fi.init)
		if err != nil {
			return cval{}, err
		}
		return b.convert(c, v, f.Type)
	}

	t := f.DeclaringType
	u := t.EnumUnderlying
	c.enum = t
	var v cval
	var err error
	switch {
	case fi.init != nil:
		v, err = b.evalExpr(c, fi.init)
	case fi.prev == nil:
		v = b.zero(u)
	default:
		var prev cval
		if prev, err = b.constant(b.inits[fi.prev]); err == nil {
			v, err = b.binary(c, "+", cval{v: prev.v, t: u}, b.val(int32(1)))
		}
	}
	if err != nil {
		return cval{}, err
	}
	if v.t != nil && v.t.IsEnum() {
		v.t = v.t.Def().EnumUnderlying
	}
	if v, err = b.convert(c, v, u); err != nil {
		return cval{}, err
	}
	return cval{v: v.v, t: t}, nil
}

// convert applies a constant conversion to target. Conversions to types
// that are not primitive keep the value.
func (b *binder) convert(c evalCtx, v cval, target *metadata.Type) (cval, error) {
	if target == nil {
		return v, nil
	}
	if target.IsByRef() {
		target = target.Elem
	}
	if v.def {
		return b.zero(target), nil
	}
	if target.IsNullable() {
		if v.isNull() {
			return cval{t: target}, nil
		}
		return b.convert(c, v, target.Args[0])
	}
	if target.IsEnum() {
		if v.t != nil && v.t.Def() == target.Def() {
			return v, nil
		}
		u, err := b.convert(c, cval{v: v.v}, target.Def().EnumUnderlying)
		if err != nil {
			return cval{}, err
		}
		return cval{v: u.v, t: target}, nil
	}
	k := primOf(target)
	if k == primNone {
		if v.t == nil {
			v.t = target
		}
		return v, nil
	}
	if v.isNull() {
		if k == primString {
			return cval{t: target}, nil
		}
		return cval{}, fmt.Errorf("null cannot be converted to %s", target.FullName())
	}
	switch k {
	case primString:
		if _, ok := v.v.(string); !ok {
			return cval{}, fmt.Errorf("%v cannot be converted to string", v.v)
		}
		return cval{v: v.v, t: target}, nil
	case primBool:
		if _, ok := v.v.(bool); !ok {
			return cval{}, fmt.Errorf("%v cannot be converted to bool", v.v)
		}
		return cval{v: v.v, t: target}, nil
	}
	n, err := convertNumber(v.v, k, c.checked)
	if err != nil {
		return cval{}, err
	}
	return cval{v: n, t: target}, nil
}

func isEnumValue(v cval) bool { return v.t != nil && v.t.IsEnum() }

func (b *binder) unary(c evalCtx, op string, v cval) (cval, error) {
	switch op {
	case "!":
		x, ok := v.v.(bool)
		if !ok {
			return cval{}, fmt.Errorf("operator ! needs a bool")
		}
		return b.val(!x), nil
	case "~":
		if isEnumValue(v) {
			r, err := complement(v.v)
			return cval{v: r, t: v.t}, err
		}
		n, err := convertNumber(v.v, promoteUnary(primOfValue(v.v)), false)
		if err != nil {
			return cval{}, err
		}
		r, err := complement(n)
		if err != nil {
			return cval{}, err
		}
		return b.val(r), nil
	case "+":
		k := promoteUnary(primOfValue(v.v))
		if k == primNone || k == primBool || k == primString {
			return cval{}, fmt.Errorf("operator + needs a number")
		}
		n, err := convertNumber(v.v, k, false)
		if err != nil {
			return cval{}, err
		}
		return b.val(n), nil
	case "-":
		return b.negate(c, v)
	}
	return cval{}, fmt.Errorf("operator %s: %w", op, errNotConstant)
}

func (b *binder) negate(c evalCtx, v cval) (cval, error) {
	switch x := v.v.(type) {
	case float32:
		return b.val(-x), nil
	case float64:
		return b.val(-x), nil
	case metadata.Decimal:
		return b.val(negateDecimal(x)), nil
	case uint64:
		// -9223372036854775808 is lexed as the negation of an ulong.
		if x == 1<<63 {
			return b.val(int64(math.MinInt64)), nil
		}
		return cval{}, fmt.Errorf("operator - cannot be applied to ulong")
	case uint32:
		return b.val(-int64(x)), nil
	}
	k := promoteUnary(primOfValue(v.v))
	if !k.integral() {
		return cval{}, fmt.Errorf("operator - needs a number")
	}
	z := toBig(v.v)
	n, err := narrowBig(z.Neg(z), k, c.checked)
	if err != nil {
		return cval{}, err
	}
	return b.val(n), nil
}

func (b *binder) binary(c evalCtx, op string, l, r cval) (cval, error) {
	switch op {
	case "??":
		if l.isNull() {
			return r, nil
		}
		return l, nil
	case "&&", "||":
		x, lok := l.v.(bool)
		y, rok := r.v.(bool)
		if !lok || !rok {
			return cval{}, fmt.Errorf("operator %s needs bools", op)
		}
		if op == "&&" {
			return b.val(x && y), nil
		}
		return b.val(x || y), nil
	}

	ls, lstr := l.v.(string)
	rs, rstr := r.v.(string)
	if lstr || rstr || (l.isNull() && r.isNull()) {
		if !(lstr || l.isNull()) || !(rstr || r.isNull()) {
			if op == "+" {
				return cval{}, fmt.Errorf("string concatenation with %v: %w", l.v, errNotConstant)
			}
			return cval{}, fmt.Errorf("operator %s needs strings", op)
		}
		equal := lstr == rstr && ls == rs
		switch op {
		case "+":
			return b.val(ls + rs), nil
		case "==":
			return b.val(equal), nil
		case "!=":
			return b.val(!equal), nil
		}
		return cval{}, fmt.Errorf("operator %s cannot be applied to strings", op)
	}

	if x, ok := l.v.(bool); ok {
		y, ok := r.v.(bool)
		if !ok {
			return cval{}, fmt.Errorf("operator %s needs bools", op)
		}
		switch op {
		case "==":
			return b.val(x == y), nil
		case "!=", "^":
			return b.val(x != y), nil
		case "&":
			return b.val(x && y), nil
		case "|":
			return b.val(x || y), nil
		}
		return cval{}, fmt.Errorf("operator %s cannot be applied to bools", op)
	}

	if isEnumValue(l) || isEnumValue(r) {
		return b.enumBinary(c, op, l, r)
	}
	v, err := numericBinary(op, l.v, r.v, c.checked)
	if err != nil {
		return cval{}, err
	}
	return b.val(v), nil
}

// enumBinary applies the enum operators: bitwise operators and addition
// keep the enum type, subtracting two enum values yields the underlying
// type and comparisons yield bool.
func (b *binder) enumBinary(c evalCtx, op string, l, r cval) (cval, error) {
	et := l.t
	if !isEnumValue(l) {
		et = r.t
	}
	u := et.Def().EnumUnderlying
	res, err := numericBinary(op, l.v, r.v, c.checked)
	if err != nil {
		return cval{}, err
	}
	switch op {
	case "==", "!=", "<", ">", "<=", ">=":
		return b.val(res), nil
	}
	n, err := b.convert(c, b.val(res), u)
	if err != nil {
		return cval{}, err
	}
	if op == "-" && isEnumValue(l) && isEnumValue(r) {
		return n, nil
	}
	return cval{v: n.v, t: et}, nil
}
