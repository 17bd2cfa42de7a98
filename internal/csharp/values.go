package csharp

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jward/apisurface/internal/metadata"
)

// staticValue evaluates the initializer of a static readonly field the way
// the type initializer would, for the values whose text form is known
// without running code: constants, typeof, and the well-known value types
// the runtime formats itself.
func (b *binder) staticValue(fi *fieldInit) (cval, error) {
	switch fi.state {
	case stateDone:
		return fi.val, fi.err
	case stateBusy:
		return cval{}, fmt.Errorf("field %s depends on itself", fi.field.Name)
	}
	fi.state = stateBusy
	v, err := b.evalStatic(fi)
	fi.val, fi.err, fi.state = v, err, stateDone
	if err != nil {
		b.log.Debug("field.unevaluated", "field", fieldName(fi.field), "err", err)
	}
	return v, err
}

func (b *binder) evalStatic(fi *fieldInit) (cval, error) {
	if fi.init == nil {
		return cval{}, fmt.Errorf("field %s is assigned outside its declaration", fi.field.Name)
	}
	c := evalCtx{env: fi.env, mode: modeRuntime, checked: true, target: fi.field.Type}
	v, err := b.evalExpr(c, fi.init)
	if err != nil {
		return cval{}, err
	}
	return b.convert(c, v, fi.field.Type)
}

// runtimeExpr evaluates object creation and the static factory methods
// of the types in knownValues.
func (b *binder) runtimeExpr(c evalCtx, x *expr) (cval, error) {
	args := make([]cval, 0, len(x.list))
	for _, a := range x.list {
		v, err := b.evalExpr(c, a)
		if err != nil {
			return cval{}, err
		}
		args = append(args, v)
	}

	if x.kind == exprCall {
		if x.x.kind != exprMember {
			return cval{}, fmt.Errorf("call: %w", errNotConstant)
		}
		te := exprType(x.x.x)
		if te == nil {
			return cval{}, fmt.Errorf("call %s: %w", x.x.name, errNotConstant)
		}
		t, ok := b.namedType(c.env, te)
		if !ok {
			return cval{}, fmt.Errorf("call %s.%s: unknown type", te, x.x.name)
		}
		text, err := callValue(t.FullName(), x.x.name, args)
		if err != nil {
			return cval{}, err
		}
		return cval{v: metadata.Object{Type: t, Text: text, HasText: true}, t: t}, nil
	}

	t := c.target
	if x.typ != nil {
		t, _ = b.typeOf(c.env, x.typ)
	}
	if t == nil {
		return cval{}, fmt.Errorf("new: %w", errNotConstant)
	}
	if t.IsNullable() {
		t = t.Args[0]
	}
	if k := primOf(t); k != primNone && len(args) == 0 {
		return b.zero(t), nil
	}
	if ctor, ok := knownValues[t.FullName()]; ok && x.op == "" {
		text, err := ctor(args)
		if err != nil {
			return cval{}, fmt.Errorf("new %s: %w", t.FullName(), err)
		}
		return cval{v: metadata.Object{Type: t, Text: text, HasText: true}, t: t}, nil
	}
	if b.overridesToString(t) {
		return cval{}, fmt.Errorf("new %s: ToString is not evaluated", t.FullName())
	}
	return cval{v: metadata.Object{Type: t}, t: t}, nil
}

// overridesToString reports whether t or a base below System.Object,
// System.ValueType or System.Enum overrides ToString.
func (b *binder) overridesToString(t *metadata.Type) bool {
	for bt := t; bt != nil; bt = b.baseOf(bt) {
		switch bt.FullName() {
		case "System.Object", "System.ValueType", "System.Enum":
			return false
		}
		for _, m := range bt.Def().Methods {
			if m.Name == "ToString" && len(m.Params) == 0 && m.IsVirtual() && !m.IsStatic() {
				return true
			}
		}
	}
	return false
}

// knownValues produce the ToString text of well-known value types from
// their constructor arguments.
var knownValues = map[string]func(args []cval) (string, error){
	"System.Guid":     newGuid,
	"System.Version":  newVersion,
	"System.TimeSpan": newTimeSpan,
}

func callValue(typeName, method string, args []cval) (string, error) {
	switch typeName + "." + method {
	case "System.Guid.Parse":
		return newGuid(args)
	case "System.Version.Parse":
		return newVersion(args)
	case "System.TimeSpan.FromTicks":
		if len(args) == 1 {
			n, err := intArg(args[0])
			return formatTimeSpan(n), err
		}
	case "System.TimeSpan.FromDays":
		return timeSpanFrom(args, 864e9)
	case "System.TimeSpan.FromHours":
		return timeSpanFrom(args, 36e9)
	case "System.TimeSpan.FromMinutes":
		return timeSpanFrom(args, 6e8)
	case "System.TimeSpan.FromSeconds":
		return timeSpanFrom(args, 1e7)
	case "System.TimeSpan.FromMilliseconds":
		return timeSpanFrom(args, 1e4)
	}
	return "", fmt.Errorf("call %s.%s: %w", typeName, method, errNotConstant)
}

func intArg(v cval) (int64, error) {
	n, err := convertNumber(v.v, primInt64, true)
	if err != nil {
		return 0, err
	}
	return n.(int64), nil
}

func newGuid(args []cval) (string, error) {
	if len(args) == 0 {
		return "00000000-0000-0000-0000-000000000000", nil
	}
	s, ok := args[0].v.(string)
	if len(args) != 1 || !ok {
		return "", fmt.Errorf("unsupported Guid constructor")
	}
	return parseGuid(s)
}

// parseGuid accepts the N, D, B and P formats and returns the D format.
func parseGuid(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && (s[0] == '{' && s[len(s)-1] == '}' || s[0] == '(' && s[len(s)-1] == ')') {
		s = s[1 : len(s)-1]
	}
	digits := s
	if len(s) == 36 {
		if s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
			return "", fmt.Errorf("invalid guid %q", s)
		}
		digits = strings.ReplaceAll(s, "-", "")
	}
	if len(digits) != 32 {
		return "", fmt.Errorf("invalid guid %q", s)
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return "", fmt.Errorf("invalid guid %q", s)
	}
	d := strings.ToLower(digits)
	return d[:8] + "-" + d[8:12] + "-" + d[12:16] + "-" + d[16:20] + "-" + d[20:], nil
}

func newVersion(args []cval) (string, error) {
	if len(args) == 0 {
		return "0.0", nil
	}
	if s, ok := args[0].v.(string); ok && len(args) == 1 {
		parts := strings.Split(strings.TrimSpace(s), ".")
		if len(parts) < 2 || len(parts) > 4 {
			return "", fmt.Errorf("invalid version %q", s)
		}
		for i, p := range parts {
			n, err := strconv.ParseInt(p, 10, 32)
			if err != nil || n < 0 {
				return "", fmt.Errorf("invalid version %q", s)
			}
			parts[i] = strconv.FormatInt(n, 10)
		}
		return strings.Join(parts, "."), nil
	}
	if len(args) < 2 || len(args) > 4 {
		return "", fmt.Errorf("unsupported Version constructor")
	}
	parts := make([]string, len(args))
	for i, a := range args {
		n, err := intArg(a)
		if err != nil || n < 0 {
			return "", fmt.Errorf("invalid version component %v", a.v)
		}
		parts[i] = strconv.FormatInt(n, 10)
	}
	return strings.Join(parts, "."), nil
}

const (
	ticksPerMillisecond = 10_000
	ticksPerSecond      = 1000 * ticksPerMillisecond
	ticksPerMinute      = 60 * ticksPerSecond
	ticksPerHour        = 60 * ticksPerMinute
	ticksPerDay         = 24 * ticksPerHour
)

func newTimeSpan(args []cval) (string, error) {
	n := make([]int64, len(args))
	for i, a := range args {
		v, err := intArg(a)
		if err != nil {
			return "", err
		}
		n[i] = v
	}
	switch len(n) {
	case 0:
		return formatTimeSpan(0), nil
	case 1:
		return formatTimeSpan(n[0]), nil
	case 3:
		return formatTimeSpan(n[0]*ticksPerHour + n[1]*ticksPerMinute + n[2]*ticksPerSecond), nil
	case 4:
		return formatTimeSpan(n[0]*ticksPerDay + n[1]*ticksPerHour + n[2]*ticksPerMinute + n[3]*ticksPerSecond), nil
	case 5:
		return formatTimeSpan(n[0]*ticksPerDay + n[1]*ticksPerHour + n[2]*ticksPerMinute + n[3]*ticksPerSecond + n[4]*ticksPerMillisecond), nil
	}
	return "", fmt.Errorf("unsupported TimeSpan constructor")
}

func timeSpanFrom(args []cval, scale float64) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("unsupported TimeSpan factory")
	}
	f, err := toFloat(args[0].v)
	if err != nil {
		return "", err
	}
	ticks := math.Round(f * scale)
	if math.IsNaN(ticks) || math.Abs(ticks) > math.MaxInt64 {
		return "", fmt.Errorf("TimeSpan overflow")
	}
	return formatTimeSpan(int64(ticks)), nil
}

// formatTimeSpan renders ticks in the constant ("c") format:
// [-][d.]hh:mm:ss[.fffffff].
func formatTimeSpan(ticks int64) string {
	var sb strings.Builder
	u := uint64(ticks)
	if ticks < 0 {
		sb.WriteByte('-')
		u = uint64(-(ticks + 1)) + 1
	}
	days := u / ticksPerDay
	u %= ticksPerDay
	if days > 0 {
		sb.WriteString(strconv.FormatUint(days, 10))
		sb.WriteByte('.')
	}
	fmt.Fprintf(&sb, "%02d:%02d:%02d", u/ticksPerHour, u%ticksPerHour/ticksPerMinute, u%ticksPerMinute/ticksPerSecond)
	if frac := u % ticksPerSecond; frac > 0 {
		fmt.Fprintf(&sb, ".%07d", frac)
	}
	return sb.String()
}
