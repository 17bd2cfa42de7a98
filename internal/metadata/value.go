package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Constant and runtime values are plain Go values: bool, the sized integer
// types, float32, float64, string, and the types below. nil is the null
// reference.

// Char is a UTF-16 character value.
type Char rune

// Decimal is a decimal value held in its canonical text form.
type Decimal string

// EnumValue is a boxed enum value: the enum type and the raw value of its
// underlying integral type.
type EnumValue struct {
	Type *Type
	Raw  any
}

func (e EnumValue) String() string {
	return FormatEnum(e.Type, e.Raw)
}

// Object is an instance of a non-primitive type. Text is its ToString result
// and is only meaningful when HasText is set.
type Object struct {
	Type    *Type
	Text    string
	HasText bool
}

// FormatValue renders v the way the runtime's invariant-culture ToString
// does.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return x
	case Char:
		return string(rune(x))
	case Decimal:
		return string(x)
	case float32:
		return FormatFloat(float64(x), 32)
	case float64:
		return FormatFloat(x, 64)
	case EnumValue:
		return x.String()
	case Object:
		return x.Text
	case *Type:
		return x.FullName()
	}
	if i, ok := ToInt64(v); ok {
		return strconv.FormatInt(i, 10)
	}
	if u, ok := ToUint64(v); ok {
		return strconv.FormatUint(u, 10)
	}
	return fmt.Sprint(v)
}

// FormatFloat formats f with the shortest round-trip digits, switching to
// scientific notation ("1E+15", "1E-05") outside the general format's fixed
// range.
func FormatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "∞"
	case math.IsInf(f, -1):
		return "-∞"
	}
	precision := 15
	if bits == 32 {
		precision = 7
	}
	sci := strconv.FormatFloat(f, 'e', -1, bits)
	mant, expText, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expText)
	if exp > -5 && exp < precision {
		return strconv.FormatFloat(f, 'f', -1, bits)
	}
	sign := "+"
	if exp < 0 {
		sign = "-"
		exp = -exp
	}
	return fmt.Sprintf("%sE%s%02d", mant, sign, exp)
}

// ToInt64 converts a signed integral value, or an unsigned one that fits.
func ToInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case Char:
		return int64(x), true
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}

// ToUint64 converts an unsigned integral value, or a non-negative signed one.
func ToUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case uint:
		return uint64(x), true
	}
	if i, ok := ToInt64(v); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}

// rawBits reinterprets an integral value as 64 bits for flag arithmetic.
func rawBits(v any) (uint64, bool) {
	if u, ok := ToUint64(v); ok {
		return u, true
	}
	if i, ok := ToInt64(v); ok {
		return uint64(i), true
	}
	return 0, false
}

// EnumName returns the name of the enum member whose value is raw, or "" if
// no single member has it.
func EnumName(t *Type, raw any) string {
	d := t.Def()
	if d == nil {
		return ""
	}
	want, ok := rawBits(raw)
	if !ok {
		return ""
	}
	for _, f := range d.Fields {
		if !f.IsLiteral() || !f.IsStatic() {
			continue
		}
		if got, ok := rawBits(f.Constant); ok && got == want {
			return f.Name
		}
	}
	return ""
}

// FormatEnum renders an enum value like Enum.ToString: the member name, a
// comma-separated member list for [Flags] enums, or the number.
func FormatEnum(t *Type, raw any) string {
	if name := EnumName(t, raw); name != "" {
		return name
	}
	d := t.Def()
	want, ok := rawBits(raw)
	if d != nil && ok && want != 0 && d.HasAttribute("System.FlagsAttribute") {
		var names []string
		rest := want
		for _, f := range d.Fields {
			if !f.IsLiteral() || !f.IsStatic() {
				continue
			}
			bits, ok := rawBits(f.Constant)
			if !ok || bits == 0 || bits&rest != bits {
				continue
			}
			names = append(names, f.Name)
			rest &^= bits
		}
		if rest == 0 && len(names) > 0 {
			return strings.Join(names, ", ")
		}
	}
	return FormatValue(raw)
}
