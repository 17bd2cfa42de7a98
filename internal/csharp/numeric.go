package csharp

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"github.com/jward/apisurface/internal/metadata"
)

// primKind is a primitive type that can hold a constant.
type primKind uint8

const (
	primNone primKind = iota
	primBool
	primChar
	primSByte
	primByte
	primInt16
	primUInt16
	primInt32
	primUInt32
	primInt64
	primUInt64
	primSingle
	primDouble
	primDecimal
	primString
)

var primTypeNames = map[primKind]string{
	primBool:    "Boolean",
	primChar:    "Char",
	primSByte:   "SByte",
	primByte:    "Byte",
	primInt16:   "Int16",
	primUInt16:  "UInt16",
	primInt32:   "Int32",
	primUInt32:  "UInt32",
	primInt64:   "Int64",
	primUInt64:  "UInt64",
	primSingle:  "Single",
	primDouble:  "Double",
	primDecimal: "Decimal",
	primString:  "String",
}

var primByName = func() map[string]primKind {
	m := make(map[string]primKind, len(primTypeNames))
	for k, name := range primTypeNames {
		m[name] = k
	}
	return m
}()

var primSizes = map[primKind]int{
	primBool: 1, primChar: 2, primSByte: 1, primByte: 1, primInt16: 2, primUInt16: 2,
	primInt32: 4, primUInt32: 4, primInt64: 8, primUInt64: 8, primSingle: 4, primDouble: 8, primDecimal: 16,
}

var primZero = map[primKind]any{
	primBool:    false,
	primChar:    metadata.Char(0),
	primSByte:   int8(0),
	primByte:    uint8(0),
	primInt16:   int16(0),
	primUInt16:  uint16(0),
	primInt32:   int32(0),
	primUInt32:  uint32(0),
	primInt64:   int64(0),
	primUInt64:  uint64(0),
	primSingle:  float32(0),
	primDouble:  float64(0),
	primDecimal: metadata.Decimal("0"),
}

func primOf(t *metadata.Type) primKind {
	if t == nil {
		return primNone
	}
	d := t.Def()
	if d == nil || d.Namespace != "System" || d.DeclaringType != nil {
		return primNone
	}
	return primByName[d.Name]
}

func primOfValue(v any) primKind {
	switch v.(type) {
	case bool:
		return primBool
	case metadata.Char:
		return primChar
	case int8:
		return primSByte
	case uint8:
		return primByte
	case int16:
		return primInt16
	case uint16:
		return primUInt16
	case int32:
		return primInt32
	case uint32:
		return primUInt32
	case int64:
		return primInt64
	case uint64:
		return primUInt64
	case float32:
		return primSingle
	case float64:
		return primDouble
	case metadata.Decimal:
		return primDecimal
	case string:
		return primString
	}
	return primNone
}

func (k primKind) integral() bool { return k >= primChar && k <= primUInt64 }
func (k primKind) float() bool    { return k == primSingle || k == primDouble }

func (k primKind) signed() bool {
	switch k {
	case primSByte, primInt16, primInt32, primInt64:
		return true
	}
	return false
}

// promoteUnary widens the small integral types to int.
func promoteUnary(k primKind) primKind {
	switch k {
	case primChar, primSByte, primByte, primInt16, primUInt16:
		return primInt32
	}
	return k
}

// promote picks the type a binary operator computes in.
func promote(a, b primKind) primKind {
	numeric := func(k primKind) bool { return k.integral() || k.float() || k == primDecimal }
	if !numeric(a) || !numeric(b) {
		return primNone
	}
	switch {
	case a == primDecimal || b == primDecimal:
		if a.float() || b.float() {
			return primNone
		}
		return primDecimal
	case a == primDouble || b == primDouble:
		return primDouble
	case a == primSingle || b == primSingle:
		return primSingle
	case a == primUInt64 || b == primUInt64:
		return primUInt64
	case a == primInt64 || b == primInt64:
		return primInt64
	case a == primUInt32 || b == primUInt32:
		if a.signed() || b.signed() {
			return primInt64
		}
		return primUInt32
	}
	return primInt32
}

func boxed[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// convertNumber converts a numeric constant to k. Checked conversions fail
// when the value does not fit; unchecked ones truncate.
func convertNumber(v any, k primKind, checked bool) (any, error) {
	switch k {
	case primChar:
		r, err := toInteger[uint16](v, checked)
		return boxed(metadata.Char(r), err)
	case primSByte:
		return boxed(toInteger[int8](v, checked))
	case primByte:
		return boxed(toInteger[uint8](v, checked))
	case primInt16:
		return boxed(toInteger[int16](v, checked))
	case primUInt16:
		return boxed(toInteger[uint16](v, checked))
	case primInt32:
		return boxed(toInteger[int32](v, checked))
	case primUInt32:
		return boxed(toInteger[uint32](v, checked))
	case primInt64:
		return boxed(toInteger[int64](v, checked))
	case primUInt64:
		return boxed(toInteger[uint64](v, checked))
	case primSingle:
		f, err := toFloat(v)
		return boxed(float32(f), err)
	case primDouble:
		if f, ok := v.(float32); ok {
			return float64(f), nil
		}
		return boxed(toFloat(v))
	case primDecimal:
		return boxed(toDecimal(v))
	}
	return nil, fmt.Errorf("%v cannot be converted to %s", v, primTypeNames[k])
}

func toInteger[T safecast.Integer](v any, checked bool) (T, error) {
	var zero T
	switch x := v.(type) {
	case float32:
		return floatToInteger[T](float64(x), checked)
	case float64:
		return floatToInteger[T](x, checked)
	case metadata.Decimal:
		r, ok := new(big.Rat).SetString(string(x))
		if !ok {
			return zero, fmt.Errorf("invalid decimal %s", x)
		}
		f, _ := r.Float64()
		return floatToInteger[T](f, checked)
	}
	if i, ok := metadata.ToInt64(v); ok {
		if !checked {
			return T(i), nil
		}
		return safecast.Conv[T](i)
	}
	if u, ok := metadata.ToUint64(v); ok {
		if !checked {
			return T(u), nil
		}
		return safecast.Conv[T](u)
	}
	return zero, fmt.Errorf("%v is not a number", v)
}

func floatToInteger[T safecast.Integer](f float64, checked bool) (T, error) {
	if checked {
		return safecast.Truncate[T](f)
	}
	f = math.Trunc(f)
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return 0, nil
	case f < 0:
		return T(int64(f)), nil
	}
	return T(uint64(f)), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case metadata.Decimal:
		r, ok := new(big.Rat).SetString(string(x))
		if !ok {
			return 0, fmt.Errorf("invalid decimal %s", x)
		}
		f, _ := r.Float64()
		return f, nil
	}
	if i, ok := metadata.ToInt64(v); ok {
		return float64(i), nil
	}
	if u, ok := metadata.ToUint64(v); ok {
		return float64(u), nil
	}
	return 0, fmt.Errorf("%v is not a number", v)
}

func toDecimal(v any) (metadata.Decimal, error) {
	switch x := v.(type) {
	case metadata.Decimal:
		return x, nil
	case float32:
		return metadata.Decimal(strconv.FormatFloat(float64(x), 'f', -1, 32)), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("%v cannot be converted to decimal", x)
		}
		return metadata.Decimal(strconv.FormatFloat(x, 'f', -1, 64)), nil
	}
	if i, ok := metadata.ToInt64(v); ok {
		return metadata.Decimal(strconv.FormatInt(i, 10)), nil
	}
	if u, ok := metadata.ToUint64(v); ok {
		return metadata.Decimal(strconv.FormatUint(u, 10)), nil
	}
	return "", fmt.Errorf("%v is not a number", v)
}

func complement(v any) (any, error) {
	switch x := v.(type) {
	case int8:
		return ^x, nil
	case uint8:
		return ^x, nil
	case int16:
		return ^x, nil
	case uint16:
		return ^x, nil
	case int32:
		return ^x, nil
	case uint32:
		return ^x, nil
	case int64:
		return ^x, nil
	case uint64:
		return ^x, nil
	}
	return nil, fmt.Errorf("operator ~ cannot be applied to %v", v)
}

func toBig(v any) *big.Int {
	if i, ok := metadata.ToInt64(v); ok {
		return big.NewInt(i)
	}
	u, _ := metadata.ToUint64(v)
	return new(big.Int).SetUint64(u)
}

var mask64 = new(big.Int).SetUint64(math.MaxUint64)

// narrowBig converts an exact integer result to k, failing on overflow in
// a checked context and wrapping otherwise.
func narrowBig(z *big.Int, k primKind, checked bool) (any, error) {
	if !checked {
		u := new(big.Int).And(z, mask64).Uint64()
		return convertNumber(u, k, false)
	}
	switch {
	case z.IsInt64():
		if n, err := convertNumber(z.Int64(), k, true); err == nil {
			return n, nil
		}
	case z.IsUint64():
		if n, err := convertNumber(z.Uint64(), k, true); err == nil {
			return n, nil
		}
	}
	return nil, fmt.Errorf("constant value %s overflows %s", z, primTypeNames[k])
}

var comparisons = map[string]func(c int) bool{
	"==": func(c int) bool { return c == 0 },
	"!=": func(c int) bool { return c != 0 },
	"<":  func(c int) bool { return c < 0 },
	">":  func(c int) bool { return c > 0 },
	"<=": func(c int) bool { return c <= 0 },
	">=": func(c int) bool { return c >= 0 },
}

func numericBinary(op string, x, y any, checked bool) (any, error) {
	switch op {
	case "<<", ">>", ">>>":
		return shift(op, x, y)
	}
	k := promote(primOfValue(x), primOfValue(y))
	switch {
	case k == primNone:
		return nil, fmt.Errorf("operator %s cannot be applied to %v and %v", op, x, y)
	case k == primDecimal:
		return decimalBinary(op, x, y)
	case k.float():
		return floatBinary(op, x, y, k)
	}

	a, b := toBig(x), toBig(y)
	if cmp, ok := comparisons[op]; ok {
		return cmp(a.Cmp(b)), nil
	}
	z := new(big.Int)
	switch op {
	case "+":
		z.Add(a, b)
	case "-":
		z.Sub(a, b)
	case "*":
		z.Mul(a, b)
	case "/", "%":
		if b.Sign() == 0 {
			return nil, fmt.Errorf("division by constant zero")
		}
		if op == "/" {
			z.Quo(a, b)
		} else {
			z.Rem(a, b)
		}
	case "&":
		z.And(a, b)
	case "|":
		z.Or(a, b)
	case "^":
		z.Xor(a, b)
	default:
		return nil, fmt.Errorf("operator %s: %w", op, errNotConstant)
	}
	return narrowBig(z, k, checked)
}

func floatBinary(op string, x, y any, k primKind) (any, error) {
	a, err := toFloat(x)
	if err != nil {
		return nil, err
	}
	b, err := toFloat(y)
	if err != nil {
		return nil, err
	}
	if k == primSingle {
		a, b = float64(float32(a)), float64(float32(b))
	}
	if cmp, ok := comparisons[op]; ok {
		switch {
		case math.IsNaN(a) || math.IsNaN(b):
			return op == "!=", nil
		case a < b:
			return cmp(-1), nil
		case a > b:
			return cmp(1), nil
		}
		return cmp(0), nil
	}
	var r float64
	switch op {
	case "+":
		r = a + b
	case "-":
		r = a - b
	case "*":
		r = a * b
	case "/":
		r = a / b
	case "%":
		r = math.Mod(a, b)
	default:
		return nil, fmt.Errorf("operator %s cannot be applied to floating point", op)
	}
	if k == primSingle {
		return float32(r), nil
	}
	return r, nil
}

func shift(op string, x, n any) (any, error) {
	count, ok := metadata.ToInt64(n)
	if !ok {
		return nil, fmt.Errorf("shift count %v is not an int", n)
	}
	k := promoteUnary(primOfValue(x))
	if !k.integral() {
		return nil, fmt.Errorf("operator %s cannot be applied to %v", op, x)
	}
	v, err := convertNumber(x, k, false)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case int32:
		s := uint(count & 31)
		switch op {
		case "<<":
			return x << s, nil
		case ">>":
			return x >> s, nil
		}
		return int32(uint32(x) >> s), nil
	case uint32:
		s := uint(count & 31)
		if op == "<<" {
			return x << s, nil
		}
		return x >> s, nil
	case int64:
		s := uint(count & 63)
		switch op {
		case "<<":
			return x << s, nil
		case ">>":
			return x >> s, nil
		}
		return int64(uint64(x) >> s), nil
	case uint64:
		s := uint(count & 63)
		if op == "<<" {
			return x << s, nil
		}
		return x >> s, nil
	}
	return nil, fmt.Errorf("operator %s cannot be applied to %v", op, x)
}

// Decimals are exact rationals printed with the scale the runtime would
// keep: the larger operand scale for addition and subtraction, the sum of
// scales for multiplication.

const maxDecimalScale = 28

func parseDecimal(s string) (metadata.Decimal, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return "", fmt.Errorf("invalid decimal %q", s)
	}
	scale := 0
	if !strings.ContainsAny(s, "eE") {
		if i := strings.IndexByte(s, '.'); i >= 0 {
			scale = len(s) - i - 1
		}
	} else {
		scale = minimalScale(r)
	}
	return metadata.Decimal(r.FloatString(min(scale, maxDecimalScale))), nil
}

func decimalScale(d metadata.Decimal) int {
	if i := strings.IndexByte(string(d), '.'); i >= 0 {
		return len(d) - i - 1
	}
	return 0
}

// minimalScale is the number of fractional digits r needs, capped at the
// decimal precision.
func minimalScale(r *big.Rat) int {
	s := r.FloatString(maxDecimalScale)
	s = strings.TrimRight(s, "0")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func negateDecimal(d metadata.Decimal) metadata.Decimal {
	s := string(d)
	if strings.HasPrefix(s, "-") {
		return metadata.Decimal(s[1:])
	}
	if strings.Trim(s, "0.") == "" {
		return d
	}
	return metadata.Decimal("-" + s)
}

func decimalBinary(op string, x, y any) (any, error) {
	dx, err := toDecimal(x)
	if err != nil {
		return nil, err
	}
	dy, err := toDecimal(y)
	if err != nil {
		return nil, err
	}
	a, ok := new(big.Rat).SetString(string(dx))
	if !ok {
		return nil, fmt.Errorf("invalid decimal %s", dx)
	}
	b, ok := new(big.Rat).SetString(string(dy))
	if !ok {
		return nil, fmt.Errorf("invalid decimal %s", dy)
	}
	if cmp, ok := comparisons[op]; ok {
		return cmp(a.Cmp(b)), nil
	}
	z := new(big.Rat)
	var scale int
	switch op {
	case "+":
		z.Add(a, b)
		scale = max(decimalScale(dx), decimalScale(dy))
	case "-":
		z.Sub(a, b)
		scale = max(decimalScale(dx), decimalScale(dy))
	case "*":
		z.Mul(a, b)
		scale = decimalScale(dx) + decimalScale(dy)
	case "/":
		if b.Sign() == 0 {
			return nil, fmt.Errorf("division by constant zero")
		}
		z.Quo(a, b)
		scale = minimalScale(z)
	default:
		return nil, fmt.Errorf("operator %s cannot be applied to decimal", op)
	}
	return metadata.Decimal(z.FloatString(min(scale, maxDecimalScale))), nil
}
