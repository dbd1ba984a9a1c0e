package cottontail

import (
	"fmt"
	"math"
)

// Value is Cottontail's discriminated scalar/vector union (§3). The zero
// Value is a typed null of TypeBoolean; use NullValue/ZeroValue or one of
// the constructors below to build a concrete value.
type Value struct {
	typ  ValueType
	null bool

	b   bool
	i64 int64
	f64 float64
	c   complex128
	s   string

	bv []bool
	iv []int64
	fv []float64
	cv []complex128
}

// NullValue returns the typed null of t.
func NullValue(t ValueType) Value {
	return Value{typ: t, null: true}
}

// ZeroValue returns the zero/empty value of t; for vector types size is
// the logical element count.
func ZeroValue(t ValueType, size int) Value {
	if !t.IsVector() {
		switch t.ScalarOf() {
		case TypeString:
			return Value{typ: t, s: ""}
		case TypeComplex32, TypeComplex64:
			return Value{typ: t, c: 0}
		case TypeBoolean:
			return Value{typ: t, b: false}
		case TypeFloat, TypeDouble:
			return Value{typ: t, f64: 0}
		default:
			return Value{typ: t, i64: 0}
		}
	}
	switch t.ScalarOf() {
	case TypeBoolean:
		return Value{typ: t, bv: make([]bool, size)}
	case TypeComplex32, TypeComplex64:
		return Value{typ: t, cv: make([]complex128, size)}
	case TypeFloat, TypeDouble:
		return Value{typ: t, fv: make([]float64, size)}
	default:
		return Value{typ: t, iv: make([]int64, size)}
	}
}

func BoolValue(b bool) Value          { return Value{typ: TypeBoolean, b: b} }
func ByteValue(v int8) Value          { return Value{typ: TypeByte, i64: int64(v)} }
func ShortValue(v int16) Value        { return Value{typ: TypeShort, i64: int64(v)} }
func IntValue(v int32) Value          { return Value{typ: TypeInt, i64: int64(v)} }
func LongValue(v int64) Value         { return Value{typ: TypeLong, i64: v} }
func FloatValue(v float32) Value      { return Value{typ: TypeFloat, f64: float64(v)} }
func DoubleValue(v float64) Value     { return Value{typ: TypeDouble, f64: v} }
func StringValue(v string) Value      { return Value{typ: TypeString, s: v} }
func Complex32Value(v complex64) Value { return Value{typ: TypeComplex32, c: complex128(v)} }
func Complex64Value(v complex128) Value { return Value{typ: TypeComplex64, c: v} }

func BooleanVectorValue(v []bool) Value    { return Value{typ: TypeBooleanVector, bv: v} }
func ByteVectorValue(v []int64) Value      { return Value{typ: TypeByteVector, iv: v} }
func ShortVectorValue(v []int64) Value     { return Value{typ: TypeShortVector, iv: v} }
func IntVectorValue(v []int64) Value       { return Value{typ: TypeIntVector, iv: v} }
func LongVectorValue(v []int64) Value      { return Value{typ: TypeLongVector, iv: v} }
func FloatVectorValue(v []float64) Value   { return Value{typ: TypeFloatVector, fv: v} }
func DoubleVectorValue(v []float64) Value  { return Value{typ: TypeDoubleVector, fv: v} }
func Complex32VectorValue(v []complex128) Value { return Value{typ: TypeComplex32Vector, cv: v} }
func Complex64VectorValue(v []complex128) Value { return Value{typ: TypeComplex64Vector, cv: v} }

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsNull() bool    { return v.null }

// LogicalSize returns 1 for scalars and the element count for vectors.
func (v Value) LogicalSize() int {
	switch {
	case v.null || !v.typ.IsVector():
		return 1
	case v.bv != nil:
		return len(v.bv)
	case v.iv != nil:
		return len(v.iv)
	case v.fv != nil:
		return len(v.fv)
	case v.cv != nil:
		return len(v.cv)
	default:
		return 0
	}
}

func (v Value) AsBool() (bool, error) {
	if v.typ != TypeBoolean {
		return false, NewTypeError(CodeTypeMismatch, fmt.Sprintf("value is %s, not BOOLEAN", v.typ))
	}
	return v.b, nil
}

func (v Value) AsInt64() (int64, error) {
	switch v.typ {
	case TypeByte, TypeShort, TypeInt, TypeLong:
		return v.i64, nil
	default:
		return 0, NewTypeError(CodeTypeMismatch, fmt.Sprintf("value is %s, not an integral type", v.typ))
	}
}

func (v Value) AsFloat64() (float64, error) {
	switch v.typ {
	case TypeFloat, TypeDouble:
		return v.f64, nil
	case TypeByte, TypeShort, TypeInt, TypeLong:
		return float64(v.i64), nil
	default:
		return 0, NewTypeError(CodeTypeMismatch, fmt.Sprintf("value is %s, not numeric", v.typ))
	}
}

func (v Value) AsComplex128() (complex128, error) {
	if v.typ != TypeComplex32 && v.typ != TypeComplex64 {
		return 0, NewTypeError(CodeTypeMismatch, fmt.Sprintf("value is %s, not complex", v.typ))
	}
	return v.c, nil
}

func (v Value) AsString() (string, error) {
	if v.typ != TypeString {
		return "", NewTypeError(CodeTypeMismatch, fmt.Sprintf("value is %s, not STRING", v.typ))
	}
	return v.s, nil
}

// AsFloat64Vector widens any real numeric vector (including booleans, 0/1)
// to a []float64, the common representation distance kernels operate on.
func (v Value) AsFloat64Vector() ([]float64, error) {
	if !v.typ.IsVector() || v.typ.IsComplex() {
		return nil, NewTypeError(CodeTypeMismatch, fmt.Sprintf("value is %s, not a real vector", v.typ))
	}
	switch {
	case v.fv != nil:
		return v.fv, nil
	case v.iv != nil:
		out := make([]float64, len(v.iv))
		for i, e := range v.iv {
			out[i] = float64(e)
		}
		return out, nil
	case v.bv != nil:
		out := make([]float64, len(v.bv))
		for i, e := range v.bv {
			if e {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, NewSizeError("vector value has no backing storage")
	}
}

// AsComplex128Vector returns the complex vector backing, widening
// complex32-vector storage (which is stored at full precision internally).
func (v Value) AsComplex128Vector() ([]complex128, error) {
	if v.typ != TypeComplex32Vector && v.typ != TypeComplex64Vector {
		return nil, NewTypeError(CodeTypeMismatch, fmt.Sprintf("value is %s, not a complex vector", v.typ))
	}
	return v.cv, nil
}

// Promote widens two numeric scalar types to a common comparable type per
// the standard numeric tower (bool < byte < short < int < long < float <
// double < complex), returning the widened pair. Non-numeric types and
// mismatched vector-ness are rejected (§3 "promotion" invariant).
func Promote(a, b Value) (Value, Value, error) {
	if a.typ.IsVector() != b.typ.IsVector() {
		return Value{}, Value{}, NewTypeError(CodeTypeMismatch, "cannot promote a scalar together with a vector")
	}
	if a.typ.IsVector() {
		return promoteVectors(a, b)
	}
	return promoteScalars(a, b)
}

var numericRank = map[ValueType]int{
	TypeBoolean:   0,
	TypeByte:      1,
	TypeShort:     2,
	TypeInt:       3,
	TypeLong:      4,
	TypeFloat:     5,
	TypeDouble:    6,
	TypeComplex32: 7,
	TypeComplex64: 8,
}

func promoteScalars(a, b Value) (Value, Value, error) {
	if a.typ == TypeString || b.typ == TypeString {
		if a.typ != b.typ {
			return Value{}, Value{}, NewTypeError(CodeTypeMismatch, "cannot promote STRING with a numeric type")
		}
		return a, b, nil
	}
	ra, oka := numericRank[a.typ]
	rb, okb := numericRank[b.typ]
	if !oka || !okb {
		return Value{}, Value{}, NewTypeError(CodeTypeMismatch, fmt.Sprintf("cannot promote %s with %s", a.typ, b.typ))
	}
	target := a.typ
	if rb > ra {
		target = b.typ
	}
	pa, err := castScalar(a, target)
	if err != nil {
		return Value{}, Value{}, err
	}
	pb, err := castScalar(b, target)
	if err != nil {
		return Value{}, Value{}, err
	}
	return pa, pb, nil
}

func promoteVectors(a, b Value) (Value, Value, error) {
	if a.LogicalSize() != b.LogicalSize() {
		return Value{}, Value{}, NewSizeError(fmt.Sprintf("vector size mismatch: %d vs %d", a.LogicalSize(), b.LogicalSize()))
	}
	if a.typ.IsComplex() || b.typ.IsComplex() {
		ca, err := a.AsComplex128Vector()
		if err != nil {
			ca = toComplexVector(a)
		}
		cb, err := b.AsComplex128Vector()
		if err != nil {
			cb = toComplexVector(b)
		}
		return Complex64VectorValue(ca), Complex64VectorValue(cb), nil
	}
	fa, err := a.AsFloat64Vector()
	if err != nil {
		return Value{}, Value{}, err
	}
	fb, err := b.AsFloat64Vector()
	if err != nil {
		return Value{}, Value{}, err
	}
	return DoubleVectorValue(fa), DoubleVectorValue(fb), nil
}

func toComplexVector(v Value) []complex128 {
	f, err := v.AsFloat64Vector()
	if err != nil {
		return nil
	}
	out := make([]complex128, len(f))
	for i, e := range f {
		out[i] = complex(e, 0)
	}
	return out
}

// castScalar widens a scalar value to target, which must outrank v.typ on
// the numeric tower.
func castScalar(v Value, target ValueType) (Value, error) {
	if v.typ == target {
		return v, nil
	}
	if v.typ == TypeBoolean {
		// A boolean widens as 0/1 to every numeric target.
		n := int64(0)
		if v.b {
			n = 1
		}
		v = Value{typ: TypeByte, i64: n}
	}
	switch target {
	case TypeByte, TypeShort, TypeInt, TypeLong:
		n, err := v.AsInt64()
		if err != nil && v.typ == TypeBoolean {
			n = 0
			if v.b {
				n = 1
			}
		} else if err != nil {
			return Value{}, err
		}
		return Value{typ: target, i64: n}, nil
	case TypeFloat, TypeDouble:
		f, err := v.AsFloat64()
		if err != nil {
			return Value{}, err
		}
		return Value{typ: target, f64: f}, nil
	case TypeComplex32, TypeComplex64:
		f, err := v.AsFloat64()
		if err != nil {
			return Value{}, err
		}
		return Value{typ: target, c: complex(f, 0)}, nil
	default:
		return Value{}, NewTypeError(CodeTypeMismatch, fmt.Sprintf("cannot widen %s to %s", v.typ, target))
	}
}

// Equals reports value equality after numeric promotion (§3). Two nulls of
// the same type compare equal; a null and a non-null never compare equal.
func (v Value) Equals(other Value) (bool, error) {
	if v.null || other.null {
		return v.null && other.null && v.typ == other.typ, nil
	}
	if v.typ.IsVector() || other.typ.IsVector() {
		return vectorEquals(v, other)
	}
	if v.typ == TypeString || other.typ == TypeString {
		if v.typ != TypeString || other.typ != TypeString {
			return false, nil
		}
		return v.s == other.s, nil
	}
	if v.typ.IsComplex() || other.typ.IsComplex() {
		ca, err := castToComplex(v)
		if err != nil {
			return false, err
		}
		cb, err := castToComplex(other)
		if err != nil {
			return false, err
		}
		return ca == cb, nil
	}
	pa, pb, err := Promote(v, other)
	if err != nil {
		return false, err
	}
	if pa.typ == TypeBoolean {
		return pa.b == pb.b, nil
	}
	if pa.typ == TypeFloat || pa.typ == TypeDouble {
		return pa.f64 == pb.f64, nil
	}
	return pa.i64 == pb.i64, nil
}

func castToComplex(v Value) (complex128, error) {
	if v.typ == TypeComplex32 || v.typ == TypeComplex64 {
		return v.c, nil
	}
	f, err := v.AsFloat64()
	if err != nil {
		return 0, err
	}
	return complex(f, 0), nil
}

func vectorEquals(a, b Value) (bool, error) {
	if a.LogicalSize() != b.LogicalSize() {
		return false, nil
	}
	if a.typ.IsComplex() || b.typ.IsComplex() {
		ca, err := a.AsComplex128Vector()
		if err != nil {
			ca = toComplexVector(a)
		}
		cb, err := b.AsComplex128Vector()
		if err != nil {
			cb = toComplexVector(b)
		}
		for i := range ca {
			if ca[i] != cb[i] {
				return false, nil
			}
		}
		return true, nil
	}
	fa, err := a.AsFloat64Vector()
	if err != nil {
		return false, err
	}
	fb, err := b.AsFloat64Vector()
	if err != nil {
		return false, err
	}
	for i := range fa {
		if fa[i] != fb[i] {
			return false, nil
		}
	}
	return true, nil
}

// Compare orders two non-null, non-vector, non-complex values (§3: complex
// values reject ordering — NewTypeError(CodeNotOrderable, ...)). Returns
// -1, 0, or 1.
func (v Value) Compare(other Value) (int, error) {
	if v.null || other.null {
		return 0, NewTypeError(CodeTypeMismatch, "cannot order a null value")
	}
	if v.typ.IsVector() || other.typ.IsVector() {
		return 0, NewTypeError(CodeNotOrderable, "vector values are not orderable")
	}
	if v.typ.IsComplex() || other.typ.IsComplex() {
		return 0, NewTypeError(CodeNotOrderable, "complex values are not orderable")
	}
	if v.typ == TypeString || other.typ == TypeString {
		if v.typ != TypeString || other.typ != TypeString {
			return 0, NewTypeError(CodeTypeMismatch, "cannot compare STRING with a numeric type")
		}
		switch {
		case v.s < other.s:
			return -1, nil
		case v.s > other.s:
			return 1, nil
		default:
			return 0, nil
		}
	}
	pa, pb, err := Promote(v, other)
	if err != nil {
		return 0, err
	}
	if pa.typ == TypeBoolean {
		if pa.b == pb.b {
			return 0, nil
		}
		if !pa.b {
			return -1, nil
		}
		return 1, nil
	}
	if pa.typ == TypeFloat || pa.typ == TypeDouble {
		return compareFloat(pa.f64, pb.f64), nil
	}
	return compareInt(pa.i64, pb.i64), nil
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Add performs numeric addition with promotion; vectors add element-wise
// (§3 "broadcasting arithmetic"). Strings and booleans are not addable.
func (v Value) Add(other Value) (Value, error) {
	return numericBinOp(v, other, func(a, b float64) float64 { return a + b },
		func(a, b int64) int64 { return a + b },
		func(a, b complex128) complex128 { return a + b })
}

func (v Value) Sub(other Value) (Value, error) {
	return numericBinOp(v, other, func(a, b float64) float64 { return a - b },
		func(a, b int64) int64 { return a - b },
		func(a, b complex128) complex128 { return a - b })
}

func (v Value) Mul(other Value) (Value, error) {
	return numericBinOp(v, other, func(a, b float64) float64 { return a * b },
		func(a, b int64) int64 { return a * b },
		func(a, b complex128) complex128 { return a * b })
}

func (v Value) Div(other Value) (Value, error) {
	return numericBinOp(v, other, func(a, b float64) float64 { return a / b },
		func(a, b int64) int64 {
			if b == 0 {
				return 0
			}
			return a / b
		},
		func(a, b complex128) complex128 { return a / b })
}

func numericBinOp(v, other Value, ff func(a, b float64) float64, fi func(a, b int64) int64, fc func(a, b complex128) complex128) (Value, error) {
	if v.typ == TypeString || other.typ == TypeString {
		return Value{}, NewTypeError(CodeTypeMismatch, "STRING does not support arithmetic")
	}
	if v.typ.IsVector() || other.typ.IsVector() {
		return vectorBinOp(v, other, ff, fc)
	}
	if v.typ.IsComplex() || other.typ.IsComplex() {
		ca, err := castToComplex(v)
		if err != nil {
			return Value{}, err
		}
		cb, err := castToComplex(other)
		if err != nil {
			return Value{}, err
		}
		return Value{typ: TypeComplex64, c: fc(ca, cb)}, nil
	}
	pa, pb, err := Promote(v, other)
	if err != nil {
		return Value{}, err
	}
	if pa.typ == TypeBoolean {
		return Value{}, NewTypeError(CodeTypeMismatch, "BOOLEAN does not support arithmetic")
	}
	if pa.typ == TypeFloat || pa.typ == TypeDouble {
		return Value{typ: pa.typ, f64: ff(pa.f64, pb.f64)}, nil
	}
	return Value{typ: pa.typ, i64: fi(pa.i64, pb.i64)}, nil
}

func vectorBinOp(v, other Value, ff func(a, b float64) float64, fc func(a, b complex128) complex128) (Value, error) {
	if v.LogicalSize() != other.LogicalSize() {
		return Value{}, NewSizeError(fmt.Sprintf("vector size mismatch: %d vs %d", v.LogicalSize(), other.LogicalSize()))
	}
	if v.typ.IsComplex() || other.typ.IsComplex() {
		ca, err := v.AsComplex128Vector()
		if err != nil {
			ca = toComplexVector(v)
		}
		cb, err := other.AsComplex128Vector()
		if err != nil {
			cb = toComplexVector(other)
		}
		out := make([]complex128, len(ca))
		for i := range ca {
			out[i] = fc(ca[i], cb[i])
		}
		return Complex64VectorValue(out), nil
	}
	fa, err := v.AsFloat64Vector()
	if err != nil {
		return Value{}, err
	}
	fb, err := other.AsFloat64Vector()
	if err != nil {
		return Value{}, err
	}
	out := make([]float64, len(fa))
	for i := range fa {
		out[i] = ff(fa[i], fb[i])
	}
	return DoubleVectorValue(out), nil
}

// Norm2 returns the Euclidean (L2) norm of a real or complex vector, used
// by cosine distance (§4.3).
func (v Value) Norm2() (float64, error) {
	if v.typ.IsComplex() {
		cv, err := v.AsComplex128Vector()
		if err != nil {
			return 0, err
		}
		var sum float64
		for _, e := range cv {
			sum += real(e)*real(e) + imag(e)*imag(e)
		}
		return math.Sqrt(sum), nil
	}
	fv, err := v.AsFloat64Vector()
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, e := range fv {
		sum += e * e
	}
	return math.Sqrt(sum), nil
}
