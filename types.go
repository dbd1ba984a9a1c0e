package cottontail

import "fmt"

// ValueType is the tag of Cottontail's discriminated value union (§3).
type ValueType int

const (
	TypeBoolean ValueType = iota
	TypeByte
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeString
	TypeComplex32
	TypeComplex64

	TypeBooleanVector
	TypeByteVector
	TypeShortVector
	TypeIntVector
	TypeLongVector
	TypeFloatVector
	TypeDoubleVector
	TypeComplex32Vector
	TypeComplex64Vector
)

func (t ValueType) String() string {
	switch t {
	case TypeBoolean:
		return "BOOLEAN"
	case TypeByte:
		return "BYTE"
	case TypeShort:
		return "SHORT"
	case TypeInt:
		return "INT"
	case TypeLong:
		return "LONG"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeString:
		return "STRING"
	case TypeComplex32:
		return "COMPLEX32"
	case TypeComplex64:
		return "COMPLEX64"
	case TypeBooleanVector:
		return "BOOLEAN_VECTOR"
	case TypeByteVector:
		return "BYTE_VECTOR"
	case TypeShortVector:
		return "SHORT_VECTOR"
	case TypeIntVector:
		return "INT_VECTOR"
	case TypeLongVector:
		return "LONG_VECTOR"
	case TypeFloatVector:
		return "FLOAT_VECTOR"
	case TypeDoubleVector:
		return "DOUBLE_VECTOR"
	case TypeComplex32Vector:
		return "COMPLEX32_VECTOR"
	case TypeComplex64Vector:
		return "COMPLEX64_VECTOR"
	default:
		return "UNKNOWN"
	}
}

// IsVector reports whether t is one of the vector variants.
func (t ValueType) IsVector() bool {
	return t >= TypeBooleanVector
}

// IsComplex reports whether t's elements are complex numbers.
func (t ValueType) IsComplex() bool {
	return t == TypeComplex32 || t == TypeComplex64 || t == TypeComplex32Vector || t == TypeComplex64Vector
}

// ScalarOf returns the scalar element type that a vector type is built
// from; it is the identity for scalar types.
func (t ValueType) ScalarOf() ValueType {
	if !t.IsVector() {
		return t
	}
	return t - (TypeBooleanVector - TypeBoolean)
}

// elementWidth returns the physical byte width of one element of t's
// scalar form, used to compute a value's physical size.
func (t ValueType) elementWidth() int {
	switch t.ScalarOf() {
	case TypeBoolean, TypeByte:
		return 1
	case TypeShort:
		return 2
	case TypeInt, TypeFloat:
		return 4
	case TypeLong, TypeDouble:
		return 8
	case TypeComplex32:
		return 8 // two float32
	case TypeComplex64:
		return 16 // two float64
	case TypeString:
		return -1 // variable length, handled separately
	default:
		return -1
	}
}

// TupleID is a 64-bit monotonically assigned row identifier within an
// entity (§3). It is never reused and is unique within its entity.
type TupleID int64

// ColumnDef is the fully-qualified definition of one column: its name,
// logical type, logical size (element count for vectors, 1 for scalars),
// and nullability (§3).
type ColumnDef struct {
	Schema      string
	Entity      string
	Name        string
	Type        ValueType
	LogicalSize int
	Nullable    bool
}

// QualifiedName returns "schema.entity.column".
func (c ColumnDef) QualifiedName() string {
	return fmt.Sprintf("%s.%s.%s", c.Schema, c.Entity, c.Name)
}

// PhysicalSize returns the on-disk byte footprint of a value valid for
// this column, excluding any variable-length framing (§6 persisted state
// layout handles strings and unpinned vectors separately via a length
// prefix).
func (c ColumnDef) PhysicalSize() int {
	width := c.Type.elementWidth()
	if width < 0 {
		return -1 // variable length
	}
	if c.Type.IsVector() {
		return width * c.LogicalSize
	}
	return width
}

// Accepts reports whether v is a valid value for this column: type
// compatible, and for vector types, of matching logical size. Null is
// valid iff the column is nullable.
func (c ColumnDef) Accepts(v Value) error {
	if v.IsNull() {
		if !c.Nullable {
			return NewTypeError(CodeTypeMismatch, fmt.Sprintf("column %s is not nullable", c.QualifiedName()))
		}
		return nil
	}
	if v.Type() != c.Type {
		return NewTypeError(CodeTypeMismatch, fmt.Sprintf("column %s expects %s, got %s", c.QualifiedName(), c.Type, v.Type()))
	}
	if c.Type.IsVector() && v.LogicalSize() != c.LogicalSize {
		return NewSizeError(fmt.Sprintf("column %s declares logical size %d, value has %d", c.QualifiedName(), c.LogicalSize, v.LogicalSize()))
	}
	return nil
}

// Default returns the default value for this column: zero/empty of the
// declared type when not nullable, otherwise null (§3).
func (c ColumnDef) Default() Value {
	if c.Nullable {
		return NullValue(c.Type)
	}
	return ZeroValue(c.Type, c.LogicalSize)
}

// Record maps a fixed set of column-defs to values, plus a tuple id (§3).
type Record struct {
	TupleID TupleID
	Columns []ColumnDef
	Values  []Value
}

// Get returns the value stored for the named column, or false if the
// column isn't part of this record's schema.
func (r Record) Get(name string) (Value, bool) {
	for i, c := range r.Columns {
		if c.Name == name {
			return r.Values[i], true
		}
	}
	return Value{}, false
}

// Equal performs a structural, value-by-value comparison, used by
// RecordSet.Distinct (§4.5 invariant 6).
func (r Record) Equal(other Record) bool {
	if len(r.Values) != len(other.Values) {
		return false
	}
	for i := range r.Values {
		eq, err := r.Values[i].Equals(other.Values[i])
		if err != nil || !eq {
			return false
		}
	}
	return true
}
