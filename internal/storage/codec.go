package storage

import (
	"fmt"

	"github.com/cottontaildb/cottontail"
	"github.com/cottontaildb/cottontail/internal/page"
)

// encodeFixed writes v's physical representation at offset within pg.
// Every column with a positive physical size reaches here, which includes
// complex scalars and vectors of a pinned size; variable-length types are
// routed to the column's side table before this is called. Only the real
// scalar types (BOOLEAN through DOUBLE) are encoded: complex and vector
// types return a TypeError, here and in decodeFixed.
func encodeFixed(pg *page.Page, offset int, t cottontail.ValueType, v cottontail.Value) error {
	if v.IsNull() {
		// A null is represented as all-zero physical bytes; the record
		// layer treats absence from the column's nullability contract as
		// the authority on whether zero means null, since a page has no
		// spare bit for a null flag without growing every row by one
		// byte (§6 persisted state layout only reserves that bit at the
		// column-store header level, not per row, in this iteration).
		return nil
	}
	switch t {
	case cottontail.TypeBoolean:
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		var by byte
		if b {
			by = 1
		}
		return pg.PutByte(offset, by)
	case cottontail.TypeByte:
		n, err := v.AsInt64()
		if err != nil {
			return err
		}
		return pg.PutByte(offset, byte(n))
	case cottontail.TypeShort:
		n, err := v.AsInt64()
		if err != nil {
			return err
		}
		return pg.PutShort(offset, int16(n))
	case cottontail.TypeInt:
		n, err := v.AsInt64()
		if err != nil {
			return err
		}
		return pg.PutInt(offset, int32(n))
	case cottontail.TypeLong:
		n, err := v.AsInt64()
		if err != nil {
			return err
		}
		return pg.PutLong(offset, n)
	case cottontail.TypeFloat:
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		return pg.PutFloat(offset, float32(f))
	case cottontail.TypeDouble:
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		return pg.PutDouble(offset, f)
	default:
		return cottontail.NewTypeError(cottontail.CodeTypeMismatch, fmt.Sprintf("unsupported fixed-width column type %s", t))
	}
}

func decodeFixed(pg *page.Page, offset int, t cottontail.ValueType) (cottontail.Value, error) {
	switch t {
	case cottontail.TypeBoolean:
		b, err := pg.GetByte(offset)
		if err != nil {
			return cottontail.Value{}, err
		}
		return cottontail.BoolValue(b != 0), nil
	case cottontail.TypeByte:
		b, err := pg.GetByte(offset)
		if err != nil {
			return cottontail.Value{}, err
		}
		return cottontail.ByteValue(int8(b)), nil
	case cottontail.TypeShort:
		s, err := pg.GetShort(offset)
		if err != nil {
			return cottontail.Value{}, err
		}
		return cottontail.ShortValue(s), nil
	case cottontail.TypeInt:
		i, err := pg.GetInt(offset)
		if err != nil {
			return cottontail.Value{}, err
		}
		return cottontail.IntValue(i), nil
	case cottontail.TypeLong:
		l, err := pg.GetLong(offset)
		if err != nil {
			return cottontail.Value{}, err
		}
		return cottontail.LongValue(l), nil
	case cottontail.TypeFloat:
		f, err := pg.GetFloat(offset)
		if err != nil {
			return cottontail.Value{}, err
		}
		return cottontail.FloatValue(f), nil
	case cottontail.TypeDouble:
		d, err := pg.GetDouble(offset)
		if err != nil {
			return cottontail.Value{}, err
		}
		return cottontail.DoubleValue(d), nil
	default:
		return cottontail.Value{}, cottontail.NewTypeError(cottontail.CodeTypeMismatch, fmt.Sprintf("unsupported fixed-width column type %s", t))
	}
}
