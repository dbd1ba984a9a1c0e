package cottontail

import "math"

// RecordSet is an ordered sequence of records sharing a fixed column
// schema (§4.5). It is the in-memory intermediate result passed between
// execution tasks.
type RecordSet struct {
	Columns []ColumnDef
	rows    []Record
}

// NewRecordSet creates an empty record set with the given schema.
func NewRecordSet(columns []ColumnDef) *RecordSet {
	return &RecordSet{Columns: columns}
}

// Append adds r to the set. The caller is responsible for r.Columns
// matching the set's schema; Append does not re-validate on every call
// since it sits on the executor's hot row path.
func (rs *RecordSet) Append(r Record) {
	rs.rows = append(rs.rows, r)
}

func (rs *RecordSet) Len() int { return len(rs.rows) }

// At returns the i-th row.
func (rs *RecordSet) At(i int) Record { return rs.rows[i] }

// Rows returns the underlying rows; callers must not mutate the slice.
func (rs *RecordSet) Rows() []Record { return rs.rows }

// ForEach applies fn to every row in tuple-id/index order, stopping early
// if fn returns false.
func (rs *RecordSet) ForEach(fn func(Record) bool) {
	for _, r := range rs.rows {
		if !fn(r) {
			return
		}
	}
}

// columnIndex resolves a column name against the schema.
func (rs *RecordSet) columnIndex(name string) (int, error) {
	for i, c := range rs.Columns {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, NewBindError(CodeUnknownColumn, "unknown column "+name)
}

// Filter returns a new record set containing only rows for which pred
// returns true (§4.5).
func (rs *RecordSet) Filter(pred func(Record) (bool, error)) (*RecordSet, error) {
	out := NewRecordSet(rs.Columns)
	for _, r := range rs.rows {
		ok, err := pred(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Append(r)
		}
	}
	return out, nil
}

// Project returns a new record set over a subset of columns, optionally
// renamed via the rename map (oldName -> newName); names absent from
// rename are kept as-is (§6 "projection: type + fields + optional rename
// map").
func (rs *RecordSet) Project(fields []string, rename map[string]string) (*RecordSet, error) {
	idx := make([]int, len(fields))
	cols := make([]ColumnDef, len(fields))
	for i, f := range fields {
		ci, err := rs.columnIndex(f)
		if err != nil {
			return nil, err
		}
		idx[i] = ci
		col := rs.Columns[ci]
		if newName, ok := rename[f]; ok {
			col.Name = newName
		}
		cols[i] = col
	}
	out := NewRecordSet(cols)
	for _, r := range rs.rows {
		values := make([]Value, len(idx))
		for i, ci := range idx {
			values[i] = r.Values[ci]
		}
		out.Append(Record{TupleID: r.TupleID, Columns: cols, Values: values})
	}
	return out, nil
}

// Distinct removes duplicate rows by structural value equality; first
// occurrence wins and its tuple id is retained (§4.5, §8 property 6:
// idempotent and order-preserving on first occurrences).
func (rs *RecordSet) Distinct() (*RecordSet, error) {
	out := NewRecordSet(rs.Columns)
	seenTupleIDs := NewSet[TupleID]()
	for _, r := range rs.rows {
		// Overlapping parallel sub-scans can re-emit the same tuple id;
		// catch that case in O(1) before falling back to the general
		// structural comparison required across differently-sourced rows.
		if seenTupleIDs.Contains(r.TupleID) {
			continue
		}
		dup := false
		for _, seen := range out.rows {
			if r.Equal(seen) {
				dup = true
				break
			}
		}
		if !dup {
			out.Append(r)
			seenTupleIDs.Add(r.TupleID)
		}
	}
	return out, nil
}

// Limit discards the first skip rows and keeps the next up-to-n (§4.5,
// §8 property 5). Result cardinality is min(n, max(0, total-skip)); a
// negative n keeps every row after the first skip.
func (rs *RecordSet) Limit(n, skip int) *RecordSet {
	out := NewRecordSet(rs.Columns)
	if skip < 0 {
		skip = 0
	}
	if skip >= len(rs.rows) {
		return out
	}
	end := skip + n
	if n < 0 || end > len(rs.rows) {
		end = len(rs.rows)
	}
	out.rows = append(out.rows, rs.rows[skip:end]...)
	return out
}

// scalarColumn is the fixed single-column schema of every 1x1 aggregate
// result set (§4.5).
func scalarColumn(name string, t ValueType) []ColumnDef {
	return []ColumnDef{{Schema: "", Entity: "", Name: name, Type: t, LogicalSize: 1}}
}

func oneByOne(name string, t ValueType, v Value) *RecordSet {
	rs := NewRecordSet(scalarColumn(name, t))
	rs.Append(Record{Columns: rs.Columns, Values: []Value{v}})
	return rs
}

// Count returns a 1x1 record set with a long cardinality (§4.5).
func (rs *RecordSet) Count() *RecordSet {
	return oneByOne("count", TypeLong, LongValue(int64(len(rs.rows))))
}

// Exists returns a 1x1 record set with a boolean (§4.5).
func (rs *RecordSet) Exists() *RecordSet {
	return oneByOne("exists", TypeBoolean, BoolValue(len(rs.rows) > 0))
}

// Min returns a 1x1 double record set holding the minimum of col over all
// rows; +Inf for an empty input (§4.5).
func (rs *RecordSet) Min(col string) (*RecordSet, error) {
	vals, err := rs.numericColumn(col)
	if err != nil {
		return nil, err
	}
	min := math.Inf(1)
	for _, v := range vals {
		if v < min {
			min = v
		}
	}
	return oneByOne("min", TypeDouble, DoubleValue(min)), nil
}

// Max returns a 1x1 double record set holding the maximum of col over all
// rows; -Inf for an empty input (§4.5).
func (rs *RecordSet) Max(col string) (*RecordSet, error) {
	vals, err := rs.numericColumn(col)
	if err != nil {
		return nil, err
	}
	max := math.Inf(-1)
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	return oneByOne("max", TypeDouble, DoubleValue(max)), nil
}

// Sum returns a 1x1 double record set holding the sum of col; 0 for an
// empty input (§4.5).
func (rs *RecordSet) Sum(col string) (*RecordSet, error) {
	vals, err := rs.numericColumn(col)
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return oneByOne("sum", TypeDouble, DoubleValue(sum)), nil
}

// Mean returns a 1x1 double record set holding the arithmetic mean of
// col; NaN for an empty input (§4.5).
func (rs *RecordSet) Mean(col string) (*RecordSet, error) {
	vals, err := rs.numericColumn(col)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return oneByOne("mean", TypeDouble, DoubleValue(math.NaN())), nil
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return oneByOne("mean", TypeDouble, DoubleValue(sum/float64(len(vals)))), nil
}

// numericColumn resolves col, requires it be numeric non-vector (§4.5
// "requires col numeric"), and widens every non-null value to double,
// skipping nulls.
func (rs *RecordSet) numericColumn(col string) ([]float64, error) {
	ci, err := rs.columnIndex(col)
	if err != nil {
		return nil, err
	}
	def := rs.Columns[ci]
	if def.Type.IsVector() || def.Type == TypeString || def.Type.IsComplex() {
		return nil, NewTypeError(CodeNonNumericColumn, "aggregate over non-numeric column "+col)
	}
	out := make([]float64, 0, len(rs.rows))
	for _, r := range rs.rows {
		v := r.Values[ci]
		if v.IsNull() {
			continue
		}
		f, err := v.AsFloat64()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
