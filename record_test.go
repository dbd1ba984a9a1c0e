package cottontail

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleColumns() []ColumnDef {
	return []ColumnDef{
		{Name: "id", Type: TypeLong},
		{Name: "score", Type: TypeDouble},
	}
}

func sampleRecordSet() *RecordSet {
	cols := sampleColumns()
	rs := NewRecordSet(cols)
	rs.Append(Record{TupleID: 1, Columns: cols, Values: []Value{LongValue(1), DoubleValue(10)}})
	rs.Append(Record{TupleID: 2, Columns: cols, Values: []Value{LongValue(2), DoubleValue(20)}})
	rs.Append(Record{TupleID: 3, Columns: cols, Values: []Value{LongValue(3), NullValue(TypeDouble)}})
	return rs
}

func TestRecordSetFilter(t *testing.T) {
	rs := sampleRecordSet()
	filtered, err := rs.Filter(func(r Record) (bool, error) {
		v, _ := r.Get("id")
		n, _ := v.AsInt64()
		return n > 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Len())
}

func TestRecordSetProjectWithRename(t *testing.T) {
	rs := sampleRecordSet()
	projected, err := rs.Project([]string{"score"}, map[string]string{"score": "s"})
	require.NoError(t, err)
	assert.Equal(t, "s", projected.Columns[0].Name)
	assert.Equal(t, 3, projected.Len())
}

func TestRecordSetProjectUnknownColumn(t *testing.T) {
	rs := sampleRecordSet()
	_, err := rs.Project([]string{"nope"}, nil)
	require.Error(t, err)
}

func TestRecordSetDistinctIsOrderPreservingOnFirstOccurrence(t *testing.T) {
	cols := sampleColumns()
	rs := NewRecordSet(cols)
	rs.Append(Record{TupleID: 1, Columns: cols, Values: []Value{LongValue(1), DoubleValue(1)}})
	rs.Append(Record{TupleID: 2, Columns: cols, Values: []Value{LongValue(1), DoubleValue(1)}})
	rs.Append(Record{TupleID: 3, Columns: cols, Values: []Value{LongValue(2), DoubleValue(2)}})

	distinct, err := rs.Distinct()
	require.NoError(t, err)
	require.Equal(t, 2, distinct.Len())
	assert.Equal(t, TupleID(1), distinct.At(0).TupleID)
	assert.Equal(t, TupleID(3), distinct.At(1).TupleID)
}

func TestRecordSetLimitSkip(t *testing.T) {
	rs := sampleRecordSet()
	limited := rs.Limit(1, 1)
	assert.Equal(t, 1, limited.Len())
	assert.Equal(t, TupleID(2), limited.At(0).TupleID)
}

func TestRecordSetLimitSkipBeyondLength(t *testing.T) {
	rs := sampleRecordSet()
	limited := rs.Limit(5, 10)
	assert.Equal(t, 0, limited.Len())
}

func TestRecordSetCountExists(t *testing.T) {
	rs := sampleRecordSet()
	n, err := rs.Count().At(0).Values[0].AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	b, err := rs.Exists().At(0).Values[0].AsBool()
	require.NoError(t, err)
	assert.True(t, b)
}

func TestRecordSetAggregatesSkipNulls(t *testing.T) {
	rs := sampleRecordSet()

	sumRS, err := rs.Sum("score")
	require.NoError(t, err)
	sum, _ := sumRS.At(0).Values[0].AsFloat64()
	assert.InDelta(t, 30, sum, 1e-9)

	meanRS, err := rs.Mean("score")
	require.NoError(t, err)
	mean, _ := meanRS.At(0).Values[0].AsFloat64()
	assert.InDelta(t, 15, mean, 1e-9)
}

func TestRecordSetAggregatesOnEmptyInput(t *testing.T) {
	rs := NewRecordSet(sampleColumns())

	minRS, err := rs.Min("score")
	require.NoError(t, err)
	min, _ := minRS.At(0).Values[0].AsFloat64()
	assert.True(t, math.IsInf(min, 1))

	maxRS, err := rs.Max("score")
	require.NoError(t, err)
	max, _ := maxRS.At(0).Values[0].AsFloat64()
	assert.True(t, math.IsInf(max, -1))

	sumRS, err := rs.Sum("score")
	require.NoError(t, err)
	sum, _ := sumRS.At(0).Values[0].AsFloat64()
	assert.Equal(t, 0.0, sum)

	meanRS, err := rs.Mean("score")
	require.NoError(t, err)
	mean, _ := meanRS.At(0).Values[0].AsFloat64()
	assert.True(t, math.IsNaN(mean))
}

func TestRecordSetAggregateRejectsNonNumericColumn(t *testing.T) {
	cols := []ColumnDef{{Name: "name", Type: TypeString}}
	rs := NewRecordSet(cols)
	rs.Append(Record{Columns: cols, Values: []Value{StringValue("a")}})
	_, err := rs.Sum("name")
	require.Error(t, err)
	ce, ok := AsCottontailError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNonNumericColumn, ce.Code)
}
