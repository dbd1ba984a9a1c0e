package cottontail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEqualsPromotesNumericTypes(t *testing.T) {
	eq, err := IntValue(3).Equals(DoubleValue(3.0))
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestValueEqualsNulls(t *testing.T) {
	eq, err := NullValue(TypeInt).Equals(NullValue(TypeInt))
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = NullValue(TypeInt).Equals(IntValue(0))
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestValueCompareRejectsComplex(t *testing.T) {
	_, err := Complex64Value(1 + 2i).Compare(Complex64Value(1 + 2i))
	require.Error(t, err)
	ce, ok := AsCottontailError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotOrderable, ce.Code)
}

func TestValueCompareOrdersPromoted(t *testing.T) {
	c, err := ByteValue(1).Compare(LongValue(2))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestValueArithmeticPromotesToWidestType(t *testing.T) {
	sum, err := IntValue(2).Add(DoubleValue(0.5))
	require.NoError(t, err)
	f, err := sum.AsFloat64()
	require.NoError(t, err)
	assert.InDelta(t, 2.5, f, 1e-9)
}

func TestValueVectorArithmeticBroadcasts(t *testing.T) {
	a := DoubleVectorValue([]float64{1, 2, 3})
	b := DoubleVectorValue([]float64{4, 5, 6})
	sum, err := a.Add(b)
	require.NoError(t, err)
	fv, err := sum.AsFloat64Vector()
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7, 9}, fv)
}

func TestValueVectorSizeMismatchErrors(t *testing.T) {
	a := DoubleVectorValue([]float64{1, 2})
	b := DoubleVectorValue([]float64{1, 2, 3})
	_, err := a.Add(b)
	require.Error(t, err)
	ce, ok := AsCottontailError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorKindSize, ce.Kind)
}

func TestComplexVectorLogicalSizeIsElementCount(t *testing.T) {
	v := Complex64VectorValue([]complex128{1 + 1i, 2 + 2i, 3 + 3i})
	assert.Equal(t, 3, v.LogicalSize())
}

func TestHermitianDotConjugatesSecondOperand(t *testing.T) {
	a := []complex128{1 + 2i}
	b := []complex128{1 + 2i}
	// <a,a> for a Hermitian inner product is real and equals |a|^2.
	got := hermitianDot(a, b)
	assert.InDelta(t, 5, real(got), 1e-9)
	assert.InDelta(t, 0, imag(got), 1e-9)
}

func TestColumnDefAcceptsNullOnlyWhenNullable(t *testing.T) {
	col := ColumnDef{Name: "x", Type: TypeInt, LogicalSize: 1, Nullable: false}
	err := col.Accepts(NullValue(TypeInt))
	require.Error(t, err)

	col.Nullable = true
	require.NoError(t, col.Accepts(NullValue(TypeInt)))
}

func TestColumnDefAcceptsRejectsVectorSizeMismatch(t *testing.T) {
	col := ColumnDef{Name: "v", Type: TypeDoubleVector, LogicalSize: 3}
	err := col.Accepts(DoubleVectorValue([]float64{1, 2}))
	require.Error(t, err)
	ce, ok := AsCottontailError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorKindSize, ce.Kind)
}

func TestColumnDefDefaultValue(t *testing.T) {
	col := ColumnDef{Name: "n", Type: TypeLong, LogicalSize: 1, Nullable: true}
	assert.True(t, col.Default().IsNull())

	col.Nullable = false
	v := col.Default()
	n, err := v.AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
