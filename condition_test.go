package cottontail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conditionTestRecord() Record {
	cols := []ColumnDef{
		{Name: "age", Type: TypeInt},
		{Name: "name", Type: TypeString},
		{Name: "nickname", Type: TypeString, Nullable: true},
	}
	return Record{
		Columns: cols,
		Values:  []Value{IntValue(30), StringValue("alice"), NullValue(TypeString)},
	}
}

func TestAtomEqual(t *testing.T) {
	r := conditionTestRecord()
	ok, err := Atom{Column: "age", Op: OpEqual, Literal: LongValue(30)}.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAtomComparisons(t *testing.T) {
	r := conditionTestRecord()
	cases := []struct {
		op   CompareOp
		lit  Value
		want bool
	}{
		{OpLess, IntValue(40), true},
		{OpGreaterEqual, IntValue(30), true},
		{OpNotEqual, IntValue(31), true},
	}
	for _, c := range cases {
		ok, err := Atom{Column: "age", Op: c.op, Literal: c.lit}.Eval(r)
		require.NoError(t, err)
		assert.Equal(t, c.want, ok)
	}
}

func TestAtomLike(t *testing.T) {
	r := conditionTestRecord()
	ok, err := Atom{Column: "name", Op: OpLike, Literal: StringValue("al%")}.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Atom{Column: "name", Op: OpLike, Literal: StringValue("%ice")}.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Atom{Column: "name", Op: OpLike, Literal: StringValue("bob")}.Eval(r)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAtomIn(t *testing.T) {
	r := conditionTestRecord()
	ok, err := Atom{Column: "age", Op: OpIn, Set: []Value{IntValue(10), IntValue(30)}}.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAtomBetween(t *testing.T) {
	r := conditionTestRecord()
	ok, err := Atom{Column: "age", Op: OpBetween, Lo: IntValue(20), Hi: IntValue(40)}.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAtomIsNull(t *testing.T) {
	r := conditionTestRecord()
	ok, err := Atom{Column: "nickname", Op: OpIsNull}.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAtomNullValuePropagatesFalseNotError(t *testing.T) {
	r := conditionTestRecord()
	ok, err := Atom{Column: "nickname", Op: OpEqual, Literal: StringValue("x")}.Eval(r)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompositeConditionAnd(t *testing.T) {
	r := conditionTestRecord()
	cond := CompositeCondition{
		Logic: LogicAnd,
		Conditions: []Predicate{
			Atom{Column: "age", Op: OpGreater, Literal: IntValue(10)},
			Atom{Column: "name", Op: OpEqual, Literal: StringValue("alice")},
		},
	}
	ok, err := cond.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompositeConditionOr(t *testing.T) {
	r := conditionTestRecord()
	cond := CompositeCondition{
		Logic: LogicOr,
		Conditions: []Predicate{
			Atom{Column: "age", Op: OpEqual, Literal: IntValue(1)},
			Atom{Column: "name", Op: OpEqual, Literal: StringValue("alice")},
		},
	}
	ok, err := cond.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompositeConditionNotRequiresOneChild(t *testing.T) {
	cond := CompositeCondition{Logic: LogicNot, Conditions: []Predicate{}}
	_, err := cond.Eval(conditionTestRecord())
	require.Error(t, err)
}

func TestCompositeConditionNotNegates(t *testing.T) {
	r := conditionTestRecord()
	cond := CompositeCondition{
		Logic:      LogicNot,
		Conditions: []Predicate{Atom{Column: "age", Op: OpEqual, Literal: IntValue(1)}},
	}
	ok, err := cond.Eval(r)
	require.NoError(t, err)
	assert.True(t, ok)
}
