package exec

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottontaildb/cottontail"
	"github.com/cottontaildb/cottontail/internal/plan"
)

func TestLowerFullEntityScanReadsEveryRowAcrossSubScans(t *testing.T) {
	entity := testVectorEntity()
	records := testVectorRecords(entity, 10)
	source := newMemScanTxn(entity, records)
	lw := NewLowerer(source, 4)

	d, err := lw.Lower(context.Background(), plan.FullEntityScan{Entity: entity})
	require.NoError(t, err)

	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 10, out.Len())
}

func TestLowerRangedEntityScanSplitsIntoParallelTasksWithAllMerge(t *testing.T) {
	entity := testVectorEntity()
	records := testVectorRecords(entity, 20)
	source := newMemScanTxn(entity, records)
	lw := NewLowerer(source, 1)

	node := plan.RangedEntityScan{Entity: entity, Start: 0, End: 20, Parallelism: 4}
	d, err := lw.Lower(context.Background(), node)
	require.NoError(t, err)

	require.Equal(t, MergeAll, d.Root.Merge)
	assert.Len(t, d.Root.Tasks, 4)

	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 20, out.Len())
}

func TestLowerRangedEntityScanSingleTaskUsesOneMerge(t *testing.T) {
	entity := testVectorEntity()
	records := testVectorRecords(entity, 5)
	source := newMemScanTxn(entity, records)
	lw := NewLowerer(source, 1)

	node := plan.RangedEntityScan{Entity: entity, Start: 0, End: 5, Parallelism: 1}
	d, err := lw.Lower(context.Background(), node)
	require.NoError(t, err)
	assert.Equal(t, MergeOne, d.Root.Merge)
	assert.Len(t, d.Root.Tasks, 1)
}

func TestLowerFilterPredicateWrapsUpstreamScan(t *testing.T) {
	entity := testVectorEntity()
	records := testVectorRecords(entity, 10)
	source := newMemScanTxn(entity, records)
	lw := NewLowerer(source, 1)

	node := plan.FilterPredicate{
		Source:    plan.FullEntityScan{Entity: entity},
		Predicate: cottontail.Atom{Column: "score", Op: cottontail.OpGreaterEqual, Literal: cottontail.DoubleValue(5)},
	}
	d, err := lw.Lower(context.Background(), node)
	require.NoError(t, err)

	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len()) // scores 5..9
}

func TestLowerLimitAppliesSkipAndN(t *testing.T) {
	entity := testVectorEntity()
	records := testVectorRecords(entity, 10)
	source := newMemScanTxn(entity, records)
	lw := NewLowerer(source, 1)

	node := plan.Limit{Source: plan.FullEntityScan{Entity: entity}, N: 3, Skip: 2}
	d, err := lw.Lower(context.Background(), node)
	require.NoError(t, err)

	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
}

func TestLowerSampledEntityScanIsDeterministicBySeed(t *testing.T) {
	entity := testVectorEntity()
	records := testVectorRecords(entity, 100)
	source := newMemScanTxn(entity, records)

	run := func(seed int64) []cottontail.TupleID {
		lw := NewLowerer(source, 1)
		node := plan.SampledEntityScan{Entity: entity, Size: 10, Seed: seed}
		d, err := lw.Lower(context.Background(), node)
		require.NoError(t, err)
		out, err := NewExecutor().Run(context.Background(), d)
		require.NoError(t, err)
		ids := make([]cottontail.TupleID, 0, out.Len())
		out.ForEach(func(r cottontail.Record) bool {
			ids = append(ids, r.TupleID)
			return true
		})
		return ids
	}

	first := run(42)
	second := run(42)
	assert.Equal(t, first, second, "same seed must draw the same tuple ids")

	third := run(7)
	assert.NotEqual(t, first, third, "different seeds should (almost always) draw a different set")
}

func TestLowerKnnPredicateReturnsKNearestPerQuery(t *testing.T) {
	entity := testVectorEntity()
	records := testVectorRecords(entity, 20)
	source := newMemScanTxn(entity, records)
	lw := NewLowerer(source, 2)

	kernel, err := cottontail.NewDistanceKernel("euclidean")
	require.NoError(t, err)

	node := plan.KnnPredicate{
		Source:   plan.FullEntityScan{Entity: entity},
		Column:   "embedding",
		Queries:  [][]float64{{0, 1, 2}},
		K:        3,
		Distance: kernel,
	}
	d, err := lw.Lower(context.Background(), node)
	require.NoError(t, err)

	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())

	// record 0 has embedding {0,1,2} exactly, must be the nearest.
	found0 := false
	for _, r := range out.Rows() {
		if r.TupleID == 0 {
			found0 = true
			v, ok := r.Get("distance")
			require.True(t, ok)
			d, _ := v.AsFloat64()
			assert.InDelta(t, 0, d, 1e-9)
		}
	}
	assert.True(t, found0, "exact match must be in the top-3")
}

// TestLowerKnnPredicateAppliesPerQueryWeights reproduces the end-to-end
// scenario: weights=[2,1,1], query=[0,0,0] against vectors
// (A,[1,0,0]) and (B,[0,1,1]) using weighted-L2, expecting distances
// sqrt(2) and sqrt(2) respectively for both candidates.
func TestLowerKnnPredicateAppliesPerQueryWeights(t *testing.T) {
	entity := cottontail.Entity{
		Schema: "public",
		Name:   "vectors",
		Columns: []cottontail.ColumnDef{
			{Name: "id", Type: cottontail.TypeLong},
			{Name: "embedding", Type: cottontail.TypeDoubleVector, LogicalSize: 3},
		},
	}
	records := []cottontail.Record{
		{TupleID: 0, Columns: entity.Columns, Values: []cottontail.Value{cottontail.LongValue(0), cottontail.DoubleVectorValue([]float64{1, 0, 0})}},
		{TupleID: 1, Columns: entity.Columns, Values: []cottontail.Value{cottontail.LongValue(1), cottontail.DoubleVectorValue([]float64{0, 1, 1})}},
	}
	source := newMemScanTxn(entity, records)
	lw := NewLowerer(source, 1)

	kernel, err := cottontail.NewDistanceKernel("L2")
	require.NoError(t, err)

	node := plan.KnnPredicate{
		Source:  plan.FullEntityScan{Entity: entity},
		Column:  "embedding",
		Queries: [][]float64{{0, 0, 0}},
		K:       2,
		Distance: kernel,
		Weights: [][]float64{{2, 1, 1}},
	}
	d, err := lw.Lower(context.Background(), node)
	require.NoError(t, err)

	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	for _, r := range out.Rows() {
		v, ok := r.Get("distance")
		require.True(t, ok)
		dist, _ := v.AsFloat64()
		assert.InDelta(t, math.Sqrt2, dist, 1e-9)
	}
}

func TestLowerCombinedScanKnnFilterPushesPredicateIntoKnnTask(t *testing.T) {
	entity := testVectorEntity()
	records := testVectorRecords(entity, 20)
	source := newMemScanTxn(entity, records)
	lw := NewLowerer(source, 2)

	kernel, err := cottontail.NewDistanceKernel("euclidean")
	require.NoError(t, err)

	predicate := cottontail.Atom{Column: "score", Op: cottontail.OpGreaterEqual, Literal: cottontail.DoubleValue(10)}
	node := plan.CombinedScanKnnFilter{
		Source:    plan.FullEntityScan{Entity: entity},
		Predicate: predicate,
		Knn: plan.KnnPredicate{
			Source:   plan.FilterPredicate{Source: plan.FullEntityScan{Entity: entity}, Predicate: predicate},
			Column:   "embedding",
			Queries:  [][]float64{{10, 11, 12}},
			K:        5,
			Distance: kernel,
		},
	}
	d, err := lw.Lower(context.Background(), node)
	require.NoError(t, err)

	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	require.LessOrEqual(t, out.Len(), 5)
	for _, r := range out.Rows() {
		assert.GreaterOrEqual(t, int64(r.TupleID), int64(10), "filter must have excluded tuples with score < 10")
	}
}

func TestLowerProjectionCountAndFieldsDispatch(t *testing.T) {
	entity := testVectorEntity()
	records := testVectorRecords(entity, 5)
	source := newMemScanTxn(entity, records)
	lw := NewLowerer(source, 1)

	countNode := plan.Projection{Source: plan.FullEntityScan{Entity: entity}, Type: plan.ProjectionCount}
	d, err := lw.Lower(context.Background(), countNode)
	require.NoError(t, err)
	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	v, ok := out.At(0).Get("count")
	require.True(t, ok)
	n, _ := v.AsInt64()
	assert.Equal(t, int64(5), n)

	fieldsNode := plan.Projection{Source: plan.FullEntityScan{Entity: entity}, Type: plan.ProjectionFields, Fields: []string{"id"}}
	d, err = lw.Lower(context.Background(), fieldsNode)
	require.NoError(t, err)
	out, err = NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len())
	assert.Len(t, out.Columns, 1)
}

func TestLowerRejectsUnrecognisedNodeShape(t *testing.T) {
	entity := testVectorEntity()
	source := newMemScanTxn(entity, nil)
	lw := NewLowerer(source, 1)

	_, err := lw.Lower(context.Background(), plan.FetchColumns{Source: unsupportedNode{}, Cols: []string{"id"}})
	require.Error(t, err)
	var cerr *cottontail.CottontailError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, cottontail.ErrorKindBind, cerr.Kind)
}

type unsupportedNode struct{}

func (unsupportedNode) Cost(stats plan.EntityStats) plan.Cost       { return plan.Cost{} }
func (unsupportedNode) Explain(stats plan.EntityStats) plan.Explain { return plan.Explain{Kind: "unsupported"} }
func (unsupportedNode) Children() []plan.Node                       { return nil }
