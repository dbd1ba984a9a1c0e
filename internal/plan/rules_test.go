package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottontaildb/cottontail"
)

func TestCombineKnnWithFilterProducesCombinedNodeWhenCheaper(t *testing.T) {
	kernel, err := cottontail.NewDistanceKernel("euclidean")
	require.NoError(t, err)

	entity := testPlanEntity()
	scan := FullEntityScan{Entity: entity}
	filter := FilterPredicate{Source: scan, Predicate: cottontail.Atom{Column: "id", Op: cottontail.OpGreaterEqual, Literal: cottontail.LongValue(0)}}
	knn := KnnPredicate{Source: filter, Column: "embedding", Queries: [][]float64{make([]float64, 128)}, K: 5, Distance: kernel}

	combined := CombineKnnWithFilter(knn, testStats())
	_, ok := combined.(CombinedScanKnnFilter)
	assert.True(t, ok, "expected filter+knn over the same source to combine into one scan")
}

func TestCombineKnnWithFilterLeavesUnrelatedSourceAlone(t *testing.T) {
	kernel, err := cottontail.NewDistanceKernel("euclidean")
	require.NoError(t, err)

	entity := testPlanEntity()
	scan := FullEntityScan{Entity: entity}
	knn := KnnPredicate{Source: scan, Column: "embedding", Queries: [][]float64{make([]float64, 128)}, K: 5, Distance: kernel}

	result := CombineKnnWithFilter(knn, testStats())
	_, ok := result.(KnnPredicate)
	assert.True(t, ok, "a knn predicate with no filter source must pass through unchanged")
}

func TestSplitParallelRangedScanMatchesNodeSplit(t *testing.T) {
	scan := RangedEntityScan{Entity: testPlanEntity(), Start: 0, End: 30, Parallelism: 3}
	parts := SplitParallelRangedScan(scan)
	require.Len(t, parts, 3)
	assert.Equal(t, cottontail.TupleID(10), parts[0].End)
}
