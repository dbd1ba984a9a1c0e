package plan

import (
	"github.com/cottontaildb/cottontail"
)

// CombinedScanKnnFilter is the single-scan lowering of a KnnPredicate with
// a companion FilterPredicate on the same entity (§4.7, §11 "cost-based
// rule selection"): the filter is evaluated inline during the same pass
// that computes distances, rather than as a separate downstream stage.
type CombinedScanKnnFilter struct {
	Source    Node
	Predicate cottontail.Predicate
	Knn       KnnPredicate
}

func (n CombinedScanKnnFilter) Children() []Node { return []Node{n.Source} }

func (n CombinedScanKnnFilter) Cost(stats EntityStats) Cost {
	base := n.Source.Cost(stats)
	dims := stats.ColumnSizes[n.Knn.Column]
	memPerQuery := float64(stats.RowCount) * n.Knn.Distance.Cost(dims)
	return base.Add(Cost{Mem: memPerQuery * float64(len(n.Knn.Queries))})
}

func (n CombinedScanKnnFilter) Explain(stats EntityStats) Explain {
	return Explain{Kind: "CombinedScanKnnFilter", Detail: n.Knn.Column, Cost: n.Cost(stats), Children: []Explain{n.Source.Explain(stats)}}
}

// CombineKnnWithFilter applies the required rule: a KnnPredicate directly
// fed by a FilterPredicate over the same source is rewritten into one
// CombinedScanKnnFilter node when doing so is cheaper than leaving them as
// two separate stages (the filter stage's own memory term plus the plain
// KnnPredicate cost). Otherwise the two nodes are returned unchanged.
func CombineKnnWithFilter(knn KnnPredicate, stats EntityStats) Node {
	filter, ok := knn.Source.(FilterPredicate)
	if !ok {
		return knn
	}

	separate := filter.Cost(stats).Add(KnnPredicate{
		Source: filter, Column: knn.Column, Queries: knn.Queries, K: knn.K, Distance: knn.Distance, Weights: knn.Weights,
	}.Cost(stats))

	combined := CombinedScanKnnFilter{Source: filter.Source, Predicate: filter.Predicate, Knn: knn}
	combinedCost := combined.Cost(stats)

	if combinedCost.Total() < separate.Total() {
		return combined
	}
	return knn
}

// SplitParallelRangedScan rewrites a RangedEntityScan with Parallelism > 1
// into an explicit fan of sub-scans the executor will lower to parallel
// tasks joined by an ALL-merge stage (§4.7, §4.8).
func SplitParallelRangedScan(scan RangedEntityScan) []RangedEntityScan {
	return scan.Split()
}
