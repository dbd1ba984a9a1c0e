package exec

import (
	"context"
	"math/rand"

	"github.com/cottontaildb/cottontail"
	"github.com/cottontaildb/cottontail/internal/plan"
)

// Lowerer turns a plan.Node tree into an executable DAG, using source to
// service every scan node the tree contains (§4.8 "lowering turns each
// logical node into one or more stages").
type Lowerer struct {
	Source      cottontail.EntityScanTxn
	DefaultPar  int
}

func NewLowerer(source cottontail.EntityScanTxn, defaultParallelism int) *Lowerer {
	if defaultParallelism < 1 {
		defaultParallelism = 1
	}
	return &Lowerer{Source: source, DefaultPar: defaultParallelism}
}

// Lower builds a DAG whose Root stage, once run, produces node's result.
func (lw *Lowerer) Lower(ctx context.Context, node plan.Node) (*DAG, error) {
	d := &DAG{}
	root, err := lw.lowerNode(ctx, node, d)
	if err != nil {
		return nil, err
	}
	d.Root = root
	return d, nil
}

func (lw *Lowerer) lowerNode(ctx context.Context, node plan.Node, d *DAG) (*Stage, error) {
	switch n := node.(type) {
	case plan.FullEntityScan:
		return lw.lowerRangedScan(ctx, plan.RangedEntityScan{Entity: n.Entity, Start: 0, End: mustMax(ctx, lw.Source) + 1}, nil, d)

	case plan.RangedEntityScan:
		return lw.lowerRangedScan(ctx, n, nil, d)

	case plan.SampledEntityScan:
		return lw.lowerSampledScan(ctx, n, d)

	case plan.FetchColumns:
		// Column narrowing happens at projection time; the scan already
		// reads the full row, so this node is a pass-through in the DAG.
		return lw.lowerNode(ctx, n.Source, d)

	case plan.FilterPredicate:
		upstream, err := lw.lowerNode(ctx, n.Source, d)
		if err != nil {
			return nil, err
		}
		stage := NewStage(MergeOne, upstream.Columns, upstream)
		stage.Tasks = []Task{NewFilterTask(n.Predicate)}
		d.Stages = append(d.Stages, stage)
		return stage, nil

	case plan.KnnPredicate:
		return lw.lowerKnn(ctx, n, d)

	case plan.CombinedScanKnnFilter:
		return lw.lowerCombinedKnnFilter(ctx, n, d)

	case plan.Projection:
		upstream, err := lw.lowerNode(ctx, n.Source, d)
		if err != nil {
			return nil, err
		}
		return lw.lowerProjection(n, upstream, d)

	case plan.Limit:
		upstream, err := lw.lowerNode(ctx, n.Source, d)
		if err != nil {
			return nil, err
		}
		stage := NewStage(MergeOne, upstream.Columns, upstream)
		stage.Tasks = []Task{NewLimitTask(n.N, n.Skip)}
		d.Stages = append(d.Stages, stage)
		return stage, nil

	default:
		return nil, cottontail.NewBindError(cottontail.CodeUnserialisablePlan, "lowering does not recognise this plan node shape")
	}
}

func mustMax(ctx context.Context, source cottontail.EntityScanTxn) cottontail.TupleID {
	max, err := source.MaxTupleID(ctx)
	if err != nil {
		return 0
	}
	return max
}

// lowerRangedScan splits n into Parallelism sub-scans, each its own task
// within one stage; a single sub-scan is still wrapped in a stage so
// downstream nodes always see a uniform ONE/ALL upstream shape. Multiple
// sub-scans use an ALL merge, which doubles as the "explicit serialising
// stage" §11 requires before any distinct()/limit() consumes a
// parallel scan's output: by the time a downstream stage's task runs, the
// ALL merge has already produced one deterministically ordered record set.
func (lw *Lowerer) lowerRangedScan(ctx context.Context, n plan.RangedEntityScan, predicate cottontail.Predicate, d *DAG) (*Stage, error) {
	par := n.Parallelism
	if par < 1 {
		par = lw.DefaultPar
	}
	ranged := n
	ranged.Parallelism = par
	parts := ranged.Split()

	cols := n.Entity.Columns
	stage := NewStage(mergeRuleFor(len(parts)), cols)
	for _, p := range parts {
		stage.Tasks = append(stage.Tasks, NewScanTask(lw.Source, p.Start, p.End, predicate, cols))
	}
	d.Stages = append(d.Stages, stage)
	return stage, nil
}

func mergeRuleFor(parts int) MergeRule {
	if parts > 1 {
		return MergeAll
	}
	return MergeOne
}

// tupleIDSetPredicate matches rows whose tuple id is in a fixed set, used
// to realise a sampled scan's deterministic draw over the full range.
type tupleIDSetPredicate struct {
	ids map[cottontail.TupleID]struct{}
}

func (p tupleIDSetPredicate) IsLeaf() bool { return true }
func (p tupleIDSetPredicate) Eval(r cottontail.Record) (bool, error) {
	_, ok := p.ids[r.TupleID]
	return ok, nil
}

func (lw *Lowerer) lowerSampledScan(ctx context.Context, n plan.SampledEntityScan, d *DAG) (*Stage, error) {
	max, err := lw.Source.MaxTupleID(ctx)
	if err != nil {
		return nil, err
	}
	total := int64(max) + 1
	if total <= 0 {
		total = 1
	}

	rng := rand.New(rand.NewSource(n.Seed))
	ids := make(map[cottontail.TupleID]struct{}, n.Size)
	for len(ids) < n.Size && int64(len(ids)) < total {
		ids[cottontail.TupleID(rng.Int63n(total))] = struct{}{}
	}

	cols := n.Entity.Columns
	stage := NewStage(MergeOne, cols)
	stage.Tasks = []Task{NewScanTask(lw.Source, 0, max+1, tupleIDSetPredicate{ids: ids}, cols)}
	d.Stages = append(d.Stages, stage)
	return stage, nil
}

func (lw *Lowerer) lowerKnn(ctx context.Context, n plan.KnnPredicate, d *DAG) (*Stage, error) {
	var lo, hi cottontail.TupleID
	var predicate cottontail.Predicate
	par := lw.DefaultPar

	switch src := n.Source.(type) {
	case plan.RangedEntityScan:
		lo, hi = src.Start, src.End
		if src.Parallelism > 0 {
			par = src.Parallelism
		}
	case plan.FullEntityScan:
		max, err := lw.Source.MaxTupleID(ctx)
		if err != nil {
			return nil, err
		}
		lo, hi = 0, max+1
	case plan.FilterPredicate:
		inner, err := lw.lowerKnnSource(ctx, src)
		if err != nil {
			return nil, err
		}
		lo, hi, predicate = inner.lo, inner.hi, src.Predicate
	default:
		return nil, cottontail.NewBindError(cottontail.CodeUnserialisablePlan, "knn predicate requires a scan-shaped source")
	}

	queries := make([]KnnQuery, len(n.Queries))
	for i, q := range n.Queries {
		kq := KnnQuery{Vector: q}
		if i < len(n.Weights) {
			kq.Weight = n.Weights[i]
		}
		queries[i] = kq
	}

	cols := []cottontail.ColumnDef{
		{Name: "tupleId", Type: cottontail.TypeLong},
		{Name: "distance", Type: cottontail.TypeDouble},
	}
	stage := NewStage(MergeOne, cols)
	stage.Tasks = []Task{NewKnnTask(lw.Source, lo, hi, n.Column, queries, n.K, n.Distance, par, predicate)}
	d.Stages = append(d.Stages, stage)
	return stage, nil
}

// lowerCombinedKnnFilter lowers the planner's single-scan rewrite (§11
// "cost-based rule selection"): the filter is pushed down to the same
// scan task that computes distances, never materialised as its own
// upstream stage.
func (lw *Lowerer) lowerCombinedKnnFilter(ctx context.Context, n plan.CombinedScanKnnFilter, d *DAG) (*Stage, error) {
	var lo, hi cottontail.TupleID
	par := lw.DefaultPar

	switch src := n.Source.(type) {
	case plan.RangedEntityScan:
		lo, hi = src.Start, src.End
		if src.Parallelism > 0 {
			par = src.Parallelism
		}
	case plan.FullEntityScan:
		max, err := lw.Source.MaxTupleID(ctx)
		if err != nil {
			return nil, err
		}
		lo, hi = 0, max+1
	default:
		return nil, cottontail.NewBindError(cottontail.CodeUnserialisablePlan, "combined scan-knn-filter requires a scan-shaped source")
	}

	queries := make([]KnnQuery, len(n.Knn.Queries))
	for i, q := range n.Knn.Queries {
		kq := KnnQuery{Vector: q}
		if i < len(n.Knn.Weights) {
			kq.Weight = n.Knn.Weights[i]
		}
		queries[i] = kq
	}

	cols := []cottontail.ColumnDef{
		{Name: "tupleId", Type: cottontail.TypeLong},
		{Name: "distance", Type: cottontail.TypeDouble},
	}
	stage := NewStage(MergeOne, cols)
	stage.Tasks = []Task{NewKnnTask(lw.Source, lo, hi, n.Knn.Column, queries, n.Knn.K, n.Knn.Distance, par, n.Predicate)}
	d.Stages = append(d.Stages, stage)
	return stage, nil
}

type knnSourceRange struct {
	lo, hi cottontail.TupleID
	entity cottontail.Entity
}

func (lw *Lowerer) lowerKnnSource(ctx context.Context, filter plan.FilterPredicate) (knnSourceRange, error) {
	switch src := filter.Source.(type) {
	case plan.RangedEntityScan:
		return knnSourceRange{lo: src.Start, hi: src.End, entity: src.Entity}, nil
	case plan.FullEntityScan:
		max, err := lw.Source.MaxTupleID(ctx)
		if err != nil {
			return knnSourceRange{}, err
		}
		return knnSourceRange{lo: 0, hi: max + 1, entity: src.Entity}, nil
	default:
		return knnSourceRange{}, cottontail.NewBindError(cottontail.CodeUnserialisablePlan, "filter+knn combination requires a scan-shaped source")
	}
}

func (lw *Lowerer) lowerProjection(n plan.Projection, upstream *Stage, d *DAG) (*Stage, error) {
	stage := NewStage(MergeOne, upstream.Columns, upstream)
	switch n.Type {
	case plan.ProjectionFields:
		stage.Tasks = []Task{NewProjectionTask(n.Fields, n.Rename)}
	case plan.ProjectionDistinct:
		stage.Tasks = []Task{NewDistinctTask()}
	default:
		stage.Tasks = []Task{NewAggregateTask(n.Type, n.Column)}
	}
	d.Stages = append(d.Stages, stage)
	return stage, nil
}
