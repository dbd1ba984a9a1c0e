package binder

import (
	"context"

	"github.com/cottontaildb/cottontail"
	"github.com/cottontaildb/cottontail/internal/plan"
	"github.com/cottontaildb/cottontail/internal/wire"
)

// Bound is the result of binding a wire request: the assembled plan
// tree, the scan transaction it reads from (the caller must Close it
// once the plan has been executed), and the stats the executor's cost
// model needs.
type Bound struct {
	Plan  plan.Node
	Scan  cottontail.EntityScanTxn
	Stats plan.EntityStats
}

// Binder resolves a wire.QueryRequest against the catalogue and a
// Registry of scan sources, producing the logical plan lower.go lowers
// into an executable DAG.
type Binder struct {
	catalogue cottontail.Catalogue
	registry  Registry
}

func NewBinder(catalogue cottontail.Catalogue, registry Registry) *Binder {
	return &Binder{catalogue: catalogue, registry: registry}
}

// Bind resolves req's schema.entity, builds the combined hot/cold scan
// source, and assembles the plan tree: a full scan, narrowed by an
// optional filter, an optional kNN predicate (combined with the filter
// per plan.CombineKnnWithFilter when cheaper), a projection, and an
// optional limit (§4.7, §6).
func (b *Binder) Bind(ctx context.Context, req wire.QueryRequest) (*Bound, error) {
	entity, err := b.catalogue.Entity(ctx, req.Schema, req.Entity)
	if err != nil {
		return nil, err
	}

	src, err := b.registry.Source(ctx, req.Schema, req.Entity)
	if err != nil {
		return nil, err
	}
	scan := newCombinedScanTxn(src)

	maxTupleID, err := scan.MaxTupleID(ctx)
	if err != nil {
		return nil, err
	}
	stats := entityStats(entity, maxTupleID)

	var node plan.Node = plan.FullEntityScan{Entity: entity}

	var filterPredicate cottontail.Predicate
	if req.Filter != nil {
		filterPredicate, err = toPredicate(entity, *req.Filter)
		if err != nil {
			return nil, err
		}
		node = plan.FilterPredicate{Source: node, Predicate: filterPredicate}
	}

	if req.Knn != nil {
		knn, err := toKnnPredicate(entity, node, *req.Knn)
		if err != nil {
			return nil, err
		}
		node = plan.CombineKnnWithFilter(knn, stats)
	}

	node, err = toProjection(entity, node, req.Projection)
	if err != nil {
		return nil, err
	}

	if req.Limit != nil {
		skip := 0
		if req.Skip != nil {
			skip = *req.Skip
		}
		node = plan.Limit{Source: node, N: *req.Limit, Skip: skip}
	}

	return &Bound{Plan: node, Scan: scan, Stats: stats}, nil
}

func toKnnPredicate(entity cottontail.Entity, source plan.Node, req wire.KnnRequest) (plan.KnnPredicate, error) {
	if _, ok := entity.Column(req.Column); !ok {
		return plan.KnnPredicate{}, cottontail.NewBindError(cottontail.CodeUnknownColumn, "unknown kNN column "+req.Column)
	}
	kernel, err := resolveDistanceKernel(req)
	if err != nil {
		return plan.KnnPredicate{}, err
	}
	return plan.KnnPredicate{
		Source:   source,
		Column:   req.Column,
		Queries:  req.Queries,
		K:        req.K,
		Distance: kernel,
		Weights:  req.Weights,
	}, nil
}

// resolveDistanceKernel picks the kernel named by req.Distance. "Lp" is
// the one name that isn't self-describing (§4.3 "L_p, Minkowski, generic
// integer p"); it needs req.Exponent to say which p, which is otherwise
// unreachable over the wire since KnnRequest.Distance is a bare name.
func resolveDistanceKernel(req wire.KnnRequest) (cottontail.DistanceKernel, error) {
	if req.Distance == "Lp" {
		if req.Exponent == nil {
			return nil, cottontail.NewBindError(cottontail.CodeMissingField, "Lp kernel requires an exponent field")
		}
		return cottontail.NewLpKernel(*req.Exponent)
	}
	return cottontail.NewDistanceKernel(req.Distance)
}

func toProjection(entity cottontail.Entity, source plan.Node, req wire.ProjectionRequest) (plan.Node, error) {
	t := plan.ProjectionType(req.Type)
	switch t {
	case plan.ProjectionFields, plan.ProjectionDistinct:
		for _, f := range req.Fields {
			if _, ok := entity.Column(f); !ok {
				return nil, cottontail.NewBindError(cottontail.CodeUnknownColumn, "unknown projection field "+f)
			}
		}
		return plan.Projection{Source: source, Type: t, Fields: req.Fields, Rename: req.Rename}, nil
	case plan.ProjectionCount, plan.ProjectionExists:
		return plan.Projection{Source: source, Type: t}, nil
	case plan.ProjectionMin, plan.ProjectionMax, plan.ProjectionSum, plan.ProjectionMean:
		col, ok := entity.Column(req.Column)
		if !ok {
			return nil, cottontail.NewBindError(cottontail.CodeUnknownColumn, "unknown aggregate column "+req.Column)
		}
		if col.Type.IsVector() {
			return nil, cottontail.NewBindError(cottontail.CodeNonNumericColumn, "aggregate column must be scalar: "+req.Column)
		}
		return plan.Projection{Source: source, Type: t, Column: req.Column}, nil
	default:
		return nil, cottontail.NewBindError(cottontail.CodeMalformedPredicate, "unknown projection type "+req.Type)
	}
}

func entityStats(entity cottontail.Entity, maxTupleID cottontail.TupleID) plan.EntityStats {
	sizes := make(map[string]int, len(entity.Columns))
	for _, c := range entity.Columns {
		p := c.PhysicalSize()
		if p < 0 {
			p = 64
		}
		sizes[c.Name] = p
	}
	rows := int64(maxTupleID) + 1
	if maxTupleID < 0 {
		rows = 0
	}
	return plan.EntityStats{RowCount: rows, ColumnSizes: sizes}
}
