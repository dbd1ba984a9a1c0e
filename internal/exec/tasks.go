package exec

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cottontaildb/cottontail"
	"github.com/cottontaildb/cottontail/internal/plan"
)

// Task is one unit of sequential work inside a stage (§5 "a single task's
// body is sequential"). Run receives the concatenated input of its
// stage's upstreams (empty for a scan task) and returns this task's rows.
type Task interface {
	ID() string
	Run(ctx context.Context, input *cottontail.RecordSet) (*cottontail.RecordSet, error)
}

type taskFunc struct {
	id  string
	run func(ctx context.Context, input *cottontail.RecordSet) (*cottontail.RecordSet, error)
}

func (t taskFunc) ID() string { return t.id }
func (t taskFunc) Run(ctx context.Context, input *cottontail.RecordSet) (*cottontail.RecordSet, error) {
	return t.run(ctx, input)
}

// NewScanTask reads rows in [lo,hi) from source, in tuple-id order,
// applying an optional predicate pushed down to the scan.
func NewScanTask(source cottontail.EntityScanTxn, lo, hi cottontail.TupleID, predicate cottontail.Predicate, cols []cottontail.ColumnDef) Task {
	return taskFunc{id: NewTaskID(), run: func(ctx context.Context, _ *cottontail.RecordSet) (*cottontail.RecordSet, error) {
		rs := cottontail.NewRecordSet(cols)
		err := source.ForEachMatching(ctx, lo, hi, predicate, func(r cottontail.Record) (bool, error) {
			rs.Append(r)
			return true, nil
		})
		if err != nil {
			return nil, err
		}
		return rs, nil
	}}
}

// NewFilterTask evaluates predicate against every row of its input.
func NewFilterTask(predicate cottontail.Predicate) Task {
	return taskFunc{id: NewTaskID(), run: func(ctx context.Context, input *cottontail.RecordSet) (*cottontail.RecordSet, error) {
		return input.Filter(predicate.Eval)
	}}
}

// NewProjectionTask keeps/renames fields.
func NewProjectionTask(fields []string, rename map[string]string) Task {
	return taskFunc{id: NewTaskID(), run: func(ctx context.Context, input *cottontail.RecordSet) (*cottontail.RecordSet, error) {
		return input.Project(fields, rename)
	}}
}

// NewLimitTask discards the first skip rows, keeps up to n.
func NewLimitTask(n, skip int) Task {
	return taskFunc{id: NewTaskID(), run: func(ctx context.Context, input *cottontail.RecordSet) (*cottontail.RecordSet, error) {
		return input.Limit(n, skip), nil
	}}
}

// NewDistinctTask removes duplicate rows by structural equality.
func NewDistinctTask() Task {
	return taskFunc{id: NewTaskID(), run: func(ctx context.Context, input *cottontail.RecordSet) (*cottontail.RecordSet, error) {
		return input.Distinct()
	}}
}

// KnnQuery is one query vector (and optional per-dimension weight vector)
// of a kNN predicate.
type KnnQuery struct {
	Vector []float64
	Weight []float64
}

// NewKnnTask evaluates m independent top-k heaps against source, one per
// query vector, admitting (tupleId, distance_i) for every candidate row
// (§4.8 kNN execution contract). It shares one mutex-guarded heap set
// across however many sub-scan workers feed it.
func NewKnnTask(source cottontail.EntityScanTxn, lo, hi cottontail.TupleID, column string, queries []KnnQuery, k int, kernel cottontail.DistanceKernel, parallelism int, predicate cottontail.Predicate) Task {
	return taskFunc{id: NewTaskID(), run: func(ctx context.Context, _ *cottontail.RecordSet) (*cottontail.RecordSet, error) {
		heaps := make([]*cottontail.BoundedTopK, len(queries))
		for i := range heaps {
			h, err := cottontail.NewBoundedTopK(k)
			if err != nil {
				return nil, err
			}
			heaps[i] = h
		}

		ranges := splitRange(lo, hi, parallelism)
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for _, r := range ranges {
			r := r
			g.Go(func() error {
				return source.ForEachMatching(gctx, r.lo, r.hi, predicate, func(rec cottontail.Record) (bool, error) {
					v, ok := rec.Get(column)
					if !ok || v.IsNull() {
						return true, nil
					}
					for i, q := range queries {
						dist, err := kernel.WeightedDistance(v, cottontail.DoubleVectorValue(q.Vector), q.Weight)
						if err != nil {
							continue
						}
						mu.Lock()
						heaps[i].Offer(rec.TupleID, dist)
						mu.Unlock()
					}
					return true, nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		cols := []cottontail.ColumnDef{
			{Name: "tupleId", Type: cottontail.TypeLong},
			{Name: "distance", Type: cottontail.TypeDouble},
		}
		rs := cottontail.NewRecordSet(cols)
		for _, h := range heaps {
			for _, res := range h.Results() {
				rs.Append(cottontail.Record{
					TupleID: res.TupleID,
					Columns: cols,
					Values:  []cottontail.Value{cottontail.LongValue(int64(res.TupleID)), cottontail.DoubleValue(res.Distance)},
				})
			}
		}
		return rs, nil
	}}
}

// NewAggregateTask reduces input to a single record for count/exists or a
// numeric aggregate over col (§4.5).
func NewAggregateTask(kind plan.ProjectionType, col string) Task {
	return taskFunc{id: NewTaskID(), run: func(ctx context.Context, input *cottontail.RecordSet) (*cottontail.RecordSet, error) {
		switch kind {
		case plan.ProjectionCount:
			return input.Count(), nil
		case plan.ProjectionExists:
			return input.Exists(), nil
		case plan.ProjectionMin:
			return input.Min(col)
		case plan.ProjectionMax:
			return input.Max(col)
		case plan.ProjectionSum:
			return input.Sum(col)
		case plan.ProjectionMean:
			return input.Mean(col)
		default:
			return nil, cottontail.NewBindError(cottontail.CodeUnserialisablePlan, "unknown aggregate kind")
		}
	}}
}

type tupleRange struct{ lo, hi cottontail.TupleID }

func splitRange(lo, hi cottontail.TupleID, parallelism int) []tupleRange {
	if parallelism <= 1 {
		return []tupleRange{{lo, hi}}
	}
	total := int64(hi - lo)
	chunk := total / int64(parallelism)
	if chunk == 0 {
		chunk = 1
	}
	var out []tupleRange
	cur := lo
	for i := 0; i < parallelism && cur < hi; i++ {
		end := cur + cottontail.TupleID(chunk)
		if i == parallelism-1 || end > hi {
			end = hi
		}
		out = append(out, tupleRange{cur, end})
		cur = end
	}
	return out
}
