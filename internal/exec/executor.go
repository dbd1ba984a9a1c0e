package exec

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cottontaildb/cottontail"
)

// Executor runs a DAG to completion, evaluating stages in reverse
// topological order and, within a stage, running its tasks concurrently
// under an errgroup so the first task failure cancels its siblings and
// aborts the plan (§4.8, §5, §7 "the executor converts the first task
// failure into a plan failure; siblings are cancelled").
type Executor struct{}

func NewExecutor() *Executor { return &Executor{} }

// Run executes d and returns the root stage's merged output.
func (e *Executor) Run(ctx context.Context, d *DAG) (*cottontail.RecordSet, error) {
	results := make(map[string]*cottontail.RecordSet, len(d.Stages))

	for _, stage := range d.topoOrder() {
		input, err := mergeUpstreams(stage, results)
		if err != nil {
			return nil, err
		}

		out, err := e.runStage(ctx, stage, input)
		if err != nil {
			return nil, cottontail.NewExecutionError("stage failed").WithCause(err).WithDetail("stage", stage.ID)
		}
		results[stage.ID] = out
	}

	return results[d.Root.ID], nil
}

func mergeUpstreams(stage *Stage, results map[string]*cottontail.RecordSet) (*cottontail.RecordSet, error) {
	if len(stage.Upstreams) == 0 {
		return nil, nil
	}
	switch stage.Merge {
	case MergeOne:
		if len(stage.Upstreams) != 1 {
			return nil, cottontail.NewBindError(cottontail.CodeUnserialisablePlan, "ONE merge requires exactly one upstream")
		}
		return results[stage.Upstreams[0].ID], nil
	case MergeAll:
		var cols []cottontail.ColumnDef
		for _, u := range stage.Upstreams {
			if r := results[u.ID]; r != nil {
				cols = r.Columns
				break
			}
		}
		merged := cottontail.NewRecordSet(cols)
		for _, u := range stage.Upstreams {
			r := results[u.ID]
			if r == nil {
				continue
			}
			r.ForEach(func(rec cottontail.Record) bool {
				merged.Append(rec)
				return true
			})
		}
		return merged, nil
	default:
		return nil, cottontail.NewBindError(cottontail.CodeUnserialisablePlan, "unknown stage merge rule")
	}
}

// runStage evaluates every task of stage concurrently against the same
// input, then concatenates their outputs in task-declaration order (a
// scan stage's tasks are its parallel sub-scans over disjoint ranges, so
// concatenation preserves per-range order per §5's ordering guarantee).
func (e *Executor) runStage(ctx context.Context, stage *Stage, input *cottontail.RecordSet) (*cottontail.RecordSet, error) {
	if len(stage.Tasks) == 1 {
		return stage.Tasks[0].Run(ctx, input)
	}

	outputs := make([]*cottontail.RecordSet, len(stage.Tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, task := range stage.Tasks {
		i, task := i, task
		g.Go(func() error {
			out, err := task.Run(gctx, input)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := cottontail.NewRecordSet(stage.Columns)
	for _, out := range outputs {
		if out == nil {
			continue
		}
		out.ForEach(func(r cottontail.Record) bool {
			merged.Append(r)
			return true
		})
	}
	return merged, nil
}
