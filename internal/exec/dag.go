package exec

import (
	"github.com/cottontaildb/cottontail"
)

// MergeRule names how a stage combines the outputs of its upstream
// stages (§4.8): ONE passes a single upstream's output straight through,
// ALL concatenates every upstream's output in declaration order.
type MergeRule string

const (
	MergeOne MergeRule = "ONE"
	MergeAll MergeRule = "ALL"
)

// Stage is one node of the execution DAG: a merge rule over zero or more
// upstream stages, and the tasks that run once those upstreams have
// produced their output. A stage with more than one task runs them
// concurrently (§5 "within a stage it may evaluate parallel tasks
// concurrently"); a scan stage's tasks are its parallel sub-scans.
type Stage struct {
	ID        string
	Merge     MergeRule
	Upstreams []*Stage
	Tasks     []Task
	Columns   []cottontail.ColumnDef
}

// NewStage creates a stage with a generated id.
func NewStage(merge MergeRule, columns []cottontail.ColumnDef, upstreams ...*Stage) *Stage {
	return &Stage{ID: NewTaskID(), Merge: merge, Upstreams: upstreams, Columns: columns}
}

// DAG is the full lowered plan: an ordered list of stages in topological
// (upstream-first) order, with Root the final stage whose output is the
// plan's result.
type DAG struct {
	Stages []*Stage
	Root   *Stage
}

// topoOrder returns stages in reverse topological order (§4.8 "the
// executor evaluates stages in reverse topological order"): upstreams
// before downstreams, discovered via a post-order DFS from Root.
func (d *DAG) topoOrder() []*Stage {
	visited := make(map[string]bool)
	var order []*Stage
	var visit func(s *Stage)
	visit = func(s *Stage) {
		if visited[s.ID] {
			return
		}
		visited[s.ID] = true
		for _, u := range s.Upstreams {
			visit(u)
		}
		order = append(order, s)
	}
	visit(d.Root)
	return order
}
