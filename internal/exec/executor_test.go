package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottontaildb/cottontail"
)

func idRecordSetTask(id string, values ...int64) Task {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}
	return taskFunc{id: id, run: func(ctx context.Context, _ *cottontail.RecordSet) (*cottontail.RecordSet, error) {
		rs := cottontail.NewRecordSet(cols)
		for _, v := range values {
			rs.Append(cottontail.Record{TupleID: cottontail.TupleID(v), Columns: cols, Values: []cottontail.Value{cottontail.LongValue(v)}})
		}
		return rs, nil
	}}
}

func failingTask(id string) Task {
	return taskFunc{id: id, run: func(ctx context.Context, _ *cottontail.RecordSet) (*cottontail.RecordSet, error) {
		return nil, errors.New("boom")
	}}
}

func TestExecutorRunsSingleTaskScanStage(t *testing.T) {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}
	stage := NewStage(MergeOne, cols)
	stage.Tasks = []Task{idRecordSetTask(NewTaskID(), 1, 2, 3)}
	d := &DAG{Stages: []*Stage{stage}, Root: stage}

	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
}

func TestExecutorMergeAllConcatenatesUpstreams(t *testing.T) {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}
	a := NewStage(MergeOne, cols)
	a.Tasks = []Task{idRecordSetTask(NewTaskID(), 1, 2)}
	b := NewStage(MergeOne, cols)
	b.Tasks = []Task{idRecordSetTask(NewTaskID(), 3, 4)}
	merge := NewStage(MergeAll, cols, a, b)
	merge.Tasks = []Task{NewLimitTask(-1, 0)}

	d := &DAG{Stages: []*Stage{a, b, merge}, Root: merge}
	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())
}

func TestExecutorMergeOneRejectsMultipleUpstreams(t *testing.T) {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}
	a := NewStage(MergeOne, cols)
	a.Tasks = []Task{idRecordSetTask(NewTaskID(), 1)}
	b := NewStage(MergeOne, cols)
	b.Tasks = []Task{idRecordSetTask(NewTaskID(), 2)}
	top := NewStage(MergeOne, cols, a, b)
	top.Tasks = []Task{NewLimitTask(-1, 0)}

	d := &DAG{Stages: []*Stage{a, b, top}, Root: top}
	_, err := NewExecutor().Run(context.Background(), d)
	require.Error(t, err)
	var cerr *cottontail.CottontailError
	require.ErrorAs(t, err, &cerr)
}

func TestExecutorRunsMultiTaskStageConcurrently(t *testing.T) {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}
	stage := NewStage(MergeOne, cols)
	stage.Tasks = []Task{
		idRecordSetTask(NewTaskID(), 1),
		idRecordSetTask(NewTaskID(), 2),
		idRecordSetTask(NewTaskID(), 3),
	}
	d := &DAG{Stages: []*Stage{stage}, Root: stage}

	out, err := NewExecutor().Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
}

func TestExecutorPropagatesTaskFailureAsExecutionError(t *testing.T) {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}
	stage := NewStage(MergeOne, cols)
	stage.Tasks = []Task{failingTask(NewTaskID())}
	d := &DAG{Stages: []*Stage{stage}, Root: stage}

	_, err := NewExecutor().Run(context.Background(), d)
	require.Error(t, err)
	var cerr *cottontail.CottontailError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, cottontail.ErrorKindExecution, cerr.Kind)
}

func TestExecutorFailsStageWhenOneOfSeveralTasksFails(t *testing.T) {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}
	stage := NewStage(MergeOne, cols)
	stage.Tasks = []Task{
		failingTask(NewTaskID()),
		idRecordSetTask(NewTaskID(), 1),
	}
	d := &DAG{Stages: []*Stage{stage}, Root: stage}

	_, err := NewExecutor().Run(context.Background(), d)
	require.Error(t, err)
}
