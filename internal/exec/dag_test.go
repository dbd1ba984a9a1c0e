package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cottontaildb/cottontail"
)

func TestTopoOrderVisitsUpstreamsBeforeDownstreams(t *testing.T) {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}

	scanA := NewStage(MergeOne, cols)
	scanB := NewStage(MergeOne, cols)
	merge := NewStage(MergeAll, cols, scanA, scanB)
	top := NewStage(MergeOne, cols, merge)

	d := &DAG{Stages: []*Stage{scanA, scanB, merge, top}, Root: top}
	order := d.topoOrder()

	require.Len(t, order, 4)
	pos := make(map[string]int, len(order))
	for i, s := range order {
		pos[s.ID] = i
	}
	assert.Less(t, pos[scanA.ID], pos[merge.ID])
	assert.Less(t, pos[scanB.ID], pos[merge.ID])
	assert.Less(t, pos[merge.ID], pos[top.ID])
	assert.Equal(t, top.ID, order[len(order)-1].ID)
}

func TestTopoOrderDeduplicatesSharedUpstream(t *testing.T) {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}

	shared := NewStage(MergeOne, cols)
	left := NewStage(MergeOne, cols, shared)
	right := NewStage(MergeOne, cols, shared)
	top := NewStage(MergeAll, cols, left, right)

	d := &DAG{Stages: []*Stage{shared, left, right, top}, Root: top}
	order := d.topoOrder()

	count := 0
	for _, s := range order {
		if s.ID == shared.ID {
			count++
		}
	}
	assert.Equal(t, 1, count, "a diamond-shaped DAG must visit the shared upstream exactly once")
	assert.Len(t, order, 4)
}

func TestNewStageGeneratesDistinctIDs(t *testing.T) {
	cols := []cottontail.ColumnDef{{Name: "id", Type: cottontail.TypeLong}}
	a := NewStage(MergeOne, cols)
	b := NewStage(MergeOne, cols)
	assert.NotEqual(t, a.ID, b.ID)
}
