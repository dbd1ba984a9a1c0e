package exec

import (
	"context"
	"sort"

	"github.com/cottontaildb/cottontail"
)

// memScanTxn is an in-process EntityScanTxn backed by a slice of records,
// used so lowering/executor tests never depend on internal/storage or
// internal/coldtier.
type memScanTxn struct {
	entity  cottontail.Entity
	records []cottontail.Record
}

func newMemScanTxn(entity cottontail.Entity, records []cottontail.Record) *memScanTxn {
	sorted := make([]cottontail.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TupleID < sorted[j].TupleID })
	return &memScanTxn{entity: entity, records: sorted}
}

func (m *memScanTxn) Entity() cottontail.Entity { return m.entity }

func (m *memScanTxn) MaxTupleID(ctx context.Context) (cottontail.TupleID, error) {
	if len(m.records) == 0 {
		return -1, nil
	}
	return m.records[len(m.records)-1].TupleID, nil
}

func (m *memScanTxn) ForEach(ctx context.Context, action func(cottontail.Record) (bool, error)) error {
	return m.ForEachMatching(ctx, 0, cottontail.TupleID(1<<62), nil, action)
}

func (m *memScanTxn) ForEachRange(ctx context.Context, lo, hi cottontail.TupleID, action func(cottontail.Record) (bool, error)) error {
	return m.ForEachMatching(ctx, lo, hi, nil, action)
}

func (m *memScanTxn) ForEachMatching(ctx context.Context, lo, hi cottontail.TupleID, predicate cottontail.Predicate, action func(cottontail.Record) (bool, error)) error {
	for _, r := range m.records {
		if err := ctx.Err(); err != nil {
			return cottontail.NewCancelledError("scan cancelled").WithCause(err)
		}
		if r.TupleID < lo || r.TupleID >= hi {
			continue
		}
		if predicate != nil {
			ok, err := predicate.Eval(r)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		cont, err := action(r)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (m *memScanTxn) Close() error { return nil }

func testVectorEntity() cottontail.Entity {
	return cottontail.Entity{
		Schema: "public",
		Name:   "vectors",
		Columns: []cottontail.ColumnDef{
			{Name: "id", Type: cottontail.TypeLong},
			{Name: "score", Type: cottontail.TypeDouble},
			{Name: "embedding", Type: cottontail.TypeDoubleVector, LogicalSize: 3},
		},
	}
}

func testVectorRecords(entity cottontail.Entity, n int) []cottontail.Record {
	out := make([]cottontail.Record, n)
	for i := 0; i < n; i++ {
		out[i] = cottontail.Record{
			TupleID: cottontail.TupleID(i),
			Columns: entity.Columns,
			Values: []cottontail.Value{
				cottontail.LongValue(int64(i)),
				cottontail.DoubleValue(float64(i)),
				cottontail.DoubleVectorValue([]float64{float64(i), float64(i) + 1, float64(i) + 2}),
			},
		}
	}
	return out
}
