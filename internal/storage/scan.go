package storage

import (
	"context"

	"github.com/cottontaildb/cottontail"
)

// scanTxn is the hot-tier EntityScanTxn implementation: a read-only
// cursor over a Store's resident rows in tuple-id order (§4.6).
type scanTxn struct {
	store  *Store
	closed bool
}

func (t *scanTxn) Entity() cottontail.Entity { return t.store.entity }

func (t *scanTxn) MaxTupleID(_ context.Context) (cottontail.TupleID, error) {
	if t.store.rowCount == 0 {
		return -1, nil
	}
	return cottontail.TupleID(t.store.nextID - 1), nil
}

func (t *scanTxn) ForEach(ctx context.Context, action func(cottontail.Record) (bool, error)) error {
	max, err := t.MaxTupleID(ctx)
	if err != nil {
		return err
	}
	return t.ForEachRange(ctx, 0, max+1, action)
}

func (t *scanTxn) ForEachRange(ctx context.Context, lo, hi cottontail.TupleID, action func(cottontail.Record) (bool, error)) error {
	return t.ForEachMatching(ctx, lo, hi, nil, action)
}

func (t *scanTxn) ForEachMatching(ctx context.Context, lo, hi cottontail.TupleID, predicate cottontail.Predicate, action func(cottontail.Record) (bool, error)) error {
	for id := lo; id < hi; id++ {
		select {
		case <-ctx.Done():
			return cottontail.NewCancelledError("entity scan cancelled").WithCause(ctx.Err())
		default:
		}
		r, err := t.store.Row(id)
		if err != nil {
			return err
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

func (t *scanTxn) Close() error {
	t.closed = true
	return nil
}
