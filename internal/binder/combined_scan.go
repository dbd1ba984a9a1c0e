package binder

import (
	"context"

	"github.com/cottontaildb/cottontail"
)

// combinedScanTxn merges a hot and a cold EntityScanTxn into one cursor,
// splitting any [lo, hi) range at the registry's cold watermark so
// plan/exec never need to know a tuple id range has been evicted to the
// archive (§11). When Cold is nil the hot source is used directly.
type combinedScanTxn struct {
	src Source
}

func newCombinedScanTxn(src Source) cottontail.EntityScanTxn {
	if src.Cold == nil {
		return src.Hot
	}
	return &combinedScanTxn{src: src}
}

func (t *combinedScanTxn) Entity() cottontail.Entity { return t.src.Hot.Entity() }

func (t *combinedScanTxn) MaxTupleID(ctx context.Context) (cottontail.TupleID, error) {
	return t.src.Hot.MaxTupleID(ctx)
}

func (t *combinedScanTxn) ForEach(ctx context.Context, action func(cottontail.Record) (bool, error)) error {
	max, err := t.MaxTupleID(ctx)
	if err != nil {
		return err
	}
	return t.ForEachRange(ctx, 0, max+1, action)
}

func (t *combinedScanTxn) ForEachRange(ctx context.Context, lo, hi cottontail.TupleID, action func(cottontail.Record) (bool, error)) error {
	return t.ForEachMatching(ctx, lo, hi, nil, action)
}

// ForEachMatching splits [lo, hi) at the watermark: the portion below it
// is read from Cold, the portion at or above it from Hot. A range
// entirely on one side never touches the other.
func (t *combinedScanTxn) ForEachMatching(ctx context.Context, lo, hi cottontail.TupleID, predicate cottontail.Predicate, action func(cottontail.Record) (bool, error)) error {
	watermark := t.src.ColdWatermark

	if lo < watermark {
		coldHi := hi
		if coldHi > watermark {
			coldHi = watermark
		}
		if lo < coldHi {
			stop := false
			err := t.src.Cold.ForEachMatching(ctx, lo, coldHi, predicate, func(r cottontail.Record) (bool, error) {
				cont, err := action(r)
				if !cont {
					stop = true
				}
				return cont, err
			})
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}

	hotLo := lo
	if hotLo < watermark {
		hotLo = watermark
	}
	if hotLo >= hi {
		return nil
	}
	return t.src.Hot.ForEachMatching(ctx, hotLo, hi, predicate, action)
}

func (t *combinedScanTxn) Close() error {
	if err := t.src.Hot.Close(); err != nil {
		return err
	}
	if t.src.Cold != nil {
		return t.src.Cold.Close()
	}
	return nil
}
