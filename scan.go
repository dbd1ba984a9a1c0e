package cottontail

import "context"

// EntityScanTxn is the read-only cursor every scan source (hot page-store
// or cold archival reader) implements, so the planner and executor never
// need to know which tier a tuple id range lives on (§4.6, §11 "cold-tier
// scan fallback transparent to plan/exec").
type EntityScanTxn interface {
	// Entity is the entity this transaction scans.
	Entity() Entity

	// MaxTupleID is the highest tuple id present, used to validate ranged
	// and sampled scan bounds (§4.7 "0 < start < end <= maxTupleId").
	MaxTupleID(ctx context.Context) (TupleID, error)

	// ForEach iterates every row in tuple-id order.
	ForEach(ctx context.Context, action func(Record) (bool, error)) error

	// ForEachRange iterates tuple ids in [lo, hi).
	ForEachRange(ctx context.Context, lo, hi TupleID, action func(Record) (bool, error)) error

	// ForEachMatching iterates only rows in [lo, hi) where predicate
	// evaluates true; a nil predicate behaves like ForEachRange.
	ForEachMatching(ctx context.Context, lo, hi TupleID, predicate Predicate, action func(Record) (bool, error)) error

	// Close releases any resources (buffer-pool pins, file handles) held
	// by the transaction.
	Close() error
}
