package cottontail

import "container/heap"

// scoredTuple pairs a tuple id with its kNN distance, the unit the bounded
// top-k heap orders on.
type scoredTuple struct {
	TupleID  TupleID
	Distance float64
}

// maxHeap is a container/heap.Interface over scoredTuple, ordered so the
// *worst* (largest-distance) candidate sits at index 0 — the element that
// gets evicted first once the heap reaches capacity. Grounded on the
// per-worker topKHeap pattern from the pack's vectorstore example.
type maxHeap []scoredTuple

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].Distance > h[j].Distance }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(scoredTuple)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// BoundedTopK is a fixed-capacity container that retains the k
// lowest-distance tuples seen so far (§4.4). It is not safe for concurrent
// use from multiple goroutines; the kNN task shares one BoundedTopK per
// query vector across its parallel sub-scans and serialises every Offer
// with a mutex (§5).
type BoundedTopK struct {
	k int
	h maxHeap
}

// NewBoundedTopK creates a top-k collector for k >= 1.
func NewBoundedTopK(k int) (*BoundedTopK, error) {
	if k < 1 {
		return nil, NewBindError(CodeMalformedPredicate, "kNN predicate requires k >= 1")
	}
	t := &BoundedTopK{k: k, h: make(maxHeap, 0, k)}
	heap.Init(&t.h)
	return t, nil
}

// Offer considers (tupleID, distance) for inclusion. It runs in O(log k):
// a direct push while below capacity, otherwise a compare-and-replace
// against the current worst element (§4.4 invariant: O(log k) per offer).
func (t *BoundedTopK) Offer(tupleID TupleID, distance float64) {
	if len(t.h) < t.k {
		heap.Push(&t.h, scoredTuple{TupleID: tupleID, Distance: distance})
		return
	}
	if distance >= t.h[0].Distance {
		return
	}
	t.h[0] = scoredTuple{TupleID: tupleID, Distance: distance}
	heap.Fix(&t.h, 0)
}

// Len reports how many tuples are currently retained (<= k).
func (t *BoundedTopK) Len() int { return len(t.h) }

// Results drains the heap into ascending-distance order: the k (or fewer)
// nearest tuples, nearest first (§4.4).
func (t *BoundedTopK) Results() []scoredTuple {
	out := make([]scoredTuple, len(t.h))
	tmp := make(maxHeap, len(t.h))
	copy(tmp, t.h)
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&tmp).(scoredTuple)
	}
	return out
}

// MergeBoundedTopK combines several top-k collectors (for example, one per
// worker) into a single top-k result over all of them. The kNN task does
// not use it: its sub-scans share one set of heaps.
func MergeBoundedTopK(k int, parts ...*BoundedTopK) (*BoundedTopK, error) {
	merged, err := NewBoundedTopK(k)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		if part == nil {
			continue
		}
		for _, st := range part.Results() {
			merged.Offer(st.TupleID, st.Distance)
		}
	}
	return merged, nil
}
