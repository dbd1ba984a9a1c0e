package page

import (
	"sync"

	"github.com/cottontaildb/cottontail"
	"go.uber.org/zap"
)

// Mode describes the intent a caller declares when acquiring a page,
// mirroring how a real buffer manager distinguishes read-only borrows
// from read-write ones for contention and dirty-tracking purposes (§4.1,
// §5 resource model).
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// frame is one buffer-pool slot: a resident page plus its pin count and
// dirty flag.
type frame struct {
	page  *Page
	pins  int
	dirty bool
}

// Pool is a fixed-capacity buffer pool over Pages, with acquire/release
// borrow semantics (§4.1, §5 "suspension point: acquiring a page slot
// when the pool is saturated"). Eviction favors unpinned frames in
// insertion order — a simple FIFO clock, not a full LRU, which is
// adequate since hot pages stay pinned for the duration of their task.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	pageSize int
	frames   map[ID]*frame
	order    []ID
}

// NewPool creates a buffer pool holding up to capacity pages of pageSize
// bytes each.
func NewPool(capacity, pageSize int) *Pool {
	p := &Pool{capacity: capacity, pageSize: pageSize, frames: make(map[ID]*frame, capacity)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Acquire borrows the page identified by id, loading it via load if it is
// not already resident. The returned release func must be called exactly
// once when the caller is done with the page.
func (p *Pool) Acquire(id ID, mode Mode, load func(ID) (*Page, error)) (pg *Page, release func(), err error) {
	p.mu.Lock()
	for {
		if f, ok := p.frames[id]; ok {
			f.pins++
			p.mu.Unlock()
			return f.page, p.releaseFunc(id, mode), nil
		}
		if len(p.frames) < p.capacity {
			break
		}
		if p.evictLocked() {
			continue
		}
		p.cond.Wait()
	}
	p.mu.Unlock()

	loaded, loadErr := load(id)
	if loadErr != nil {
		return nil, nil, cottontail.NewIoError("failed to load page").WithCause(loadErr).WithDetail("pageId", uint64(id))
	}

	p.mu.Lock()
	p.frames[id] = &frame{page: loaded, pins: 1}
	p.order = append(p.order, id)
	p.mu.Unlock()
	return loaded, p.releaseFunc(id, mode), nil
}

func (p *Pool) releaseFunc(id ID, mode Mode) func() {
	return func() {
		p.mu.Lock()
		if f, ok := p.frames[id]; ok {
			f.pins--
			if mode == ModeWrite {
				f.dirty = true
			}
		}
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

// evictLocked drops the oldest unpinned frame, if any, under p.mu. Dirty
// frames are logged at Warnw since eviction here discards the write
// silently to the hot tier — callers needing durability must flush before
// releasing (§11 archive flusher does this for the cold tier).
func (p *Pool) evictLocked() bool {
	for i, id := range p.order {
		f := p.frames[id]
		if f.pins > 0 {
			continue
		}
		if f.dirty {
			zap.S().Warnw("evicting dirty page without flush", "pageId", uint64(id))
		}
		delete(p.frames, id)
		p.order = append(p.order[:i], p.order[i+1:]...)
		return true
	}
	return false
}

// Resident reports how many pages are currently cached.
func (p *Pool) Resident() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// PageSize returns the fixed page size this pool was configured with.
func (p *Pool) PageSize() int { return p.pageSize }
