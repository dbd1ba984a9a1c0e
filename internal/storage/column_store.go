// Package storage implements the hot-tier entity store: a page-backed,
// column-oriented representation of an entity's rows, and the
// EntityScanTxn implementation that reads it back (§4.1, §4.6).
package storage

import (
	"sync/atomic"

	"github.com/cottontaildb/cottontail"
	"github.com/cottontaildb/cottontail/internal/page"
)

// nextPageID hands out page ids that are unique across every column and
// every store, since a buffer pool keys its frames by page id alone.
var nextPageID atomic.Uint64

// column is one fixed-width column's page-backed storage: rows are
// packed physicalSize bytes apart across a sequence of pages, addressed
// by (pageIndex, offsetWithinPage). Variable-length columns (strings,
// vectors whose size isn't pinned by the column def) are kept in an
// in-memory side table rather than page-packed, since framing them with
// a length prefix inside fixed-size pages is a segment-file-format
// concern the hot tier defers to the cold tier's archive format (§11).
type column struct {
	def      cottontail.ColumnDef
	physical int
	pool     *page.Pool
	pages    []page.ID
	varRows  map[cottontail.TupleID]cottontail.Value
}

// Store is a single entity's hot-tier column store.
type Store struct {
	entity   cottontail.Entity
	pageSize int
	pool     *page.Pool
	columns  map[string]*column
	rowCount int64
	nextID   int64
}

// NewStore creates an empty hot store for entity, backed by pool.
func NewStore(entity cottontail.Entity, pool *page.Pool) *Store {
	s := &Store{entity: entity, pageSize: pool.PageSize(), pool: pool, columns: make(map[string]*column, len(entity.Columns))}
	for _, def := range entity.Columns {
		s.columns[def.Name] = &column{
			def:      def,
			physical: def.PhysicalSize(),
			pool:     pool,
			varRows:  make(map[cottontail.TupleID]cottontail.Value),
		}
	}
	return s
}

func (s *Store) Entity() cottontail.Entity { return s.entity }

// rowsPerPage returns how many fixed-width rows of physical size fit per
// page; physical size 0 (shouldn't happen) is guarded against.
func rowsPerPage(pageSize, physical int) int {
	if physical <= 0 {
		return 1
	}
	n := pageSize / physical
	if n < 1 {
		return 1
	}
	return n
}

// pageLoader returns a page loader that allocates a fresh zeroed page;
// the hot store keeps everything resident for its lifetime rather than
// persisting to a backing file, so every "load" is a fresh allocation on
// first touch (§4.1 scope: page + buffer primitive, not a file format).
func pageLoader(pageSize int) func(page.ID) (*page.Page, error) {
	return func(id page.ID) (*page.Page, error) {
		return page.New(id, pageSize), nil
	}
}

// Insert appends a new row, assigning it the next tuple id (§3: tuple ids
// are monotonically assigned and never reused).
func (s *Store) Insert(values map[string]cottontail.Value) (cottontail.TupleID, error) {
	tupleID := cottontail.TupleID(s.nextID)
	for name, def := range s.entityColumns() {
		v, ok := values[name]
		if !ok {
			v = def.Default()
		}
		if err := def.Accepts(v); err != nil {
			return 0, err
		}
		col := s.columns[name]
		if col.physical < 0 {
			col.varRows[tupleID] = v
			continue
		}
		if err := s.writeFixed(col, tupleID, v); err != nil {
			return 0, err
		}
	}
	s.nextID++
	s.rowCount++
	return tupleID, nil
}

func (s *Store) entityColumns() map[string]cottontail.ColumnDef {
	out := make(map[string]cottontail.ColumnDef, len(s.entity.Columns))
	for _, c := range s.entity.Columns {
		out[c.Name] = c
	}
	return out
}

func (s *Store) writeFixed(col *column, tupleID cottontail.TupleID, v cottontail.Value) error {
	perPage := rowsPerPage(s.pageSize, col.physical)
	rowIdx := int64(tupleID)
	pageIdx := int(rowIdx / int64(perPage))
	offset := int(rowIdx%int64(perPage)) * col.physical

	for len(col.pages) <= pageIdx {
		col.pages = append(col.pages, page.ID(nextPageID.Add(1)))
	}
	pid := col.pages[pageIdx]

	pg, release, err := col.pool.Acquire(pid, page.ModeWrite, pageLoader(s.pageSize))
	if err != nil {
		return err
	}
	defer release()

	return encodeFixed(pg, offset, col.def.Type, v)
}

func (s *Store) readFixed(col *column, tupleID cottontail.TupleID) (cottontail.Value, error) {
	perPage := rowsPerPage(s.pageSize, col.physical)
	rowIdx := int64(tupleID)
	pageIdx := int(rowIdx / int64(perPage))
	offset := int(rowIdx%int64(perPage)) * col.physical

	if pageIdx >= len(col.pages) {
		return cottontail.NullValue(col.def.Type), nil
	}
	pid := col.pages[pageIdx]
	pg, release, err := col.pool.Acquire(pid, page.ModeRead, pageLoader(s.pageSize))
	if err != nil {
		return cottontail.Value{}, err
	}
	defer release()

	return decodeFixed(pg, offset, col.def.Type)
}

// Row reconstructs the full record for tupleID.
func (s *Store) Row(tupleID cottontail.TupleID) (cottontail.Record, error) {
	values := make([]cottontail.Value, len(s.entity.Columns))
	for i, def := range s.entity.Columns {
		col := s.columns[def.Name]
		if col.physical < 0 {
			if v, ok := col.varRows[tupleID]; ok {
				values[i] = v
			} else {
				values[i] = cottontail.NullValue(def.Type)
			}
			continue
		}
		v, err := s.readFixed(col, tupleID)
		if err != nil {
			return cottontail.Record{}, err
		}
		values[i] = v
	}
	return cottontail.Record{TupleID: tupleID, Columns: s.entity.Columns, Values: values}, nil
}

func (s *Store) RowCount() int64 { return s.rowCount }

// Scan opens a read-only EntityScanTxn over this store (§4.6).
func (s *Store) Scan() cottontail.EntityScanTxn {
	return &scanTxn{store: s}
}
