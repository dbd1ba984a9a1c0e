// Package catalogue provides the Postgres-backed implementation of
// cottontail.Catalogue: schema/entity/column metadata persisted in three
// tables and cached in-process for the binder's hot path (§10 "catalogue
// persistence: jackc/pgx").
package catalogue

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cottontaildb/cottontail"
)

// TableNames names the three Postgres catalogue tables: Entity and Column
// are read on lookup, and Schema is written when an entity is registered.
type TableNames struct {
	Schema string
	Entity string
	Column string
}

// dbPool is the slice of pgxpool.Pool the store depends on, narrowed so
// tests can substitute a pgxmock pool without pulling in a real
// Postgres connection.
type dbPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store is a pgxpool-backed cottontail.Catalogue with a read-through
// cache keyed by "schema.entity" (§4.6 EntityScanTxn callers resolve an
// Entity once per bound query, not once per row).
type Store struct {
	pool   dbPool
	tables TableNames

	mu    sync.RWMutex
	cache map[string]cottontail.Entity
}

// Open parses dsn, creates a connection pool capped at maxConns, and
// verifies connectivity with a Ping (mirrors the teacher's
// createDatabasePool dial-then-ping sequence).
func Open(ctx context.Context, dsn string, tables TableNames, maxConns int) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, cottontail.NewIoError(fmt.Sprintf("catalogue: failed to parse dsn: %v", err))
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, cottontail.NewIoError(fmt.Sprintf("catalogue: failed to create connection pool: %v", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, cottontail.NewIoError(fmt.Sprintf("catalogue: failed to ping database: %v", err))
	}

	return NewStore(pool, tables), nil
}

// NewStore wraps an already-open pool, used by tests that inject a
// pgxmock pool in place of a real Postgres connection.
func NewStore(pool dbPool, tables TableNames) *Store {
	return &Store{pool: pool, tables: tables, cache: make(map[string]cottontail.Entity)}
}

func (s *Store) Close() {
	s.pool.Close()
}

func cacheKey(schema, name string) string { return schema + "." + name }

// Entity implements cottontail.Catalogue. A cache hit skips the round
// trip entirely; a miss runs an existence query on the entity table and a
// select on the column table, and populates the cache for subsequent
// binds against the same entity.
func (s *Store) Entity(ctx context.Context, schema, name string) (cottontail.Entity, error) {
	key := cacheKey(schema, name)

	s.mu.RLock()
	if e, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return e, nil
	}
	s.mu.RUnlock()

	e, err := s.loadEntity(ctx, schema, name)
	if err != nil {
		return cottontail.Entity{}, err
	}

	s.mu.Lock()
	s.cache[key] = e
	s.mu.Unlock()
	return e, nil
}

func (s *Store) loadEntity(ctx context.Context, schema, name string) (cottontail.Entity, error) {
	var exists bool
	existsQuery := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE schema_name = $1 AND entity_name = $2)`, s.tables.Entity)
	if err := s.pool.QueryRow(ctx, existsQuery, schema, name).Scan(&exists); err != nil {
		return cottontail.Entity{}, cottontail.NewIoError(fmt.Sprintf("catalogue: failed to look up entity: %v", err))
	}
	if !exists {
		return cottontail.Entity{}, cottontail.NewBindError(cottontail.CodeUnknownEntity, fmt.Sprintf("unknown entity %s.%s", schema, name))
	}

	colsQuery := fmt.Sprintf(`SELECT column_name, value_type, logical_size, nullable FROM %s
		WHERE schema_name = $1 AND entity_name = $2 ORDER BY ordinal`, s.tables.Column)
	rows, err := s.pool.Query(ctx, colsQuery, schema, name)
	if err != nil {
		return cottontail.Entity{}, cottontail.NewIoError(fmt.Sprintf("catalogue: failed to load columns: %v", err))
	}
	defer rows.Close()

	var cols []cottontail.ColumnDef
	for rows.Next() {
		var colName string
		var valueType int
		var logicalSize int
		var nullable bool
		if err := rows.Scan(&colName, &valueType, &logicalSize, &nullable); err != nil {
			return cottontail.Entity{}, cottontail.NewIoError(fmt.Sprintf("catalogue: failed to scan column row: %v", err))
		}
		cols = append(cols, cottontail.ColumnDef{
			Schema:      schema,
			Entity:      name,
			Name:        colName,
			Type:        cottontail.ValueType(valueType),
			LogicalSize: logicalSize,
			Nullable:    nullable,
		})
	}
	if err := rows.Err(); err != nil {
		return cottontail.Entity{}, cottontail.NewIoError(fmt.Sprintf("catalogue: error iterating column rows: %v", err))
	}

	if len(cols) == 0 {
		zap.S().Warnw("catalogue: entity has no registered columns", "schema", schema, "entity", name)
	}

	return cottontail.Entity{Schema: schema, Name: name, Columns: cols}, nil
}

// Invalidate drops schema.name from the cache, used after a DDL change
// applied outside this process (e.g. a migration).
func (s *Store) Invalidate(schema, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, cacheKey(schema, name))
}

// RegisterEntity writes schema/entity/column rows, used by bootstrap
// tooling and tests; production schema changes are expected to go
// through a migration rather than this path.
func (s *Store) RegisterEntity(ctx context.Context, e cottontail.Entity) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return cottontail.NewIoError(fmt.Sprintf("catalogue: failed to begin transaction: %v", err))
	}
	defer tx.Rollback(ctx)

	upsertSchema := fmt.Sprintf(`INSERT INTO %s (schema_name) VALUES ($1) ON CONFLICT DO NOTHING`, s.tables.Schema)
	if _, err := tx.Exec(ctx, upsertSchema, e.Schema); err != nil {
		return cottontail.NewIoError(fmt.Sprintf("catalogue: failed to upsert schema: %v", err))
	}

	upsertEntity := fmt.Sprintf(`INSERT INTO %s (schema_name, entity_name) VALUES ($1, $2)
		ON CONFLICT (schema_name, entity_name) DO NOTHING`, s.tables.Entity)
	if _, err := tx.Exec(ctx, upsertEntity, e.Schema, e.Name); err != nil {
		return cottontail.NewIoError(fmt.Sprintf("catalogue: failed to upsert entity: %v", err))
	}

	deleteCols := fmt.Sprintf(`DELETE FROM %s WHERE schema_name = $1 AND entity_name = $2`, s.tables.Column)
	if _, err := tx.Exec(ctx, deleteCols, e.Schema, e.Name); err != nil {
		return cottontail.NewIoError(fmt.Sprintf("catalogue: failed to clear existing columns: %v", err))
	}

	insertCol := fmt.Sprintf(`INSERT INTO %s (schema_name, entity_name, column_name, value_type, logical_size, nullable, ordinal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.tables.Column)
	batch := &pgx.Batch{}
	for i, c := range e.Columns {
		batch.Queue(insertCol, e.Schema, e.Name, c.Name, int(c.Type), c.LogicalSize, c.Nullable, i)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return cottontail.NewIoError(fmt.Sprintf("catalogue: failed to insert column row: %v", err))
			}
		}
		if err := br.Close(); err != nil {
			return cottontail.NewIoError(fmt.Sprintf("catalogue: failed to close column batch: %v", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return cottontail.NewIoError(fmt.Sprintf("catalogue: failed to commit transaction: %v", err))
	}

	s.Invalidate(e.Schema, e.Name)
	return nil
}
