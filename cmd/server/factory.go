package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cottontaildb/cottontail"
	"github.com/cottontaildb/cottontail/internal/binder"
	"github.com/cottontaildb/cottontail/internal/catalogue"
	"github.com/cottontaildb/cottontail/internal/coldtier"
	"github.com/cottontaildb/cottontail/internal/exec"
	"github.com/cottontaildb/cottontail/internal/page"
	"github.com/cottontaildb/cottontail/internal/storage"
	"github.com/cottontaildb/cottontail/internal/wire"
)

// QueryEngine wires every layer of the engine together behind the single
// Query entry point the HTTP server calls: catalogue lookup, scan source
// resolution (hot store, plus a cold archive reader when a cold client is
// open), binding, lowering, and execution (§1 "N+1 module
// pipeline" collapsed into one process for the demo binary).
type QueryEngine struct {
	cfg       *cottontail.Config
	cat       *catalogue.Store
	registry  *binder.MemoryRegistry
	binder    *binder.Binder
	validator *wire.Validator
	coldClient *coldtier.Client

	mu     sync.Mutex
	pool   *page.Pool
	stores map[string]*storage.Store
}

// NewQueryEngine opens the catalogue store and (optionally) the cold-tier
// DuckDB client, and returns an engine ready to register hot entities and
// answer queries.
func NewQueryEngine(ctx context.Context, cfg *cottontail.Config) (*QueryEngine, error) {
	cat, err := catalogue.Open(ctx, cfg.Catalogue.DSN, catalogue.TableNames{
		Schema: cfg.Catalogue.SchemaTable,
		Entity: cfg.Catalogue.EntityTable,
		Column: cfg.Catalogue.ColumnTable,
	}, cfg.Catalogue.MaxConnections)
	if err != nil {
		return nil, err
	}

	var coldClient *coldtier.Client
	if cfg.ColdTier.DuckDBDSN != "" {
		coldClient, err = coldtier.Open(ctx, cfg.ColdTier)
		if err != nil {
			zap.S().Warnw("cold tier unavailable, continuing hot-only", "error", err)
			coldClient = nil
		}
	}

	validator, err := wire.NewValidator()
	if err != nil {
		return nil, err
	}

	registry := binder.NewMemoryRegistry()
	return &QueryEngine{
		cfg:        cfg,
		cat:        cat,
		registry:   registry,
		binder:     binder.NewBinder(cat, registry),
		validator:  validator,
		coldClient: coldClient,
		pool:       page.NewPool(cfg.Storage.BufferPoolPages, cfg.Storage.PageSize),
		stores:     make(map[string]*storage.Store),
	}, nil
}

// RegisterHotEntity loads schema.name's column definitions from the
// catalogue and opens an empty hot-tier store for it, registering the
// result as the binder's scan Source for that entity (§11). A cold
// archive reader is attached whenever a cold client is open; the
// Source's ColdWatermark stays zero, so every tuple id is read from the
// hot store.
func (q *QueryEngine) RegisterHotEntity(ctx context.Context, schema, name string) error {
	entity, err := q.cat.Entity(ctx, schema, name)
	if err != nil {
		return err
	}

	q.mu.Lock()
	key := schema + "." + name
	store, ok := q.stores[key]
	if !ok {
		store = storage.NewStore(entity, q.pool)
		q.stores[key] = store
	}
	q.mu.Unlock()

	src := binder.Source{Hot: store.Scan()}
	if q.coldClient != nil {
		src.Cold = coldtier.NewReader(q.coldClient, q.cfg.ColdTier.ArchiveTableName, entity)
	}
	q.registry.Register(schema, name, src)
	return nil
}

// Query validates and binds payload, lowers the resulting plan, executes
// it, and pages the resulting record set (§6).
func (q *QueryEngine) Query(ctx context.Context, payload []byte) ([]wire.ResponseMessage, error) {
	req, err := q.validator.DecodeRequest(payload)
	if err != nil {
		return nil, err
	}

	bound, err := q.binder.Bind(ctx, req)
	if err != nil {
		return nil, err
	}
	defer bound.Scan.Close()

	parallelism := q.cfg.Query.DefaultKnnParallelism
	if parallelism > q.cfg.Query.MaxKnnParallelism {
		parallelism = q.cfg.Query.MaxKnnParallelism
	}
	lowerer := exec.NewLowerer(bound.Scan, parallelism)
	dag, err := lowerer.Lower(ctx, bound.Plan)
	if err != nil {
		return nil, err
	}

	rs, err := exec.NewExecutor().Run(ctx, dag)
	if err != nil {
		return nil, err
	}

	return wire.Paginate(rs, q.cfg.Query.MaxMessageSize), nil
}

func (q *QueryEngine) Close() {
	q.cat.Close()
	if q.coldClient != nil {
		q.coldClient.Close()
	}
}

func mustEntityRef(raw string) (schema, name string, err error) {
	for i, c := range raw {
		if c == '.' {
			return raw[:i], raw[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("entity ref %q must be schema.name", raw)
}
