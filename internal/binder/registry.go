// Package binder turns a validated wire.QueryRequest into the logical
// plan.Node tree plan/exec consume: resolving the entity via the
// catalogue, picking the scan source (hot store, cold archive, or a
// transparent merge of both), and assembling filter/kNN/projection/limit
// nodes (§11 "the expanded binder chooses between the hot page-buffer
// store and the archival DuckDB/S3 reader...transparent to the
// plan/exec layers").
package binder

import (
	"context"
	"fmt"
	"sync"

	"github.com/cottontaildb/cottontail"
)

// Source names one entity's scan backing: a hot store, an optional cold
// archive, and the tuple id below which rows have been evicted from the
// hot tier (§11 cold-tier scan fallback).
type Source struct {
	Hot          cottontail.EntityScanTxn
	Cold         cottontail.EntityScanTxn // nil when nothing has been archived yet
	ColdWatermark cottontail.TupleID       // first tuple id served by Hot; ids below it are read from Cold
}

// Registry resolves a schema.entity reference to its current Source,
// the way a real deployment would look up which store backs a given
// entity. A MemoryRegistry is the in-process implementation used by
// tests and the cmd/server demo wiring.
type Registry interface {
	Source(ctx context.Context, schema, entity string) (Source, error)
}

// MemoryRegistry is a mutex-guarded map of registered Sources, grounded
// on the teacher's MetadataCache read-through map pattern.
type MemoryRegistry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sources: make(map[string]Source)}
}

// Register binds schema.entity to src, overwriting any prior binding.
func (r *MemoryRegistry) Register(schema, entity string, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[registryKey(schema, entity)] = src
}

func (r *MemoryRegistry) Source(_ context.Context, schema, entity string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[registryKey(schema, entity)]
	if !ok {
		return Source{}, cottontail.NewBindError(cottontail.CodeUnknownEntity, fmt.Sprintf("no scan source registered for %s.%s", schema, entity))
	}
	return src, nil
}

func registryKey(schema, entity string) string { return schema + "." + entity }
