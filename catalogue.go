package cottontail

import (
	"context"
	"fmt"
	"sync"
)

// Entity describes one entity (table): its qualifying schema, name, and
// column definitions in declaration order (§3 column definition).
type Entity struct {
	Schema  string
	Name    string
	Columns []ColumnDef
}

// Column resolves a column by name within this entity.
func (e Entity) Column(name string) (ColumnDef, bool) {
	for _, c := range e.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// Catalogue is the binder's view of schema/entity/column metadata (§1
// "catalogue persistence" is an out-of-scope external collaborator; this
// interface is the seam the binder binds against, and internal/catalogue
// provides a Postgres-backed implementation).
type Catalogue interface {
	// Entity resolves schema.name; returns an UnknownEntity/UnknownSchema
	// CottontailError when it doesn't exist (§7).
	Entity(ctx context.Context, schema, name string) (Entity, error)
}

// MemoryCatalogue is an in-process Catalogue backed by a map, used by
// tests; the server binary always resolves entities through the
// Postgres-backed catalogue store.
type MemoryCatalogue struct {
	mu       sync.RWMutex
	entities map[string]Entity
}

// NewMemoryCatalogue creates an empty catalogue.
func NewMemoryCatalogue() *MemoryCatalogue {
	return &MemoryCatalogue{entities: make(map[string]Entity)}
}

// Register adds or replaces an entity definition.
func (c *MemoryCatalogue) Register(e Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities[qualifiedEntityKey(e.Schema, e.Name)] = e
}

func (c *MemoryCatalogue) Entity(_ context.Context, schema, name string) (Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entities[qualifiedEntityKey(schema, name)]
	if !ok {
		return Entity{}, NewBindError(CodeUnknownEntity, fmt.Sprintf("unknown entity %s.%s", schema, name))
	}
	return e, nil
}

func qualifiedEntityKey(schema, name string) string {
	return schema + "." + name
}
