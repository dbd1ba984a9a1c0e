package cottontail

import "time"

// Config consolidates every tunable of the engine: storage, query
// execution, the catalogue collaborator, the cold tier, and logging
// (§9.3).
type Config struct {
	Storage   StorageConfig   `json:"storage"`
	Query     QueryConfig     `json:"query"`
	Execution ExecutionConfig `json:"execution"`
	Catalogue CatalogueConfig `json:"catalogue"`
	ColdTier  ColdTierConfig  `json:"coldTier"`
	Logging   LoggingConfig   `json:"logging"`
}

// StorageConfig governs the paged hot store (§4.1).
type StorageConfig struct {
	PageSize          int `json:"pageSize"`
	BufferPoolPages   int `json:"bufferPoolPages"`
	PagesPerSegment   int `json:"pagesPerSegment"`
}

// QueryConfig governs binder- and wire-facing query defaults (§4.6, §6).
type QueryConfig struct {
	DefaultKnnParallelism int           `json:"defaultKnnParallelism"`
	MaxKnnParallelism     int           `json:"maxKnnParallelism"`
	DefaultPageSize       int           `json:"defaultPageSize"`
	MaxMessageSize        int           `json:"maxMessageSize"`
	Timeout               time.Duration `json:"timeout"`
}

// ExecutionConfig governs the task executor (§4.8, §5).
type ExecutionConfig struct {
	WorkerPoolSize int `json:"workerPoolSize"`
	StageQueueDepth int `json:"stageQueueDepth"`
}

// CatalogueConfig addresses the external Postgres-backed catalogue store
// consulted by the binder (§10: jackc/pgx).
type CatalogueConfig struct {
	DSN            string `json:"dsn"`
	SchemaTable    string `json:"schemaTable"`
	EntityTable    string `json:"entityTable"`
	ColumnTable    string `json:"columnTable"`
	MaxConnections int    `json:"maxConnections"`
}

// ColdTierConfig addresses the DuckDB archival reader and its S3 overflow
// destination (§10, §11 cold-tier scan fallback).
type ColdTierConfig struct {
	DuckDBDSN          string        `json:"duckdbDsn"`
	ArchiveTableName   string        `json:"archiveTableName"`
	S3Bucket           string        `json:"s3Bucket"`
	S3Prefix           string        `json:"s3Prefix"`
	S3RollThresholdMB  int           `json:"s3RollThresholdMb"`
	FlusherDSN         string        `json:"flusherDsn"`
	FlushInterval      time.Duration `json:"flushInterval"`
	AdvisoryLockKey    int64         `json:"advisoryLockKey"`
}

// LoggingConfig governs the zap-based ambient logger (§9.1).
type LoggingConfig struct {
	Level            string `json:"level"`
	Format           string `json:"format"`
	EnableStructured bool   `json:"enableStructured"`
	LogSlowStages    bool   `json:"logSlowStages"`
	SlowStageThreshold time.Duration `json:"slowStageThreshold"`
}

// DefaultConfig returns sane defaults: 4096-byte pages, kNN parallelism 2,
// 30s query timeout (§9.3).
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			PageSize:        4096,
			BufferPoolPages: 1024,
			PagesPerSegment: 256,
		},
		Query: QueryConfig{
			DefaultKnnParallelism: 2,
			MaxKnnParallelism:     8,
			DefaultPageSize:       100,
			MaxMessageSize:        4 * 1024 * 1024,
			Timeout:               30 * time.Second,
		},
		Execution: ExecutionConfig{
			WorkerPoolSize:  8,
			StageQueueDepth: 64,
		},
		Catalogue: CatalogueConfig{
			SchemaTable:    "cottontail_schemas",
			EntityTable:    "cottontail_entities",
			ColumnTable:    "cottontail_columns",
			MaxConnections: 10,
		},
		ColdTier: ColdTierConfig{
			ArchiveTableName:  "cottontail_archive",
			S3RollThresholdMB: 512,
			FlushInterval:     5 * time.Minute,
			AdvisoryLockKey:   0x636f_746e, // "cotn"
		},
		Logging: LoggingConfig{
			Level:              "info",
			Format:             "json",
			EnableStructured:   true,
			LogSlowStages:      true,
			SlowStageThreshold: 1 * time.Second,
		},
	}
}

// Validate checks cross-field invariants, following the teacher's
// Config.Validate() style.
func (c *Config) Validate() error {
	if c.Storage.PageSize <= 0 {
		return &ConfigError{Field: "storage.pageSize", Message: "must be greater than 0"}
	}
	if c.Storage.BufferPoolPages <= 0 {
		return &ConfigError{Field: "storage.bufferPoolPages", Message: "must be greater than 0"}
	}
	if c.Query.DefaultKnnParallelism <= 0 {
		return &ConfigError{Field: "query.defaultKnnParallelism", Message: "must be greater than 0"}
	}
	if c.Query.MaxKnnParallelism < c.Query.DefaultKnnParallelism {
		return &ConfigError{Field: "query.maxKnnParallelism", Message: "must be greater than or equal to defaultKnnParallelism"}
	}
	if c.Query.DefaultPageSize <= 0 {
		return &ConfigError{Field: "query.defaultPageSize", Message: "must be greater than 0"}
	}
	if c.Execution.WorkerPoolSize <= 0 {
		return &ConfigError{Field: "execution.workerPoolSize", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
