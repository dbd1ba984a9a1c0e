// Package coldtier implements the archival reader that backs
// RangedEntityScan/SampledEntityScan once rows have been evicted from the
// hot buffer pool: a DuckDB-backed columnar archive with an S3 overflow
// tier beneath it, and the flusher that moves rows into it (§10, §11).
package coldtier

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/cottontaildb/cottontail"
)

// Client wraps a database/sql DB opened with the DuckDB driver, scoped to
// one Cottontail Config rather than a process-wide singleton (§9.3
// REDESIGN: global mutable state becomes an explicit, passed-around
// object with its own open/close lifecycle).
type Client struct {
	DB  *sql.DB
	cfg cottontail.ColdTierConfig
}

// Open creates and configures a DuckDB client per cfg: loads httpfs when
// an S3 bucket is configured and parquet unconditionally, since the
// archive format is Parquet-over-DuckDB.
func Open(ctx context.Context, cfg cottontail.ColdTierConfig) (*Client, error) {
	dsn := cfg.DuckDBDSN
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, cottontail.NewIoError("open duckdb archive").WithCause(err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, cottontail.NewIoError("ping duckdb archive").WithCause(err)
	}

	if _, err := db.ExecContext(pingCtx, "INSTALL parquet;"); err == nil {
		if _, err := db.ExecContext(pingCtx, "LOAD parquet;"); err != nil {
			zap.S().Warnw("coldtier: load parquet failed", "err", err)
		}
	} else {
		zap.S().Warnw("coldtier: install parquet failed", "err", err)
	}

	if cfg.S3Bucket != "" {
		if _, err := db.ExecContext(pingCtx, "INSTALL httpfs;"); err == nil {
			if _, err := db.ExecContext(pingCtx, "LOAD httpfs;"); err != nil {
				zap.S().Warnw("coldtier: load httpfs failed", "err", err)
			}
		} else {
			zap.S().Warnw("coldtier: install httpfs failed", "err", err)
		}
	}

	tableName := cfg.ArchiveTableName
	if tableName == "" {
		tableName = "cottontail_archive"
	}
	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		entity_key VARCHAR,
		tuple_id BIGINT,
		row_json VARCHAR
	)`, tableName)
	if _, err := db.ExecContext(pingCtx, createSQL); err != nil {
		db.Close()
		return nil, cottontail.NewIoError("create archive table").WithCause(err)
	}

	return &Client{DB: db, cfg: cfg}, nil
}

func (c *Client) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// ExportSegment COPYs every archived row for entityKey out to a Parquet
// file under dir, returning the file path for the caller to upload and
// remove. This is the "export job" rollToS3 hands off to (§11: the
// Parquet export is a DuckDB COPY statement against the entity-specific
// archive slice).
func (c *Client) ExportSegment(ctx context.Context, entityKey, dir, fileName string) (string, error) {
	tableName := c.cfg.ArchiveTableName
	if tableName == "" {
		tableName = "cottontail_archive"
	}
	path := fmt.Sprintf("%s/%s", dir, fileName)
	copySQL := fmt.Sprintf(
		"COPY (SELECT * FROM %s WHERE entity_key = ?) TO '%s' (FORMAT PARQUET)",
		tableName, path,
	)
	if _, err := c.DB.ExecContext(ctx, copySQL, entityKey); err != nil {
		return "", cottontail.NewIoError("export archive segment to parquet").WithCause(err).WithDetail("entityKey", entityKey)
	}
	return path, nil
}

// HealthCheck performs a simple query to validate the DuckDB connection.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.DB == nil {
		return cottontail.NewIoError("duckdb archive client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := c.DB.QueryRowContext(ctx, "SELECT 1;")
	var v int
	if err := row.Scan(&v); err != nil {
		return cottontail.NewIoError("duckdb archive health query failed").WithCause(err)
	}
	return nil
}
