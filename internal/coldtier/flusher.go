package coldtier

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/cottontaildb/cottontail"
)

// FlusherConfig configures one run of the archive flusher: the entity
// whose hot-tier rows move, how many rows one run archives at most, and
// the advisory-lock key that coordinates concurrent flusher instances.
type FlusherConfig struct {
	Entity       cottontail.Entity
	BatchSize    int
	AdvisoryLock int64
}

// AdminConn is the flusher's distinct database/sql connection, kept apart
// from any pgx pool serving the catalogue's query path (§10): its only job
// is a Postgres advisory lock guarding which tuple-id ranges are currently
// being archived, the same split the teacher draws between its pgx-backed
// repository and its database/sql-backed CDC flusher.
type AdminConn struct {
	db *sql.DB
}

// OpenAdminConn opens a lib/pq connection to dsn for advisory locking.
func OpenAdminConn(dsn string) (*AdminConn, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, cottontail.NewIoError("open flusher admin connection").WithCause(err)
	}
	return &AdminConn{db: db}, nil
}

// OpenAdminConnWithIAM builds the flusher's connection string using a
// freshly generated IAM auth token in place of a static password, the
// way a managed-Postgres deployment (Aurora DSQL or RDS IAM auth) would
// authenticate the advisory-lock connection (§10).
func OpenAdminConnWithIAM(ctx context.Context, host string, port int, user, dbname string) (*AdminConn, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, cottontail.NewIoError("load aws config for iam auth").WithCause(err)
	}
	endpoint := fmt.Sprintf("%s:%d", host, port)
	token, err := auth.GenerateDbConnectAuthToken(ctx, endpoint, awsCfg.Region, awsCfg.Credentials)
	if err != nil {
		return nil, cottontail.NewIoError("generate dsql iam auth token").WithCause(err)
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=require", host, port, user, token, dbname)
	return OpenAdminConn(dsn)
}

func (a *AdminConn) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// tryAdvisoryLock attempts a session-scoped advisory lock, non-blocking:
// a losing flusher instance simply skips this run rather than queueing.
func (a *AdminConn) tryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := a.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	if err != nil {
		return false, cottontail.NewIoError("acquire flusher advisory lock").WithCause(err)
	}
	return ok, nil
}

func (a *AdminConn) unlock(ctx context.Context, key int64) {
	if _, err := a.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
		zap.S().Warnw("coldtier: advisory unlock failed", "err", err)
	}
}

// Flusher moves rows that have aged out of the hot buffer pool into the
// DuckDB archive and, when an S3 overflow destination is configured,
// exports the entity's whole archive to S3 after every run that archived
// at least one row (§10, §11). No size threshold is consulted.
type Flusher struct {
	admin    *AdminConn
	archiver *Archiver
	overflow *S3Overflow
	breaker  *CircuitBreaker
	cfg      cottontail.ColdTierConfig
}

// NewFlusher wires an admin connection, a DuckDB-backed archiver, an
// optional S3 overflow destination, and a circuit breaker guarding the
// archive path, into one flusher instance.
func NewFlusher(admin *AdminConn, archiver *Archiver, overflow *S3Overflow, breaker *CircuitBreaker, cfg cottontail.ColdTierConfig) *Flusher {
	return &Flusher{admin: admin, archiver: archiver, overflow: overflow, breaker: breaker, cfg: cfg}
}

// RunOnce archives rows from source that are not yet present in the
// archive, up to fc.BatchSize, guarded by one advisory lock (key
// fc.AdvisoryLock, or cfg.AdvisoryLockKey when that is zero) so two
// flusher instances never double-archive the same range.
func (f *Flusher) RunOnce(ctx context.Context, source cottontail.EntityScanTxn, fc FlusherConfig) (int, error) {
	if f.breaker.IsOpen() {
		return 0, cottontail.NewIoError("coldtier: archive circuit breaker open, skipping flush")
	}

	lockKey := fc.AdvisoryLock
	if lockKey == 0 {
		lockKey = f.cfg.AdvisoryLockKey
	}

	got, err := f.admin.tryAdvisoryLock(ctx, lockKey)
	if err != nil {
		f.breaker.RecordFailure()
		return 0, err
	}
	if !got {
		zap.S().Infow("coldtier: flusher lock held elsewhere, skipping run", "entity", fc.Entity.Name)
		return 0, nil
	}
	defer f.admin.unlock(ctx, lockKey)

	entityKey := fc.Entity.Schema + "." + fc.Entity.Name
	maxArchived, err := f.highWaterMark(ctx, entityKey)
	if err != nil {
		f.breaker.RecordFailure()
		return 0, err
	}

	batchSize := fc.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	flushed := 0
	err = source.ForEachRange(ctx, maxArchived+1, maxArchived+1+cottontail.TupleID(batchSize), func(r cottontail.Record) (bool, error) {
		if err := f.archiver.Append(ctx, entityKey, r); err != nil {
			return false, err
		}
		flushed++
		return true, nil
	})
	if err != nil {
		f.breaker.RecordFailure()
		return flushed, err
	}
	f.breaker.RecordSuccess()

	if f.overflow != nil && flushed > 0 {
		if err := f.rollToS3(ctx, entityKey); err != nil {
			zap.S().Warnw("coldtier: s3 roll failed, archive remains duckdb-only", "err", err)
		}
	}

	return flushed, nil
}

func (f *Flusher) highWaterMark(ctx context.Context, entityKey string) (cottontail.TupleID, error) {
	tableName := f.cfg.ArchiveTableName
	if tableName == "" {
		tableName = "cottontail_archive"
	}
	q := fmt.Sprintf("SELECT COALESCE(MAX(tuple_id), -1) FROM %s WHERE entity_key = ?", tableName)
	var max int64
	if err := f.archiver.client.DB.QueryRowContext(ctx, q, entityKey).Scan(&max); err != nil {
		return 0, cottontail.NewIoError("flusher high water mark query").WithCause(err)
	}
	return cottontail.TupleID(max), nil
}

// rollToS3 health-checks the overflow bucket, exports the entity's
// archived rows to a local Parquet segment via DuckDB COPY, uploads it,
// and removes the local file regardless of upload outcome.
func (f *Flusher) rollToS3(ctx context.Context, entityKey string) error {
	if err := f.overflow.HealthCheck(ctx); err != nil {
		return err
	}
	segment := fmt.Sprintf("%s-%d.parquet", entityKey, time.Now().UnixNano())
	path, err := f.archiver.client.ExportSegment(ctx, entityKey, os.TempDir(), segment)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	if err := f.overflow.Upload(ctx, path, segment); err != nil {
		return err
	}
	zap.S().Infow("coldtier: rolled archive segment to s3", "entity", entityKey, "key", f.overflow.Key(segment))
	return nil
}
