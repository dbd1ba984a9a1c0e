package coldtier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cottontaildb/cottontail"
)

// jsonRow is the archive's row encoding: one JSON object per tuple,
// column name to a JSON-safe scalar/array. Complex types are not
// archivable in this representation (see Archiver.Append) — a known
// scope limit of the JSON row format, distinct from the binary format a
// production archive would use.
type jsonRow map[string]any

func valueToJSON(v cottontail.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.Type() {
	case cottontail.TypeBoolean:
		b, _ := v.AsBool()
		return b, nil
	case cottontail.TypeString:
		s, _ := v.AsString()
		return s, nil
	case cottontail.TypeByte, cottontail.TypeShort, cottontail.TypeInt, cottontail.TypeLong:
		n, _ := v.AsInt64()
		return n, nil
	case cottontail.TypeFloat, cottontail.TypeDouble:
		f, _ := v.AsFloat64()
		return f, nil
	default:
		if v.Type().IsVector() && !v.Type().IsComplex() {
			fv, err := v.AsFloat64Vector()
			if err != nil {
				return nil, err
			}
			return fv, nil
		}
		return nil, cottontail.NewTypeError(cottontail.CodeTypeMismatch,
			fmt.Sprintf("coldtier archive cannot encode %s values (complex types are out of scope for the JSON row format)", v.Type()))
	}
}

func jsonToValue(raw any, t cottontail.ValueType) (cottontail.Value, error) {
	if raw == nil {
		return cottontail.NullValue(t), nil
	}
	switch t {
	case cottontail.TypeBoolean:
		return cottontail.BoolValue(raw.(bool)), nil
	case cottontail.TypeString:
		return cottontail.StringValue(raw.(string)), nil
	case cottontail.TypeByte, cottontail.TypeShort, cottontail.TypeInt, cottontail.TypeLong:
		return cottontail.LongValue(int64(raw.(float64))), nil
	case cottontail.TypeFloat, cottontail.TypeDouble:
		return cottontail.DoubleValue(raw.(float64)), nil
	default:
		if t.IsVector() && !t.IsComplex() {
			arr := raw.([]any)
			out := make([]float64, len(arr))
			for i, e := range arr {
				out[i] = e.(float64)
			}
			return cottontail.DoubleVectorValue(out), nil
		}
		return cottontail.Value{}, cottontail.NewTypeError(cottontail.CodeTypeMismatch, fmt.Sprintf("coldtier archive cannot decode %s values", t))
	}
}

// Archiver appends evicted rows to the DuckDB archive table, keyed by a
// stable entity key (schema.name) and tuple id (§11 cold-tier fallback).
type Archiver struct {
	client    *Client
	tableName string
}

// NewArchiver wraps an already-open Client for writing.
func NewArchiver(client *Client, tableName string) *Archiver {
	if tableName == "" {
		tableName = "cottontail_archive"
	}
	return &Archiver{client: client, tableName: tableName}
}

// Append writes one record into the archive table.
func (a *Archiver) Append(ctx context.Context, entityKey string, r cottontail.Record) error {
	row := make(jsonRow, len(r.Columns))
	for i, col := range r.Columns {
		jv, err := valueToJSON(r.Values[i])
		if err != nil {
			return err
		}
		row[col.Name] = jv
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return cottontail.NewIoError("marshal archive row").WithCause(err)
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (entity_key, tuple_id, row_json) VALUES (?, ?, ?)", a.tableName)
	if _, err := a.client.DB.ExecContext(ctx, insertSQL, entityKey, int64(r.TupleID), string(payload)); err != nil {
		return cottontail.NewIoError("archive row insert").WithCause(err)
	}
	return nil
}

// Reader is the EntityScanTxn implementation over the DuckDB archive
// (§4.6, §11): a read-only cursor over rows that have rolled off the hot
// tier for this entity.
type Reader struct {
	client    *Client
	tableName string
	entity    cottontail.Entity
	entityKey string
}

// NewReader opens an archival read cursor for entity.
func NewReader(client *Client, tableName string, entity cottontail.Entity) *Reader {
	if tableName == "" {
		tableName = "cottontail_archive"
	}
	return &Reader{client: client, tableName: tableName, entity: entity, entityKey: entity.Schema + "." + entity.Name}
}

func (r *Reader) Entity() cottontail.Entity { return r.entity }

func (r *Reader) MaxTupleID(ctx context.Context) (cottontail.TupleID, error) {
	q := fmt.Sprintf("SELECT COALESCE(MAX(tuple_id), -1) FROM %s WHERE entity_key = ?", r.tableName)
	var max int64
	if err := r.client.DB.QueryRowContext(ctx, q, r.entityKey).Scan(&max); err != nil {
		return 0, cottontail.NewIoError("archive max tuple id query").WithCause(err)
	}
	return cottontail.TupleID(max), nil
}

func (r *Reader) ForEach(ctx context.Context, action func(cottontail.Record) (bool, error)) error {
	max, err := r.MaxTupleID(ctx)
	if err != nil {
		return err
	}
	return r.ForEachRange(ctx, 0, max+1, action)
}

func (r *Reader) ForEachRange(ctx context.Context, lo, hi cottontail.TupleID, action func(cottontail.Record) (bool, error)) error {
	return r.ForEachMatching(ctx, lo, hi, nil, action)
}

func (r *Reader) ForEachMatching(ctx context.Context, lo, hi cottontail.TupleID, predicate cottontail.Predicate, action func(cottontail.Record) (bool, error)) error {
	q := fmt.Sprintf("SELECT tuple_id, row_json FROM %s WHERE entity_key = ? AND tuple_id >= ? AND tuple_id < ? ORDER BY tuple_id", r.tableName)
	rows, err := r.client.DB.QueryContext(ctx, q, r.entityKey, int64(lo), int64(hi))
	if err != nil {
		return cottontail.NewIoError("archive ranged scan query").WithCause(err)
	}
	defer rows.Close()

	for rows.Next() {
		select {
		case <-ctx.Done():
			return cottontail.NewCancelledError("archive scan cancelled").WithCause(ctx.Err())
		default:
		}
		var tupleID int64
		var payload string
		if err := rows.Scan(&tupleID, &payload); err != nil {
			return cottontail.NewIoError("archive row scan").WithCause(err)
		}
		rec, err := r.decodeRow(cottontail.TupleID(tupleID), payload)
		if err != nil {
			return err
		}
		if predicate != nil {
			ok, err := predicate.Eval(rec)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		cont, err := action(rec)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return rows.Err()
}

func (r *Reader) decodeRow(tupleID cottontail.TupleID, payload string) (cottontail.Record, error) {
	var row jsonRow
	if err := json.Unmarshal([]byte(payload), &row); err != nil {
		return cottontail.Record{}, cottontail.NewIoError("unmarshal archive row").WithCause(err)
	}
	values := make([]cottontail.Value, len(r.entity.Columns))
	for i, col := range r.entity.Columns {
		v, err := jsonToValue(row[col.Name], col.Type)
		if err != nil {
			return cottontail.Record{}, err
		}
		values[i] = v
	}
	return cottontail.Record{TupleID: tupleID, Columns: r.entity.Columns, Values: values}, nil
}

func (r *Reader) Close() error { return nil }
