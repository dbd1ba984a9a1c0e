// Package wire implements the query request/response surface (§6):
// decoding a QueryRequest into the shapes the binder consumes, paging a
// RecordSet into ResponseMessages, and mapping CottontailError kinds to
// wire status codes.
package wire

import (
	"math"

	"github.com/google/uuid"

	"github.com/cottontaildb/cottontail"
)

// AtomRequest is the wire shape of one predicate leaf.
type AtomRequest struct {
	Column  string               `json:"column"`
	Op      cottontail.CompareOp `json:"op"`
	Literal any                  `json:"literal,omitempty"`
	Set     []any                `json:"set,omitempty"`
	Lo      any                  `json:"lo,omitempty"`
	Hi      any                  `json:"hi,omitempty"`
}

// CompositeRequest is the wire shape of an AND/OR/NOT predicate node.
type CompositeRequest struct {
	Logic    cottontail.BoolLogic `json:"logic"`
	Children []PredicateRequest   `json:"children"`
}

// PredicateRequest is either an Atom or a Composite; exactly one of the
// two fields must be set (enforced by the JSON Schema in validate.go).
type PredicateRequest struct {
	Atom      *AtomRequest      `json:"atom,omitempty"`
	Composite *CompositeRequest `json:"composite,omitempty"`
}

// ProjectionRequest names what columns/aggregate the query returns.
type ProjectionRequest struct {
	Type   string            `json:"type"`
	Fields []string          `json:"fields,omitempty"`
	Rename map[string]string `json:"rename,omitempty"`
	Column string            `json:"column,omitempty"`
}

// KnnRequest is the wire shape of an optional kNN predicate. Exponent is
// only meaningful when Distance is "Lp" (Minkowski, §4.3): it is the
// generic p selecting the kernel, since "Lp" alone doesn't name one.
type KnnRequest struct {
	Column   string      `json:"column"`
	K        int         `json:"k"`
	Distance string      `json:"distance"`
	Queries  [][]float64 `json:"queries"`
	Weights  [][]float64 `json:"weights,omitempty"`
	Exponent *float64    `json:"exponent,omitempty"`
}

// QueryRequest is the wire surface of an incoming query (§6 "request
// side, simplified"): schema+entity reference, projection, optional
// filter, optional kNN predicate, optional limit/skip.
type QueryRequest struct {
	QueryID    string             `json:"queryId,omitempty"`
	Schema     string             `json:"schema"`
	Entity     string             `json:"entity"`
	Projection ProjectionRequest  `json:"projection"`
	Filter     *PredicateRequest  `json:"filter,omitempty"`
	Knn        *KnnRequest        `json:"knn,omitempty"`
	Limit      *int               `json:"limit,omitempty"`
	Skip       *int               `json:"skip,omitempty"`
}

// NewQueryID generates a fresh query id for a request that didn't supply
// one, the way the teacher stamps a request id at ingress.
func NewQueryID() string { return uuid.NewString() }

// ResponseMessage is one page of a streamed query result (§6 "response
// side"): page index, page size, max page, total hits, and the rows
// themselves encoded as a flat column-major-agnostic row array.
type ResponseMessage struct {
	PageIndex int             `json:"pageIndex"`
	PageSize  int             `json:"pageSize"`
	MaxPage   int             `json:"maxPage"`
	TotalHits int             `json:"totalHits"`
	Rows      []RowResponse   `json:"rows"`
	Columns   []ColumnResponse `json:"columns"`
}

// ColumnResponse mirrors a ColumnDef over the wire.
type ColumnResponse struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	LogicalSize int    `json:"logicalSize"`
	Nullable    bool   `json:"nullable"`
}

// RowResponse is one record's values, JSON-encodable.
type RowResponse struct {
	TupleID int64 `json:"tupleId"`
	Values  []any `json:"values"`
}

// Paginate splits rs into pages sized so each page's estimated encoded
// size stays under maxMessageSize, following §6's
// "maxMessageSize / ceil_pow2(firstRowBytes)" sizing rule.
func Paginate(rs *cottontail.RecordSet, maxMessageSize int) []ResponseMessage {
	total := rs.Len()
	if total == 0 {
		return []ResponseMessage{{PageIndex: 0, PageSize: 0, MaxPage: 0, TotalHits: 0, Columns: columnResponses(rs.Columns)}}
	}

	firstRowBytes := estimateRowBytes(rs.At(0))
	pageSize := pageSizeFor(maxMessageSize, firstRowBytes)
	if pageSize < 1 {
		pageSize = 1
	}

	maxPage := (total - 1) / pageSize
	pages := make([]ResponseMessage, 0, maxPage+1)
	for page := 0; page <= maxPage; page++ {
		start := page * pageSize
		end := start + pageSize
		if end > total {
			end = total
		}
		rows := make([]RowResponse, 0, end-start)
		for i := start; i < end; i++ {
			rows = append(rows, toRowResponse(rs.At(i)))
		}
		pages = append(pages, ResponseMessage{
			PageIndex: page,
			PageSize:  pageSize,
			MaxPage:   maxPage,
			TotalHits: total,
			Rows:      rows,
			Columns:   columnResponses(rs.Columns),
		})
	}
	return pages
}

// pageSizeFor implements maxMessageSize / ceil_pow2(firstRowBytes): the
// per-row budget is rounded up to the next power of two so page sizing
// doesn't churn as row width drifts by a few bytes.
func pageSizeFor(maxMessageSize, firstRowBytes int) int {
	if firstRowBytes <= 0 {
		firstRowBytes = 1
	}
	rounded := ceilPow2(firstRowBytes)
	return maxMessageSize / rounded
}

func ceilPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Pow(2, math.Ceil(math.Log2(float64(n)))))
}

func estimateRowBytes(r cottontail.Record) int {
	size := 16 // tuple id + framing overhead
	for _, c := range r.Columns {
		if p := c.PhysicalSize(); p > 0 {
			size += p
		} else {
			size += 64 // conservative estimate for variable-length fields
		}
	}
	return size
}

func columnResponses(cols []cottontail.ColumnDef) []ColumnResponse {
	out := make([]ColumnResponse, len(cols))
	for i, c := range cols {
		out[i] = ColumnResponse{Name: c.Name, Type: c.Type.String(), LogicalSize: c.LogicalSize, Nullable: c.Nullable}
	}
	return out
}

func toRowResponse(r cottontail.Record) RowResponse {
	values := make([]any, len(r.Values))
	for i, v := range r.Values {
		values[i] = valueToAny(v)
	}
	return RowResponse{TupleID: int64(r.TupleID), Values: values}
}

func valueToAny(v cottontail.Value) any {
	if v.IsNull() {
		return nil
	}
	if v.Type().IsVector() {
		if v.Type().IsComplex() {
			cv, err := v.AsComplex128Vector()
			if err != nil {
				return nil
			}
			out := make([]complex128, len(cv))
			copy(out, cv)
			return out
		}
		fv, err := v.AsFloat64Vector()
		if err != nil {
			return nil
		}
		return fv
	}
	switch v.Type() {
	case cottontail.TypeBoolean:
		b, _ := v.AsBool()
		return b
	case cottontail.TypeString:
		s, _ := v.AsString()
		return s
	case cottontail.TypeComplex32, cottontail.TypeComplex64:
		c, _ := v.AsComplex128()
		return c
	default:
		f, _ := v.AsFloat64()
		return f
	}
}
