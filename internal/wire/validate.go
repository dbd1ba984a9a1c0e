package wire

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/cottontaildb/cottontail"
)

// requestSchemaJSON declares the shape every incoming QueryRequest must
// satisfy before it reaches the binder: schema and entity are required
// strings, projection is a required object, k (when a kNN predicate is
// present) is a positive integer. Keeping this declarative and separate
// from the Go struct lets malformed requests be rejected as a
// SyntaxError without the binder ever touching them (§7, §10).
const requestSchemaJSON = `{
  "type": "object",
  "required": ["schema", "entity", "projection"],
  "properties": {
    "queryId": {"type": "string"},
    "schema": {"type": "string", "minLength": 1},
    "entity": {"type": "string", "minLength": 1},
    "projection": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"type": "string"},
        "fields": {"type": "array", "items": {"type": "string"}},
        "column": {"type": "string"}
      }
    },
    "knn": {
      "type": "object",
      "required": ["column", "k", "distance", "queries"],
      "properties": {
        "column": {"type": "string"},
        "k": {"type": "integer", "minimum": 1},
        "distance": {"type": "string"},
        "queries": {"type": "array", "minItems": 1},
        "weights": {"type": "array"},
        "exponent": {"type": "number", "exclusiveMinimum": 0}
      }
    },
    "limit": {"type": "integer"},
    "skip": {"type": "integer", "minimum": 0}
  }
}`

// Validator compiles requestSchemaJSON once and validates request
// payloads against it, grounded on the teacher's
// Transformer.ValidateAgainstSchema marshal/Resolve/Validate sequence.
type Validator struct {
	schema *jsonschema.Resolved
}

// NewValidator compiles the declared request schema.
func NewValidator() (*Validator, error) {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(requestSchemaJSON), &schema); err != nil {
		return nil, cottontail.NewSyntaxError(cottontail.CodeMissingField, "wire: failed to parse request schema: "+err.Error())
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, cottontail.NewSyntaxError(cottontail.CodeMissingField, "wire: failed to resolve request schema: "+err.Error())
	}
	return &Validator{schema: resolved}, nil
}

// ValidateRaw validates a raw JSON request payload against the declared
// schema before it is ever unmarshalled into a QueryRequest.
func (v *Validator) ValidateRaw(payload []byte) error {
	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return cottontail.NewSyntaxError(cottontail.CodeMissingField, "wire: malformed JSON: "+err.Error())
	}
	if err := v.schema.Validate(data); err != nil {
		return cottontail.NewSyntaxError(cottontail.CodeMissingField, "wire: request failed schema validation: "+err.Error())
	}
	return nil
}

// DecodeRequest validates and unmarshals payload into a QueryRequest,
// filling in a fresh query id when the caller didn't supply one.
func (v *Validator) DecodeRequest(payload []byte) (QueryRequest, error) {
	if err := v.ValidateRaw(payload); err != nil {
		return QueryRequest{}, err
	}
	var req QueryRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return QueryRequest{}, cottontail.NewSyntaxError(cottontail.CodeMissingField, "wire: failed to decode request: "+err.Error())
	}
	if req.QueryID == "" {
		req.QueryID = NewQueryID()
	}
	return req, nil
}
