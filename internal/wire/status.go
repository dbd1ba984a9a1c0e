package wire

import "github.com/cottontaildb/cottontail"

// StatusCode is one of the six wire-level failure categories a query can
// report (§6 "exit behavior").
type StatusCode string

const (
	StatusOK                 StatusCode = "ok"
	StatusInvalidArgument    StatusCode = "invalid-argument"
	StatusNotFound           StatusCode = "not-found"
	StatusFailedPrecondition StatusCode = "failed-precondition"
	StatusInternal           StatusCode = "internal"
	StatusDeadlineExceeded   StatusCode = "deadline-exceeded"
	StatusUnknown            StatusCode = "unknown"
)

// Status is the wire-facing failure envelope: a status code and a
// human-readable message, never a stack trace (§6).
type Status struct {
	Code    StatusCode `json:"code"`
	Message string     `json:"message"`
}

// StatusFromError maps a CottontailError's Kind to a wire StatusCode
// (§7 "the wire layer maps error kinds to status codes"). Errors that
// aren't a CottontailError map to StatusUnknown.
func StatusFromError(err error) Status {
	if err == nil {
		return Status{Code: StatusOK}
	}
	cerr, ok := err.(*cottontail.CottontailError)
	if !ok {
		return Status{Code: StatusUnknown, Message: err.Error()}
	}
	return Status{Code: statusCodeFor(cerr), Message: cerr.Error()}
}

// statusCodeFor classifies by Kind, except ErrorKindBind which splits on
// Code: a bind failure naming a missing schema/entity/column is
// not-found, any other bind failure (malformed predicate, unserialisable
// plan shape) is invalid-argument (§6 "invalid-argument (syntax or
// bind)" / "not-found (missing schema/entity/column)").
func statusCodeFor(err *cottontail.CottontailError) StatusCode {
	switch err.Kind {
	case cottontail.ErrorKindBind:
		switch err.Code {
		case cottontail.CodeUnknownSchema, cottontail.CodeUnknownEntity, cottontail.CodeUnknownColumn:
			return StatusNotFound
		default:
			return StatusInvalidArgument
		}
	case cottontail.ErrorKindSyntax:
		return StatusInvalidArgument
	case cottontail.ErrorKindType, cottontail.ErrorKindSize:
		return StatusFailedPrecondition
	case cottontail.ErrorKindBounds, cottontail.ErrorKindIO, cottontail.ErrorKindExecution:
		return StatusInternal
	case cottontail.ErrorKindCancelled:
		return StatusDeadlineExceeded
	default:
		return StatusUnknown
	}
}
