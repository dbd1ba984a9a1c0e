package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cottontaildb/cottontail"
)

func TestStatusFromErrorMapsBindCodesToNotFoundOrInvalidArgument(t *testing.T) {
	assert.Equal(t, StatusNotFound, StatusFromError(cottontail.NewBindError(cottontail.CodeUnknownEntity, "x")).Code)
	assert.Equal(t, StatusNotFound, StatusFromError(cottontail.NewBindError(cottontail.CodeUnknownSchema, "x")).Code)
	assert.Equal(t, StatusNotFound, StatusFromError(cottontail.NewBindError(cottontail.CodeUnknownColumn, "x")).Code)
	assert.Equal(t, StatusInvalidArgument, StatusFromError(cottontail.NewBindError(cottontail.CodeMalformedPredicate, "x")).Code)
}

func TestStatusFromErrorMapsOtherKinds(t *testing.T) {
	assert.Equal(t, StatusInvalidArgument, StatusFromError(cottontail.NewSyntaxError(cottontail.CodeMissingField, "x")).Code)
	assert.Equal(t, StatusFailedPrecondition, StatusFromError(cottontail.NewTypeError(cottontail.CodeTypeMismatch, "x")).Code)
	assert.Equal(t, StatusFailedPrecondition, StatusFromError(cottontail.NewSizeError("x")).Code)
	assert.Equal(t, StatusInternal, StatusFromError(cottontail.NewIoError("x")).Code)
	assert.Equal(t, StatusInternal, StatusFromError(cottontail.NewExecutionError("x")).Code)
	assert.Equal(t, StatusDeadlineExceeded, StatusFromError(cottontail.NewCancelledError("x")).Code)
	assert.Equal(t, StatusUnknown, StatusFromError(cottontail.NewUnknownError("x")).Code)
}

func TestStatusFromErrorHandlesNonCottontailError(t *testing.T) {
	s := StatusFromError(errors.New("boom"))
	assert.Equal(t, StatusUnknown, s.Code)
	assert.Equal(t, "boom", s.Message)
}

func TestStatusFromErrorNilIsOK(t *testing.T) {
	assert.Equal(t, StatusOK, StatusFromError(nil).Code)
}
