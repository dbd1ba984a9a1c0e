// Package exec implements the execution DAG and task executor (§4.8,
// §5): lowering a plan.Node tree into stages of concurrent tasks, run
// with an errgroup-based executor that honors cancellation and the
// ONE/ALL stage merge rules.
package exec

import (
	"encoding/base32"

	"github.com/google/uuid"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz156789"

var customEncoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

func EncodeToBase32(data []byte) string {
	return customEncoding.EncodeToString(data)
}

// NewTaskID generates a stable, compact task-identity string for the
// execution DAG's stages and tasks.
func NewTaskID() string {
	return EncodeUUIDToBase32(uuid.New())
}

func EncodeUUIDToBase32(id uuid.UUID) string {
	return EncodeToBase32(id[:])
}

func DecodeFromBase32(s string) ([]byte, error) {
	return customEncoding.DecodeString(s)
}

func DecodeBase32ToUUID(s string) (uuid.UUID, error) {
	data, err := DecodeFromBase32(s)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.FromBytes(data)
}
