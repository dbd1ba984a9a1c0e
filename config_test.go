package cottontail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestDefaultConfigPageSize(t *testing.T) {
	assert.Equal(t, 4096, DefaultConfig().Storage.PageSize)
}

func TestConfigValidateRejectsZeroPageSize(t *testing.T) {
	c := DefaultConfig()
	c.Storage.PageSize = 0
	require.Error(t, c.Validate())
}

func TestConfigValidateRejectsInvertedKnnParallelism(t *testing.T) {
	c := DefaultConfig()
	c.Query.MaxKnnParallelism = 1
	c.Query.DefaultKnnParallelism = 2
	require.Error(t, c.Validate())
}
