package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerNamesService(t *testing.T) {
	require.NoError(t, InitLogger("production"))
	assert.Equal(t, "rental", GetLogger().Name())

	require.NoError(t, InitLogger("development"))
	assert.Equal(t, "rental", GetLogger().Name())
}
