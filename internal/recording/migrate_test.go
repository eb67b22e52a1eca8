package recording

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsANoOpWhenAlreadyCurrent(t *testing.T) {
	data := []byte(`{"schema_version":1,"id":"rec-1"}`)
	out, err := Migrate(data, 1)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestMigrateErrorsWhenNoPathRegisteredFromOlderVersion(t *testing.T) {
	data := []byte(`{"schema_version":0,"id":"rec-1"}`)
	_, err := Migrate(data, 0)
	assert.Error(t, err, "schema version 0 has no registered migration yet")
}
