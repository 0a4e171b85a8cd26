package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingges1210/tutorlink-sub001/config"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

func TestOpenMemory_MigratesAllTables(t *testing.T) {
	gdb, err := OpenMemory(uuid.NewString())
	require.NoError(t, err)

	for _, m := range model.All() {
		assert.True(t, gdb.Migrator().HasTable(m), "missing table for %T", m)
	}
}

func TestDialectorFor_RejectsUnknownDriver(t *testing.T) {
	_, err := dialectorFor(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
