package main

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/workshop-concierge/migrations"
)

func TestParseCommand(t *testing.T) {
	cmd, err := parseCommand(nil)
	require.NoError(t, err)
	assert.Equal(t, "up", cmd.name)

	cmd, err = parseCommand([]string{"force", "1"})
	require.NoError(t, err)
	assert.Equal(t, command{name: "force", version: 1}, cmd)

	_, err = parseCommand([]string{"force"})
	assert.Error(t, err)
	_, err = parseCommand([]string{"force", "x"})
	assert.Error(t, err)
	_, err = parseCommand([]string{"sideways"})
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"000001_kv_entries.up.sql", "000001_kv_entries.down.sql"}, names)
}
