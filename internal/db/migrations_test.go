package db

import (
	"testing"
	"testing/fstest"

	"github.com/jonathan/hiring-engine/internal/db/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpMigrationsOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.up.sql":    {Data: []byte("SELECT 1")},
		"002_second.up.sql":  {Data: []byte("SELECT 1")},
		"001_first.up.sql":   {Data: []byte("SELECT 1")},
		"001_first.down.sql": {Data: []byte("SELECT 1")},
		"README.md":          {Data: []byte("notes")},
	}

	files, err := upMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{files[0].version, files[1].version, files[2].version})
	assert.Equal(t, "002_second.up.sql", files[1].name)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := upMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, 1, files[0].version)
}
