package sqlitemigrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func count(t *testing.T, db *sql.DB, query string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query).Scan(&n))
	return n
}

func TestApplyRunsEachFileOnce(t *testing.T) {
	db := openDB(t)
	files := fstest.MapFS{
		"001_items.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;")},
		"002_tags.sql":  {Data: []byte("CREATE TABLE tags(id TEXT PRIMARY KEY);")},
		"README.md":     {Data: []byte("ignored")},
	}

	require.NoError(t, Apply(context.Background(), db, files, ""))
	require.NoError(t, Apply(context.Background(), db, files, ""))

	assert.Equal(t, 2, count(t, db, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='items'"))
	assert.Equal(t, 1, count(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tags'"))
}

func TestApplyReportsBrokenMigration(t *testing.T) {
	db := openDB(t)
	files := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABL nope;")},
	}

	err := Apply(context.Background(), db, files, ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_broken.sql")
	assert.Equal(t, 0, count(t, db, "SELECT COUNT(*) FROM schema_migrations"))
}

func TestUpSection(t *testing.T) {
	assert.Equal(t, "\nSELECT 1;\n", UpSection("-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;"))
	assert.Equal(t, "SELECT 3;", UpSection("SELECT 3;"))
}

func TestApplyRequiresDB(t *testing.T) {
	assert.Error(t, Apply(context.Background(), nil, fstest.MapFS{}, ""))
}
