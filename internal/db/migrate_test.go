package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	version, err := MigrationVersion(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"estimates", "sections", "units", "work_types", "line_items",
		"item_resources", "item_totals", "item_sub_works", "normatives", "import_sessions",
	}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestOpenDB_ForeignKeysEnabled(t *testing.T) {
	db := openTestDB(t)

	var enabled int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestSections_RejectSelfParent(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO estimates (id, organization_id, name, created_at, updated_at)
		VALUES ('e1', 'org', 'E', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO sections (id, estimate_id, parent_section_id, name, created_at, updated_at)
		VALUES ('s1', 'e1', 's1', 'Loop', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	assert.Error(t, err)
}
