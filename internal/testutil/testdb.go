package testutil

import (
	"database/sql"
	"testing"

	"github.com/alexanderramin/smeta/internal/db"
)

// NewTestDB opens a migrated in-memory estimate database on a single
// connection and closes it at test cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory estimate db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// NewTestUoW runs transactions against database, the way services do in
// production.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}
