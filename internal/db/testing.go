package db

import (
	"fmt"                        // DSN formatting
	"peak_pulse/internal/config" // Driver names
	"testing"                    // Test helpers

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewTestDB opens a migrated in-memory SQLite database private to the test
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := Open(config.DriverSQLite, dsn, true)
	require.NoError(t, err, "Failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // One connection keeps the in-memory database alive and serialises writes

	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db), "Failed to migrate schema")
	return db
}
