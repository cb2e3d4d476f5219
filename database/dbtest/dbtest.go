// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"webguard/config"
	"webguard/database"
)

// OpenTestDB opens a migrated SQLite database in a per-test temp directory.
func OpenTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
