// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mechanic-shop/internal/config"
	"github.com/iliyamo/mechanic-shop/internal/database"
	"github.com/iliyamo/mechanic-shop/internal/logger"
)

// NewDB returns a private in-memory SQLite database with every migration
// applied.  It is closed when the test ends.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := database.NewMigrator(db, config.DriverSQLite, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, m.Up(context.Background()))
	return db
}
