// Package repomanager provides a concrete RepositoryManager for SQLite,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/lastword/internal/dbx"
	"github.com/dmitrijs2005/lastword/internal/server/migrations"
	"github.com/dmitrijs2005/lastword/internal/server/repositories/checkintokens"
	"github.com/dmitrijs2005/lastword/internal/server/repositories/triggers"
	"github.com/dmitrijs2005/lastword/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repository implementations
// and exposes a schema migration hook.
type SQLiteRepositoryManager struct{}

// NewSQLiteRepositoryManager constructs a SQLite-backed RepositoryManager.
func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

// Triggers returns a triggers.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Triggers(db dbx.DBTX) triggers.Repository {
	return triggers.NewSQLiteRepository(db)
}

// CheckinTokens returns a checkintokens.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) CheckinTokens(db dbx.DBTX) checkintokens.Repository {
	return checkintokens.NewSQLiteRepository(db)
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
