package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/lastword/internal/dbx"
	"github.com/dmitrijs2005/lastword/internal/server/repositories/checkintokens"
	"github.com/dmitrijs2005/lastword/internal/server/repositories/triggers"
	"github.com/dmitrijs2005/lastword/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so the
// same repositories can run against the raw handle or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Triggers(db dbx.DBTX) triggers.Repository
	CheckinTokens(db dbx.DBTX) checkintokens.Repository
	Users(db dbx.DBTX) users.Repository
}
