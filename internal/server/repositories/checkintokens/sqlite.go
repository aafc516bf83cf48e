// Package checkintokens provides SQLite-backed persistence for the single-use
// check-in tokens issued alongside reminders.
package checkintokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lastword/internal/common"
	"github.com/dmitrijs2005/lastword/internal/dbx"
	"github.com/dmitrijs2005/lastword/internal/server/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert stores a freshly issued token.
func (r *SQLiteRepository) Insert(ctx context.Context, token *models.CheckinToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO checkin_tokens (id, trigger_id, expires_at) VALUES (?, ?, ?)`,
		token.ID, token.TriggerID, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert checkin token: %w", err)
	}
	return nil
}

// GetByID returns one token or common.ErrorNotFound. Expiry is a semantic
// concern and is checked by the service, not here.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.CheckinToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, trigger_id, expires_at FROM checkin_tokens WHERE id = ?`, id)

	token := &models.CheckinToken{}
	if err := row.Scan(&token.ID, &token.TriggerID, &token.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select checkin token: %w", err)
	}
	return token, nil
}

// DeleteByTriggerID removes every token belonging to a trigger. Used when the
// owning trigger is deleted, so tokens never outlive it.
func (r *SQLiteRepository) DeleteByTriggerID(ctx context.Context, triggerID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM checkin_tokens WHERE trigger_id = ?`, triggerID)
	if err != nil {
		return fmt.Errorf("failed to delete checkin tokens: %w", err)
	}
	return nil
}
