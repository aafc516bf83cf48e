// Package triggers provides SQLite-backed persistence for trigger records.
package triggers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lastword/internal/common"
	"github.com/dmitrijs2005/lastword/internal/dbx"
	"github.com/dmitrijs2005/lastword/internal/server/models"
)

const triggerColumns = `id, user_id, recipients, note, label, subject, encrypted,
		checkin_interval_ms, trigger_ms_since_last_checkin,
		last_interval_timestamp, last_checkin_timestamp, last_trigger_timestamp,
		trigger_sent_notification_count`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert stores a new trigger row.
func (r *SQLiteRepository) Insert(ctx context.Context, t *models.Trigger) error {
	query := `INSERT INTO triggers (` + triggerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Recipients, t.Note, t.Label, t.Subject, t.Encrypted,
		t.CheckinIntervalMs, t.TriggerMsSinceLastCheckin,
		t.LastIntervalTimestamp, t.LastCheckinTimestamp, nullableTs(t.LastTriggerTimestamp),
		t.TriggerSentNotificationCount)
	if err != nil {
		return fmt.Errorf("failed to insert trigger: %w", err)
	}
	return nil
}

// Update rewrites the user-editable fields of a trigger, scoped by both the
// trigger ID and the owner. When input.Encrypted is empty the stored
// ciphertext is preserved. Zero rows affected means a missing trigger or a
// cross-user access attempt and is reported as ErrorInvalidRequest.
func (r *SQLiteRepository) Update(ctx context.Context, userID, triggerID string, input *models.TriggerInput) error {
	var res sql.Result
	var err error
	if input.Encrypted != "" {
		query := `UPDATE triggers
			SET encrypted = ?, recipients = ?, note = ?, label = ?, subject = ?,
				checkin_interval_ms = ?, trigger_ms_since_last_checkin = ?
			WHERE id = ? AND user_id = ?`
		res, err = r.db.ExecContext(ctx, query,
			input.Encrypted, input.Recipients, input.Note, input.Label, input.Subject,
			input.CheckinIntervalMs, input.TriggerMsSinceLastCheckin, triggerID, userID)
	} else {
		query := `UPDATE triggers
			SET recipients = ?, note = ?, label = ?, subject = ?,
				checkin_interval_ms = ?, trigger_ms_since_last_checkin = ?
			WHERE id = ? AND user_id = ?`
		res, err = r.db.ExecContext(ctx, query,
			input.Recipients, input.Note, input.Label, input.Subject,
			input.CheckinIntervalMs, input.TriggerMsSinceLastCheckin, triggerID, userID)
	}
	if err != nil {
		return fmt.Errorf("failed to update trigger: %w", err)
	}
	return requireOneRow(res)
}

// Delete removes a trigger row, scoped by both the trigger ID and the owner.
// The caller is responsible for removing the trigger's check-in tokens in the
// same transaction.
func (r *SQLiteRepository) Delete(ctx context.Context, userID, triggerID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM triggers WHERE id = ? AND user_id = ?`, triggerID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trigger: %w", err)
	}
	return requireOneRow(res)
}

// SelectAll returns every trigger in the database.
func (r *SQLiteRepository) SelectAll(ctx context.Context) ([]*models.Trigger, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+triggerColumns+` FROM triggers`)
	if err != nil {
		return nil, fmt.Errorf("failed to select triggers: %w", err)
	}
	defer rows.Close()
	return scanTriggers(rows)
}

// SelectByUserID returns the user's triggers, most recently checked in first.
func (r *SQLiteRepository) SelectByUserID(ctx context.Context, userID string) ([]*models.Trigger, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+triggerColumns+` FROM triggers WHERE user_id = ? ORDER BY last_checkin_timestamp DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select triggers: %w", err)
	}
	defer rows.Close()
	return scanTriggers(rows)
}

// SelectByID returns one trigger or common.ErrorNotFound.
func (r *SQLiteRepository) SelectByID(ctx context.Context, triggerID string) (*models.Trigger, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+triggerColumns+` FROM triggers WHERE id = ?`, triggerID)

	t, err := scanTrigger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select trigger: %w", err)
	}
	return t, nil
}

// UpdateLastIntervalTimestamp records when a check-in reminder was last issued.
func (r *SQLiteRepository) UpdateLastIntervalTimestamp(ctx context.Context, triggerID string, ts int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE triggers SET last_interval_timestamp = ? WHERE id = ?`, ts, triggerID)
	if err != nil {
		return fmt.Errorf("failed to update last interval timestamp: %w", err)
	}
	return nil
}

// UpdateLastCheckinTimestamp records an owner check-in.
func (r *SQLiteRepository) UpdateLastCheckinTimestamp(ctx context.Context, triggerID string, ts int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE triggers SET last_checkin_timestamp = ? WHERE id = ?`, ts, triggerID)
	if err != nil {
		return fmt.Errorf("failed to update last checkin timestamp: %w", err)
	}
	return nil
}

// UpdateLastTriggerTimestamp records a sent release notification together with
// the new notification count, as a single write.
func (r *SQLiteRepository) UpdateLastTriggerTimestamp(ctx context.Context, triggerID string, ts int64, count int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE triggers SET last_trigger_timestamp = ?, trigger_sent_notification_count = ? WHERE id = ?`,
		ts, count, triggerID)
	if err != nil {
		return fmt.Errorf("failed to update last trigger timestamp: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorInvalidRequest
	}
	return nil
}

func nullableTs(ts *int64) any {
	if ts == nil {
		return nil
	}
	return *ts
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTrigger(row scannable) (*models.Trigger, error) {
	var t models.Trigger
	var lastTrigger sql.NullInt64
	if err := row.Scan(
		&t.ID, &t.UserID, &t.Recipients, &t.Note, &t.Label, &t.Subject, &t.Encrypted,
		&t.CheckinIntervalMs, &t.TriggerMsSinceLastCheckin,
		&t.LastIntervalTimestamp, &t.LastCheckinTimestamp, &lastTrigger,
		&t.TriggerSentNotificationCount,
	); err != nil {
		return nil, err
	}
	if lastTrigger.Valid {
		t.LastTriggerTimestamp = &lastTrigger.Int64
	}
	return &t, nil
}

func scanTriggers(rows *sql.Rows) ([]*models.Trigger, error) {
	var result []*models.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
