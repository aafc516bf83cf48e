package triggers

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/lastword/internal/common"
	"github.com/dmitrijs2005/lastword/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLiteRepository(db), mock, db
}

func triggerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "recipients", "note", "label", "subject", "encrypted",
		"checkin_interval_ms", "trigger_ms_since_last_checkin",
		"last_interval_timestamp", "last_checkin_timestamp", "last_trigger_timestamp",
		"trigger_sent_notification_count",
	})
}

func TestInsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO triggers`).
		WithArgs(
			"t1", "u1", "a@example.com,b@example.com", "note", "label", "subject", `{"version":1}`,
			int64(1000), int64(5000),
			int64(100), int64(100), nil,
			0,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &models.Trigger{
		ID:                        "t1",
		UserID:                    "u1",
		Recipients:                "a@example.com,b@example.com",
		Note:                      "note",
		Label:                     "label",
		Subject:                   "subject",
		Encrypted:                 `{"version":1}`,
		CheckinIntervalMs:         1000,
		TriggerMsSinceLastCheckin: 5000,
		LastIntervalTimestamp:     100,
		LastCheckinTimestamp:      100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsert_DBExecError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO triggers`).WillReturnError(errors.New("db is down"))

	err := repo.Insert(context.Background(), &models.Trigger{ID: "t1"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestUpdate_WithEncrypted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE triggers\s+SET encrypted = \?, recipients = \?`).
		WithArgs(`{"version":1}`, "a@example.com", "note", "label", "subject",
			int64(1000), int64(5000), "t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "u1", "t1", &models.TriggerInput{
		Recipients:                "a@example.com",
		Note:                      "note",
		Label:                     "label",
		Subject:                   "subject",
		Encrypted:                 `{"version":1}`,
		CheckinIntervalMs:         1000,
		TriggerMsSinceLastCheckin: 5000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_WithoutEncrypted_PreservesCiphertext(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE triggers\s+SET recipients = \?`).
		WithArgs("a@example.com", "note", "label", "",
			int64(1000), int64(5000), "t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "u1", "t1", &models.TriggerInput{
		Recipients:                "a@example.com",
		Note:                      "note",
		Label:                     "label",
		CheckinIntervalMs:         1000,
		TriggerMsSinceLastCheckin: 5000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_RowsAffected0(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE triggers`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "u1", "missing", &models.TriggerInput{
		Recipients: "a@example.com", Note: "n", Label: "l",
		CheckinIntervalMs: 1, TriggerMsSinceLastCheckin: 1,
	})
	if !errors.Is(err, common.ErrorInvalidRequest) {
		t.Fatalf("want ErrorInvalidRequest, got %v", err)
	}
}

func TestDelete_RowsAffected0(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM triggers WHERE id = \? AND user_id = \?`).
		WithArgs("t1", "other-user").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "other-user", "t1")
	if !errors.Is(err, common.ErrorInvalidRequest) {
		t.Fatalf("want ErrorInvalidRequest, got %v", err)
	}
}

func TestSelectByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := triggerRows().AddRow(
		"t1", "u1", "a@example.com", "note", "label", "", `{"version":1}`,
		int64(1000), int64(5000),
		int64(100), int64(200), int64(300),
		2,
	)
	mock.ExpectQuery(`SELECT .* FROM triggers WHERE id = \?`).
		WithArgs("t1").
		WillReturnRows(rows)

	trigger, err := repo.SelectByID(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trigger.LastTriggerTimestamp == nil || *trigger.LastTriggerTimestamp != 300 {
		t.Fatalf("want last trigger timestamp 300, got %v", trigger.LastTriggerTimestamp)
	}
	if trigger.TriggerSentNotificationCount != 2 {
		t.Fatalf("want notification count 2, got %d", trigger.TriggerSentNotificationCount)
	}
}

func TestSelectByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM triggers WHERE id = \?`).
		WithArgs("missing").
		WillReturnRows(triggerRows())

	_, err := repo.SelectByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestSelectByUserID_NullLastTrigger(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := triggerRows().AddRow(
		"t1", "u1", "a@example.com", "note", "label", "", `{"version":1}`,
		int64(1000), int64(5000),
		int64(100), int64(200), nil,
		0,
	)
	mock.ExpectQuery(`SELECT .* FROM triggers WHERE user_id = \? ORDER BY last_checkin_timestamp DESC`).
		WithArgs("u1").
		WillReturnRows(rows)

	triggers, err := repo.SelectByUserID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(triggers) != 1 {
		t.Fatalf("want 1 trigger, got %d", len(triggers))
	}
	if triggers[0].LastTriggerTimestamp != nil {
		t.Fatalf("want nil last trigger timestamp, got %v", *triggers[0].LastTriggerTimestamp)
	}
}

func TestUpdateLastTriggerTimestamp(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE triggers SET last_trigger_timestamp = \?, trigger_sent_notification_count = \? WHERE id = \?`).
		WithArgs(int64(12345), 3, "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateLastTriggerTimestamp(context.Background(), "t1", 12345, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
