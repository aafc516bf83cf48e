// Package services implements the trigger lifecycle operations exposed to the
// HTTP boundary and the monitor sweep. All storage access is routed through
// the single-writer serialization queue.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/lastword/internal/common"
	"github.com/dmitrijs2005/lastword/internal/cryptox"
	"github.com/dmitrijs2005/lastword/internal/dbx"
	"github.com/dmitrijs2005/lastword/internal/logging"
	"github.com/dmitrijs2005/lastword/internal/server/dbqueue"
	"github.com/dmitrijs2005/lastword/internal/server/models"
	"github.com/dmitrijs2005/lastword/internal/server/objectstore"
	"github.com/dmitrijs2005/lastword/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CheckinKeyPrefix is the object-store namespace for per-trigger check-in
// reconciliation records.
const CheckinKeyPrefix = "checkin/"

// CheckinKey returns the object-store key holding the most recent check-in
// timestamp for a trigger, across all nodes.
func CheckinKey(triggerID string) string {
	return CheckinKeyPrefix + triggerID + ".txt"
}

// TriggerService owns trigger CRUD, the claim read path and check-in token
// redemption. The object store is optional; when nil, check-ins are only
// recorded locally and other nodes converge through their own sweeps.
type TriggerService struct {
	queue  *dbqueue.Queue
	repos  repomanager.RepositoryManager
	store  objectstore.Store
	logger logging.Logger

	now func() time.Time
}

// NewTriggerService wires the service. store may be nil when no shared bucket
// is configured.
func NewTriggerService(queue *dbqueue.Queue, repos repomanager.RepositoryManager, store objectstore.Store, logger logging.Logger) *TriggerService {
	return &TriggerService{
		queue:  queue,
		repos:  repos,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func nowMs(now func() time.Time) int64 {
	return now().UnixMilli()
}

type operationType int

const (
	opCreate operationType = iota
	opUpdate
)

// validateInput trims the user-editable fields in place and rejects anything
// the original form would reject: empty recipients/note/label, non-positive
// intervals, and (on create) a missing or malformed envelope.
func validateInput(input *models.TriggerInput, op operationType) error {
	input.Recipients = strings.TrimSpace(input.Recipients)
	input.Note = strings.TrimSpace(input.Note)
	input.Label = strings.TrimSpace(input.Label)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Encrypted = strings.TrimSpace(input.Encrypted)

	if input.Recipients == "" || input.Note == "" || input.Label == "" {
		return common.ErrorInvalidRequest
	}
	if op == opCreate && input.Encrypted == "" {
		return common.ErrorInvalidRequest
	}
	if input.CheckinIntervalMs <= 0 || input.TriggerMsSinceLastCheckin <= 0 {
		return common.ErrorInvalidRequest
	}
	if input.Encrypted != "" {
		if _, err := parseEnvelope(input.Encrypted); err != nil {
			return common.ErrorInvalidRequest
		}
	}
	return nil
}

func parseEnvelope(encrypted string) (*cryptox.EncryptedBlock, error) {
	var block cryptox.EncryptedBlock
	if err := json.Unmarshal([]byte(encrypted), &block); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidBlock, err)
	}
	if block.Version != cryptox.BlockVersion || block.Salt == "" || block.IV == "" || block.Data == "" {
		return nil, common.ErrInvalidBlock
	}
	return &block, nil
}

// Create validates input and stores a new trigger. Both liveness clocks start
// at the creation time.
func (s *TriggerService) Create(ctx context.Context, userID string, input *models.TriggerInput) (*models.Trigger, error) {
	if userID == "" {
		return nil, common.ErrorInvalidRequest
	}
	if err := validateInput(input, opCreate); err != nil {
		return nil, err
	}

	now := nowMs(s.now)
	trigger := &models.Trigger{
		ID:                        uuid.NewString(),
		UserID:                    userID,
		Recipients:                input.Recipients,
		Note:                      input.Note,
		Label:                     input.Label,
		Subject:                   input.Subject,
		Encrypted:                 input.Encrypted,
		CheckinIntervalMs:         input.CheckinIntervalMs,
		TriggerMsSinceLastCheckin: input.TriggerMsSinceLastCheckin,
		LastIntervalTimestamp:     now,
		LastCheckinTimestamp:      now,
	}

	err := s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return s.repos.Triggers(db).Insert(ctx, trigger)
	})
	if err != nil {
		return nil, err
	}
	return trigger, nil
}

// Update rewrites the user-editable fields of an owned trigger. An empty
// Encrypted field preserves the stored ciphertext byte for byte, so metadata
// edits never force re-encryption.
func (s *TriggerService) Update(ctx context.Context, userID, triggerID string, input *models.TriggerInput) error {
	if userID == "" || triggerID == "" {
		return common.ErrorInvalidRequest
	}
	if err := validateInput(input, opUpdate); err != nil {
		return err
	}

	return s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return s.repos.Triggers(db).Update(ctx, userID, triggerID, input)
	})
}

// Delete removes an owned trigger and its check-in tokens in one transaction,
// tokens first, so tokens are never orphaned.
func (s *TriggerService) Delete(ctx context.Context, userID, triggerID string) error {
	if userID == "" || triggerID == "" {
		return common.ErrorInvalidRequest
	}

	return s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.repos.CheckinTokens(tx).DeleteByTriggerID(ctx, triggerID); err != nil {
				return err
			}
			return s.repos.Triggers(tx).Delete(ctx, userID, triggerID)
		})
	})
}

// ListByUser returns the user's triggers, most recently checked in first.
func (s *TriggerService) ListByUser(ctx context.Context, userID string) ([]*models.Trigger, error) {
	if userID == "" {
		return nil, common.ErrorInvalidRequest
	}

	var result []*models.Trigger
	err := s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		result, err = s.repos.Triggers(db).SelectByUserID(ctx, userID)
		return err
	})
	return result, err
}

// GetAll returns every trigger; used by the monitor sweep, which evaluates
// all triggers from one snapshot.
func (s *TriggerService) GetAll(ctx context.Context) ([]*models.Trigger, error) {
	var result []*models.Trigger
	err := s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		result, err = s.repos.Triggers(db).SelectAll(ctx)
		return err
	})
	return result, err
}

// EnsureUser records (or refreshes) a user identity so the monitor can later
// resolve the owner's contact address.
func (s *TriggerService) EnsureUser(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" || user.Email == "" {
		return common.ErrorInvalidRequest
	}
	return s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return s.repos.Users(db).Upsert(ctx, user)
	})
}

// OwnerEmail resolves the contact address for a trigger owner.
func (s *TriggerService) OwnerEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		user, err := s.repos.Users(db).GetByID(ctx, userID)
		if err != nil {
			return err
		}
		email = user.Email
		return nil
	})
	return email, err
}

// Claimable reports whether a trigger's payload may be released: the owner
// has been silent for at least the configured threshold. Independent of any
// notification state.
func Claimable(trigger *models.Trigger, now int64) bool {
	return now-trigger.LastCheckinTimestamp >= trigger.TriggerMsSinceLastCheckin
}

// PayloadFor builds the claim payload for a trigger the caller has already
// established as claimable.
func PayloadFor(trigger *models.Trigger) (*models.ClaimPayload, error) {
	block, err := parseEnvelope(trigger.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: stored envelope unreadable: %v", common.ErrorInternal, err)
	}
	return &models.ClaimPayload{Note: trigger.Note, Encrypted: block}, nil
}

// Claim returns the claim payload for an overdue trigger. It deliberately
// reports ErrorNotFound both for a missing trigger and for one that is not
// yet claimable, so anonymous probers cannot confirm a trigger exists.
func (s *TriggerService) Claim(ctx context.Context, triggerID string) (*models.ClaimPayload, error) {
	if triggerID == "" {
		return nil, common.ErrorInvalidRequest
	}

	var trigger *models.Trigger
	err := s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		trigger, err = s.repos.Triggers(db).SelectByID(ctx, triggerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !Claimable(trigger, nowMs(s.now)) {
		return nil, common.ErrorNotFound
	}

	// The envelope was validated on write; a parse failure here means the
	// stored row is corrupt.
	return PayloadFor(trigger)
}

// IssueCheckinToken creates a fresh single-use token for a trigger. Issued by
// the monitor alongside every reminder.
func (s *TriggerService) IssueCheckinToken(ctx context.Context, triggerID string, expiresAt int64) (*models.CheckinToken, error) {
	token := &models.CheckinToken{
		ID:        uuid.NewString(),
		TriggerID: triggerID,
		ExpiresAt: expiresAt,
	}
	err := s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return s.repos.CheckinTokens(db).Insert(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// AdvanceIntervalTimestamp records that a reminder went out now.
func (s *TriggerService) AdvanceIntervalTimestamp(ctx context.Context, triggerID string, ts int64) error {
	return s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return s.repos.Triggers(db).UpdateLastIntervalTimestamp(ctx, triggerID, ts)
	})
}

// RecordCheckin records an owner check-in locally.
func (s *TriggerService) RecordCheckin(ctx context.Context, triggerID string, ts int64) error {
	return s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return s.repos.Triggers(db).UpdateLastCheckinTimestamp(ctx, triggerID, ts)
	})
}

// RecordRelease records a sent release notification and the new count in a
// single exclusive write.
func (s *TriggerService) RecordRelease(ctx context.Context, triggerID string, ts int64, count int) error {
	return s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return s.repos.Triggers(db).UpdateLastTriggerTimestamp(ctx, triggerID, ts, count)
	})
}

// RedeemCheckinToken performs an anonymous check-in. A missing token and an
// expired one are both ErrorNotFound. On success the new timestamp is pushed
// to the shared object store so other nodes see it promptly; a push failure
// is logged and left for the next reconciliation pass.
func (s *TriggerService) RedeemCheckinToken(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return common.ErrorInvalidRequest
	}

	now := nowMs(s.now)
	var triggerID string

	err := s.queue.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		token, err := s.repos.CheckinTokens(db).GetByID(ctx, tokenID)
		if err != nil {
			return err
		}
		if token.ExpiresAt < now {
			return common.ErrorNotFound
		}

		trigger, err := s.repos.Triggers(db).SelectByID(ctx, token.TriggerID)
		if err != nil {
			return err
		}
		triggerID = trigger.ID

		return s.repos.Triggers(db).UpdateLastCheckinTimestamp(ctx, trigger.ID, now)
	})
	if err != nil {
		return err
	}

	s.PublishCheckin(ctx, triggerID, now)
	return nil
}

// PublishCheckin uploads a check-in timestamp to the shared object store.
// Failures are non-fatal: reconciliation converges on a later sweep.
func (s *TriggerService) PublishCheckin(ctx context.Context, triggerID string, ts int64) {
	if s.store == nil {
		return
	}
	body := []byte(strconv.FormatInt(ts, 10))
	if err := s.store.Put(ctx, CheckinKey(triggerID), body, "text/plain"); err != nil {
		s.logger.Warn(ctx, "failed to publish checkin timestamp", "trigger_id", triggerID, "error", err)
	}
}
