package triggers

import (
	"context"

	"github.com/dmitrijs2005/lastword/internal/server/models"
)

// Repository is the storage contract for triggers. Implementations are not
// safe for concurrent use on the same handle; callers must route every call
// through the serialization queue.
type Repository interface {
	Insert(ctx context.Context, t *models.Trigger) error
	Update(ctx context.Context, userID, triggerID string, input *models.TriggerInput) error
	Delete(ctx context.Context, userID, triggerID string) error
	SelectAll(ctx context.Context) ([]*models.Trigger, error)
	SelectByUserID(ctx context.Context, userID string) ([]*models.Trigger, error)
	SelectByID(ctx context.Context, triggerID string) (*models.Trigger, error)
	UpdateLastIntervalTimestamp(ctx context.Context, triggerID string, ts int64) error
	UpdateLastCheckinTimestamp(ctx context.Context, triggerID string, ts int64) error
	UpdateLastTriggerTimestamp(ctx context.Context, triggerID string, ts int64, count int) error
}
