package checkintokens

import (
	"context"

	"github.com/dmitrijs2005/lastword/internal/server/models"
)

// Repository is the storage contract for check-in tokens.
type Repository interface {
	Insert(ctx context.Context, token *models.CheckinToken) error
	GetByID(ctx context.Context, id string) (*models.CheckinToken, error)
	DeleteByTriggerID(ctx context.Context, triggerID string) error
}
