package users

import (
	"context"

	"github.com/dmitrijs2005/lastword/internal/server/models"
)

// Repository is the storage contract for user identities.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}
