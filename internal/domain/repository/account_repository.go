package repository

import (
	"context"

	"github.com/oksasatya/go-auth-core/internal/domain/entity"
)

// AccountRepository is the account store.
//
// Lookups return apperr.ErrNotFound when nothing matches. Insert and UpdateFields return an
// apperr.ErrConflict when the store rejects a duplicate username or email; the store's
// uniqueness constraint is the authority, not any pre-check done by callers.
// Any other failure is reported as apperr.ErrStoreUnavailable.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByUsername(ctx context.Context, username string) (*entity.Account, error)
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	FindMany(ctx context.Context, filter entity.AccountFilter) ([]*entity.Account, error)
	// Insert assigns ID, CreatedAt and UpdatedAt on a.
	Insert(ctx context.Context, a *entity.Account) error
	UpdateFields(ctx context.Context, id string, patch entity.AccountPatch) (*entity.Account, error)
	DeleteByID(ctx context.Context, id string) error
}
