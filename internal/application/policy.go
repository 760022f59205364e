package application

import (
	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	"github.com/oksasatya/go-auth-core/internal/domain/entity"
)

// AuthorizeOwnerOrAdmin allows the account owner or any admin.
// A nil identity is unauthenticated, never forbidden.
func AuthorizeOwnerOrAdmin(id *entity.Identity, targetID string) error {
	if id == nil || id.SubjectID == "" {
		return apperr.ErrLoginRequired
	}
	if id.IsAdmin || id.SubjectID == targetID {
		return nil
	}
	return apperr.ErrNotAccountOwner
}

// AuthorizeAdminOnly allows admins only.
func AuthorizeAdminOnly(id *entity.Identity) error {
	if id == nil || id.SubjectID == "" {
		return apperr.ErrLoginRequired
	}
	if !id.IsAdmin {
		return apperr.ErrAdminRequired
	}
	return nil
}
