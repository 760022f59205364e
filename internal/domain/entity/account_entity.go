package entity

import (
	"time"
)

// Account is the aggregate root for the identity domain.
// PasswordHash holds the credential hasher output and must never leave the service layer.
type Account struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	IsAdmin        bool
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AccountPatch is a partial update. Nil fields are left untouched.
// There is no IsAdmin field: the admin flag cannot be changed through an update.
type AccountPatch struct {
	Username       *string
	Email          *string
	ProfilePicture *string
	PasswordHash   *string
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.ProfilePicture == nil && p.PasswordHash == nil
}

// AccountFilter narrows FindMany. Query is a case-insensitive substring of username or email.
type AccountFilter struct {
	Query  string
	Limit  int
	Offset int
}
