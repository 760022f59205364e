package application

import (
	"time"

	"github.com/oksasatya/go-auth-core/internal/domain/entity"
)

// AccountView is the outward shape of an account. It has no password hash field.
type AccountView struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	IsAdmin        bool      `json:"is_admin"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func ToView(a *entity.Account) AccountView {
	return AccountView{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		IsAdmin:        a.IsAdmin,
		ProfilePicture: a.ProfilePicture,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toViews(list []*entity.Account) []AccountView {
	out := make([]AccountView, 0, len(list))
	for _, a := range list {
		out = append(out, ToView(a))
	}
	return out
}

// Session is the result of a successful sign-in.
type Session struct {
	Account   AccountView
	Token     string
	ExpiresAt time.Time
}
