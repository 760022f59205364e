// Package memory is an in-process account store for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	"github.com/oksasatya/go-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-auth-core/internal/domain/repository"
)

// AccountRepository keeps accounts in a map and enforces the same uniqueness rules as the
// accounts table. Returned accounts are copies.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*entity.Account
	now      func() time.Time
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: map[string]*entity.Account{}, now: time.Now}
}

func (r *AccountRepository) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	return r.findBy(func(a *entity.Account) bool { return a.Email == email })
}

func (r *AccountRepository) FindByUsername(_ context.Context, username string) (*entity.Account, error) {
	return r.findBy(func(a *entity.Account) bool { return a.Username == username })
}

func (r *AccountRepository) FindByID(_ context.Context, id string) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, apperr.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepository) FindMany(_ context.Context, f entity.AccountFilter) ([]*entity.Account, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	r.mu.RLock()
	out := make([]*entity.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		if q != "" && !strings.Contains(strings.ToLower(a.Username), q) && !strings.Contains(strings.ToLower(a.Email), q) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*entity.Account{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *AccountRepository) Insert(_ context.Context, a *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUnique("", a.Email, a.Username); err != nil {
		return err
	}
	now := r.now()
	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *AccountRepository) UpdateFields(_ context.Context, id string, p entity.AccountPatch) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, apperr.ErrAccountNotFound
	}
	email, username := "", ""
	if p.Email != nil {
		email = *p.Email
	}
	if p.Username != nil {
		username = *p.Username
	}
	if err := r.checkUnique(id, email, username); err != nil {
		return nil, err
	}

	if p.Username != nil {
		a.Username = *p.Username
	}
	if p.Email != nil {
		a.Email = *p.Email
	}
	if p.ProfilePicture != nil {
		a.ProfilePicture = *p.ProfilePicture
	}
	if p.PasswordHash != nil {
		a.PasswordHash = *p.PasswordHash
	}
	if !p.IsEmpty() {
		a.UpdatedAt = r.now()
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return apperr.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *AccountRepository) findBy(match func(*entity.Account) bool) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.ErrAccountNotFound
}

// checkUnique must be called with the write lock held. Empty values are not checked.
func (r *AccountRepository) checkUnique(selfID, email, username string) error {
	for id, other := range r.accounts {
		if id == selfID {
			continue
		}
		if email != "" && other.Email == email {
			return apperr.ErrEmailInUse
		}
		if username != "" && other.Username == username {
			return apperr.ErrUsernameInUse
		}
	}
	return nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
