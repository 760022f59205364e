package application

import (
	"context"
	"io"
	"time"

	"github.com/oksasatya/go-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-auth-core/pkg/helpers"
)

// PasswordHasher hashes and checks credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenCodec mints, checks and revokes access tokens.
type TokenCodec interface {
	Issue(subjectID string, isAdmin bool, ttl time.Duration) (string, time.Time, error)
	Verify(ctx context.Context, token string) (*helpers.Claims, error)
	Revoke(ctx context.Context, claims *helpers.Claims) error
}

// MediaUploader stores an object and returns its public URL.
type MediaUploader interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// AccountIndex mirrors accounts into a search backend.
type AccountIndex interface {
	Index(ctx context.Context, a *entity.Account) error
	IndexAll(ctx context.Context, accounts []*entity.Account) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]*entity.Account, error)
}

// EventPublisher puts a JSON message on the email queue.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}
