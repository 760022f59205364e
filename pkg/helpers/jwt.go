package helpers

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, expiry and revocation alike.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySecret is returned when the signing secret is empty.
	ErrEmptySecret = errors.New("jwt secret must not be empty")
)

// RevocationList is an optional denylist of token ids.
type RevocationList interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string, until time.Time) error
}

// JWTManager signs and verifies HS256 access tokens. It is read-only after construction
// and safe for concurrent use.
type JWTManager struct {
	secret      []byte
	ttl         time.Duration
	revocations RevocationList
	now         func() time.Time
}

// NewJWTManager builds a manager that owns a copy of secret.
func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithRevocations makes Verify reject tokens whose id is on rl.
func (m *JWTManager) WithRevocations(rl RevocationList) *JWTManager {
	m.revocations = rl
	return m
}

// TTL is the lifetime used for interactive login tokens.
func (m *JWTManager) TTL() time.Duration { return m.ttl }

// Claims is the token payload. Subject holds the account id and ID the token id.
type Claims struct {
	IsAdmin bool `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Issue signs a token for subjectID valid for ttl from now.
func (m *JWTManager) Issue(subjectID string, isAdmin bool, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := &Claims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.secret)
	return s, exp, err
}

// Verify checks signature and expiry and returns the claims.
// Every failure is reported as ErrInvalidToken.
func (m *JWTManager) Verify(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if m.revocations != nil && claims.ID != "" {
		// A failed lookup does not reject the token; expiry still bounds it.
		if revoked, rErr := m.revocations.IsRevoked(ctx, claims.ID); rErr == nil && revoked {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// Revoke denylists the token until it would have expired anyway.
// Without a revocation list it is a no-op.
func (m *JWTManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.revocations == nil || claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	return m.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (m *JWTManager) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
