// Package redisstore keeps short-lived auth state in Redis.
package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/pkg/helpers"
)

func revokedKey(tokenID string) string { return "auth:revoked:" + tokenID }

// RevocationList is a token-id denylist. Entries expire together with the token they name.
type RevocationList struct {
	rdb    redis.Cmdable
	logger *logrus.Logger
	now    func() time.Time
}

func NewRevocationList(rdb redis.Cmdable, logger *logrus.Logger) *RevocationList {
	return &RevocationList{rdb: rdb, logger: logger, now: time.Now}
}

func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.WithError(err).Warn("revocation lookup failed")
		}
		return false, err
	}
	return n > 0, nil
}

func (l *RevocationList) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	return l.rdb.Set(ctx, revokedKey(tokenID), "1", ttl).Err()
}

var _ helpers.RevocationList = (*RevocationList)(nil)
