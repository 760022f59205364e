package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-core/config"
)

func TestPoolOptions_Defaults(t *testing.T) {
	o := PoolOptions{MinConns: 50}.withDefaults()
	assert.Equal(t, int32(10), o.MaxConns)
	assert.Equal(t, int32(0), o.MinConns)
	assert.Equal(t, time.Hour, o.MaxConnLifetime)
	assert.Equal(t, 5*time.Second, o.PingTimeout)

	o = PoolOptions{MaxConns: 4, MinConns: 2, MaxConnLifetime: time.Minute}.withDefaults()
	assert.Equal(t, int32(4), o.MaxConns)
	assert.Equal(t, int32(2), o.MinConns)
	assert.Equal(t, time.Minute, o.MaxConnLifetime)
}

func TestPoolOptionsFrom(t *testing.T) {
	cfg := &config.Config{
		DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5432", DBName: "accounts", DBSSLMode: "disable",
		DBMaxConns: 8, DBMinConns: 1, DBMaxConnLife: 30 * time.Minute,
	}
	o := PoolOptionsFrom(cfg)
	assert.Equal(t, "postgres://u:p@db:5432/accounts?sslmode=disable", o.DSN)
	assert.Equal(t, int32(8), o.MaxConns)
	assert.Equal(t, int32(1), o.MinConns)
	assert.Equal(t, 30*time.Minute, o.MaxConnLifetime)
}

func TestNewPool_BadDSN(t *testing.T) {
	_, err := NewPool(context.Background(), PoolOptions{DSN: "://not a dsn"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse dsn")
}
