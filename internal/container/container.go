package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/config"
	"github.com/oksasatya/go-auth-core/internal/application"
	"github.com/oksasatya/go-auth-core/internal/domain/repository"
	"github.com/oksasatya/go-auth-core/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client

	jwtManager *helpers.JWTManager
	hasher     *helpers.PasswordHasher

	accounts  repository.AccountRepository
	media     application.MediaUploader
	index     application.AccountIndex
	rabbitPub *helpers.RabbitPublisher
)

func SetConfig(c *config.Config)                 { cfg = c }
func GetConfig() *config.Config                  { return cfg }
func SetLogger(l *logrus.Logger)                 { logger = l }
func GetLogger() *logrus.Logger                  { return logger }
func SetPGPool(p *pgxpool.Pool)                  { pgPool = p }
func GetPGPool() *pgxpool.Pool                   { return pgPool }
func SetRedis(r *redis.Client)                   { redisClient = r }
func GetRedis() *redis.Client                    { return redisClient }
func SetJWT(m *helpers.JWTManager)               { jwtManager = m }
func GetJWT() *helpers.JWTManager                { return jwtManager }
func SetHasher(h *helpers.PasswordHasher)        { hasher = h }
func GetHasher() *helpers.PasswordHasher         { return hasher }
func SetAccounts(r repository.AccountRepository) { accounts = r }
func GetAccounts() repository.AccountRepository  { return accounts }
func SetMedia(m application.MediaUploader)       { media = m }
func GetMedia() application.MediaUploader        { return media }
func SetAccountIndex(x application.AccountIndex) { index = x }
func GetAccountIndex() application.AccountIndex  { return index }
func SetRabbitPub(p *helpers.RabbitPublisher)    { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher     { return rabbitPub }

// GetRateLimitRedis returns the Redis client for rate limiting, or nil when limits are off.
func GetRateLimitRedis() *redis.Client {
	if cfg != nil && !cfg.RateLimitEnabled {
		return nil
	}
	return redisClient
}
