package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/config"
	"github.com/oksasatya/go-auth-core/internal/container"
	"github.com/oksasatya/go-auth-core/internal/domain/repository"
	"github.com/oksasatya/go-auth-core/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-auth-core/internal/infrastructure/postgres"
	"github.com/oksasatya/go-auth-core/internal/infrastructure/redisstore"
	"github.com/oksasatya/go-auth-core/internal/infrastructure/search"
	"github.com/oksasatya/go-auth-core/internal/infrastructure/storage"
	"github.com/oksasatya/go-auth-core/internal/interface/middleware"
	"github.com/oksasatya/go-auth-core/internal/router"
	"github.com/oksasatya/go-auth-core/pkg/helpers"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	// Account store
	accounts, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	// JWT, optionally backed by the Redis denylist
	jwtManager, err := helpers.NewJWTManager(cfg.JWTSecret, cfg.AccessTTL)
	if err != nil {
		logger.WithError(err).Fatal("jwt init failed")
	}

	// Redis
	if cfg.RedisAddr != "" {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			logger.WithError(err).Warn("redis unreachable; denylist and rate limits fail open")
		}
		jwtManager.WithRevocations(redisstore.NewRevocationList(rdb, logger))
		container.SetRedis(rdb)
	}

	// Media uploads
	switch cfg.MediaDriver {
	case "gcs":
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to init GCS client")
		}
		defer func() { _ = gcsClient.Close() }()
		container.SetMedia(storage.NewGCSUploader(gcsClient, cfg.GCSBucket))
	case "s3":
		up, err := storage.NewS3Uploader(ctx, storage.S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			BaseEndpoint: cfg.S3BaseEndpoint,
			PublicURL:    cfg.S3PublicURL,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to init S3 uploader")
		}
		container.SetMedia(up)
	}

	// Elasticsearch account index
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(helpers.ESOptions{
			Addrs:    addrs,
			Username: cfg.ElasticsearchUser,
			Password: cfg.ElasticsearchPass,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to init elasticsearch client")
		}
		idx := search.NewAccountIndex(es, cfg.ESAccountsIndex)
		if err := idx.EnsureIndex(ctx); err != nil {
			logger.WithError(err).Warn("elasticsearch index setup failed; searches fall back to the store")
		}
		container.SetAccountIndex(idx)
	}

	// RabbitMQ welcome emails
	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; welcome emails disabled")
		} else {
			defer pub.Close()
			container.SetRabbitPub(pub)
		}
	}

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetAccounts(accounts)
	container.SetJWT(jwtManager)
	container.SetHasher(helpers.NewPasswordHasher(cfg.PasswordHashAlgo, cfg.BcryptCost))

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) > 0 {
		r.Use(cors.New(corsCfg))
	}
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	// Back-fill accounts the index missed while it was down or not yet configured
	if container.GetAccountIndex() != nil {
		go func() {
			n, err := router.BuildAccountService().RebuildIndex(ctx)
			if err != nil {
				logger.WithError(err).WithField("indexed", n).Warn("search index rebuild incomplete")
				return
			}
			logger.WithField("indexed", n).Info("search index rebuilt")
		}()
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r, logger)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// openStore returns the configured account repository and its cleanup.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.AccountRepository, func()) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory account store; data is lost on restart")
		return memory.NewAccountRepository(), func() {}
	}

	pool, err := pginfra.NewPool(ctx, pginfra.PoolOptionsFrom(cfg))
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		pool.Close()
		logger.WithError(err).Fatal("migration failed")
	}
	container.SetPGPool(pool)
	return pginfra.NewAccountRepository(pool), pool.Close
}
