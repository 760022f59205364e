package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/config"
	"github.com/oksasatya/go-auth-core/internal/application"
	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	pginfra "github.com/oksasatya/go-auth-core/internal/infrastructure/postgres"
	"github.com/oksasatya/go-auth-core/pkg/helpers"
)

var errMissingSeedAdmin = errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")

// seed creates the first admin account through the privileged provisioning path.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	// run owns every resource; Fatal only happens after its deferred cleanup.
	if err := run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Fatal("seed failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return errMissingSeedAdmin
	}

	pool, err := pginfra.NewPool(ctx, pginfra.PoolOptionsFrom(cfg))
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	jwt, err := helpers.NewJWTManager(cfg.JWTSecret, cfg.AccessTTL)
	if err != nil {
		return err
	}
	svc := application.NewService(
		pginfra.NewAccountRepository(pool),
		helpers.NewPasswordHasher(cfg.PasswordHashAlgo, cfg.BcryptCost),
		jwt,
		cfg.AccessTTL,
		logger,
		application.WithAppName(cfg.AppName),
	)
	return seedAdmin(ctx, svc, cfg, logger)
}

// seedAdmin provisions the configured admin. An existing account is not an error.
func seedAdmin(ctx context.Context, svc *application.Service, cfg *config.Config, logger *logrus.Logger) error {
	v, err := svc.Provision(ctx, application.ProvisionInput{
		Username: cfg.SeedAdminUsername,
		Email:    cfg.SeedAdminEmail,
		Password: cfg.SeedAdminPassword,
		IsAdmin:  true,
	})
	if errors.Is(err, apperr.ErrConflict) {
		logger.WithField("email", cfg.SeedAdminEmail).Info("admin already seeded")
		return nil
	}
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"account_id": v.ID, "email": v.Email, "username": v.Username}).Info("admin seeded")
	return nil
}
