package router

import (
	"context"

	"github.com/oksasatya/go-auth-core/internal/application"
	"github.com/oksasatya/go-auth-core/internal/container"
	handlers "github.com/oksasatya/go-auth-core/internal/interface/http"
	"github.com/oksasatya/go-auth-core/internal/router/modules"
	"github.com/oksasatya/go-auth-core/pkg/helpers"
)

type AccountModuleDeps struct {
	Service     *application.Service
	AuthHandler *handlers.AuthHandler
	UserHandler *handlers.UserHandler
}

// BuildAccountService assembles the account service from the container singletons.
func BuildAccountService() *application.Service {
	cfg := container.GetConfig()
	opts := []application.Option{application.WithAppName(cfg.AppName)}
	if m := container.GetMedia(); m != nil {
		opts = append(opts, application.WithMedia(m))
	}
	if x := container.GetAccountIndex(); x != nil {
		opts = append(opts, application.WithIndex(x))
	}
	if p := container.GetRabbitPub(); p != nil {
		opts = append(opts, application.WithEvents(p))
	}
	return application.NewService(
		container.GetAccounts(),
		container.GetHasher(),
		container.GetJWT(),
		container.GetJWT().TTL(),
		container.GetLogger(),
		opts...,
	)
}

func buildAccountDeps() AccountModuleDeps {
	cfg := container.GetConfig()
	service := BuildAccountService()
	return AccountModuleDeps{
		Service:     service,
		AuthHandler: handlers.NewAuthHandler(service, container.GetLogger(), helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure), cfg.TokenInBody),
		UserHandler: handlers.NewUserHandler(service, container.GetLogger()),
	}
}

func healthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{}
	if pool := container.GetPGPool(); pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return helpers.PingRedis(ctx, rdb) }
	}
	if pub := container.GetRabbitPub(); pub != nil {
		checks["rabbitmq"] = pub.Ping
	}
	return checks
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildAccountDeps()
	jwt := container.GetJWT()
	logger := container.GetLogger()

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(healthChecks())))
	r.Add(modules.NewAuthModule(deps.AuthHandler, jwt, logger))
	r.Add(modules.NewUserModule(deps.UserHandler, jwt, logger))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
