package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/internal/container"
	handlers "github.com/oksasatya/go-auth-core/internal/interface/http"
	"github.com/oksasatya/go-auth-core/internal/interface/middleware"
)

// AuthModule wires sign-up, sign-in and session routes.
// Public: POST /api/auth/signup, /api/auth/signin, /api/auth/google, /api/auth/signout
// Protected: GET /api/auth/me
type AuthModule struct {
	Handler *handlers.AuthHandler
	Tokens  middleware.TokenVerifier
	Logger  *logrus.Logger
}

func NewAuthModule(h *handlers.AuthHandler, tokens middleware.TokenVerifier, logger *logrus.Logger) *AuthModule {
	return &AuthModule{Handler: h, Tokens: tokens, Logger: logger}
}

func (m *AuthModule) Name() string { return "auth" }

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRateLimitRedis()
	credentialLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil) // 10 req/min per IP and route

	auth := rg.Group("/auth")
	auth.POST("/signup", credentialLimiter, m.Handler.Signup)
	auth.POST("/signin", credentialLimiter, m.Handler.Signin)
	auth.POST("/google", credentialLimiter, m.Handler.Google)
	auth.POST("/signout", m.Handler.Signout)

	auth.GET("/me",
		middleware.Auth(m.Tokens, m.Logger),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByAccount(), nil),
		m.Handler.Me,
	)
}
