package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/internal/container"
	handlers "github.com/oksasatya/go-auth-core/internal/interface/http"
	"github.com/oksasatya/go-auth-core/internal/interface/middleware"
)

// UserModule wires account management routes under /api/user.
// Owner or admin: POST /update/:id, DELETE /delete/:id, POST /:id/avatar
// Admin only: GET /, POST /, GET /:id
type UserModule struct {
	Handler *handlers.UserHandler
	Tokens  middleware.TokenVerifier
	Logger  *logrus.Logger
}

func NewUserModule(h *handlers.UserHandler, tokens middleware.TokenVerifier, logger *logrus.Logger) *UserModule {
	return &UserModule{Handler: h, Tokens: tokens, Logger: logger}
}

func (m *UserModule) Name() string { return "user" }

func (m *UserModule) Register(rg *gin.RouterGroup) {
	user := rg.Group("/user")
	user.Use(
		middleware.Auth(m.Tokens, m.Logger),
		middleware.RateLimit(container.GetRateLimitRedis(), 120, time.Minute, middleware.KeyByAccount(), nil),
	)
	{
		user.POST("/update/:id", m.Handler.Update)
		user.DELETE("/delete/:id", m.Handler.Delete)
		user.POST("/:id/avatar", m.Handler.UploadAvatar)
	}

	admin := user.Group("", middleware.RequireAdmin(m.Logger))
	{
		admin.GET("", m.Handler.List)
		admin.POST("", m.Handler.Create)
		admin.GET("/:id", m.Handler.GetByID)
	}
}
