package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/internal/application"
	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	"github.com/oksasatya/go-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-auth-core/internal/interface/httperr"
	"github.com/oksasatya/go-auth-core/pkg/helpers"
)

// CtxIdentityKey is the gin context key holding the *entity.Identity of the caller.
const CtxIdentityKey = "identity"

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*helpers.Claims, error)
}

// TokenFromRequest returns the access token from the cookie, or else from an
// "Authorization: Bearer" header. It returns "" when neither carries one.
func TokenFromRequest(c *gin.Context) string {
	if tok, err := c.Cookie(helpers.AccessTokenCookie); err == nil && tok != "" {
		return tok
	}
	scheme, tok, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// Resolve recovers the caller's identity from the request.
func Resolve(c *gin.Context, v TokenVerifier) (*entity.Identity, error) {
	tok := TokenFromRequest(c)
	if tok == "" {
		return nil, apperr.ErrLoginRequired
	}
	claims, err := v.Verify(c.Request.Context(), tok)
	if err != nil {
		return nil, apperr.ErrTokenInvalid
	}
	return &entity.Identity{SubjectID: claims.Subject, IsAdmin: claims.IsAdmin}, nil
}

// Auth rejects requests without a valid access token and attaches the identity to both the
// gin context and the request context.
func Auth(v TokenVerifier, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := Resolve(c, v)
		if err != nil {
			httperr.Write(c, logger, err)
			return
		}
		c.Set(CtxIdentityKey, id)
		c.Request = c.Request.WithContext(entity.ContextWithIdentity(c.Request.Context(), *id))
		c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := application.AuthorizeAdminOnly(IdentityFrom(c)); err != nil {
			httperr.Write(c, logger, err)
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity set by Auth, or nil.
func IdentityFrom(c *gin.Context) *entity.Identity {
	if v, ok := c.Get(CtxIdentityKey); ok {
		if id, ok := v.(*entity.Identity); ok {
			return id
		}
	}
	if id, ok := entity.IdentityFromContext(c.Request.Context()); ok {
		return id
	}
	return nil
}
