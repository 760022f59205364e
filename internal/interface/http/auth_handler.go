package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/internal/application"
	"github.com/oksasatya/go-auth-core/internal/interface/httperr"
	"github.com/oksasatya/go-auth-core/internal/interface/middleware"
	"github.com/oksasatya/go-auth-core/pkg/helpers"
	"github.com/oksasatya/go-auth-core/pkg/response"
)

type AuthHandler struct {
	Svc         *application.Service
	Logger      *logrus.Logger
	Cookies     *helpers.Manager
	TokenInBody bool
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, cookies *helpers.Manager, tokenInBody bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies, TokenInBody: tokenInBody}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

// Signup POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.Svc.Signup(c.Request.Context(), application.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, v, "user created successfully", nil)
}

// Signin POST /api/auth/signin
func (h *AuthHandler) Signin(c *gin.Context) {
	var req signinRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.Svc.Signin(c.Request.Context(), application.SigninInput{Email: req.Email, Password: req.Password})
	if err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	h.respondSession(c, sess, "signin successful")
}

// Google POST /api/auth/google
func (h *AuthHandler) Google(c *gin.Context) {
	var req googleRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.Svc.FederatedLogin(c.Request.Context(), application.FederatedInput{
		Email: req.Email,
		Name:  req.Name,
		Photo: req.Photo,
	})
	if err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	h.respondSession(c, sess, "signin successful")
}

// Signout POST /api/auth/signout
func (h *AuthHandler) Signout(c *gin.Context) {
	h.Svc.Signout(c.Request.Context(), middleware.TokenFromRequest(c))
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "signout success", nil)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	v, err := h.Svc.Me(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, v, "current user", nil)
}

func (h *AuthHandler) respondSession(c *gin.Context, sess *application.Session, msg string) {
	h.Cookies.SetAccessToken(c, sess.Token, sess.ExpiresAt)
	meta := gin.H{"expires_at": sess.ExpiresAt}
	if h.TokenInBody {
		meta["access_token"] = sess.Token
	}
	response.Success(c, http.StatusOK, sess.Account, msg, meta)
}
