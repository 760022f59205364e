package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/internal/application"
	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	"github.com/oksasatya/go-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-auth-core/internal/interface/httperr"
	"github.com/oksasatya/go-auth-core/internal/interface/middleware"
	"github.com/oksasatya/go-auth-core/pkg/response"
)

// multipart envelope allowance on top of the file itself
const uploadOverhead = 1 << 20

type UserHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// updateRequest has no admin flag; an "isAdmin" key in the body is dropped while decoding.
type updateRequest struct {
	Username       *string `json:"username"`
	Email          *string `json:"email"`
	ProfilePicture *string `json:"profilePicture"`
	Password       *string `json:"password"`
}

type createRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	IsAdmin        bool   `json:"isAdmin"`
	ProfilePicture string `json:"profilePicture"`
}

// Update POST /api/user/update/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req updateRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.Svc.UpdateAccount(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"), application.UpdateInput{
		Username:       req.Username,
		Email:          req.Email,
		ProfilePicture: req.ProfilePicture,
		Password:       req.Password,
	})
	if err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, v, "user updated", nil)
}

// Delete DELETE /api/user/delete/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteAccount(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id")); err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "user has been deleted", nil)
}

// UploadAvatar POST /api/user/:id/avatar (multipart, field "file")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	target := c.Param("id")
	// Authorize before reading the body.
	if err := application.AuthorizeOwnerOrAdmin(id, target); err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, application.MaxAvatarBytes+uploadOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		httperr.Write(c, h.Logger, apperr.Validation("file", "is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		httperr.Write(c, h.Logger, apperr.Validation("file", "unreadable"))
		return
	}
	defer func() { _ = f.Close() }()

	v, err := h.Svc.UploadAvatar(c.Request.Context(), id, target, application.AvatarUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, v, "avatar uploaded", nil)
}

// List GET /api/user?q=&limit=&offset= (admin)
func (h *UserHandler) List(c *gin.Context) {
	f := entity.AccountFilter{
		Query:  c.Query("q"),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	list, err := h.Svc.ListAccounts(c.Request.Context(), middleware.IdentityFrom(c), f)
	if err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, list, "users", gin.H{"count": len(list)})
}

// Create POST /api/user (admin)
func (h *UserHandler) Create(c *gin.Context) {
	var req createRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.Svc.CreateAccount(c.Request.Context(), middleware.IdentityFrom(c), application.ProvisionInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		IsAdmin:        req.IsAdmin,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, v, "user created", nil)
}

// GetByID GET /api/user/:id (admin)
func (h *UserHandler) GetByID(c *gin.Context) {
	v, err := h.Svc.GetAccount(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		httperr.Write(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, v, "user", nil)
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
