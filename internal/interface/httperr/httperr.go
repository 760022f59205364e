// Package httperr maps classified failures onto HTTP statuses and the response envelope.
package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-core/internal/domain/apperr"
	"github.com/oksasatya/go-auth-core/pkg/response"
)

// Status returns the HTTP status and the caller-facing message for err.
func Status(err error) (int, string) {
	e, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError, "internal server error"
	}
	switch e.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, "validation failed"
	case apperr.KindConflict:
		return http.StatusConflict, messageOr(e, "conflict")
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized, messageOr(e, "you need to login")
	case apperr.KindForbidden:
		return http.StatusForbidden, messageOr(e, "forbidden")
	case apperr.KindNotFound:
		return http.StatusNotFound, messageOr(e, "not found")
	case apperr.KindInvalidCredentials:
		return http.StatusUnauthorized, "invalid credentials"
	case apperr.KindUpstream:
		return http.StatusBadGateway, messageOr(e, "upstream failure")
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable, messageOr(e, "service unavailable")
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func messageOr(e *apperr.Error, def string) string {
	if e.Message != "" {
		return e.Message
	}
	return def
}

// Write aborts the request with the envelope for err. Only validation failures carry details,
// and those name the field alone. Server-side failures are logged with their cause.
func Write(c *gin.Context, logger *logrus.Logger, err error) {
	status, msg := Status(err)
	var details any
	if e, ok := apperr.As(err); ok && e.Kind == apperr.KindValidation && e.Field != "" {
		details = map[string]string{"field": e.Field}
	}
	if status >= http.StatusInternalServerError && logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	response.Error[any](c, status, msg, details)
}
