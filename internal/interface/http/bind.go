package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-core/pkg/response"
	"github.com/oksasatya/go-auth-core/pkg/validation"
)

// bindJSON decodes the body into dst and answers 400 when it is not valid JSON for dst.
// Field rules are enforced by the service so that their order is stable.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return false
	}
	return true
}
