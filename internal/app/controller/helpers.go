package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

// currentUserID writes a 401 when the request carries no authenticated user.
func currentUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Warn("Request without authenticated user", map[string]interface{}{
			"path": c.FullPath(),
		})
		apperrors.Unauthorized(c, "")
	}
	return userID, ok
}

// parseIDParam reads a positive numeric path parameter, writing a 400 otherwise.
func parseIDParam(c *gin.Context, name, label string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+label)
		return 0, false
	}
	return uint(id), true
}
