package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"atqr-backend-go/internal/core"
)

// respondError maps service-layer sentinel errors onto HTTP status codes and
// writes a JSON ErrorResponse. Unknown errors are logged and surfaced as 500
// without their details.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: err.Error()})
	case errors.Is(err, core.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
	case errors.Is(err, core.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Permission denied", Details: err.Error()})
	case errors.Is(err, core.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found"})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found", Details: err.Error()})
	case errors.Is(err, core.ErrAlreadyExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Already exists", Details: err.Error()})
	case errors.Is(err, core.ErrFailedPrecondition):
		c.JSON(http.StatusPreconditionFailed, ErrorResponse{Error: "Precondition failed", Details: err.Error()})
	case errors.Is(err, core.ErrResourceExhausted):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "Limit reached", Details: err.Error()})
	default:
		logger.Error("Unhandled service error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
	}
}

// currentUserID pulls the authenticated UID out of the Gin context. A missing
// or malformed value means the auth middleware did not run; the caller gets a
// 401 and the handler should return immediately.
func currentUserID(c *gin.Context, logger *zap.Logger) (string, bool) {
	rawUserID, exists := c.Get("userID")
	if !exists {
		logger.Warn("userID not found in context; auth middleware may not have run", zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: User ID not found in context"})
		return "", false
	}
	userID, ok := rawUserID.(string)
	if !ok || userID == "" {
		logger.Warn("userID in context is not a valid string", zap.Any("value", rawUserID))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID format in context"})
		return "", false
	}
	return userID, true
}
