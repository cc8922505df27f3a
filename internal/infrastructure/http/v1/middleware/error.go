package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"majifix/internal/core/apperror"
	"majifix/pkg/logger"
)

// ErrorHandler transforms errors into the standard failure envelope:
//
//	{"success": false, "message": "...", "error": {...}}
//
// Internal causes are logged, never exposed to clients.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// A handler that already wrote a response wins
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			c.JSON(appErr.HTTPStatus, gin.H{
				"success": false,
				"message": appErr.Message,
				"error": gin.H{
					"code":    appErr.Code,
					"details": appErr.Details,
				},
			})
			return
		}

		logger.Error(c.Request.Context(), "unhandled error", "error", err)

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
			"error": gin.H{
				"code":       apperror.CodeInternal,
				"request_id": c.GetString("request_id"),
			},
		})
	}
}
