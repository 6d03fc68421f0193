package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus/internal/core/apperror"
	"campus/internal/core/tx"
	"campus/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON
// responses. Hides internal errors from clients while logging full
// details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		// Transaction precondition violations and timeouts are client
		// errors, not 500s.
		if errors.Is(err, tx.ErrTransactionRequired) || errors.Is(err, tx.ErrTransactionNotAllowed) {
			err = apperror.NewConflict(err.Error())
		} else if errors.Is(err, tx.ErrTimeout) {
			err = apperror.NewTimeout(err)
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			c.JSON(appErr.HTTPStatus, gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			})
			return
		}

		logger.Error(c.Request.Context(), "unhandled error",
			"error", err,
		)

		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": c.GetString("request_id"),
			},
		})
	}
}
