package middleware

import (
	"job_board/pkg/errors"
	"job_board/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler превращает ошибки, добавленные через c.Error, в JSON-ответ
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		statusCode := errors.HTTPStatusFromError(err)
		if statusCode >= 500 {
			log.Error("Unhandled error", "error", err, "path", c.Request.URL.Path, "request_id", c.GetString(ContextRequestID))
		}

		c.JSON(statusCode, gin.H{
			"error": errors.PublicMessage(err),
		})
	}
}
