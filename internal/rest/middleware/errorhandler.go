package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
)

// ErrorHandlerMiddleware converts errors attached via c.Error into the
// uniform ErrorResponse envelope. Handlers never write error bodies
// themselves.
func ErrorHandlerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= 500 {
			log.WithContext(c.Request.Context()).Errorw("request failed", "error", err)
		}

		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
