package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/loopbill/loopbill/internal/types"
)

// RequestIDMiddleware propagates an inbound request id or generates one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(types.HeaderRequestID)
		if requestID == "" {
			requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
		}

		c.Request = c.Request.WithContext(types.SetRequestID(c.Request.Context(), requestID))
		c.Header(types.HeaderRequestID, requestID)
		c.Next()
	}
}
