package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/loopbill/loopbill/internal/types"
)

// TenantMiddleware derives the tenant context from the X-Tenant-ID header
// set by the upstream gateway. Requests without the header keep an empty
// tenant context; downstream guards decide what that means per route.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantID := c.GetHeader(types.HeaderTenantID); tenantID != "" {
			c.Request = c.Request.WithContext(types.SetTenantID(c.Request.Context(), tenantID))
			c.Set("tenant_id", tenantID)
		}
		c.Next()
	}
}
