package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loopbill/loopbill/internal/cache"
	"github.com/loopbill/loopbill/internal/domain/billing"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/service"
	"github.com/loopbill/loopbill/internal/types"
)

const (
	subscriptionCacheTTL = 30 * time.Second
	ctxSubscriptionKey   = "guard_subscription"
	billingRoutePrefix   = "/v1/tenant/billing"
	tenantRoutePrefix    = "/v1/tenant"
	externalRoutePrefix  = "/v1/external"
)

// Prefixes that are always admitted regardless of subscription state.
var exemptRoutePrefixes = []string{
	"/health",
	"/metrics",
	"/v1/auth",
	"/v1/admin",
}

// SuspensionGuard blocks tenant traffic while the tenant is suspended.
//
// The guard has no role awareness: subscription state is its only input.
// Suspended tenants keep access to their billing routes so they can still
// view and pay the invoice that got them suspended.
func SuspensionGuard(billingSvc service.BillingService, sharedCache cache.Cache, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range exemptRoutePrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		tenantID := types.GetTenantID(c.Request.Context())
		if tenantID == "" {
			// No resolved tenant context means nothing to guard.
			c.Next()
			return
		}

		sub, err := lookupSubscription(c, billingSvc, sharedCache, tenantID)
		if err != nil {
			// Guard failures must not take down unrelated traffic; log and
			// admit rather than 500 every tenant request.
			log.WithContext(c.Request.Context()).Errorw("suspension guard lookup failed", "error", err)
			c.Next()
			return
		}

		if !sub.IsSuspended() {
			c.Next()
			return
		}

		if strings.HasPrefix(path, billingRoutePrefix) {
			c.Next()
			return
		}

		if strings.HasPrefix(path, tenantRoutePrefix) || strings.HasPrefix(path, externalRoutePrefix) {
			denial := ierr.ErrorResponse{
				Success: false,
				Error: ierr.ErrorDetail{
					Code:    ierr.CodeTenantSuspended,
					Message: "Tenant is suspended for overdue payment. Settle the open invoice to restore access.",
				},
			}
			if sub.NextDueAt != nil {
				denial.Error.Details = map[string]interface{}{
					"retry_at": sub.NextDueAt.Format(time.RFC3339),
				}
			}
			c.AbortWithStatusJSON(http.StatusForbidden, denial)
			return
		}

		c.Next()
	}
}

// lookupSubscription fetches the tenant's subscription, consulting the
// per-request cache first and the shared cache second.
func lookupSubscription(c *gin.Context, billingSvc service.BillingService, sharedCache cache.Cache, tenantID string) (*billing.TenantSubscription, error) {
	if v, ok := c.Get(ctxSubscriptionKey); ok {
		if sub, ok := v.(*billing.TenantSubscription); ok {
			return sub, nil
		}
	}

	ctx := c.Request.Context()
	cacheKey := types.SubscriptionCacheKey(tenantID)

	if sharedCache != nil {
		if v, ok := sharedCache.Get(ctx, cacheKey); ok {
			if sub, ok := cache.UnmarshalValue[billing.TenantSubscription](v); ok {
				c.Set(ctxSubscriptionKey, sub)
				return sub, nil
			}
		}
	}

	sub, err := billingSvc.GetOrCreateSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	c.Set(ctxSubscriptionKey, sub)
	if sharedCache != nil {
		sharedCache.Set(ctx, cacheKey, sub, subscriptionCacheTTL)
	}
	return sub, nil
}
