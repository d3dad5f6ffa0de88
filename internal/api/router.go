package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cronapi "github.com/loopbill/loopbill/internal/api/cron"
	v1 "github.com/loopbill/loopbill/internal/api/v1"
	"github.com/loopbill/loopbill/internal/cache"
	"github.com/loopbill/loopbill/internal/config"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/rest/middleware"
	"github.com/loopbill/loopbill/internal/service"
)

// Handlers carries every HTTP handler the router mounts.
type Handlers struct {
	Billing     *v1.BillingHandler
	Admin       *v1.AdminHandler
	BillingCron *cronapi.BillingHandler
}

// RouterParams is everything the router needs beyond the handlers.
type RouterParams struct {
	Handlers    Handlers
	Billing     service.BillingService
	SharedCache cache.Cache
	Registry    *prometheus.Registry
	Config      *config.Configuration
	Logger      *logger.Logger
}

// NewRouter assembles the gin engine with the full middleware chain.
// Ordering matters: request ID and tenant resolution must run before the
// suspension guard, and the guard before any tenant route.
func NewRouter(params RouterParams) *gin.Engine {
	if params.Config.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.TenantMiddleware(),
		middleware.LoggingMiddleware(params.Logger),
		middleware.ErrorHandlerMiddleware(params.Logger),
		middleware.SuspensionGuard(params.Billing, params.SharedCache, params.Logger),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{})))

	tenant := router.Group("/v1/tenant/billing")
	{
		tenant.GET("/overview", params.Handlers.Billing.GetOverview)
		tenant.GET("/invoices", params.Handlers.Billing.ListInvoices)
		tenant.POST("/payments", params.Handlers.Billing.CreatePayment)
	}

	admin := router.Group("/v1/admin/billing")
	{
		admin.POST("/invoices/:id/pay", params.Handlers.Admin.MarkInvoicePaid)
		admin.GET("/tenants", params.Handlers.Admin.ListTenants)
		admin.PATCH("/tenants/:id/config", params.Handlers.Admin.UpdateTenantConfig)

		jobs := admin.Group("/jobs")
		{
			jobs.POST("/issue", params.Handlers.BillingCron.TriggerIssuance)
			jobs.POST("/enforce", params.Handlers.BillingCron.TriggerEnforcement)
			jobs.POST("/remind", params.Handlers.BillingCron.TriggerReminders)
		}
	}

	return router
}
