package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loopbill/loopbill/internal/api/dto"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/service"
)

// AdminHandler serves the operator-facing billing endpoints.
type AdminHandler struct {
	billing service.BillingService
	log     *logger.Logger
}

// NewAdminHandler creates a new admin billing handler.
func NewAdminHandler(billing service.BillingService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{billing: billing, log: log}
}

// @Summary Mark an invoice paid
// @Description Transition an OPEN invoice to PAID and re-arm the tenant's subscription
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payment body dto.MarkPaidRequest false "Settlement details"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /v1/admin/billing/invoices/{id}/pay [post]
func (h *AdminHandler) MarkInvoicePaid(c *gin.Context) {
	invoiceID := c.Param("id")
	if invoiceID == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	req := &dto.MarkPaidRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.billing.MarkPaid(c.Request.Context(), invoiceID, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update a tenant's billing config
// @Description Patch pricing, grace days or enforcement for one tenant
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param config body dto.UpdateBillingConfigRequest true "Config patch"
// @Success 200 {object} dto.BillingConfigResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /v1/admin/billing/tenants/{id}/config [patch]
func (h *AdminHandler) UpdateTenantConfig(c *gin.Context) {
	tenantID := c.Param("id")
	if tenantID == "" {
		c.Error(ierr.NewError("tenant ID is required").
			WithHint("Tenant ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.UpdateBillingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billing.UpdateTenantConfig(c.Request.Context(), tenantID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List tenants with billing state
// @Description Aggregate subscription status and invoice counts across tenants
// @Tags Admin
// @Produce json
// @Param status query string false "Subscription status (ACTIVE, SUSPENDED)"
// @Param overdue query bool false "Only tenants with overdue invoices"
// @Success 200 {object} dto.AdminTenantsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /v1/admin/billing/tenants [get]
func (h *AdminHandler) ListTenants(c *gin.Context) {
	var req dto.AdminTenantsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billing.AggregateTenantsForAdmin(c.Request.Context(), &req, time.Now().UTC())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
