package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loopbill/loopbill/internal/api/dto"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/service"
	"github.com/loopbill/loopbill/internal/types"
)

// BillingHandler serves the tenant-facing billing endpoints.
type BillingHandler struct {
	billing service.BillingService
	log     *logger.Logger
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(billing service.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, log: log}
}

// @Summary Get billing overview
// @Description Get the authenticated tenant's billing overview
// @Tags Billing
// @Produce json
// @Success 200 {object} dto.TenantOverviewResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /v1/tenant/billing/overview [get]
func (h *BillingHandler) GetOverview(c *gin.Context) {
	tenantID := types.GetTenantID(c.Request.Context())
	if tenantID == "" {
		c.Error(ierr.NewError("tenant context is required").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	resp, err := h.billing.GetTenantOverview(c.Request.Context(), tenantID, time.Now().UTC())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List invoices
// @Description List the authenticated tenant's invoices
// @Tags Billing
// @Produce json
// @Param status query string false "Invoice status (OPEN, PAID, VOID)"
// @Param overdue query bool false "Only overdue invoices"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /v1/tenant/billing/invoices [get]
func (h *BillingHandler) ListInvoices(c *gin.Context) {
	tenantID := types.GetTenantID(c.Request.Context())
	if tenantID == "" {
		c.Error(ierr.NewError("tenant context is required").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	var req dto.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billing.ListTenantInvoices(c.Request.Context(), tenantID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Create a payment request
// @Description Create a pending deposit against a stored payment method
// @Tags Billing
// @Accept json
// @Produce json
// @Param payment body dto.CreateDepositRequest true "Payment request"
// @Success 201 {object} dto.DepositResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /v1/tenant/billing/payments [post]
func (h *BillingHandler) CreatePayment(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := types.GetTenantID(ctx)
	if tenantID == "" {
		c.Error(ierr.NewError("tenant context is required").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	var req dto.CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billing.CreateBillingDeposit(ctx, tenantID, types.GetUserID(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
