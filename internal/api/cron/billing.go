package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/scheduler"
)

// BillingHandler exposes the scheduled billing jobs as manual triggers.
// They run the exact same lock-guarded path as the cron ticks, so a manual
// run while a scheduled run is in flight reports locked instead of doubling
// the work.
type BillingHandler struct {
	scheduler *scheduler.Scheduler
	log       *logger.Logger
}

// NewBillingHandler creates a new cron billing handler.
func NewBillingHandler(s *scheduler.Scheduler, log *logger.Logger) *BillingHandler {
	return &BillingHandler{scheduler: s, log: log}
}

// @Summary Trigger invoice issuance
// @Description Run the monthly invoice issuance job now
// @Tags Jobs
// @Produce json
// @Success 200 {object} dto.IssueRunResult
// @Failure 500 {object} ierr.ErrorResponse
// @Router /v1/admin/billing/jobs/issue [post]
func (h *BillingHandler) TriggerIssuance(c *gin.Context) {
	ctx := c.Request.Context()
	h.log.WithContext(ctx).Infow("manual issuance trigger")

	result, err := h.scheduler.RunIssuance(ctx, time.Now().UTC())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Trigger overdue enforcement
// @Description Run the suspension enforcement job now
// @Tags Jobs
// @Produce json
// @Success 200 {object} dto.EnforcementRunResult
// @Failure 500 {object} ierr.ErrorResponse
// @Router /v1/admin/billing/jobs/enforce [post]
func (h *BillingHandler) TriggerEnforcement(c *gin.Context) {
	ctx := c.Request.Context()
	h.log.WithContext(ctx).Infow("manual enforcement trigger")

	result, err := h.scheduler.RunEnforcement(ctx, time.Now().UTC())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Trigger payment reminders
// @Description Run the reminder job now
// @Tags Jobs
// @Produce json
// @Success 200 {object} dto.ReminderRunResult
// @Failure 500 {object} ierr.ErrorResponse
// @Router /v1/admin/billing/jobs/remind [post]
func (h *BillingHandler) TriggerReminders(c *gin.Context) {
	ctx := c.Request.Context()
	h.log.WithContext(ctx).Infow("manual reminders trigger")

	result, err := h.scheduler.RunReminders(ctx, time.Now().UTC())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
