package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/loopbill/loopbill/internal/api/dto"
	"github.com/loopbill/loopbill/internal/domain/billing"
	"github.com/loopbill/loopbill/internal/domain/billingperiod"
	"github.com/loopbill/loopbill/internal/domain/payment"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/notification"
	"github.com/loopbill/loopbill/internal/types"
)

// reminderTolerance is how far from a checkpoint "now" may fall and still
// match. Sized for daily cron cadence; revisit if reminders ever run more
// often than once a day.
const reminderTolerance = time.Hour

// BillingService owns every write to the billing tables. Scheduled jobs,
// admin endpoints and tenant endpoints all go through it; nothing else in
// the codebase mutates configs, subscriptions or invoices.
type BillingService interface {
	GetOrCreateConfig(ctx context.Context, tenantID string) (*billing.TenantBillingConfig, error)
	GetOrCreateSubscription(ctx context.Context, tenantID string) (*billing.TenantSubscription, error)

	// IssueMonthlyInvoices creates one OPEN invoice per billable tenant for
	// now's calendar month. Re-running for an already-issued period is safe
	// indefinitely: duplicates count as skipped.
	IssueMonthlyInvoices(ctx context.Context, now time.Time) (*dto.IssueRunResult, error)
	// SendReminders counts OPEN invoices within tolerance of a reminder
	// checkpoint and hands them to the notification collaborator.
	SendReminders(ctx context.Context, now time.Time) (*dto.ReminderRunResult, error)
	// ApplyEnforcement suspends tenants whose grace period has fully lapsed.
	// Idempotent across repeated overdue invoices and repeated calls.
	ApplyEnforcement(ctx context.Context, now time.Time) (*dto.EnforcementRunResult, error)

	// MarkPaid transitions an OPEN invoice to PAID and re-arms the tenant's
	// subscription in the same transaction.
	MarkPaid(ctx context.Context, invoiceID string, req *dto.MarkPaidRequest) (*dto.InvoiceResponse, error)
	// CreateBillingDeposit creates a pending deposit for the payments
	// collaborator. It never marks an invoice paid itself.
	CreateBillingDeposit(ctx context.Context, tenantID, userID string, req *dto.CreateDepositRequest) (*dto.DepositResponse, error)

	GetTenantOverview(ctx context.Context, tenantID string, now time.Time) (*dto.TenantOverviewResponse, error)
	ListTenantInvoices(ctx context.Context, tenantID string, req *dto.ListInvoicesRequest) (*dto.ListInvoicesResponse, error)
	UpdateTenantConfig(ctx context.Context, tenantID string, req *dto.UpdateBillingConfigRequest) (*dto.BillingConfigResponse, error)
	AggregateTenantsForAdmin(ctx context.Context, req *dto.AdminTenantsRequest, now time.Time) (*dto.AdminTenantsResponse, error)
}

type billingService struct {
	ServiceParams
}

// NewBillingService creates the billing service.
func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

// enabled is the master feature flag gate. Disabled billing turns every
// public operation into a neutral no-op so callers need no flag awareness.
func (s *billingService) enabled() bool {
	return s.Config.Billing.Enabled
}

func (s *billingService) GetOrCreateConfig(ctx context.Context, tenantID string) (*billing.TenantBillingConfig, error) {
	if !s.enabled() {
		return billing.NewDefaultConfig(tenantID), nil
	}
	return s.getOrCreateConfig(ctx, tenantID)
}

func (s *billingService) getOrCreateConfig(ctx context.Context, tenantID string) (*billing.TenantBillingConfig, error) {
	cfg, err := s.ConfigRepo.Get(ctx, tenantID)
	if err == nil {
		return cfg, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	cfg = billing.NewDefaultConfig(tenantID)
	if err := s.ConfigRepo.Create(ctx, cfg); err != nil {
		// Lost a create race: someone else inserted the row first.
		if ierr.IsAlreadyExists(err) {
			return s.ConfigRepo.Get(ctx, tenantID)
		}
		return nil, err
	}
	return cfg, nil
}

func (s *billingService) GetOrCreateSubscription(ctx context.Context, tenantID string) (*billing.TenantSubscription, error) {
	if !s.enabled() {
		return s.defaultSubscription(tenantID, time.Now().UTC()), nil
	}
	return s.getOrCreateSubscription(ctx, tenantID, time.Now().UTC())
}

func (s *billingService) getOrCreateSubscription(ctx context.Context, tenantID string, now time.Time) (*billing.TenantSubscription, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, tenantID)
	if err == nil {
		return sub, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	sub = s.defaultSubscription(tenantID, now)
	if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
		if ierr.IsAlreadyExists(err) {
			return s.SubscriptionRepo.Get(ctx, tenantID)
		}
		return nil, err
	}
	return sub, nil
}

func (s *billingService) defaultSubscription(tenantID string, now time.Time) *billing.TenantSubscription {
	period := billingperiod.MonthlyPeriod(now)
	return &billing.TenantSubscription{
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodStart: period.Start,
		CurrentPeriodEnd:   period.End,
		BaseModel:          types.GetDefaultBaseModel(tenantID, ""),
	}
}

func (s *billingService) IssueMonthlyInvoices(ctx context.Context, now time.Time) (*dto.IssueRunResult, error) {
	result := &dto.IssueRunResult{}
	if !s.enabled() {
		return result, nil
	}

	now = now.UTC()
	period := billingperiod.MonthlyPeriod(now)
	issuedAt := billingperiod.IssuanceTimeEOM(period.End)

	configs, err := s.ConfigRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	// Tenants are processed sequentially: ordering stays deterministic per
	// run and connection usage stays bounded. Idempotence is per
	// tenant-period, so there is no ordering guarantee across tenants.
	for _, cfg := range configs {
		created, err := s.issueForTenant(ctx, cfg, period, issuedAt)
		if err != nil {
			// Any unexpected persistence error aborts the whole run; the
			// next scheduled tick retries from scratch.
			return nil, err
		}
		if created {
			result.Created++
			s.Metrics.InvoicesCreated.Inc()
		} else {
			result.Skipped++
			s.Metrics.InvoicesSkipped.Inc()
		}
	}

	s.Logger.Infow("issuance run complete",
		"period_start", period.StartDate(),
		"period_end", period.EndDate(),
		"created", result.Created,
		"skipped", result.Skipped)
	return result, nil
}

func (s *billingService) issueForTenant(ctx context.Context, cfg *billing.TenantBillingConfig, period billingperiod.Period, issuedAt time.Time) (bool, error) {
	if !cfg.IsBillable() {
		return false, nil
	}

	createdAt := s.tenantCreatedAt(ctx, cfg)
	if billingperiod.IsFirstMonthFree(createdAt, period.Start, period.End) {
		return false, nil
	}

	dueAt := billingperiod.DueAt(issuedAt, cfg.GraceDays)
	inv := &billing.BillingInvoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		PeriodStart:   period.Start,
		PeriodEnd:     period.End,
		AmountUsd:     *cfg.MonthlyPriceUsd,
		InvoiceStatus: types.InvoiceStatusOpen,
		IssuedAt:      issuedAt,
		DueAt:         dueAt,
		BaseModel:     types.GetDefaultBaseModel(cfg.TenantID, ""),
	}

	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		if ierr.IsAlreadyExists(err) {
			// The period unique constraint fired: a previous run, a retry
			// or a concurrent instance already issued this period.
			return false, nil
		}
		return false, err
	}

	sub, err := s.getOrCreateSubscription(ctx, cfg.TenantID, issuedAt)
	if err != nil {
		return false, err
	}
	nextDue := billingperiod.DueAt(billingperiod.NextIssuanceTimeAfter(period.End), cfg.GraceDays)
	sub.NextDueAt = &nextDue
	sub.CurrentPeriodStart = period.Start
	sub.CurrentPeriodEnd = period.End
	sub.UpdatedAt = issuedAt
	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return false, err
	}

	return true, nil
}

// tenantCreatedAt resolves the tenant's creation instant for the
// first-month-free rule, falling back to the config row's creation time
// when the directory has no entry.
func (s *billingService) tenantCreatedAt(ctx context.Context, cfg *billing.TenantBillingConfig) time.Time {
	t, err := s.TenantRepo.Get(ctx, cfg.TenantID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			s.Logger.Warnw("tenant directory lookup failed, using config creation time",
				"tenant_id", cfg.TenantID, "error", err)
		}
		return cfg.CreatedAt
	}
	return t.CreatedAt
}

func (s *billingService) SendReminders(ctx context.Context, now time.Time) (*dto.ReminderRunResult, error) {
	result := &dto.ReminderRunResult{}
	if !s.enabled() {
		return result, nil
	}

	now = now.UTC()
	open := types.InvoiceStatusOpen
	invoices, err := s.InvoiceRepo.List(ctx, &billing.InvoiceFilter{InvoiceStatus: &open})
	if err != nil {
		return nil, err
	}

	var reminders []notification.Reminder
	for _, inv := range invoices {
		cfg, err := s.getOrCreateConfig(ctx, inv.TenantID)
		if err != nil {
			return nil, err
		}

		kind, matched := matchReminderCheckpoint(now, inv.DueAt, cfg.GraceDays)
		if !matched {
			continue
		}

		reminders = append(reminders, notification.Reminder{
			Kind:      kind,
			TenantID:  inv.TenantID,
			InvoiceID: inv.ID,
			AmountUsd: inv.AmountUsd,
			DueAt:     inv.DueAt,
		})
	}

	result.Matches = len(reminders)
	if len(reminders) > 0 {
		// Delivery is the collaborator's problem; a send failure does not
		// change the match count and the next checkpoint is the retry.
		if err := s.Notifier.SendReminders(ctx, reminders); err != nil {
			s.Logger.Errorw("reminder dispatch failed", "error", err, "matches", result.Matches)
		}
	}

	s.Logger.Infow("reminder run complete", "matches", result.Matches)
	return result, nil
}

// matchReminderCheckpoint checks now against the three reminder checkpoints
// for an invoice: 7 days before due, on due, and graceDays-1 days after due.
func matchReminderCheckpoint(now, dueAt time.Time, graceDays int) (notification.ReminderKind, bool) {
	checkpoints := []struct {
		kind notification.ReminderKind
		at   time.Time
	}{
		{notification.ReminderUpcoming, dueAt.AddDate(0, 0, -7)},
		{notification.ReminderDue, dueAt},
		{notification.ReminderLastCall, dueAt.AddDate(0, 0, graceDays-1)},
	}

	for _, cp := range checkpoints {
		diff := now.Sub(cp.at)
		if diff < 0 {
			diff = -diff
		}
		if diff <= reminderTolerance {
			return cp.kind, true
		}
	}
	return "", false
}

func (s *billingService) ApplyEnforcement(ctx context.Context, now time.Time) (*dto.EnforcementRunResult, error) {
	result := &dto.EnforcementRunResult{}
	if !s.enabled() {
		return result, nil
	}

	now = now.UTC()
	configs, err := s.ConfigRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	totalOpen := 0
	for _, cfg := range configs {
		open := types.InvoiceStatusOpen
		invoices, err := s.InvoiceRepo.List(ctx, &billing.InvoiceFilter{
			TenantID:      cfg.TenantID,
			InvoiceStatus: &open,
		})
		if err != nil {
			return nil, err
		}
		totalOpen += len(invoices)

		if !cfg.EnforcementEnabled {
			continue
		}

		// Suspend only when the grace window after the due date has fully
		// lapsed: due_at + graceDays strictly before now.
		overdue := lo.ContainsBy(invoices, func(inv *billing.BillingInvoice) bool {
			return billingperiod.DueAt(inv.DueAt, cfg.GraceDays).Before(now)
		})
		if !overdue {
			continue
		}

		suspended, err := s.suspendTenant(ctx, cfg.TenantID, now)
		if err != nil {
			return nil, err
		}
		if suspended {
			result.Suspended++
			s.Metrics.TenantsSuspended.Inc()
		}
	}

	s.Metrics.OpenInvoices.Set(float64(totalOpen))
	s.Logger.Infow("enforcement run complete", "suspended", result.Suspended, "open_invoices", totalOpen)
	return result, nil
}

// suspendTenant moves a tenant to SUSPENDED exactly once. Repeated calls and
// repeated overdue invoices are no-ops once the tenant is suspended. The
// per-tenant advisory lock serializes this against a concurrent MarkPaid so
// a payment landing mid-run cannot be overwritten by a stale suspension.
func (s *billingService) suspendTenant(ctx context.Context, tenantID string, now time.Time) (bool, error) {
	suspended := false
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.DB.TryLockKey(txCtx, tenantLockKey(tenantID))
		if err != nil {
			return err
		}
		if !ok {
			// Someone is paying this tenant's invoice right now; skip and
			// let the next enforcement tick re-evaluate.
			s.Logger.Infow("tenant busy, skipping suspension this tick", "tenant_id", tenantID)
			return nil
		}

		sub, err := s.getOrCreateSubscription(txCtx, tenantID, now)
		if err != nil {
			return err
		}
		if sub.IsSuspended() {
			return nil
		}

		sub.Suspend(now, types.SuspendReasonPaymentOverdue)
		if err := s.SubscriptionRepo.Update(txCtx, sub); err != nil {
			return err
		}
		suspended = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !suspended {
		return false, nil
	}
	s.invalidateSubscriptionCache(ctx, tenantID)

	s.Logger.Infow("tenant suspended",
		"tenant_id", tenantID,
		"reason", types.SuspendReasonPaymentOverdue)
	return true, nil
}

func (s *billingService) MarkPaid(ctx context.Context, invoiceID string, req *dto.MarkPaidRequest) (*dto.InvoiceResponse, error) {
	if !s.enabled() {
		return &dto.InvoiceResponse{}, nil
	}
	if req == nil {
		req = &dto.MarkPaidRequest{}
	}

	now := time.Now().UTC()
	var paid *billing.BillingInvoice

	// The invoice flip and the subscription reset must land together: no
	// caller may ever observe a PAID invoice on a still-SUSPENDED tenant.
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		inv, err := s.InvoiceRepo.Get(txCtx, invoiceID)
		if err != nil {
			return err
		}

		ok, err := s.DB.TryLockKey(txCtx, tenantLockKey(inv.TenantID))
		if err != nil {
			return err
		}
		if !ok {
			return ierr.NewError("tenant billing state is being updated concurrently").
				WithHint("Please retry the request").
				Mark(ierr.ErrInvalidOperation)
		}

		if !inv.IsOpen() {
			return ierr.NewErrorf("invoice %s is not open", invoiceID).
				WithDisplayCode(ierr.CodeInvoiceNotOpen).
				WithHint("Only open invoices can be marked paid").
				WithReportableDetails(map[string]interface{}{
					"invoice_id": invoiceID,
					"status":     inv.InvoiceStatus,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		inv.MarkPaid(now, req.DepositID)
		if err := s.InvoiceRepo.Update(txCtx, inv); err != nil {
			return err
		}

		sub, err := s.getOrCreateSubscription(txCtx, inv.TenantID, now)
		if err != nil {
			return err
		}
		cfg, err := s.getOrCreateConfig(txCtx, inv.TenantID)
		if err != nil {
			return err
		}

		// Paying re-arms the schedule immediately rather than waiting for
		// the next issuance tick.
		period := billingperiod.MonthlyPeriod(now)
		nextDue := billingperiod.DueAt(billingperiod.IssuanceTimeEOM(period.End), cfg.GraceDays)

		sub.Activate(now)
		sub.CurrentPeriodStart = period.Start
		sub.CurrentPeriodEnd = period.End
		sub.LastPaidAt = &now
		sub.NextDueAt = &nextDue
		if err := s.SubscriptionRepo.Update(txCtx, sub); err != nil {
			return err
		}

		paid = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSubscriptionCache(ctx, paid.TenantID)
	s.Logger.Infow("invoice marked paid",
		"invoice_id", paid.ID,
		"tenant_id", paid.TenantID,
		"deposit_id", lo.FromPtr(req.DepositID))
	return dto.NewInvoiceResponse(paid), nil
}

func (s *billingService) CreateBillingDeposit(ctx context.Context, tenantID, userID string, req *dto.CreateDepositRequest) (*dto.DepositResponse, error) {
	if !s.enabled() {
		return &dto.DepositResponse{}, nil
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	method, err := s.PaymentRepo.GetMethod(ctx, req.MethodID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewError("payment method not found").
				WithDisplayCode(ierr.CodeMethodNotFound).
				WithHint("The payment method does not exist or is not usable").
				WithReportableDetails(map[string]interface{}{"method_id": req.MethodID}).
				Mark(ierr.ErrValidation)
		}
		return nil, err
	}
	if !method.IsUsable(tenantID) {
		// A disabled method or one owned by another tenant is reported the
		// same way so callers cannot probe foreign method ids.
		return nil, ierr.NewError("payment method not found").
			WithDisplayCode(ierr.CodeMethodNotFound).
			WithHint("The payment method does not exist or is not usable").
			WithReportableDetails(map[string]interface{}{"method_id": req.MethodID}).
			Mark(ierr.ErrValidation)
	}

	note := req.Note
	if req.InvoiceID == nil && note == "" {
		note = "account top-up"
	}

	dep := &payment.Deposit{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DEPOSIT),
		UserID:        userID,
		MethodID:      method.ID,
		AmountUsd:     req.AmountUsd,
		DepositStatus: types.DepositStatusPending,
		InvoiceID:     req.InvoiceID,
		Note:          note,
		BaseModel:     types.GetDefaultBaseModel(tenantID, userID),
	}

	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if req.InvoiceID != nil {
			inv, err := s.InvoiceRepo.Get(txCtx, *req.InvoiceID)
			if err != nil {
				return err
			}
			if inv.TenantID != tenantID {
				return ierr.NewError("invoice not found").
					WithReportableDetails(map[string]interface{}{"invoice_id": *req.InvoiceID}).
					Mark(ierr.ErrNotFound)
			}
			if !inv.IsOpen() {
				return ierr.NewErrorf("invoice %s is not open", inv.ID).
					WithDisplayCode(ierr.CodeInvoiceNotOpen).
					WithHint("Only open invoices can be paid").
					Mark(ierr.ErrInvalidOperation)
			}
		}
		return s.PaymentRepo.CreateDeposit(txCtx, dep)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("billing deposit created",
		"deposit_id", dep.ID,
		"tenant_id", tenantID,
		"invoice_id", lo.FromPtr(req.InvoiceID),
		"amount_usd", dep.AmountUsd.StringFixed(billing.AmountPrecision))

	return &dto.DepositResponse{
		ID:            dep.ID,
		TenantID:      tenantID,
		MethodID:      dep.MethodID,
		AmountUsd:     dep.AmountUsd.StringFixed(billing.AmountPrecision),
		DepositStatus: dep.DepositStatus,
		InvoiceID:     dep.InvoiceID,
		Note:          dep.Note,
		CreatedAt:     dep.CreatedAt,
	}, nil
}

func (s *billingService) GetTenantOverview(ctx context.Context, tenantID string, now time.Time) (*dto.TenantOverviewResponse, error) {
	if !s.enabled() {
		return &dto.TenantOverviewResponse{TenantID: tenantID}, nil
	}

	now = now.UTC()
	sub, err := s.getOrCreateSubscription(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}

	open := types.InvoiceStatusOpen
	invoices, err := s.InvoiceRepo.List(ctx, &billing.InvoiceFilter{
		TenantID:      tenantID,
		InvoiceStatus: &open,
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.TenantOverviewResponse{
		TenantID:           tenantID,
		SubscriptionStatus: sub.SubscriptionStatus,
		OpenInvoices:       len(invoices),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		NextDueAt:          sub.NextDueAt,
		PeriodProgressPct:  periodProgressPct(now, sub.CurrentPeriodStart, sub.CurrentPeriodEnd),
	}

	if len(invoices) > 0 {
		// Repository ordering puts the earliest due invoice first.
		earliest := invoices[0]
		if earliest.IsOverdue(now) {
			days := int(now.Sub(earliest.DueAt).Hours() / 24)
			resp.DaysOverdue = &days
		} else {
			days := int(earliest.DueAt.Sub(now).Hours() / 24)
			resp.DaysUntilDue = &days
		}
		resp.HasOverdue = lo.ContainsBy(invoices, func(inv *billing.BillingInvoice) bool {
			return inv.IsOverdue(now)
		})
	}

	return resp, nil
}

// periodProgressPct is elapsed/span through [start, end], clamped to
// [0,100]. The span runs to the end of the period's last day so a full
// month reads 100, not 96.
func periodProgressPct(now, start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	span := end.AddDate(0, 0, 1).Sub(start)
	if span <= 0 {
		return 0
	}
	pct := int(now.Sub(start) * 100 / span)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func (s *billingService) ListTenantInvoices(ctx context.Context, tenantID string, req *dto.ListInvoicesRequest) (*dto.ListInvoicesResponse, error) {
	if !s.enabled() {
		return &dto.ListInvoicesResponse{Items: []*dto.InvoiceResponse{}}, nil
	}
	if req == nil {
		req = &dto.ListInvoicesRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.QueryFilter == nil {
		req.QueryFilter = types.NewDefaultQueryFilter()
	}

	filter := &billing.InvoiceFilter{
		TenantID:      tenantID,
		InvoiceStatus: req.InvoiceStatus,
		QueryFilter:   req.QueryFilter,
	}
	if req.Overdue != nil && *req.Overdue {
		now := time.Now().UTC()
		filter.OverdueAsOf = &now
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(invoices, func(inv *billing.BillingInvoice, _ int) *dto.InvoiceResponse {
		return dto.NewInvoiceResponse(inv)
	})
	return &dto.ListInvoicesResponse{Items: items, Total: len(items)}, nil
}

func (s *billingService) UpdateTenantConfig(ctx context.Context, tenantID string, req *dto.UpdateBillingConfigRequest) (*dto.BillingConfigResponse, error) {
	if !s.enabled() {
		return &dto.BillingConfigResponse{TenantID: tenantID}, nil
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg, err := s.getOrCreateConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if req.MonthlyPriceUsd != nil {
		cfg.MonthlyPriceUsd = req.MonthlyPriceUsd
	}
	if req.GraceDays != nil {
		cfg.GraceDays = *req.GraceDays
	}
	if req.EnforcementEnabled != nil {
		cfg.EnforcementEnabled = *req.EnforcementEnabled
	}
	cfg.UpdatedAt = time.Now().UTC()
	cfg.UpdatedBy = types.GetUserID(ctx)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.ConfigRepo.Update(ctx, cfg); err != nil {
		return nil, err
	}

	return dto.NewBillingConfigResponse(cfg), nil
}

func (s *billingService) AggregateTenantsForAdmin(ctx context.Context, req *dto.AdminTenantsRequest, now time.Time) (*dto.AdminTenantsResponse, error) {
	if !s.enabled() {
		return &dto.AdminTenantsResponse{Items: []*dto.AdminTenantRow{}}, nil
	}
	if req == nil {
		req = &dto.AdminTenantsRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.QueryFilter == nil {
		req.QueryFilter = types.NewDefaultQueryFilter()
	}

	now = now.UTC()
	subs, err := s.SubscriptionRepo.List(ctx, &billing.SubscriptionFilter{})
	if err != nil {
		return nil, err
	}
	counts, err := s.InvoiceRepo.CountOpenByTenant(ctx, now)
	if err != nil {
		return nil, err
	}
	tenantIDs := lo.Map(subs, func(sub *billing.TenantSubscription, _ int) string {
		return sub.TenantID
	})
	directory, err := s.TenantRepo.GetByIDs(ctx, tenantIDs)
	if err != nil {
		return nil, err
	}

	var rows []*dto.AdminTenantRow
	for _, sub := range subs {
		c := counts[sub.TenantID]

		if req.SubscriptionStatus != nil && sub.SubscriptionStatus != *req.SubscriptionStatus {
			continue
		}
		if req.Overdue != nil && (c.Overdue > 0) != *req.Overdue {
			continue
		}

		row := &dto.AdminTenantRow{
			TenantID:           sub.TenantID,
			SubscriptionStatus: sub.SubscriptionStatus,
			OpenInvoices:       c.Open,
			OverdueInvoices:    c.Overdue,
			NextDueAt:          sub.NextDueAt,
			SuspendAt:          sub.SuspendAt,
		}
		if t, ok := directory[sub.TenantID]; ok {
			row.TenantName = t.Name
		}
		rows = append(rows, row)
	}

	// Filter first, then paginate: the reported total is the post-filter
	// count, not the page size.
	total := len(rows)
	offset := req.GetOffset()
	limit := req.GetLimit()
	if offset > len(rows) {
		offset = len(rows)
	}
	endIdx := offset + limit
	if endIdx > len(rows) {
		endIdx = len(rows)
	}

	return &dto.AdminTenantsResponse{
		Items: rows[offset:endIdx],
		Total: total,
	}, nil
}

// tenantLockKey is the advisory lock key serializing per-tenant multi-row
// billing transitions.
func tenantLockKey(tenantID string) string {
	return "billing:tenant:" + tenantID
}

func (s *billingService) invalidateSubscriptionCache(ctx context.Context, tenantID string) {
	if s.Cache != nil {
		s.Cache.Delete(ctx, types.SubscriptionCacheKey(tenantID))
	}
}
