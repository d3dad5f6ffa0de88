package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/loopbill/loopbill/internal/api/dto"
	"github.com/loopbill/loopbill/internal/domain/billing"
	"github.com/loopbill/loopbill/internal/domain/billingperiod"
	"github.com/loopbill/loopbill/internal/domain/payment"
	"github.com/loopbill/loopbill/internal/domain/tenant"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/notification"
	"github.com/loopbill/loopbill/internal/testutil"
	"github.com/loopbill/loopbill/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service BillingService
	params  ServiceParams
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Cache:            s.GetCache(),
		Lock:             s.GetLock(),
		Metrics:          s.GetMetrics(),
		ConfigRepo:       s.GetStores().ConfigRepo,
		SubscriptionRepo: s.GetStores().SubscriptionRepo,
		InvoiceRepo:      s.GetStores().InvoiceRepo,
		TenantRepo:       s.GetStores().TenantRepo,
		PaymentRepo:      s.GetStores().PaymentRepo,
		Notifier:         s.GetNotifier(),
	}
	s.service = NewBillingService(s.params)
}

// seedTenant registers a tenant in the directory and creates its billing
// config. An empty price leaves the tenant non-billable.
func (s *BillingServiceSuite) seedTenant(id, price string, graceDays int, createdAt time.Time) *billing.TenantBillingConfig {
	s.GetStores().TenantRepo.Add(&tenant.Tenant{ID: id, Name: "Tenant " + id, CreatedAt: createdAt})
	cfg := billing.NewDefaultConfig(id)
	cfg.GraceDays = graceDays
	if price != "" {
		p := decimal.RequireFromString(price)
		cfg.MonthlyPriceUsd = &p
	}
	s.NoError(s.GetStores().ConfigRepo.Create(s.GetContext(), cfg))
	return cfg
}

func (s *BillingServiceSuite) seedInvoice(tenantID string, periodStart, periodEnd, dueAt time.Time, status types.InvoiceStatus, amount string) *billing.BillingInvoice {
	inv := &billing.BillingInvoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		AmountUsd:     decimal.RequireFromString(amount),
		InvoiceStatus: status,
		IssuedAt:      billingperiod.IssuanceTimeEOM(periodEnd),
		DueAt:         dueAt,
		BaseModel:     types.GetDefaultBaseModel(tenantID, ""),
	}
	s.NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))
	return inv
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *BillingServiceSuite) TestIssueMonthlyInvoices() {
	longAgo := date(2024, time.January, 10)

	s.Run("creates one invoice per billable tenant", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		s.seedTenant("ten_b", "120", 5, longAgo)
		s.seedTenant("ten_free", "", 3, longAgo)

		result, err := s.service.IssueMonthlyInvoices(s.GetContext(), date(2025, time.May, 20))
		s.NoError(err)
		s.Equal(2, result.Created)
		s.Equal(1, result.Skipped)

		invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &billing.InvoiceFilter{TenantID: "ten_a"})
		s.NoError(err)
		s.Len(invoices, 1)
		inv := invoices[0]
		s.Equal(date(2025, time.May, 1), inv.PeriodStart)
		s.Equal(date(2025, time.May, 31), inv.PeriodEnd)
		s.Equal(types.InvoiceStatusOpen, inv.InvoiceStatus)
		s.Equal("49.990000", inv.AmountString())
		s.Equal(time.Date(2025, time.May, 31, 23, 55, 0, 0, time.UTC), inv.IssuedAt)
		s.Equal(time.Date(2025, time.June, 3, 23, 55, 0, 0, time.UTC), inv.DueAt)

		sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "ten_a")
		s.NoError(err)
		s.Equal(date(2025, time.May, 1), sub.CurrentPeriodStart)
		s.Equal(date(2025, time.May, 31), sub.CurrentPeriodEnd)
		s.NotNil(sub.NextDueAt)
		s.Equal(time.Date(2025, time.July, 3, 23, 55, 0, 0, time.UTC), *sub.NextDueAt)
	})

	s.Run("second run for the same period creates nothing", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)

		first, err := s.service.IssueMonthlyInvoices(s.GetContext(), date(2025, time.May, 20))
		s.NoError(err)
		s.Equal(1, first.Created)

		second, err := s.service.IssueMonthlyInvoices(s.GetContext(), date(2025, time.May, 25))
		s.NoError(err)
		s.Equal(0, second.Created)
		s.Equal(1, second.Skipped)
		s.Equal(1, s.GetStores().InvoiceRepo.Count())
	})

	s.Run("first calendar month is never billed", func() {
		s.SetupTest()
		s.seedTenant("ten_new", "30", 3, time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC))

		march, err := s.service.IssueMonthlyInvoices(s.GetContext(), date(2025, time.March, 31))
		s.NoError(err)
		s.Equal(0, march.Created)
		s.Equal(1, march.Skipped)

		april, err := s.service.IssueMonthlyInvoices(s.GetContext(), date(2025, time.April, 30))
		s.NoError(err)
		s.Equal(1, april.Created)
	})

	s.Run("signup on the last second of the month still gets the free month", func() {
		s.SetupTest()
		s.seedTenant("ten_edge", "30", 3, time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC))

		result, err := s.service.IssueMonthlyInvoices(s.GetContext(), date(2025, time.March, 31))
		s.NoError(err)
		s.Equal(0, result.Created)
	})
}

func (s *BillingServiceSuite) TestSendReminders() {
	longAgo := date(2024, time.January, 10)
	dueAt := time.Date(2025, time.January, 10, 23, 55, 0, 0, time.UTC)

	setup := func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		s.seedInvoice("ten_a", date(2024, time.December, 1), date(2024, time.December, 31), dueAt, types.InvoiceStatusOpen, "49.99")
	}

	s.Run("matches the upcoming checkpoint", func() {
		setup()
		result, err := s.service.SendReminders(s.GetContext(), dueAt.AddDate(0, 0, -7))
		s.NoError(err)
		s.Equal(1, result.Matches)

		reminders := s.GetNotifier().Reminders()
		s.Len(reminders, 1)
		s.Equal(notification.ReminderUpcoming, reminders[0].Kind)
		s.Equal("ten_a", reminders[0].TenantID)
	})

	s.Run("matches the due checkpoint within tolerance", func() {
		setup()
		result, err := s.service.SendReminders(s.GetContext(), dueAt.Add(30*time.Minute))
		s.NoError(err)
		s.Equal(1, result.Matches)
		s.Equal(notification.ReminderDue, s.GetNotifier().Reminders()[0].Kind)
	})

	s.Run("matches the last call checkpoint", func() {
		setup()
		result, err := s.service.SendReminders(s.GetContext(), dueAt.AddDate(0, 0, 2))
		s.NoError(err)
		s.Equal(1, result.Matches)
		s.Equal(notification.ReminderLastCall, s.GetNotifier().Reminders()[0].Kind)
	})

	s.Run("no match outside tolerance", func() {
		setup()
		result, err := s.service.SendReminders(s.GetContext(), dueAt.Add(2*time.Hour))
		s.NoError(err)
		s.Equal(0, result.Matches)
		s.Empty(s.GetNotifier().Reminders())
	})

	s.Run("paid invoices never trigger reminders", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		s.seedInvoice("ten_a", date(2024, time.December, 1), date(2024, time.December, 31), dueAt, types.InvoiceStatusPaid, "49.99")

		result, err := s.service.SendReminders(s.GetContext(), dueAt)
		s.NoError(err)
		s.Equal(0, result.Matches)
	})
}

func (s *BillingServiceSuite) TestApplyEnforcement() {
	longAgo := date(2024, time.January, 10)
	dueAt := time.Date(2025, time.January, 10, 23, 55, 0, 0, time.UTC)

	seedOverdue := func(tenantID string) {
		s.seedTenant(tenantID, "49.99", 3, longAgo)
		s.seedInvoice(tenantID, date(2024, time.December, 1), date(2024, time.December, 31), dueAt, types.InvoiceStatusOpen, "49.99")
	}

	s.Run("no suspension while the grace window is still open", func() {
		s.SetupTest()
		seedOverdue("ten_a")

		// One minute before due_at + 3 grace days.
		result, err := s.service.ApplyEnforcement(s.GetContext(), time.Date(2025, time.January, 13, 23, 54, 0, 0, time.UTC))
		s.NoError(err)
		s.Equal(0, result.Suspended)
	})

	s.Run("suspends once the grace window has lapsed", func() {
		s.SetupTest()
		seedOverdue("ten_a")

		result, err := s.service.ApplyEnforcement(s.GetContext(), time.Date(2025, time.January, 13, 23, 56, 0, 0, time.UTC))
		s.NoError(err)
		s.Equal(1, result.Suspended)

		sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "ten_a")
		s.NoError(err)
		s.True(sub.IsSuspended())
		s.NotNil(sub.SuspendAt)
		s.Equal(types.SuspendReasonPaymentOverdue, lo.FromPtr(sub.SuspendReason))
	})

	s.Run("repeated runs suspend exactly once", func() {
		s.SetupTest()
		seedOverdue("ten_a")
		now := time.Date(2025, time.February, 1, 0, 10, 0, 0, time.UTC)

		first, err := s.service.ApplyEnforcement(s.GetContext(), now)
		s.NoError(err)
		s.Equal(1, first.Suspended)

		second, err := s.service.ApplyEnforcement(s.GetContext(), now.AddDate(0, 0, 1))
		s.NoError(err)
		s.Equal(0, second.Suspended)
	})

	s.Run("enforcement disabled leaves overdue tenants active", func() {
		s.SetupTest()
		cfg := s.seedTenant("ten_a", "49.99", 3, longAgo)
		cfg.EnforcementEnabled = false
		s.NoError(s.GetStores().ConfigRepo.Update(s.GetContext(), cfg))
		s.seedInvoice("ten_a", date(2024, time.December, 1), date(2024, time.December, 31), dueAt, types.InvoiceStatusOpen, "49.99")

		result, err := s.service.ApplyEnforcement(s.GetContext(), time.Date(2025, time.February, 1, 0, 10, 0, 0, time.UTC))
		s.NoError(err)
		s.Equal(0, result.Suspended)
	})

	s.Run("tenant busy with a payment is skipped this tick", func() {
		s.SetupTest()
		seedOverdue("ten_a")
		s.GetDB().DenyLock(tenantLockKey("ten_a"))

		result, err := s.service.ApplyEnforcement(s.GetContext(), time.Date(2025, time.February, 1, 0, 10, 0, 0, time.UTC))
		s.NoError(err)
		s.Equal(0, result.Suspended)

		sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "ten_a")
		s.NoError(err)
		s.False(sub.IsSuspended())
	})
}

func (s *BillingServiceSuite) TestMarkPaid() {
	longAgo := date(2024, time.January, 10)
	dueAt := time.Date(2025, time.January, 10, 23, 55, 0, 0, time.UTC)

	s.Run("pays an open invoice and re-arms the subscription", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		inv := s.seedInvoice("ten_a", date(2024, time.December, 1), date(2024, time.December, 31), dueAt, types.InvoiceStatusOpen, "49.99")

		resp, err := s.service.MarkPaid(s.GetContext(), inv.ID, &dto.MarkPaidRequest{DepositID: lo.ToPtr("dep_123")})
		s.NoError(err)
		s.Equal(types.InvoiceStatusPaid, resp.InvoiceStatus)
		s.NotNil(resp.PaidAt)
		s.Equal("dep_123", lo.FromPtr(resp.DepositID))

		sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "ten_a")
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
		s.Nil(sub.SuspendAt)
		s.Nil(sub.SuspendReason)
		s.NotNil(sub.LastPaidAt)
		s.NotNil(sub.NextDueAt)
		s.True(sub.NextDueAt.After(time.Now().UTC()))
	})

	s.Run("paying reactivates a suspended tenant", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		inv := s.seedInvoice("ten_a", date(2024, time.December, 1), date(2024, time.December, 31), dueAt, types.InvoiceStatusOpen, "49.99")

		_, err := s.service.ApplyEnforcement(s.GetContext(), time.Date(2025, time.February, 1, 0, 10, 0, 0, time.UTC))
		s.NoError(err)

		_, err = s.service.MarkPaid(s.GetContext(), inv.ID, nil)
		s.NoError(err)

		sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "ten_a")
		s.NoError(err)
		s.False(sub.IsSuspended())
		s.Nil(sub.SuspendAt)
		s.Nil(sub.SuspendReason)
	})

	s.Run("a paid invoice cannot be paid again", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		inv := s.seedInvoice("ten_a", date(2024, time.December, 1), date(2024, time.December, 31), dueAt, types.InvoiceStatusPaid, "49.99")

		_, err := s.service.MarkPaid(s.GetContext(), inv.ID, nil)
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))
		s.Equal(ierr.CodeInvoiceNotOpen, ierr.DisplayCode(err))
	})

	s.Run("unknown invoice", func() {
		s.SetupTest()
		_, err := s.service.MarkPaid(s.GetContext(), "inv_missing", nil)
		s.Error(err)
		s.True(ierr.IsNotFound(err))
	})

	s.Run("concurrent tenant update surfaces a retryable error", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		inv := s.seedInvoice("ten_a", date(2024, time.December, 1), date(2024, time.December, 31), dueAt, types.InvoiceStatusOpen, "49.99")
		s.GetDB().DenyLock(tenantLockKey("ten_a"))

		_, err := s.service.MarkPaid(s.GetContext(), inv.ID, nil)
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))
	})
}

func (s *BillingServiceSuite) TestCreateBillingDeposit() {
	longAgo := date(2024, time.January, 10)

	seedMethod := func(id, tenantID string, status types.PaymentMethodStatus) {
		s.GetStores().PaymentRepo.AddMethod(&payment.Method{
			ID:           id,
			MethodStatus: status,
			Label:        "Visa ••••4242",
			BaseModel:    types.GetDefaultBaseModel(tenantID, ""),
		})
	}

	s.Run("creates a pending top-up deposit", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		seedMethod("pm_1", "ten_a", types.PaymentMethodStatusActive)

		resp, err := s.service.CreateBillingDeposit(s.GetContext(), "ten_a", "user_test", &dto.CreateDepositRequest{
			AmountUsd: decimal.RequireFromString("49.99"),
			MethodID:  "pm_1",
		})
		s.NoError(err)
		s.Equal(types.DepositStatusPending, resp.DepositStatus)
		s.Equal("49.990000", resp.AmountUsd)
		s.Equal("account top-up", resp.Note)

		deposits := s.GetStores().PaymentRepo.Deposits()
		s.Len(deposits, 1)
		s.Equal("ten_a", deposits[0].TenantID)
	})

	s.Run("rejects a non-positive amount", func() {
		s.SetupTest()
		_, err := s.service.CreateBillingDeposit(s.GetContext(), "ten_a", "user_test", &dto.CreateDepositRequest{
			AmountUsd: decimal.Zero,
			MethodID:  "pm_1",
		})
		s.Error(err)
		s.Equal(ierr.CodeInvalidAmount, ierr.DisplayCode(err))
	})

	s.Run("rejects a missing method id", func() {
		s.SetupTest()
		_, err := s.service.CreateBillingDeposit(s.GetContext(), "ten_a", "user_test", &dto.CreateDepositRequest{
			AmountUsd: decimal.RequireFromString("10"),
		})
		s.Error(err)
		s.Equal(ierr.CodeMethodRequired, ierr.DisplayCode(err))
	})

	s.Run("unknown, disabled and foreign methods are indistinguishable", func() {
		s.SetupTest()
		seedMethod("pm_disabled", "ten_a", types.PaymentMethodStatusDisabled)
		seedMethod("pm_foreign", "ten_b", types.PaymentMethodStatusActive)

		for _, methodID := range []string{"pm_missing", "pm_disabled", "pm_foreign"} {
			_, err := s.service.CreateBillingDeposit(s.GetContext(), "ten_a", "user_test", &dto.CreateDepositRequest{
				AmountUsd: decimal.RequireFromString("10"),
				MethodID:  methodID,
			})
			s.Error(err)
			s.Equal(ierr.CodeMethodNotFound, ierr.DisplayCode(err))
		}
	})

	s.Run("links a deposit to an open invoice", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		seedMethod("pm_1", "ten_a", types.PaymentMethodStatusActive)
		inv := s.seedInvoice("ten_a", date(2025, time.April, 1), date(2025, time.April, 30),
			time.Date(2025, time.May, 3, 23, 55, 0, 0, time.UTC), types.InvoiceStatusOpen, "49.99")

		resp, err := s.service.CreateBillingDeposit(s.GetContext(), "ten_a", "user_test", &dto.CreateDepositRequest{
			AmountUsd: decimal.RequireFromString("49.99"),
			MethodID:  "pm_1",
			InvoiceID: &inv.ID,
		})
		s.NoError(err)
		s.Equal(inv.ID, lo.FromPtr(resp.InvoiceID))
	})

	s.Run("rejects a deposit against a closed invoice", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		seedMethod("pm_1", "ten_a", types.PaymentMethodStatusActive)
		inv := s.seedInvoice("ten_a", date(2025, time.April, 1), date(2025, time.April, 30),
			time.Date(2025, time.May, 3, 23, 55, 0, 0, time.UTC), types.InvoiceStatusPaid, "49.99")

		_, err := s.service.CreateBillingDeposit(s.GetContext(), "ten_a", "user_test", &dto.CreateDepositRequest{
			AmountUsd: decimal.RequireFromString("49.99"),
			MethodID:  "pm_1",
			InvoiceID: &inv.ID,
		})
		s.Error(err)
		s.Equal(ierr.CodeInvoiceNotOpen, ierr.DisplayCode(err))
	})

	s.Run("rejects a deposit against another tenant's invoice", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		s.seedTenant("ten_b", "49.99", 3, longAgo)
		seedMethod("pm_1", "ten_a", types.PaymentMethodStatusActive)
		inv := s.seedInvoice("ten_b", date(2025, time.April, 1), date(2025, time.April, 30),
			time.Date(2025, time.May, 3, 23, 55, 0, 0, time.UTC), types.InvoiceStatusOpen, "49.99")

		_, err := s.service.CreateBillingDeposit(s.GetContext(), "ten_a", "user_test", &dto.CreateDepositRequest{
			AmountUsd: decimal.RequireFromString("49.99"),
			MethodID:  "pm_1",
			InvoiceID: &inv.ID,
		})
		s.Error(err)
		s.True(ierr.IsNotFound(err))
	})
}

func (s *BillingServiceSuite) TestGetTenantOverview() {
	longAgo := date(2024, time.January, 10)

	s.Run("reports days until the earliest due date", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		_, err := s.service.IssueMonthlyInvoices(s.GetContext(), date(2025, time.May, 20))
		s.NoError(err)

		now := time.Date(2025, time.May, 31, 23, 55, 0, 0, time.UTC)
		resp, err := s.service.GetTenantOverview(s.GetContext(), "ten_a", now)
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, resp.SubscriptionStatus)
		s.Equal(1, resp.OpenInvoices)
		s.False(resp.HasOverdue)
		s.Equal(3, lo.FromPtr(resp.DaysUntilDue))
		s.Nil(resp.DaysOverdue)
		s.Equal(date(2025, time.May, 1), resp.CurrentPeriodStart)
		s.Equal(date(2025, time.May, 31), resp.CurrentPeriodEnd)
	})

	s.Run("reports days overdue once the due date passes", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		s.seedInvoice("ten_a", date(2025, time.April, 1), date(2025, time.April, 30),
			time.Date(2025, time.May, 3, 23, 55, 0, 0, time.UTC), types.InvoiceStatusOpen, "49.99")

		now := time.Date(2025, time.May, 8, 23, 55, 0, 0, time.UTC)
		resp, err := s.service.GetTenantOverview(s.GetContext(), "ten_a", now)
		s.NoError(err)
		s.True(resp.HasOverdue)
		s.Equal(5, lo.FromPtr(resp.DaysOverdue))
		s.Nil(resp.DaysUntilDue)
	})

	s.Run("period progress is clamped and proportional", func() {
		s.SetupTest()
		sub := &billing.TenantSubscription{
			SubscriptionStatus: types.SubscriptionStatusActive,
			CurrentPeriodStart: date(2025, time.May, 1),
			CurrentPeriodEnd:   date(2025, time.May, 31),
			BaseModel:          types.GetDefaultBaseModel("ten_a", ""),
		}
		s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))

		// Exactly half of the 31-day span.
		resp, err := s.service.GetTenantOverview(s.GetContext(), "ten_a", time.Date(2025, time.May, 16, 12, 0, 0, 0, time.UTC))
		s.NoError(err)
		s.Equal(50, resp.PeriodProgressPct)

		resp, err = s.service.GetTenantOverview(s.GetContext(), "ten_a", date(2025, time.July, 1))
		s.NoError(err)
		s.Equal(100, resp.PeriodProgressPct)

		resp, err = s.service.GetTenantOverview(s.GetContext(), "ten_a", date(2025, time.April, 1))
		s.NoError(err)
		s.Equal(0, resp.PeriodProgressPct)
	})
}

func (s *BillingServiceSuite) TestUpdateTenantConfig() {
	s.Run("patches only the provided fields", func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, date(2024, time.January, 10))

		resp, err := s.service.UpdateTenantConfig(s.GetContext(), "ten_a", &dto.UpdateBillingConfigRequest{
			GraceDays: lo.ToPtr(7),
		})
		s.NoError(err)
		s.Equal(7, resp.GraceDays)
		s.Equal("49.990000", lo.FromPtr(resp.MonthlyPriceUsd))
		s.True(resp.EnforcementEnabled)
	})

	s.Run("creates the config lazily for an unseen tenant", func() {
		s.SetupTest()
		resp, err := s.service.UpdateTenantConfig(s.GetContext(), "ten_new", &dto.UpdateBillingConfigRequest{
			MonthlyPriceUsd: lo.ToPtr(decimal.RequireFromString("15")),
		})
		s.NoError(err)
		s.Equal("15.000000", lo.FromPtr(resp.MonthlyPriceUsd))
		s.Equal(types.DefaultGraceDays, resp.GraceDays)
	})

	s.Run("rejects negative values", func() {
		s.SetupTest()
		_, err := s.service.UpdateTenantConfig(s.GetContext(), "ten_a", &dto.UpdateBillingConfigRequest{
			GraceDays: lo.ToPtr(-1),
		})
		s.Error(err)
		s.True(ierr.IsValidation(err))
	})
}

func (s *BillingServiceSuite) TestAggregateTenantsForAdmin() {
	longAgo := date(2024, time.January, 10)
	now := time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)

	setup := func() {
		s.SetupTest()
		s.seedTenant("ten_a", "49.99", 3, longAgo)
		s.seedTenant("ten_b", "120", 3, longAgo)
		s.seedTenant("ten_c", "15", 3, longAgo)

		// ten_a: one overdue open invoice.
		s.seedInvoice("ten_a", date(2025, time.March, 1), date(2025, time.March, 31),
			time.Date(2025, time.April, 3, 23, 55, 0, 0, time.UTC), types.InvoiceStatusOpen, "49.99")
		// ten_b: one open invoice not yet due, and a suspended subscription.
		s.seedInvoice("ten_b", date(2025, time.April, 1), date(2025, time.April, 30),
			time.Date(2025, time.June, 3, 23, 55, 0, 0, time.UTC), types.InvoiceStatusOpen, "120")

		for _, id := range []string{"ten_a", "ten_b", "ten_c"} {
			_, err := s.service.GetOrCreateSubscription(s.GetContext(), id)
			s.NoError(err)
		}
		sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), "ten_b")
		s.NoError(err)
		sub.Suspend(now, types.SuspendReasonPaymentOverdue)
		s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))
	}

	s.Run("aggregates counts across all tenants", func() {
		setup()
		resp, err := s.service.AggregateTenantsForAdmin(s.GetContext(), &dto.AdminTenantsRequest{}, now)
		s.NoError(err)
		s.Equal(3, resp.Total)
		s.Len(resp.Items, 3)

		byID := lo.KeyBy(resp.Items, func(r *dto.AdminTenantRow) string { return r.TenantID })
		s.Equal(1, byID["ten_a"].OpenInvoices)
		s.Equal(1, byID["ten_a"].OverdueInvoices)
		s.Equal(1, byID["ten_b"].OpenInvoices)
		s.Equal(0, byID["ten_b"].OverdueInvoices)
		s.Equal(0, byID["ten_c"].OpenInvoices)
		s.Equal("Tenant ten_b", byID["ten_b"].TenantName)
	})

	s.Run("filters by subscription status", func() {
		setup()
		resp, err := s.service.AggregateTenantsForAdmin(s.GetContext(), &dto.AdminTenantsRequest{
			SubscriptionStatus: lo.ToPtr(types.SubscriptionStatusSuspended),
		}, now)
		s.NoError(err)
		s.Equal(1, resp.Total)
		s.Equal("ten_b", resp.Items[0].TenantID)
	})

	s.Run("filters by overdue", func() {
		setup()
		resp, err := s.service.AggregateTenantsForAdmin(s.GetContext(), &dto.AdminTenantsRequest{
			Overdue: lo.ToPtr(true),
		}, now)
		s.NoError(err)
		s.Equal(1, resp.Total)
		s.Equal("ten_a", resp.Items[0].TenantID)
	})

	s.Run("total reflects the post-filter count, not the page", func() {
		setup()
		resp, err := s.service.AggregateTenantsForAdmin(s.GetContext(), &dto.AdminTenantsRequest{
			QueryFilter: &types.QueryFilter{Limit: lo.ToPtr(1), Offset: lo.ToPtr(1)},
		}, now)
		s.NoError(err)
		s.Equal(3, resp.Total)
		s.Len(resp.Items, 1)
	})
}

func (s *BillingServiceSuite) TestBillingDisabled() {
	s.Run("every operation returns a neutral result", func() {
		s.SetupTest()
		s.GetConfig().Billing.Enabled = false

		issue, err := s.service.IssueMonthlyInvoices(s.GetContext(), date(2025, time.May, 20))
		s.NoError(err)
		s.Equal(0, issue.Created+issue.Skipped)

		enforce, err := s.service.ApplyEnforcement(s.GetContext(), date(2025, time.May, 20))
		s.NoError(err)
		s.Equal(0, enforce.Suspended)

		remind, err := s.service.SendReminders(s.GetContext(), date(2025, time.May, 20))
		s.NoError(err)
		s.Equal(0, remind.Matches)

		overview, err := s.service.GetTenantOverview(s.GetContext(), "ten_a", date(2025, time.May, 20))
		s.NoError(err)
		s.Equal("ten_a", overview.TenantID)
		s.Equal(0, overview.OpenInvoices)

		sub, err := s.service.GetOrCreateSubscription(s.GetContext(), "ten_a")
		s.NoError(err)
		s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
		s.Equal(0, s.GetStores().SubscriptionRepo.Count())
	})
}
