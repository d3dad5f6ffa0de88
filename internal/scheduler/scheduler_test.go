package scheduler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/loopbill/loopbill/internal/domain/billing"
	"github.com/loopbill/loopbill/internal/service"
	"github.com/loopbill/loopbill/internal/testutil"
	"github.com/loopbill/loopbill/internal/types"
)

type SchedulerSuite struct {
	testutil.BaseServiceTestSuite
	scheduler *Scheduler
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	billingSvc := service.NewBillingService(service.ServiceParams{
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
	})
	s.scheduler = New(billingSvc, s.GetLock(), s.GetMetrics(), s.GetLogger())
}

func (s *SchedulerSuite) seedBillableTenant(id string) {
	cfg := billing.NewDefaultConfig(id)
	price := decimal.RequireFromString("49.99")
	cfg.MonthlyPriceUsd = &price
	s.NoError(s.GetStores().ConfigRepo.Create(s.GetContext(), cfg))
}

func (s *SchedulerSuite) TestRunIssuance() {
	s.seedBillableTenant("ten_a")
	now := time.Date(2025, time.May, 31, 23, 55, 0, 0, time.UTC)

	result, err := s.scheduler.RunIssuance(s.GetContext(), now)
	s.NoError(err)
	s.False(result.Locked)
	s.Equal(1, result.Created)
	s.Equal(1, s.GetStores().InvoiceRepo.Count())
}

func (s *SchedulerSuite) TestHeldLockSkipsTheRun() {
	s.seedBillableTenant("ten_a")
	now := time.Date(2025, time.May, 31, 23, 55, 0, 0, time.UTC)

	ok, err := s.GetLock().TryAcquire(s.GetContext(), types.JobIssueInvoices, time.Minute)
	s.NoError(err)
	s.True(ok)

	result, err := s.scheduler.RunIssuance(s.GetContext(), now)
	s.NoError(err)
	s.True(result.Locked)
	s.Equal(0, result.Created)
	s.Equal(0, s.GetStores().InvoiceRepo.Count())
}

func (s *SchedulerSuite) TestLockIsReleasedAfterTheRun() {
	s.seedBillableTenant("ten_a")

	first, err := s.scheduler.RunIssuance(s.GetContext(), time.Date(2025, time.May, 31, 23, 55, 0, 0, time.UTC))
	s.NoError(err)
	s.False(first.Locked)

	// A re-run must re-acquire the lock, proving the first run released it.
	second, err := s.scheduler.RunIssuance(s.GetContext(), time.Date(2025, time.June, 30, 23, 55, 0, 0, time.UTC))
	s.NoError(err)
	s.False(second.Locked)
	s.Equal(1, second.Created)
}

func (s *SchedulerSuite) TestRunEnforcement() {
	s.seedBillableTenant("ten_a")
	dueAt := time.Date(2025, time.January, 10, 23, 55, 0, 0, time.UTC)
	inv := &billing.BillingInvoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		PeriodStart:   time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		AmountUsd:     decimal.RequireFromString("49.99"),
		InvoiceStatus: types.InvoiceStatusOpen,
		IssuedAt:      dueAt.AddDate(0, 0, -3),
		DueAt:         dueAt,
		BaseModel:     types.GetDefaultBaseModel("ten_a", ""),
	}
	s.NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))

	result, err := s.scheduler.RunEnforcement(s.GetContext(), time.Date(2025, time.February, 1, 0, 10, 0, 0, time.UTC))
	s.NoError(err)
	s.False(result.Locked)
	s.Equal(1, result.Suspended)
}

func (s *SchedulerSuite) TestRunReminders() {
	s.seedBillableTenant("ten_a")
	dueAt := time.Date(2025, time.January, 10, 23, 55, 0, 0, time.UTC)
	inv := &billing.BillingInvoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		PeriodStart:   time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		AmountUsd:     decimal.RequireFromString("49.99"),
		InvoiceStatus: types.InvoiceStatusOpen,
		IssuedAt:      dueAt.AddDate(0, 0, -3),
		DueAt:         dueAt,
		BaseModel:     types.GetDefaultBaseModel("ten_a", ""),
	}
	s.NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))

	result, err := s.scheduler.RunReminders(s.GetContext(), dueAt)
	s.NoError(err)
	s.False(result.Locked)
	s.Equal(1, result.Matches)
	s.Len(s.GetNotifier().Reminders(), 1)
}
