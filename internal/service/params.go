package service

import (
	"context"

	"github.com/loopbill/loopbill/internal/cache"
	"github.com/loopbill/loopbill/internal/config"
	"github.com/loopbill/loopbill/internal/domain/billing"
	"github.com/loopbill/loopbill/internal/domain/payment"
	"github.com/loopbill/loopbill/internal/domain/tenant"
	"github.com/loopbill/loopbill/internal/lock"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/metrics"
	"github.com/loopbill/loopbill/internal/notification"
)

// TxManager is the transactional surface services need from the database
// client: ambient transactions plus per-key advisory locks inside them.
// *postgres.Client satisfies it; tests substitute an in-memory fake.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	TryLockKey(ctx context.Context, key string) (bool, error)
}

// ServiceParams bundles the dependencies shared by all services so
// constructors stay short and wiring lives in one place.
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	DB      TxManager
	Cache   cache.Cache
	Lock    lock.Lock
	Metrics *metrics.Metrics

	ConfigRepo       billing.ConfigRepository
	SubscriptionRepo billing.SubscriptionRepository
	InvoiceRepo      billing.InvoiceRepository
	TenantRepo       tenant.Repository
	PaymentRepo      payment.Repository

	Notifier notification.Notifier
}
