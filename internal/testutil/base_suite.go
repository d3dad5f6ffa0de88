package testutil

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/loopbill/loopbill/internal/cache"
	"github.com/loopbill/loopbill/internal/config"
	"github.com/loopbill/loopbill/internal/lock"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/metrics"
	"github.com/loopbill/loopbill/internal/types"
)

// Stores bundles every in-memory repository fake.
type Stores struct {
	ConfigRepo       *InMemoryBillingConfigStore
	SubscriptionRepo *InMemorySubscriptionStore
	InvoiceRepo      *InMemoryInvoiceStore
	TenantRepo       *InMemoryTenantStore
	PaymentRepo      *InMemoryPaymentStore
}

// BaseServiceTestSuite wires fresh fakes before every test so suites start
// from a clean slate.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	cfg      *config.Configuration
	log      *logger.Logger
	db       *FakeTxManager
	stores   Stores
	cache    cache.Cache
	lock     lock.Lock
	metrics  *metrics.Metrics
	notifier *RecordingNotifier
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetUserID(context.Background(), "user_test")
	s.cfg = config.GetDefaultConfig()
	s.log = logger.GetLogger()
	s.db = NewFakeTxManager()
	s.stores = Stores{
		ConfigRepo:       NewInMemoryBillingConfigStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		InvoiceRepo:      NewInMemoryInvoiceStore(),
		TenantRepo:       NewInMemoryTenantStore(),
		PaymentRepo:      NewInMemoryPaymentStore(),
	}
	s.cache = cache.NewInMemoryCache()
	s.lock = lock.NewMemoryLock()
	s.metrics = metrics.NewNop()
	s.notifier = NewRecordingNotifier()
}

func (s *BaseServiceTestSuite) GetContext() context.Context { return s.ctx }

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration { return s.cfg }

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger { return s.log }

func (s *BaseServiceTestSuite) GetDB() *FakeTxManager { return s.db }

func (s *BaseServiceTestSuite) GetStores() Stores { return s.stores }

func (s *BaseServiceTestSuite) GetCache() cache.Cache { return s.cache }

func (s *BaseServiceTestSuite) GetLock() lock.Lock { return s.lock }

func (s *BaseServiceTestSuite) GetMetrics() *metrics.Metrics { return s.metrics }

func (s *BaseServiceTestSuite) GetNotifier() *RecordingNotifier { return s.notifier }
