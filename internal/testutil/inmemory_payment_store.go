package testutil

import (
	"context"
	"sync"

	"github.com/loopbill/loopbill/internal/domain/payment"
)

// InMemoryPaymentStore implements payment.Repository and records every
// deposit it receives so tests can assert on the handoff.
type InMemoryPaymentStore struct {
	methods *InMemoryStore[*payment.Method]

	mu       sync.Mutex
	deposits []*payment.Deposit
}

// NewInMemoryPaymentStore creates a new in-memory payments fake.
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		methods: NewInMemoryStore[*payment.Method](),
	}
}

// AddMethod seeds a stored payment method.
func (s *InMemoryPaymentStore) AddMethod(m *payment.Method) {
	copied := *m
	_ = s.methods.Create(context.Background(), m.ID, &copied)
}

func (s *InMemoryPaymentStore) GetMethod(ctx context.Context, id string) (*payment.Method, error) {
	m, err := s.methods.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	copied := *m
	return &copied, nil
}

func (s *InMemoryPaymentStore) CreateDeposit(_ context.Context, dep *payment.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *dep
	s.deposits = append(s.deposits, &copied)
	return nil
}

// Deposits returns every deposit created so far.
func (s *InMemoryPaymentStore) Deposits() []*payment.Deposit {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*payment.Deposit, len(s.deposits))
	copy(out, s.deposits)
	return out
}
