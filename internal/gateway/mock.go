package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/method"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
)

// MockGateway is an in-memory stand-in for the remote payment platform. It
// keeps real versioned state so optimistic-concurrency behavior can be
// exercised without the live service.
type MockGateway struct {
	mu           sync.Mutex
	nextID       int64
	transactions map[int64]*transaction.Transaction
	listeners    map[int64]Listener
	attempts     map[int64][]ChargeAttempt
	methods      []method.Configuration

	failureRate float64
	latency     time.Duration
}

type MockGatewayOption func(*MockGateway)

func WithFailureRate(rate float64) MockGatewayOption {
	return func(g *MockGateway) { g.failureRate = rate }
}

func WithLatency(d time.Duration) MockGatewayOption {
	return func(g *MockGateway) { g.latency = d }
}

func WithMethods(methods ...method.Configuration) MockGatewayOption {
	return func(g *MockGateway) { g.methods = methods }
}

func WithListeners(listeners ...Listener) MockGatewayOption {
	return func(g *MockGateway) {
		for _, l := range listeners {
			g.listeners[l.ID] = l
		}
	}
}

func NewMockGateway(opts ...MockGatewayOption) *MockGateway {
	g := &MockGateway{
		nextID:       1000,
		transactions: make(map[int64]*transaction.Transaction),
		listeners:    make(map[int64]Listener),
		attempts:     make(map[int64][]ChargeAttempt),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *MockGateway) simulate(ctx context.Context) error {
	if g.latency > 0 {
		select {
		case <-time.After(g.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if g.failureRate > 0 && rand.Float64() < g.failureRate {
		return NewAPIError(503, "simulated gateway outage")
	}
	return nil
}

func (g *MockGateway) Create(ctx context.Context, spaceID int64, draft *transaction.Draft) (*transaction.Transaction, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	tx := &transaction.Transaction{
		SpaceID: spaceID,
		ID:      g.nextID,
		State:   transaction.StatePending,
		Version: 1,
		Draft:   *draft,
	}
	g.transactions[tx.ID] = tx
	out := *tx
	return &out, nil
}

func (g *MockGateway) Read(ctx context.Context, spaceID, id int64) (*transaction.Transaction, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	tx, ok := g.transactions[id]
	if !ok || tx.SpaceID != spaceID {
		return nil, domainErrors.ErrTransactionNotFound
	}
	out := *tx
	return &out, nil
}

func (g *MockGateway) Update(ctx context.Context, spaceID int64, pending *transaction.Pending) (*transaction.Transaction, error) {
	return g.mutate(ctx, spaceID, pending, transaction.StatePending)
}

func (g *MockGateway) Confirm(ctx context.Context, spaceID int64, pending *transaction.Pending) (*transaction.Transaction, error) {
	return g.mutate(ctx, spaceID, pending, transaction.StateConfirmed)
}

// mutate applies the full-record-with-expected-version contract: the
// submitted version must be exactly one ahead of the stored version.
func (g *MockGateway) mutate(ctx context.Context, spaceID int64, pending *transaction.Pending, newState transaction.State) (*transaction.Transaction, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	tx, ok := g.transactions[pending.ID]
	if !ok || tx.SpaceID != spaceID {
		return nil, domainErrors.ErrTransactionNotFound
	}
	if !tx.IsPending() {
		return nil, NewAPIError(422, fmt.Sprintf("transaction %d is %s", tx.ID, tx.State))
	}
	if pending.Version != tx.Version+1 {
		return nil, &ConflictError{
			TransactionID:   tx.ID,
			ExpectedVersion: pending.Version,
			ActualVersion:   tx.Version,
		}
	}

	tx.Draft = pending.Draft
	tx.Version = pending.Version
	tx.State = newState
	out := *tx
	return &out, nil
}

// SetState moves a transaction into a state out of band, the way a webhook
// writer would, bumping the version.
func (g *MockGateway) SetState(id int64, state transaction.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if tx, ok := g.transactions[id]; ok {
		tx.State = state
		tx.Version++
	}
}

func (g *MockGateway) FetchPossible(ctx context.Context, spaceID, transactionID int64, integration string) ([]method.Configuration, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.transactions[transactionID]; !ok {
		return nil, domainErrors.ErrTransactionNotFound
	}
	out := make([]method.Configuration, len(g.methods))
	copy(out, g.methods)
	return out, nil
}

func (g *MockGateway) JavascriptURL(ctx context.Context, spaceID, transactionID int64) (string, error) {
	if err := g.simulate(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://checkout.example.com/s/%d/js/%d", spaceID, transactionID), nil
}

func (g *MockGateway) PaymentPageURL(ctx context.Context, spaceID, transactionID int64) (string, error) {
	if err := g.simulate(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://checkout.example.com/s/%d/pay/%d", spaceID, transactionID), nil
}

// AddChargeAttempt records an attempt for SearchByTransaction to find.
func (g *MockGateway) AddChargeAttempt(a ChargeAttempt) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts[a.TransactionID] = append(g.attempts[a.TransactionID], a)
}

func (g *MockGateway) SearchByTransaction(ctx context.Context, spaceID, transactionID int64) ([]ChargeAttempt, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ChargeAttempt, len(g.attempts[transactionID]))
	copy(out, g.attempts[transactionID])
	return out, nil
}

func (g *MockGateway) ListActive(ctx context.Context, spaceID int64) ([]Listener, error) {
	if err := g.simulate(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Listener, 0, len(g.listeners))
	for _, l := range g.listeners {
		if l.Active {
			out = append(out, l)
		}
	}
	return out, nil
}

func (g *MockGateway) UpdateListener(ctx context.Context, spaceID int64, listener Listener) error {
	if err := g.simulate(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.listeners[listener.ID]; !ok {
		return NewAPIError(404, fmt.Sprintf("listener %d not found", listener.ID))
	}
	g.listeners[listener.ID] = listener
	return nil
}
