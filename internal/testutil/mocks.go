package testutil

import (
	"context"
	"sync"

	"github.com/cassiomorais/checkout-gateway/internal/domain/cart"
	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/cassiomorais/checkout-gateway/internal/domain/platform"
)

// --- Cart Repository Mock ---

// MockCartRepository is a mock implementation of cart.Repository.
type MockCartRepository struct {
	mu    sync.Mutex
	carts map[int64]*cart.Cart

	GetByIDFunc func(ctx context.Context, id int64) (*cart.Cart, error)
}

func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{carts: make(map[int64]*cart.Cart)}
}

// AddCart pre-populates the mock with a cart.
func (m *MockCartRepository) AddCart(c *cart.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.ID] = c
}

func (m *MockCartRepository) GetByID(ctx context.Context, id int64) (*cart.Cart, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return nil, domainErrors.ErrCartNotFound
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp, nil
}

// --- Order Repository Mock ---

// MockOrderRepository is a mock implementation of order.Repository.
type MockOrderRepository struct {
	mu       sync.Mutex
	orders   map[int64]*order.Order
	messages map[int64][]order.Message

	GetByIDFunc      func(ctx context.Context, id int64) (*order.Order, error)
	ListByCartFunc   func(ctx context.Context, cartID int64) ([]*order.Order, error)
	UpdateStatusFunc func(ctx context.Context, orderID, statusID int64) error
	MessagesFunc     func(ctx context.Context, orderID int64) ([]order.Message, error)
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:   make(map[int64]*order.Order),
		messages: make(map[int64][]order.Message),
	}
}

// AddOrder pre-populates the mock with an order.
func (m *MockOrderRepository) AddOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

// AddMessage pre-populates the mock with an order message.
func (m *MockOrderRepository) AddMessage(orderID int64, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[orderID] = append(m.messages[orderID], order.Message{
		ID:      int64(len(m.messages[orderID]) + 1),
		OrderID: orderID,
		Body:    body,
	})
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) ListByCart(ctx context.Context, cartID int64) ([]*order.Order, error) {
	if m.ListByCartFunc != nil {
		return m.ListByCartFunc(ctx, cartID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*order.Order
	for _, o := range m.orders {
		if o.CartID == cartID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, orderID, statusID int64) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, orderID, statusID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domainErrors.ErrOrderNotFound
	}
	o.StatusID = statusID
	return nil
}

func (m *MockOrderRepository) Messages(ctx context.Context, orderID int64) ([]order.Message, error) {
	if m.MessagesFunc != nil {
		return m.MessagesFunc(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]order.Message(nil), m.messages[orderID]...), nil
}

// StatusOf returns the stored status id (test helper, no context needed).
func (m *MockOrderRepository) StatusOf(orderID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		return o.StatusID
	}
	return 0
}

// --- Order Status Repository Mock ---

// MockStatusRepository is a mock implementation of order.StatusRepository
// pre-seeded with the default statuses, ids assigned in Defaults() order.
type MockStatusRepository struct {
	mu       sync.Mutex
	statuses map[order.StatusKey]*order.Status

	EnsureDefaultsFunc func(ctx context.Context) error
	GetByKeyFunc       func(ctx context.Context, key order.StatusKey) (*order.Status, error)
}

func NewMockStatusRepository() *MockStatusRepository {
	m := &MockStatusRepository{statuses: make(map[order.StatusKey]*order.Status)}
	for i, s := range order.Defaults() {
		st := s
		st.ID = int64(i + 1)
		m.statuses[st.Key] = &st
	}
	return m
}

func (m *MockStatusRepository) EnsureDefaults(ctx context.Context) error {
	if m.EnsureDefaultsFunc != nil {
		return m.EnsureDefaultsFunc(ctx)
	}
	return nil
}

func (m *MockStatusRepository) GetByKey(ctx context.Context, key order.StatusKey) (*order.Status, error) {
	if m.GetByKeyFunc != nil {
		return m.GetByKeyFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[key]
	if !ok {
		return nil, domainErrors.NewDomainError("not_found", string(key), nil)
	}
	cp := *s
	return &cp, nil
}

// IDFor returns the seeded id of a status key (test helper).
func (m *MockStatusRepository) IDFor(key order.StatusKey) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.statuses[key]; ok {
		return s.ID
	}
	return 0
}

// --- Entity Resolver Mock ---

// MockEntityResolver is a mock implementation of platform.EntityResolver.
type MockEntityResolver struct {
	mu        sync.Mutex
	customers map[int64]*platform.Customer
	addresses map[int64]*platform.Address
	countries map[int64]*platform.Country
	states    map[int64]*platform.State
	carriers  map[int64]*platform.Carrier

	CustomerFunc func(ctx context.Context, id int64) (*platform.Customer, error)
	AddressFunc  func(ctx context.Context, id int64) (*platform.Address, error)
	CountryFunc  func(ctx context.Context, id int64) (*platform.Country, error)
	StateFunc    func(ctx context.Context, id int64) (*platform.State, error)
	CarrierFunc  func(ctx context.Context, id int64) (*platform.Carrier, error)
}

func NewMockEntityResolver() *MockEntityResolver {
	return &MockEntityResolver{
		customers: make(map[int64]*platform.Customer),
		addresses: make(map[int64]*platform.Address),
		countries: make(map[int64]*platform.Country),
		states:    make(map[int64]*platform.State),
		carriers:  make(map[int64]*platform.Carrier),
	}
}

func (m *MockEntityResolver) AddCustomer(c *platform.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
}

func (m *MockEntityResolver) AddAddress(a *platform.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[a.ID] = a
}

func (m *MockEntityResolver) AddCountry(c *platform.Country) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countries[c.ID] = c
}

func (m *MockEntityResolver) AddState(s *platform.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.ID] = s
}

func (m *MockEntityResolver) AddCarrier(c *platform.Carrier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carriers[c.ID] = c
}

func (m *MockEntityResolver) Customer(ctx context.Context, id int64) (*platform.Customer, error) {
	if m.CustomerFunc != nil {
		return m.CustomerFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, domainErrors.NewDomainError("not_found", "customer", nil)
	}
	return c, nil
}

func (m *MockEntityResolver) Address(ctx context.Context, id int64) (*platform.Address, error) {
	if m.AddressFunc != nil {
		return m.AddressFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addresses[id]
	if !ok {
		return nil, domainErrors.NewDomainError("not_found", "address", nil)
	}
	return a, nil
}

func (m *MockEntityResolver) Country(ctx context.Context, id int64) (*platform.Country, error) {
	if m.CountryFunc != nil {
		return m.CountryFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.countries[id]
	if !ok {
		return nil, domainErrors.NewDomainError("not_found", "country", nil)
	}
	return c, nil
}

func (m *MockEntityResolver) State(ctx context.Context, id int64) (*platform.State, error) {
	if m.StateFunc != nil {
		return m.StateFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	if !ok {
		return nil, domainErrors.NewDomainError("not_found", "state", nil)
	}
	return s, nil
}

func (m *MockEntityResolver) Carrier(ctx context.Context, id int64) (*platform.Carrier, error) {
	if m.CarrierFunc != nil {
		return m.CarrierFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carriers[id]
	if !ok {
		return nil, domainErrors.NewDomainError("not_found", "carrier", nil)
	}
	return c, nil
}

// --- Transactor Mock ---

// MockTransactor runs the function directly, without a database transaction.
type MockTransactor struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactor() *MockTransactor {
	return &MockTransactor{}
}

func (m *MockTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}
