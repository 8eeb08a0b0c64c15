package postgres

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/order"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository implements order.Repository using PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *OrderRepository) scanOrder(s pgx.Row) (*order.Order, error) {
	o := &order.Order{}
	err := s.Scan(&o.ID, &o.CartID, &o.CustomerID, &o.CurrencyCode, &o.Reference, &o.TotalCents, &o.StatusID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT id, cart_id, customer_id, currency_code, reference, total_cents, status_id
		 FROM orders WHERE id = $1`, id))
}

func (r *OrderRepository) ListByCart(ctx context.Context, cartID int64) ([]*order.Order, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, cart_id, customer_id, currency_code, reference, total_cents, status_id
		 FROM orders WHERE cart_id = $1 ORDER BY id`, cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o := &order.Order{}
		if err := rows.Scan(&o.ID, &o.CartID, &o.CustomerID, &o.CurrencyCode, &o.Reference, &o.TotalCents, &o.StatusID); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID, statusID int64) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET status_id = $1 WHERE id = $2`, statusID, orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) Messages(ctx context.Context, orderID int64) ([]order.Message, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, order_id, body FROM order_messages WHERE order_id = $1 ORDER BY id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order messages: %w", err)
	}
	defer rows.Close()

	var messages []order.Message
	for rows.Next() {
		var m order.Message
		if err := rows.Scan(&m.ID, &m.OrderID, &m.Body); err != nil {
			return nil, fmt.Errorf("scan order message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// OrderStatusRepository implements order.StatusRepository using PostgreSQL.
type OrderStatusRepository struct {
	pool *pgxpool.Pool
}

// NewOrderStatusRepository creates a new OrderStatusRepository.
func NewOrderStatusRepository(pool *pgxpool.Pool) *OrderStatusRepository {
	return &OrderStatusRepository{pool: pool}
}

func (r *OrderStatusRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// EnsureDefaults creates the well-known gateway statuses if missing. The
// insert is keyed on the stable configuration key, so re-running is a no-op.
func (r *OrderStatusRepository) EnsureDefaults(ctx context.Context) error {
	for _, s := range order.Defaults() {
		_, err := r.db(ctx).Exec(ctx,
			`INSERT INTO order_statuses (key, name, paid)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (key) DO NOTHING`,
			string(s.Key), s.Name, s.Paid,
		)
		if err != nil {
			return fmt.Errorf("ensure order status %s: %w", s.Key, err)
		}
	}
	return nil
}

func (r *OrderStatusRepository) GetByKey(ctx context.Context, key order.StatusKey) (*order.Status, error) {
	s := &order.Status{}
	var k string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, key, name, paid FROM order_statuses WHERE key = $1`, string(key),
	).Scan(&s.ID, &k, &s.Name, &s.Paid)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.NewDomainError("not_found", fmt.Sprintf("order status %s", key), nil)
		}
		return nil, fmt.Errorf("query order status: %w", err)
	}
	s.Key = order.StatusKey(k)
	return s, nil
}
