package postgres

import (
	"context"
	"fmt"

	"github.com/cassiomorais/checkout-gateway/internal/domain/cart"
	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CartRepository implements cart.Repository using PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository creates a new CartRepository.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

func (r *CartRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// GetByID loads a cart with its line items.
func (r *CartRepository) GetByID(ctx context.Context, id int64) (*cart.Cart, error) {
	c := &cart.Cart{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, currency_code, language_code, customer_id, billing_address_id,
		        shipping_address_id, carrier_id, shipping_cents, discount_cents
		 FROM carts WHERE id = $1`, id,
	).Scan(&c.ID, &c.CurrencyCode, &c.LanguageCode, &c.CustomerID, &c.BillingAddressID,
		&c.ShippingAddressID, &c.CarrierID, &c.ShippingCents, &c.DiscountCents)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrCartNotFound
		}
		return nil, fmt.Errorf("query cart: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx,
		`SELECT product_id, sku, name, quantity, total_cents
		 FROM cart_items WHERE cart_id = $1 ORDER BY product_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it cart.Item
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.Quantity, &it.TotalCents); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}
