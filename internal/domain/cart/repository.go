package cart

import "context"

// Repository loads carts from the host platform's persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Cart, error)
}
