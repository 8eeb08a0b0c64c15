package order

import "context"

// Repository accesses the host platform's orders.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	// ListByCart returns every order that shares the cart, and therefore the
	// same remote transaction.
	ListByCart(ctx context.Context, cartID int64) ([]*Order, error)
	UpdateStatus(ctx context.Context, orderID, statusID int64) error
	Messages(ctx context.Context, orderID int64) ([]Message, error)
}

// StatusRepository manages the platform order statuses the gateway drives.
type StatusRepository interface {
	// EnsureDefaults creates the well-known statuses once per installation;
	// re-running it is a no-op.
	EnsureDefaults(ctx context.Context) error
	GetByKey(ctx context.Context, key StatusKey) (*Status, error)
}
