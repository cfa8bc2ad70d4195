package order

import "context"

type Repository interface {
	// Insert stores a new order, assigning its ID and initial version.
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	// Update fails with ErrConflict when order.Version is stale.
	Update(ctx context.Context, order *Order) error
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Order, error)
}
