package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	domain "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[int64]*domain.Order),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order repository: order is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order.ID = r.nextID
	order.Version = 1
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

// Update stores order if its Version matches the stored one, then bumps the
// version on both copies.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if order == nil || order.ID == 0 {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.orders[order.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if current.Version != order.Version {
		return domain.ErrConflict
	}
	order.Version++
	r.orders[order.ID] = order.Clone()
	return nil
}

// ListByStatus returns matching orders by ascending ID.
func (r *OrderRepository) ListByStatus(ctx context.Context, statuses ...domain.Status) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if slices.Contains(statuses, o.Status) {
			out = append(out, o.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.Order) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}
