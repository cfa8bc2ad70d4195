package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"
)

type SolicitationRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*domain.Solicitation
}

func NewSolicitationRepository() *SolicitationRepository {
	return &SolicitationRepository{
		items: make(map[int64]*domain.Solicitation),
	}
}

func (r *SolicitationRepository) Insert(ctx context.Context, s *domain.Solicitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("solicitation repository: solicitation is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	s.ID = r.nextID
	r.items[s.ID] = s.Clone()
	return nil
}

func (r *SolicitationRepository) Get(ctx context.Context, id int64) (*domain.Solicitation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *SolicitationRepository) Update(ctx context.Context, s *domain.Solicitation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.ID == 0 {
		return fmt.Errorf("solicitation repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[s.ID]; !ok {
		return domain.ErrNotFound
	}
	r.items[s.ID] = s.Clone()
	return nil
}
