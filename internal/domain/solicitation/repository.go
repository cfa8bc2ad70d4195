package solicitation

import "context"

type Repository interface {
	// Insert stores a new solicitation and assigns its ID.
	Insert(ctx context.Context, s *Solicitation) error
	Get(ctx context.Context, id int64) (*Solicitation, error)
	Update(ctx context.Context, s *Solicitation) error
}
