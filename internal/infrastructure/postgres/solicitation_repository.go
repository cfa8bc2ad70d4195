package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"

	"github.com/google/uuid"
)

type SolicitationRepository struct {
	db *sql.DB
}

func NewSolicitationRepository(db *sql.DB) *SolicitationRepository {
	return &SolicitationRepository{db: db}
}

func (r *SolicitationRepository) Insert(ctx context.Context, s *domain.Solicitation) error {
	items, err := encodeItems(s.Items, fromSolicitationItem)
	if err != nil {
		return err
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO order_solicitations (identification, customer_id, anonymous_id, items,
		     total_value, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		string(s.Identification), nullUUID(s.CustomerID), nullUUID(s.AnonymousID), items,
		s.TotalValue, string(s.Status), s.CreatedAt, s.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert solicitation: %w", err)
	}
	s.ID = id
	return nil
}

func (r *SolicitationRepository) Get(ctx context.Context, id int64) (*domain.Solicitation, error) {
	var (
		s                       domain.Solicitation
		identification, status  string
		customerID, anonymousID uuid.NullUUID
		items                   []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identification, customer_id, anonymous_id, items, total_value, status, created_at, updated_at
		 FROM order_solicitations WHERE id = $1`, id,
	).Scan(&s.ID, &identification, &customerID, &anonymousID, &items, &s.TotalValue, &status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get solicitation %d: %w", id, err)
	}
	if s.Items, err = decodeItems(items, toSolicitationItem); err != nil {
		return nil, err
	}
	s.Identification = domain.Identification(identification)
	s.Status = domain.Status(status)
	s.CustomerID = customerID.UUID
	s.AnonymousID = anonymousID.UUID
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func (r *SolicitationRepository) Update(ctx context.Context, s *domain.Solicitation) error {
	items, err := encodeItems(s.Items, fromSolicitationItem)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE order_solicitations
		 SET identification = $1, customer_id = $2, anonymous_id = $3, items = $4,
		     total_value = $5, status = $6, updated_at = $7
		 WHERE id = $8`,
		string(s.Identification), nullUUID(s.CustomerID), nullUUID(s.AnonymousID), items,
		s.TotalValue, string(s.Status), s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update solicitation %d: %w", s.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
