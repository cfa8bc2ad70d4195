package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const orderColumns = `id, solicitation_id, identification, customer_id, anonymous_id, items,
	total_value, status, payment_status, dispatch_attempts, dispatch_failure,
	dispatch_started_at, created_at, updated_at, completed_at, version`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	items, err := encodeItems(o.Items, fromOrderItem)
	if err != nil {
		return err
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO orders (solicitation_id, identification, customer_id, anonymous_id, items,
		     total_value, status, payment_status, dispatch_attempts, dispatch_failure,
		     dispatch_started_at, created_at, updated_at, completed_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
		 RETURNING id`,
		o.SolicitationID, string(o.Identification), nullUUID(o.CustomerID), nullUUID(o.AnonymousID), items,
		o.TotalValue, string(o.Status), string(o.PaymentStatus), o.DispatchAttempts, o.DispatchFailure,
		o.DispatchStartedAt, o.CreatedAt, o.UpdatedAt, o.CompletedAt,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	o.ID = id
	o.Version = 1
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// Update writes o only if the stored version still equals o.Version. The
// version on o is bumped once the transaction has committed.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	items, err := encodeItems(o.Items, fromOrderItem)
	if err != nil {
		return err
	}

	err = WithRetry(ctx, r.db, DefaultTxOptions(), func(tx *sql.Tx) error {
		return updateOrder(ctx, tx, o, items)
	})
	if err != nil {
		return err
	}
	o.Version++
	return nil
}

// updateOrder runs the versioned UPDATE without touching o, so a retried
// transaction still matches on the version that was read.
func updateOrder(ctx context.Context, tx *sql.Tx, o *domain.Order, items []byte) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE orders
		 SET items = $1, total_value = $2, status = $3, payment_status = $4,
		     dispatch_attempts = $5, dispatch_failure = $6, dispatch_started_at = $7,
		     updated_at = $8, completed_at = $9, version = version + 1
		 WHERE id = $10 AND version = $11`,
		items, o.TotalValue, string(o.Status), string(o.PaymentStatus),
		o.DispatchAttempts, o.DispatchFailure, o.DispatchStartedAt,
		o.UpdatedAt, o.CompletedAt, o.ID, o.Version,
	)
	if err != nil {
		return fmt.Errorf("update order %d: %w", o.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func (r *OrderRepository) ListByStatus(ctx context.Context, statuses ...domain.Status) ([]*domain.Order, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = ANY($1) ORDER BY id`,
		pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                       domain.Order
		identification          string
		status, paymentStatus   string
		customerID, anonymousID uuid.NullUUID
		items                   []byte
		completedAt             sql.NullTime
		dispatchStartedAt       sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.SolicitationID, &identification, &customerID, &anonymousID, &items,
		&o.TotalValue, &status, &paymentStatus, &o.DispatchAttempts, &o.DispatchFailure,
		&dispatchStartedAt, &o.CreatedAt, &o.UpdatedAt, &completedAt, &o.Version,
	)
	if err != nil {
		return nil, err
	}
	if o.Items, err = decodeItems(items, toOrderItem); err != nil {
		return nil, err
	}
	o.Identification = solicitation.Identification(identification)
	o.Status = domain.Status(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.CustomerID = customerID.UUID
	o.AnonymousID = anonymousID.UUID
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		o.CompletedAt = &t
	}
	if dispatchStartedAt.Valid {
		t := dispatchStartedAt.Time.UTC()
		o.DispatchStartedAt = &t
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}
