package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/customer"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/product"
)

type Catalog struct {
	db *sql.DB
}

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Get(ctx context.Context, id int64) (*product.Product, error) {
	var (
		p        product.Product
		category string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, description, value, available, category FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Value, &p.Available, &category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, product.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	p.Category = product.Category(category)
	return &p, nil
}

// Seed upserts products by id.
func (c *Catalog) Seed(ctx context.Context, products ...product.Product) error {
	return WithRetry(ctx, c.db, DefaultTxOptions(), func(tx *sql.Tx) error {
		for _, p := range products {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO products (id, name, description, value, available, category)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (id) DO UPDATE
				 SET name = EXCLUDED.name, description = EXCLUDED.description, value = EXCLUDED.value,
				     available = EXCLUDED.available, category = EXCLUDED.category`,
				p.ID, p.Name, p.Description, p.Value, p.Available, string(p.Category))
			if err != nil {
				return fmt.Errorf("seed product %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

type CustomerDirectory struct {
	db *sql.DB
}

func NewCustomerDirectory(db *sql.DB) *CustomerDirectory {
	return &CustomerDirectory{db: db}
}

func (d *CustomerDirectory) FindByCPF(ctx context.Context, cpf string) (*customer.Customer, error) {
	var c customer.Customer
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, email, cpf FROM customers WHERE cpf = $1`, cpf,
	).Scan(&c.ID, &c.Name, &c.Email, &c.CPF)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	return &c, nil
}

var ErrDuplicateCPF = errors.New("customer: cpf already registered")

func (d *CustomerDirectory) Insert(ctx context.Context, c customer.Customer) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO customers (id, name, email, cpf) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Email, c.CPF)
	if isUniqueViolation(err) {
		return ErrDuplicateCPF
	}
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}
