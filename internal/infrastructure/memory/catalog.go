package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/customer"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/product"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Catalog struct {
	mu       sync.RWMutex
	products map[int64]product.Product
}

func NewCatalog(products ...product.Product) *Catalog {
	c := &Catalog{products: make(map[int64]product.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *Catalog) Get(ctx context.Context, id int64) (*product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (c *Catalog) Save(ctx context.Context, p product.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.products[p.ID] = p
	return nil
}

// DefaultProducts is the menu loaded when no database is configured.
func DefaultProducts() []product.Product {
	return []product.Product{
		{ID: 1, Name: "X-Burger", Description: "Beef burger with cheese", Value: decimal.RequireFromString("18.90"), Available: true, Category: product.CategorySnack},
		{ID: 2, Name: "X-Salad", Description: "Beef burger with cheese, lettuce and tomato", Value: decimal.RequireFromString("21.50"), Available: true, Category: product.CategorySnack},
		{ID: 3, Name: "French Fries", Description: "Medium portion", Value: decimal.RequireFromString("9.90"), Available: true, Category: product.CategorySide},
		{ID: 4, Name: "Soda", Description: "350ml can", Value: decimal.RequireFromString("6.00"), Available: true, Category: product.CategoryDrink},
		{ID: 5, Name: "Orange Juice", Description: "500ml", Value: decimal.RequireFromString("8.50"), Available: true, Category: product.CategoryDrink},
		{ID: 6, Name: "Brownie", Description: "Chocolate brownie", Value: decimal.RequireFromString("7.00"), Available: true, Category: product.CategoryDessert},
		{ID: 7, Name: "Milkshake", Description: "Seasonal flavour", Value: decimal.RequireFromString("14.00"), Available: false, Category: product.CategoryDessert},
	}
}

type CustomerDirectory struct {
	mu    sync.RWMutex
	byCPF map[string]customer.Customer
}

func NewCustomerDirectory(customers ...customer.Customer) *CustomerDirectory {
	d := &CustomerDirectory{byCPF: make(map[string]customer.Customer, len(customers))}
	for _, c := range customers {
		d.byCPF[c.CPF] = c
	}
	return d
}

func (d *CustomerDirectory) FindByCPF(ctx context.Context, cpf string) (*customer.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.byCPF[cpf]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

func (d *CustomerDirectory) Save(ctx context.Context, c customer.Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.byCPF[c.CPF] = c
	return nil
}
