package product

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("product: not found")
	ErrUnavailable = errors.New("product: not available")
)

type Category string

const (
	CategorySnack   Category = "snack"
	CategoryDrink   Category = "drink"
	CategorySide    Category = "side"
	CategoryDessert Category = "dessert"
)

// Product is catalog reference data. Carts and orders hold a copy taken at add time.
type Product struct {
	ID          int64
	Name        string
	Description string
	Value       decimal.Decimal
	Available   bool
	Category    Category
}

// LineTotal returns quantity x unit value.
func (p Product) LineTotal(quantity int) decimal.Decimal {
	return p.Value.Mul(decimal.NewFromInt(int64(quantity)))
}
