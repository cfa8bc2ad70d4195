package product

import "context"

type Catalog interface {
	Get(ctx context.Context, id int64) (*Product, error)
}
