package order

import "errors"

var (
	ErrNoItems           = errors.New("order: at least one item is required")
	ErrNegativeTotal     = errors.New("order: total value must be zero or greater")
	ErrInvalidQuantity   = errors.New("order: item quantity must be at least 1")
	ErrNegativeItemTotal = errors.New("order: item total value must be zero or greater")
	ErrMissingIdentity   = errors.New("order: customer or anonymous identification is required")
)

// Validate applies the rules every registered order must satisfy. All failures
// are reported together; errors.Is matches each of them.
func Validate(o *Order) error {
	if o == nil {
		return ErrNoItems
	}
	var errs []error
	if len(o.Items) == 0 {
		errs = append(errs, ErrNoItems)
	}
	if o.TotalValue.IsNegative() {
		errs = append(errs, ErrNegativeTotal)
	}
	for _, it := range o.Items {
		if it.Quantity < 1 {
			errs = append(errs, ErrInvalidQuantity)
			break
		}
	}
	for _, it := range o.Items {
		if it.TotalValue.IsNegative() {
			errs = append(errs, ErrNegativeItemTotal)
			break
		}
	}
	if o.Identification == "" {
		errs = append(errs, ErrMissingIdentity)
	}
	return errors.Join(errs...)
}
