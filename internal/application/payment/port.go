package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Request is what the gateway needs to open a payment for an order.
type Request struct {
	OrderID int64
	Amount  decimal.Decimal
}

// Gateway is an outbound port for the remote payment provider. The result of
// the payment arrives later through the payment-status webhook.
type Gateway interface {
	RequestPayment(ctx context.Context, req Request) error
}
