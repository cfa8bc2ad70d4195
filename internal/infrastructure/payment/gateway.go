package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apppayment "github.com/Zhima-Mochi/kiosk-orders/internal/application/payment"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/httpclient"

	"github.com/shopspring/decimal"
)

var ErrRequestRejected = errors.New("payment request rejected")

type remittanceRequest struct {
	OrderID            int64           `json:"orderId"`
	Amount             decimal.Decimal `json:"amount"`
	WebhookCallbackURL string          `json:"webhookCallbackUrl"`
}

// Gateway calls the remote remittance-generation endpoint. One attempt, no retry.
type Gateway struct {
	client      *http.Client
	url         string
	callbackURL string
}

var _ apppayment.Gateway = (*Gateway)(nil)

func NewGateway(client *http.Client, remittanceURL, callbackURL string) *Gateway {
	return &Gateway{client: client, url: remittanceURL, callbackURL: callbackURL}
}

func (g *Gateway) RequestPayment(ctx context.Context, req apppayment.Request) error {
	err := httpclient.PostJSON(ctx, g.client, g.url, remittanceRequest{
		OrderID:            req.OrderID,
		Amount:             req.Amount,
		WebhookCallbackURL: g.callbackURL,
	}, nil)

	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %s", ErrRequestRejected, se.Reason)
	}
	if err != nil {
		return fmt.Errorf("request payment: %w", err)
	}
	return nil
}
