package kitchen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apporder "github.com/Zhima-Mochi/kiosk-orders/internal/application/order"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/httpclient"

	"github.com/google/uuid"
)

var ErrDispatchRejected = errors.New("kitchen rejected order")

type productPayload struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

type orderPayload struct {
	ID                      uuid.UUID        `json:"id"`
	Status                  string           `json:"status"`
	GenerateDate            time.Time        `json:"generateDate"`
	CustomerID              *uuid.UUID       `json:"customerId,omitempty"`
	AnonymousIdentification string           `json:"anonymousIdentification,omitempty"`
	Products                []productPayload `json:"products"`
}

// Client submits paid orders to the kitchen intake endpoint.
type Client struct {
	client *http.Client
	url    string
}

var _ apporder.KitchenDispatcher = (*Client)(nil)

func NewClient(client *http.Client, intakeURL string) *Client {
	return &Client{client: client, url: intakeURL}
}

func (c *Client) Dispatch(ctx context.Context, o apporder.KitchenOrder) error {
	payload := orderPayload{
		ID:                      o.ID,
		Status:                  o.Status,
		GenerateDate:            o.GenerateDate,
		CustomerID:              o.CustomerID,
		AnonymousIdentification: o.AnonymousIdentification,
		Products:                make([]productPayload, 0, len(o.Products)),
	}
	for _, p := range o.Products {
		payload.Products = append(payload.Products, productPayload(p))
	}

	// The kitchen id is derived from the order id, so a retried dispatch
	// carries the same key.
	header := http.Header{}
	header.Set("Idempotency-Key", o.ID.String())

	err := httpclient.PostJSON(ctx, c.client, c.url, payload, header)
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %s", ErrDispatchRejected, se.Reason)
	}
	if err != nil {
		return fmt.Errorf("dispatch to kitchen: %w", err)
	}
	return nil
}
