package order

import (
	"context"
	"time"

	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/google/uuid"
)

// KitchenDispatcher hands a paid order to food preparation. A nil error means
// the kitchen acknowledged the order.
type KitchenDispatcher interface {
	Dispatch(ctx context.Context, order KitchenOrder) error
}

// SolicitationConfirmer turns a finished cart into an order draft.
type SolicitationConfirmer interface {
	ConfirmToOrder(ctx context.Context, solicitationID int64) (*domorder.Order, error)
}

type KitchenOrder struct {
	ID                      uuid.UUID
	Status                  string
	GenerateDate            time.Time
	CustomerID              *uuid.UUID
	AnonymousIdentification string
	Products                []KitchenProduct
}

type KitchenProduct struct {
	ID          uuid.UUID
	Name        string
	Description string
}
