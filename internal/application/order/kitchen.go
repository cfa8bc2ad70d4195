package order

import (
	"strconv"

	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/google/uuid"
)

// kitchenNamespace scopes the name-based UUIDs handed to the kitchen, so every
// attempt for the same order carries the same kitchen id.
var kitchenNamespace = uuid.MustParse("6f1c7f8e-3b0a-5d43-9a55-2c1f4f0d7a10")

// KitchenOrderID is the stable kitchen-facing id of an order.
func KitchenOrderID(orderID int64) uuid.UUID {
	return uuid.NewSHA1(kitchenNamespace, []byte(strconv.FormatInt(orderID, 10)))
}

// NewKitchenOrder builds the kitchen payload. Each product line gets a fresh id
// and carries the cart observation as its description.
func NewKitchenOrder(o *domorder.Order) KitchenOrder {
	ko := KitchenOrder{
		ID:           KitchenOrderID(o.ID),
		Status:       string(domorder.StatusReceived),
		GenerateDate: o.CreatedAt,
		Products:     make([]KitchenProduct, 0, len(o.Items)),
	}
	if o.CustomerID != uuid.Nil {
		id := o.CustomerID
		ko.CustomerID = &id
	}
	if o.AnonymousID != uuid.Nil {
		ko.AnonymousIdentification = o.AnonymousID.String()
	}
	for _, it := range o.Items {
		ko.Products = append(ko.Products, KitchenProduct{
			ID:          uuid.New(),
			Name:        it.ProductName,
			Description: it.Observation,
		})
	}
	return ko
}
