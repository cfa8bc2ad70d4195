package order

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// OrderRegisteredEvent is emitted once an order is stored. The payment worker
// reacts to it by requesting payment generation.
type OrderRegisteredEvent struct {
	OrderID        int64
	SolicitationID int64
	Amount         decimal.Decimal
	OccurredAt     time.Time
}

func (OrderRegisteredEvent) EventName() string       { return "order.registered" }
func (e OrderRegisteredEvent) PartitionKey() string  { return orderKey(e.OrderID) }
func (e OrderRegisteredEvent) OccurredOn() time.Time { return e.OccurredAt }

func NewOrderRegisteredEvent(o *Order) OrderRegisteredEvent {
	return OrderRegisteredEvent{
		OrderID:        o.ID,
		SolicitationID: o.SolicitationID,
		Amount:         o.TotalValue,
		OccurredAt:     time.Now().UTC(),
	}
}

type PaymentStatusChangedEvent struct {
	OrderID    int64
	PaymentID  string
	From       PaymentStatus
	To         PaymentStatus
	Forced     bool
	OccurredAt time.Time
}

func (PaymentStatusChangedEvent) EventName() string       { return "order.payment_status_changed" }
func (e PaymentStatusChangedEvent) PartitionKey() string  { return orderKey(e.OrderID) }
func (e PaymentStatusChangedEvent) OccurredOn() time.Time { return e.OccurredAt }

func NewPaymentStatusChangedEvent(o *Order, paymentID string, from PaymentStatus, forced bool) PaymentStatusChangedEvent {
	return PaymentStatusChangedEvent{
		OrderID:    o.ID,
		PaymentID:  paymentID,
		From:       from,
		To:         o.PaymentStatus,
		Forced:     forced,
		OccurredAt: time.Now().UTC(),
	}
}

type SentToKitchenEvent struct {
	OrderID    int64
	Attempts   int
	OccurredAt time.Time
}

func (SentToKitchenEvent) EventName() string       { return "order.sent_to_kitchen" }
func (e SentToKitchenEvent) PartitionKey() string  { return orderKey(e.OrderID) }
func (e SentToKitchenEvent) OccurredOn() time.Time { return e.OccurredAt }

func NewSentToKitchenEvent(o *Order) SentToKitchenEvent {
	return SentToKitchenEvent{
		OrderID:    o.ID,
		Attempts:   o.DispatchAttempts,
		OccurredAt: time.Now().UTC(),
	}
}

// KitchenDispatchFailedEvent is emitted when the kitchen rejects or cannot be
// reached. In two-phase mode the order stays DispatchPending.
type KitchenDispatchFailedEvent struct {
	OrderID    int64
	Reason     string
	Attempts   int
	OccurredAt time.Time
}

func (KitchenDispatchFailedEvent) EventName() string       { return "order.kitchen_dispatch_failed" }
func (e KitchenDispatchFailedEvent) PartitionKey() string  { return orderKey(e.OrderID) }
func (e KitchenDispatchFailedEvent) OccurredOn() time.Time { return e.OccurredAt }

func NewKitchenDispatchFailedEvent(o *Order, reason string) KitchenDispatchFailedEvent {
	return KitchenDispatchFailedEvent{
		OrderID:    o.ID,
		Reason:     reason,
		Attempts:   o.DispatchAttempts,
		OccurredAt: time.Now().UTC(),
	}
}

type StatusChangedEvent struct {
	OrderID    int64
	From       Status
	To         Status
	Forced     bool
	OccurredAt time.Time
}

func (StatusChangedEvent) EventName() string       { return "order.status_changed" }
func (e StatusChangedEvent) PartitionKey() string  { return orderKey(e.OrderID) }
func (e StatusChangedEvent) OccurredOn() time.Time { return e.OccurredAt }

func NewStatusChangedEvent(o *Order, from Status, forced bool) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:    o.ID,
		From:       from,
		To:         o.Status,
		Forced:     forced,
		OccurredAt: time.Now().UTC(),
	}
}

func orderKey(id int64) string { return strconv.FormatInt(id, 10) }
