package order

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: concurrent modification")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrInvalidStatus          = errors.New("order: unknown order status")
	ErrInvalidPaymentStatus   = errors.New("order: unknown payment status")
	ErrAlreadySentToKitchen   = errors.New("order: already sent to kitchen")
	ErrNotPaid                = errors.New("order: must be paid before it is sent to kitchen")
	ErrNoDispatchPending      = errors.New("order: no kitchen dispatch pending")
	ErrDispatchInFlight       = errors.New("order: kitchen dispatch in flight")
)

// Item is the order's own copy of a cart line.
type Item struct {
	ProductID   int64
	ProductName string
	UnitValue   decimal.Decimal
	Quantity    int
	TotalValue  decimal.Decimal
	Observation string
}

type Order struct {
	ID             int64
	SolicitationID int64
	Identification solicitation.Identification
	CustomerID     uuid.UUID
	AnonymousID    uuid.UUID
	Items          []Item
	TotalValue     decimal.Decimal
	Status         Status
	PaymentStatus  PaymentStatus

	DispatchAttempts int
	DispatchFailure  string
	// DispatchStartedAt is set while a kitchen call is outstanding and
	// cleared once its outcome is recorded.
	DispatchStartedAt *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	// Version is bumped by the repository on every update.
	Version int
}

// NewFromSolicitation snapshots a cart into an Emitted, NotPayed order.
// The returned order owns a fresh copy of the items.
func NewFromSolicitation(s *solicitation.Solicitation) (*Order, error) {
	if s == nil {
		return nil, ErrNoItems
	}
	items := make([]Item, len(s.Items))
	for i, it := range s.Items {
		items[i] = Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitValue:   it.UnitValue,
			Quantity:    it.Quantity,
			TotalValue:  it.TotalValue,
			Observation: it.Observation,
		}
	}

	now := time.Now().UTC()
	o := &Order{
		SolicitationID: s.ID,
		Identification: s.Identification,
		CustomerID:     s.CustomerID,
		AnonymousID:    s.AnonymousID,
		Items:          items,
		TotalValue:     s.TotalValue,
		Status:         StatusEmitted,
		PaymentStatus:  PaymentNotPayed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := Validate(o); err != nil {
		return nil, err
	}
	return o, nil
}

// ApplyPayment moves the payment status along the payment table. Unless force is
// set, leaving Payed or jumping to an unknown value is rejected. It reports
// whether anything changed.
func (o *Order) ApplyPayment(next PaymentStatus, force bool) (bool, error) {
	if !next.Valid() {
		return false, ErrInvalidPaymentStatus
	}
	if o.PaymentStatus == next {
		return false, nil
	}
	if !force && !o.PaymentStatus.CanTransitionTo(next) {
		return false, ErrInvalidStateTransition
	}
	o.PaymentStatus = next
	o.touch()
	return true, nil
}

// BeginKitchenDispatch marks a paid, emitted order as handed to the kitchen but not yet confirmed.
func (o *Order) BeginKitchenDispatch() error {
	if o.Status != StatusEmitted {
		return ErrAlreadySentToKitchen
	}
	if o.PaymentStatus != PaymentPayed {
		return ErrNotPaid
	}
	o.Status = StatusDispatchPending
	o.DispatchAttempts++
	o.DispatchFailure = ""
	o.touch()
	o.startDispatch(o.UpdatedAt)
	return nil
}

// RetryKitchenDispatch counts another attempt for an order stuck in DispatchPending.
// An attempt that started less than lease before now is still considered in
// flight and is left alone.
func (o *Order) RetryKitchenDispatch(now time.Time, lease time.Duration) error {
	if o.Status != StatusDispatchPending {
		return ErrNoDispatchPending
	}
	if o.DispatchStartedAt != nil && now.Sub(*o.DispatchStartedAt) < lease {
		return ErrDispatchInFlight
	}
	o.DispatchAttempts++
	o.touch()
	o.startDispatch(now.UTC())
	return nil
}

func (o *Order) KitchenDispatchFailed(reason string) {
	o.DispatchFailure = reason
	o.DispatchStartedAt = nil
	o.touch()
}

func (o *Order) startDispatch(at time.Time) {
	o.DispatchStartedAt = &at
}

// ConfirmKitchenDispatch moves the order to Received. Emitted is accepted for the
// commit-first dispatch mode, where the status is stored before the kitchen call.
func (o *Order) ConfirmKitchenDispatch() error {
	switch o.Status {
	case StatusDispatchPending:
	case StatusEmitted:
		if o.PaymentStatus != PaymentPayed {
			return ErrNotPaid
		}
		o.DispatchAttempts++
	default:
		return ErrAlreadySentToKitchen
	}
	o.Status = StatusReceived
	o.DispatchFailure = ""
	o.DispatchStartedAt = nil
	o.touch()
	return nil
}

// ChangeStatus advances the kitchen progression Received -> InProgress -> Ready -> Finished.
// With force any known status is accepted.
func (o *Order) ChangeStatus(next Status, force bool) error {
	if !next.Valid() {
		return ErrInvalidStatus
	}
	if o.Status == next {
		return nil
	}
	if !force && !o.Status.CanAdvanceTo(next) {
		return ErrInvalidStateTransition
	}
	o.Status = next
	o.touch()
	if next == StatusFinished {
		done := o.UpdatedAt
		o.CompletedAt = &done
	} else {
		o.CompletedAt = nil
	}
	if next != StatusDispatchPending {
		o.DispatchStartedAt = nil
	}
	return nil
}

// Clone returns a deep copy safe to hand across repository boundaries.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	if o.DispatchStartedAt != nil {
		t := *o.DispatchStartedAt
		c.DispatchStartedAt = &t
	}
	return &c
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
