package solicitation

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/product"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("order solicitation: not found")
	ErrAlreadyIdentified    = errors.New("order solicitation: already identified")
	ErrNotInIdentification  = errors.New("order solicitation: not in identification")
	ErrNotInProgress        = errors.New("order solicitation: not in progress")
	ErrItemNotFound         = errors.New("order solicitation: product not in solicitation")
	ErrCustomerIDRequired   = errors.New("order solicitation: customer id is required")
	ErrInvalidQuantity      = errors.New("order solicitation: quantity must be greater than zero")
	ErrEmpty                = errors.New("order solicitation: at least one item is required")
	ErrNegativeTotal        = errors.New("order solicitation: total value must be zero or greater")
	ErrInconsistentIdentity = errors.New("order solicitation: identification does not match identifier")
)

type Status string

const (
	StatusInIdentification Status = "InIdentification"
	StatusInProgress       Status = "InProgress"
	StatusFinished         Status = "Finished"
)

type Identification string

const (
	IdentificationNone      Identification = ""
	IdentificationAnonymous Identification = "Anonymous"
	IdentificationCPF       Identification = "CpfIdentification"
)

// Item is one cart line. Adding the same product twice yields two lines.
type Item struct {
	ProductID   int64
	ProductName string
	UnitValue   decimal.Decimal
	Quantity    int
	TotalValue  decimal.Decimal
	Observation string
}

type Solicitation struct {
	ID             int64
	Identification Identification
	CustomerID     uuid.UUID
	AnonymousID    uuid.UUID
	Items          []Item
	TotalValue     decimal.Decimal
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// New returns a cart waiting for identification. The repository assigns the ID.
func New() *Solicitation {
	now := time.Now().UTC()
	return &Solicitation{
		Status:     StatusInIdentification,
		TotalValue: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Solicitation) AssociateCustomer(customerID uuid.UUID) error {
	if customerID == uuid.Nil {
		return ErrCustomerIDRequired
	}
	if err := s.canIdentify(); err != nil {
		return err
	}
	s.Identification = IdentificationCPF
	s.CustomerID = customerID
	s.Status = StatusInProgress
	s.touch()
	return nil
}

func (s *Solicitation) AssociateAnonymous() error {
	if err := s.canIdentify(); err != nil {
		return err
	}
	s.Identification = IdentificationAnonymous
	s.AnonymousID = uuid.New()
	s.Status = StatusInProgress
	s.touch()
	return nil
}

func (s *Solicitation) canIdentify() error {
	if s.Identification != IdentificationNone {
		return ErrAlreadyIdentified
	}
	if s.Status != StatusInIdentification {
		return ErrNotInIdentification
	}
	return nil
}

// AddItem appends a new line for p. Lines are never merged.
func (s *Solicitation) AddItem(p product.Product, quantity int, observation string) error {
	if s.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !p.Available {
		return product.ErrUnavailable
	}
	s.Items = append(s.Items, Item{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitValue:   p.Value,
		Quantity:    quantity,
		TotalValue:  p.LineTotal(quantity),
		Observation: observation,
	})
	s.recalculate()
	return nil
}

// RemoveItem takes quantity units off the first line holding productID,
// dropping the line when nothing is left on it.
func (s *Solicitation) RemoveItem(productID int64, quantity int) error {
	if s.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	idx := -1
	for i, it := range s.Items {
		if it.ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrItemNotFound
	}

	line := &s.Items[idx]
	if quantity >= line.Quantity {
		s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
	} else {
		line.Quantity -= quantity
		line.TotalValue = line.UnitValue.Mul(decimal.NewFromInt(int64(line.Quantity)))
	}
	s.recalculate()
	return nil
}

// ReadyForConfirmation checks the rules a cart must meet before it becomes an order.
func (s *Solicitation) ReadyForConfirmation() error {
	if s.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if err := s.CheckIdentity(); err != nil {
		return err
	}
	if len(s.Items) == 0 {
		return ErrEmpty
	}
	if s.TotalValue.IsNegative() {
		return ErrNegativeTotal
	}
	return nil
}

// CheckIdentity reports whether the identification kind matches the populated identifier.
func (s *Solicitation) CheckIdentity() error {
	switch s.Identification {
	case IdentificationCPF:
		if s.CustomerID == uuid.Nil || s.AnonymousID != uuid.Nil {
			return ErrInconsistentIdentity
		}
	case IdentificationAnonymous:
		if s.AnonymousID == uuid.Nil || s.CustomerID != uuid.Nil {
			return ErrInconsistentIdentity
		}
	default:
		return ErrInconsistentIdentity
	}
	return nil
}

func (s *Solicitation) Finish() error {
	if s.Status != StatusInProgress {
		return ErrNotInProgress
	}
	s.Status = StatusFinished
	s.touch()
	return nil
}

// Clone returns a deep copy; the item slice is never shared.
func (s *Solicitation) Clone() *Solicitation {
	if s == nil {
		return nil
	}
	c := *s
	c.Items = append([]Item(nil), s.Items...)
	return &c
}

func (s *Solicitation) recalculate() {
	s.TotalValue = SumItems(s.Items)
	s.touch()
}

func (s *Solicitation) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// SumItems adds up the line totals.
func SumItems(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalValue)
	}
	return total
}
