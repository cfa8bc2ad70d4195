package httppresentation

import (
	"time"

	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	domsolicitation "github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type itemResponse struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitValue   decimal.Decimal `json:"unit_value"`
	Quantity    int             `json:"quantity"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Observation string          `json:"observation,omitempty"`
}

type solicitationResponse struct {
	ID             int64           `json:"id"`
	Status         string          `json:"status"`
	Identification string          `json:"identification,omitempty"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	AnonymousID    *uuid.UUID      `json:"anonymous_id,omitempty"`
	Items          []itemResponse  `json:"items"`
	TotalValue     decimal.Decimal `json:"total_value"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toSolicitationResponse(s *domsolicitation.Solicitation) solicitationResponse {
	items := make([]itemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, itemResponse(it))
	}
	return solicitationResponse{
		ID:             s.ID,
		Status:         string(s.Status),
		Identification: string(s.Identification),
		CustomerID:     optionalUUID(s.CustomerID),
		AnonymousID:    optionalUUID(s.AnonymousID),
		Items:          items,
		TotalValue:     s.TotalValue,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type orderResponse struct {
	ID               int64           `json:"id"`
	SolicitationID   int64           `json:"solicitation_id"`
	Status           string          `json:"status"`
	PaymentStatus    string          `json:"payment_status"`
	Identification   string          `json:"identification"`
	CustomerID       *uuid.UUID      `json:"customer_id,omitempty"`
	AnonymousID      *uuid.UUID      `json:"anonymous_id,omitempty"`
	Items            []itemResponse  `json:"items"`
	TotalValue       decimal.Decimal `json:"total_value"`
	DispatchAttempts int             `json:"dispatch_attempts,omitempty"`
	DispatchFailure  string          `json:"dispatch_failure,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	items := make([]itemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemResponse(it))
	}
	return orderResponse{
		ID:               o.ID,
		SolicitationID:   o.SolicitationID,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		Identification:   string(o.Identification),
		CustomerID:       optionalUUID(o.CustomerID),
		AnonymousID:      optionalUUID(o.AnonymousID),
		Items:            items,
		TotalValue:       o.TotalValue,
		DispatchAttempts: o.DispatchAttempts,
		DispatchFailure:  o.DispatchFailure,
		CreatedAt:        o.CreatedAt,
		CompletedAt:      o.CompletedAt,
	}
}

func toOrderList(orders []*domorder.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

func optionalUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
