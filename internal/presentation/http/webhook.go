package httppresentation

import (
	"errors"
	"net/http"

	apporder "github.com/Zhima-Mochi/kiosk-orders/internal/application/order"
	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability/logctx"
)

// paymentStatusRequest is the gateway's callback body.
type paymentStatusRequest struct {
	PaymentID     string `json:"paymentId"`
	OrderID       int64  `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
}

type paymentStatusResponse struct {
	OrderID       int64  `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
	Status        string `json:"status,omitempty"`
}

// handlePaymentStatus applies the callback and, for Payed, dispatches the order
// to the kitchen before answering. A repeated Payed delivery for an order that
// already left Emitted is acknowledged. Callbacks always follow the payment
// transition table.
func (h *Handler) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req paymentStatusRequest
	if err := decodeCallback(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := logctx.Enrich(r.Context(), h.log,
		observability.F("order_id", req.OrderID),
		observability.F("payment_id", req.PaymentID),
	)
	status := domorder.PaymentStatus(req.PaymentStatus)

	applied, err := h.orders.ApplyPaymentStatus(ctx, apporder.ApplyPaymentInput{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Status:    status,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := paymentStatusResponse{OrderID: req.OrderID, PaymentStatus: string(status)}
	if applied.Order != nil {
		resp.Status = string(applied.Order.Status)
	}
	if status != domorder.PaymentPayed {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	o, err := h.orders.SendToKitchenQueue(ctx, req.OrderID)
	switch {
	case err == nil:
		resp.Status = string(o.Status)
	case errors.Is(err, domorder.ErrAlreadySentToKitchen):
		logctx.FromOr(ctx, h.log).Info("payment_status_duplicate_delivery")
	default:
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
