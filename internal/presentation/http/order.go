package httppresentation

import (
	"net/http"

	apporder "github.com/Zhima-Mochi/kiosk-orders/internal/application/order"
	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
)

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// handleListOrders serves GET /orders?status=X; without a status it returns the
// current board.
func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		h.handleListCurrentOrders(w, r)
		return
	}
	orders, err := h.orders.ListByStatus(r.Context(), domorder.Status(status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderList(orders))
}

func (h *Handler) handleListCurrentOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListCurrent(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderList(orders))
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Force  bool   `json:"force"`
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req changeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.orders.ChangeOrderStatus(r.Context(), id, domorder.Status(req.Status), req.Force)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleRetryDispatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := h.orders.RetryKitchenDispatch(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type correctPaymentRequest struct {
	PaymentID     string `json:"payment_id"`
	PaymentStatus string `json:"payment_status"`
	Force         bool   `json:"force"`
}

// handleCorrectPayment lets an operator set the payment status by hand. With
// force the payment transition table is bypassed. The order is not sent to the
// kitchen; use the kitchen-dispatch route for that.
func (h *Handler) handleCorrectPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req correctPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	applied, err := h.orders.ApplyPaymentStatus(r.Context(), apporder.ApplyPaymentInput{
		PaymentID: req.PaymentID,
		OrderID:   id,
		Status:    domorder.PaymentStatus(req.PaymentStatus),
		Force:     req.Force,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	o := applied.Order
	if o == nil {
		if o, err = h.orders.Get(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
