package httppresentation

import (
	"net/http"

	appsolicitation "github.com/Zhima-Mochi/kiosk-orders/internal/application/solicitation"
)

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	sol, err := h.solicitations.Initiate(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSolicitationResponse(sol))
}

func (h *Handler) handleGetSolicitation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sol, err := h.solicitations.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSolicitationResponse(sol))
}

type identifyCustomerRequest struct {
	CPF string `json:"cpf"`
}

func (h *Handler) handleIdentifyCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req identifyCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sol, err := h.solicitations.IdentifyByCPF(r.Context(), id, req.CPF)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSolicitationResponse(sol))
}

func (h *Handler) handleAssociateAnonymous(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sol, err := h.solicitations.AssociateAnonymous(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSolicitationResponse(sol))
}

type addItemRequest struct {
	ProductID   int64  `json:"product_id"`
	Quantity    int    `json:"quantity"`
	Observation string `json:"observation"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sol, err := h.solicitations.AddItem(r.Context(), appsolicitation.AddItemInput{
		SolicitationID: id,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		Observation:    req.Observation,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSolicitationResponse(sol))
}

type removeItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req removeItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sol, err := h.solicitations.RemoveItem(r.Context(), appsolicitation.RemoveItemInput{
		SolicitationID: id,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSolicitationResponse(sol))
}

type confirmResponse struct {
	Order            orderResponse `json:"order"`
	PaymentRequested bool          `json:"payment_requested"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := h.orders.Confirm(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, confirmResponse{
		Order:            toOrderResponse(res.Order),
		PaymentRequested: res.PaymentRequested,
	})
}
