package httppresentation

import (
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/kiosk-orders/internal/application"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/customer"
	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/product"
	domsolicitation "github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"
)

var notFoundErrors = []error{
	domorder.ErrNotFound,
	domsolicitation.ErrNotFound,
	domsolicitation.ErrItemNotFound,
	product.ErrNotFound,
	customer.ErrNotFound,
}

var conflictErrors = []error{
	domorder.ErrConflict,
	domorder.ErrInvalidStateTransition,
	domorder.ErrAlreadySentToKitchen,
	domorder.ErrNotPaid,
	domorder.ErrNoDispatchPending,
	domorder.ErrDispatchInFlight,
	domsolicitation.ErrAlreadyIdentified,
	domsolicitation.ErrNotInIdentification,
	domsolicitation.ErrNotInProgress,
	domsolicitation.ErrInconsistentIdentity,
	product.ErrUnavailable,
}

// statusFor maps an error kind onto an HTTP status. Validation wins over the
// wrapped domain error it may carry.
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrUpstream):
		return http.StatusBadGateway
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}
