package payment

import (
	"context"

	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/kiosk-orders/internal/domain/outbox"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	workerpresentation "github.com/Zhima-Mochi/kiosk-orders/internal/presentation/worker"
)

const paymentWorker = "payment_worker"

// Worker requests payment generation for every registered order. Registration
// never waits for it: a gateway failure is logged and the order stays NotPayed.
type Worker struct {
	subscriber domoutbox.Subscriber
	requester  *RequestPaymentUseCase
	log        observability.Logger
}

func NewWorker(
	subscriber domoutbox.Subscriber,
	requester *RequestPaymentUseCase,
	tel observability.Observability,
) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		requester:  requester,
		log:        tel.Logger().With(observability.F("component", paymentWorker)),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.requester == nil {
		return
	}
	w.subscriber.Subscribe(domorder.OrderRegisteredEvent{}.EventName(), w.handleOrderRegistered)
}

func (w *Worker) handleOrderRegistered(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderRegisteredEvent)
	if !ok {
		return nil
	}
	ctx = workerpresentation.WithEventContext(ctx, w.log, workerpresentation.Event{
		Name:    e.EventName(),
		OrderID: evt.OrderID,
	})

	if _, err := w.requester.Execute(ctx, RequestPaymentInput{OrderID: evt.OrderID, Amount: evt.Amount}); err != nil {
		w.log.Warn("payment_request_failed",
			observability.F("order_id", evt.OrderID),
			observability.F("error", err.Error()),
		)
		return err
	}
	return nil
}
