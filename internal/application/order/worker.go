package order

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/kiosk-orders/internal/application"
	domain "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	workerpresentation "github.com/Zhima-Mochi/kiosk-orders/internal/presentation/worker"

	"go.opentelemetry.io/otel/attribute"
)

const (
	reconcilerService     = "dispatch-reconciler"
	useCaseReconcile      = "order.reconcile_kitchen_dispatch"
	defaultReconcileEvery = 30 * time.Second
)

// Retrier re-issues the kitchen call of one pending order.
type Retrier interface {
	RetryKitchenDispatch(ctx context.Context, orderID int64) (*domain.Order, error)
}

// DispatchReconciler periodically retries kitchen dispatches that were left in
// DispatchPending by a failed or interrupted call.
type DispatchReconciler struct {
	repo     domain.Repository
	retrier  Retrier
	interval time.Duration

	ins     application.Instruments
	retries observability.Counter // kitchen_dispatch_retries_total{outcome}
	backlog observability.Gauge   // kitchen_dispatch_pending_orders
}

func NewDispatchReconciler(
	repo domain.Repository,
	retrier Retrier,
	interval time.Duration,
	tel observability.Observability,
) *DispatchReconciler {
	if interval <= 0 {
		interval = defaultReconcileEvery
	}
	if tel == nil {
		tel = observability.Nop()
	}
	ins := application.NewInstruments(tel, reconcilerService)
	return &DispatchReconciler{
		repo:     repo,
		retrier:  retrier,
		interval: interval,
		ins:      ins,
		retries:  ins.Metrics.Counter(observability.MKitchenDispatchRetries),
		backlog:  ins.Metrics.Gauge(observability.MKitchenDispatchPending),
	}
}

// Run sweeps until ctx is canceled.
func (r *DispatchReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.Sweep(ctx)
		}
	}
}

// Sweep retries every order currently in DispatchPending whose dispatch lease
// has run out and reports how many reached the kitchen.
func (r *DispatchReconciler) Sweep(ctx context.Context) (recovered int, err error) {
	ctx, run := r.ins.Start(ctx, useCaseReconcile, "ReconcileKitchenDispatch")
	defer func() { run.End(err) }()

	pending, err := r.repo.ListByStatus(ctx, domain.StatusDispatchPending)
	if err != nil {
		run.Fail("ORDER_LIST_FAILED")
		return 0, wrapRepositoryError(err)
	}
	run.Note("pending", len(pending))
	r.backlog.Set(float64(len(pending)))
	run.Span().SetAttributes(attribute.Int("orders.pending", len(pending)))

	for _, o := range pending {
		if ctx.Err() != nil {
			break
		}
		octx := workerpresentation.WithEventContext(ctx, run.Logger(), workerpresentation.Event{
			UseCase: useCaseReconcile,
			OrderID: o.ID,
		})

		_, rerr := r.retrier.RetryKitchenDispatch(octx, o.ID)
		switch {
		case rerr == nil:
			recovered++
			r.retries.Add(1, observability.L("outcome", "success"))
		case errors.Is(rerr, domain.ErrNoDispatchPending):
			// settled by a concurrent dispatch since the listing
			r.retries.Add(1, observability.L("outcome", "skipped"))
		case errors.Is(rerr, domain.ErrDispatchInFlight):
			// another worker holds the dispatch lease
			r.retries.Add(1, observability.L("outcome", "in_flight"))
		default:
			r.retries.Add(1, observability.L("outcome", "error"))
			run.Logger().Warn("kitchen_dispatch_retry_failed",
				observability.F("order_id", o.ID),
				observability.F("attempts", o.DispatchAttempts+1),
				observability.F("error", rerr.Error()),
			)
		}
	}
	run.Note("recovered", recovered)
	if recovered < len(pending) {
		run.Status = "PARTIAL"
	}
	return recovered, nil
}
