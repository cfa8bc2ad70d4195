package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Zhima-Mochi/kiosk-orders/internal/application"
	domain "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/kiosk-orders/internal/domain/outbox"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/pkg/keylock"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService = "order-service"

	useCaseRegister      = "order.register"
	useCaseApplyPayment  = "order.apply_payment_status"
	useCaseSendToKitchen = "order.send_to_kitchen"
	useCaseRetryDispatch = "order.retry_kitchen_dispatch"
	useCaseChangeStatus  = "order.change_status"
	publishPeer          = "outbox"
	kitchenPeer          = "kitchen"
	publishTimeout       = 300 * time.Millisecond

	// DefaultDispatchLease is how long a kitchen call that has not reported
	// back keeps other workers from retrying the same order.
	DefaultDispatchLease = 30 * time.Second
)

var (
	ErrConflict   = domain.ErrConflict
	ErrNotFound   = domain.ErrNotFound
	ErrRepository = errors.New("order: repository failure")
)

// DispatchMode selects how SendToKitchenQueue commits the Received status.
type DispatchMode string

const (
	// DispatchTwoPhase stores DispatchPending, calls the kitchen and only then
	// stores Received.
	DispatchTwoPhase DispatchMode = "two_phase"
	// DispatchCommitFirst stores Received before calling the kitchen and keeps
	// it even when the kitchen call fails.
	DispatchCommitFirst DispatchMode = "commit_first"
)

func ParseDispatchMode(s string) (DispatchMode, error) {
	switch DispatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DispatchTwoPhase:
		return DispatchTwoPhase, nil
	case DispatchCommitFirst:
		return DispatchCommitFirst, nil
	}
	return "", fmt.Errorf("order: unknown kitchen dispatch mode %q", s)
}

// Service is the order engine: registration, payment status, kitchen dispatch
// and status progression. Every mutation of one order runs under that order's
// lock, so at most one kitchen dispatch is in flight per order.
type Service struct {
	repo          domain.Repository
	solicitations SolicitationConfirmer
	kitchen       KitchenDispatcher
	publisher     domoutbox.Publisher
	mode          DispatchMode
	locks         *keylock.Map[int64]
	lease         time.Duration
	now           func() time.Time

	ins          application.Instruments
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	pubFailures  observability.Counter   // order_event_publish_failed_total{event}
}

func NewService(
	repo domain.Repository,
	solicitations SolicitationConfirmer,
	kitchen KitchenDispatcher,
	publisher domoutbox.Publisher,
	mode DispatchMode,
	tel observability.Observability,
	opts ...Option,
) *Service {
	if mode == "" {
		mode = DispatchTwoPhase
	}
	ins := application.NewInstruments(tel, orderService)
	s := &Service{
		repo:          repo,
		solicitations: solicitations,
		kitchen:       kitchen,
		publisher:     publisher,
		mode:          mode,
		locks:         keylock.New[int64](),
		lease:         DefaultDispatchLease,
		now:           time.Now,
		ins:           ins,
		extCounter:    ins.Metrics.Counter(observability.MExternalRequests),
		extHistogram:  ins.Metrics.Histogram(observability.MExternalRequestDuration),
		pubFailures:   ins.Metrics.Counter(observability.MEventPublishFailures),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Option func(*Service)

// WithDispatchLease sets how long a started kitchen dispatch is left to its
// owner before RetryKitchenDispatch may take it over. It has to outlast the
// kitchen client timeout; the per-order lock only covers this process.
func WithDispatchLease(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lease = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type RegisterResult struct {
	Order *domain.Order
	// PaymentRequested is false when the payment request could not be queued.
	PaymentRequested bool
}

// Confirm closes the cart and registers the resulting order.
func (s *Service) Confirm(ctx context.Context, solicitationID int64) (*RegisterResult, error) {
	draft, err := s.solicitations.ConfirmToOrder(ctx, solicitationID)
	if err != nil {
		return nil, err
	}
	return s.RegisterOrder(ctx, draft)
}

// RegisterOrder validates and stores a new order, then queues the payment
// request. The caller does not wait for the payment gateway.
func (s *Service) RegisterOrder(ctx context.Context, draft *domain.Order) (_ *RegisterResult, err error) {
	ctx, run := s.ins.Start(ctx, useCaseRegister, "RegisterOrder")
	defer func() { run.End(err) }()

	if draft == nil {
		run.Fail("ORDER_REQUIRED")
		return nil, application.Validation("order is required")
	}
	entity := draft.Clone()
	entity.ID = 0
	entity.Status = domain.StatusEmitted
	entity.PaymentStatus = domain.PaymentNotPayed
	entity.CreatedAt = time.Now().UTC()
	entity.UpdatedAt = entity.CreatedAt
	entity.CompletedAt = nil

	if verr := domain.Validate(entity); verr != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, application.ValidationErr(verr)
	}
	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}
	if err := s.repo.Insert(ctx, entity); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}
	run.Note("order_id", entity.ID)
	run.Span().SetAttributes(attribute.Int64("order.id", entity.ID))

	result := &RegisterResult{Order: entity.Clone(), PaymentRequested: true}
	if perr := s.publish(ctx, run, domain.NewOrderRegisteredEvent(entity)); perr != nil {
		result.PaymentRequested = false
		run.Status = "PAYMENT_REQUEST_NOT_QUEUED"
	}
	return result, nil
}

type ApplyPaymentInput struct {
	PaymentID string
	OrderID   int64
	Status    domain.PaymentStatus
	// Force bypasses the payment transition table, e.g. for manual corrections.
	Force bool
}

type ApplyPaymentResult struct {
	// Order is nil when the status was PendingPayment and nothing was loaded.
	Order   *domain.Order
	Changed bool
}

// ApplyPaymentStatus records a payment result. PendingPayment is acknowledged
// without touching storage; repeating a status is a no-op.
func (s *Service) ApplyPaymentStatus(ctx context.Context, cmd ApplyPaymentInput) (_ *ApplyPaymentResult, err error) {
	ctx, run := s.ins.Start(ctx, useCaseApplyPayment, "ApplyPaymentStatus",
		attribute.Int64("order.id", cmd.OrderID),
		attribute.String("payment.status", string(cmd.Status)),
	)
	defer func() { run.End(err) }()
	run.Note("order_id", cmd.OrderID)
	run.Note("payment_status", string(cmd.Status))

	if strings.TrimSpace(cmd.PaymentID) == "" {
		run.Fail("PAYMENT_ID_REQUIRED")
		return nil, application.Validation("payment id is required")
	}
	if !cmd.Status.Valid() {
		run.Fail("PAYMENT_STATUS_INVALID")
		return nil, application.ValidationErr(domain.ErrInvalidPaymentStatus)
	}
	if cmd.Status == domain.PaymentPendingPayment {
		run.Status = "PENDING_IGNORED"
		return &ApplyPaymentResult{}, nil
	}

	unlock := s.locks.Lock(cmd.OrderID)
	defer unlock()

	o, err := s.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(err)
	}
	from := o.PaymentStatus
	changed, err := o.ApplyPayment(cmd.Status, cmd.Force)
	if err != nil {
		run.Fail("PAYMENT_TRANSITION_REJECTED")
		return nil, fmt.Errorf("%w: %s -> %s", err, from, cmd.Status)
	}
	if !changed {
		run.Status = "UNCHANGED"
		return &ApplyPaymentResult{Order: o}, nil
	}
	if err := s.repo.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	_ = s.publish(ctx, run, domain.NewPaymentStatusChangedEvent(o, cmd.PaymentID, from, cmd.Force))
	return &ApplyPaymentResult{Order: o.Clone(), Changed: true}, nil
}

// SendToKitchenQueue hands an Emitted, Payed order to the kitchen.
func (s *Service) SendToKitchenQueue(ctx context.Context, orderID int64) (_ *domain.Order, err error) {
	ctx, run := s.ins.Start(ctx, useCaseSendToKitchen, "SendToKitchenQueue",
		attribute.Int64("order.id", orderID),
		attribute.String("kitchen.dispatch_mode", string(s.mode)),
	)
	defer func() { run.End(err) }()
	run.Note("order_id", orderID)

	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(err)
	}

	if s.mode == DispatchCommitFirst {
		return s.sendCommitFirst(ctx, run, o)
	}

	if err := o.BeginKitchenDispatch(); err != nil {
		run.Fail("KITCHEN_GUARD_REJECTED")
		return nil, err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	return s.dispatch(ctx, run, o)
}

// RetryKitchenDispatch re-issues the kitchen call for an order left in DispatchPending.
func (s *Service) RetryKitchenDispatch(ctx context.Context, orderID int64) (_ *domain.Order, err error) {
	ctx, run := s.ins.Start(ctx, useCaseRetryDispatch, "RetryKitchenDispatch",
		attribute.Int64("order.id", orderID),
	)
	defer func() { run.End(err) }()
	run.Note("order_id", orderID)

	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if err := o.RetryKitchenDispatch(s.now(), s.lease); err != nil {
		if errors.Is(err, domain.ErrDispatchInFlight) {
			run.Fail("DISPATCH_IN_FLIGHT")
		} else {
			run.Fail("NO_DISPATCH_PENDING")
		}
		return nil, err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	return s.dispatch(ctx, run, o)
}

// dispatch calls the kitchen for an order in DispatchPending and stores the outcome.
func (s *Service) dispatch(ctx context.Context, run *application.Run, o *domain.Order) (*domain.Order, error) {
	run.Note("dispatch_attempt", o.DispatchAttempts)
	if kerr := s.callKitchen(ctx, o); kerr != nil {
		run.Fail("KITCHEN_DISPATCH_FAILED")
		o.KitchenDispatchFailed(kerr.Error())
		if uerr := s.repo.Update(ctx, o); uerr != nil {
			run.Logger().Warn("dispatch_failure_not_recorded",
				observability.F("order_id", o.ID),
				observability.F("error", uerr.Error()),
			)
		}
		_ = s.publish(ctx, run, domain.NewKitchenDispatchFailedEvent(o, kerr.Error()))
		return nil, application.Upstream(kitchenPeer, kerr)
	}

	if err := o.ConfirmKitchenDispatch(); err != nil {
		run.Fail("STATE_TRANSITION_FAILED")
		return nil, err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	_ = s.publish(ctx, run, domain.NewSentToKitchenEvent(o))
	run.Span().SetAttributes(attribute.String("order.status", string(o.Status)))
	return o.Clone(), nil
}

// sendCommitFirst stores Received before the kitchen call. A failed call is
// reported but the order stays Received.
func (s *Service) sendCommitFirst(ctx context.Context, run *application.Run, o *domain.Order) (*domain.Order, error) {
	if o.Status != domain.StatusEmitted {
		run.Fail("KITCHEN_GUARD_REJECTED")
		return nil, domain.ErrAlreadySentToKitchen
	}
	if err := o.ConfirmKitchenDispatch(); err != nil {
		run.Fail("KITCHEN_GUARD_REJECTED")
		return nil, err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if kerr := s.callKitchen(ctx, o); kerr != nil {
		run.Fail("KITCHEN_DISPATCH_FAILED")
		_ = s.publish(ctx, run, domain.NewKitchenDispatchFailedEvent(o, kerr.Error()))
		return nil, application.Upstream(kitchenPeer, kerr)
	}
	_ = s.publish(ctx, run, domain.NewSentToKitchenEvent(o))
	return o.Clone(), nil
}

func (s *Service) callKitchen(ctx context.Context, o *domain.Order) error {
	if s.kitchen == nil {
		return errors.New("kitchen dispatcher not configured")
	}
	start := time.Now()
	err := s.kitchen.Dispatch(ctx, NewKitchenOrder(o))
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.extCounter.Add(1,
		observability.L("peer", kitchenPeer),
		observability.L("endpoint", "order_solicitation"),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", kitchenPeer),
		observability.L("endpoint", "order_solicitation"),
	)
	return err
}

// ChangeOrderStatus advances the kitchen progression. force accepts any known
// status, which is how corrections are made.
func (s *Service) ChangeOrderStatus(ctx context.Context, orderID int64, next domain.Status, force bool) (_ *domain.Order, err error) {
	ctx, run := s.ins.Start(ctx, useCaseChangeStatus, "ChangeOrderStatus",
		attribute.Int64("order.id", orderID),
		attribute.String("order.next_status", string(next)),
		attribute.Bool("force", force),
	)
	defer func() { run.End(err) }()
	run.Note("order_id", orderID)

	if !next.Valid() {
		run.Fail("STATUS_INVALID")
		return nil, application.ValidationErr(domain.ErrInvalidStatus)
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, wrapRepositoryError(err)
	}
	from := o.Status
	if err := o.ChangeStatus(next, force); err != nil {
		run.Fail("STATUS_TRANSITION_REJECTED")
		return nil, fmt.Errorf("%w: %s -> %s", err, from, next)
	}
	if from == o.Status {
		run.Status = "UNCHANGED"
		return o, nil
	}
	if err := s.repo.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, wrapRepositoryError(err)
	}
	_ = s.publish(ctx, run, domain.NewStatusChangedEvent(o, from, force))
	return o.Clone(), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return o, nil
}

func (s *Service) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	if !status.Valid() {
		return nil, application.ValidationErr(domain.ErrInvalidStatus)
	}
	orders, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return orders, nil
}

// ListCurrent returns the orders on the pickup board: Ready first, then
// InProgress, then Received, oldest first within each group.
func (s *Service) ListCurrent(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.repo.ListByStatus(ctx, domain.CurrentStatuses...)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	rank := make(map[domain.Status]int, len(domain.CurrentStatuses))
	for i, st := range domain.CurrentStatuses {
		rank[st] = i
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if rank[orders[i].Status] != rank[orders[j].Status] {
			return rank[orders[i].Status] < rank[orders[j].Status]
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

// publish is best-effort: a failure is logged, counted and returned, but never
// undoes the state change that produced the event.
func (s *Service) publish(ctx context.Context, run *application.Run, e domoutbox.Event) error {
	if s.publisher == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := s.publisher.Publish(pubCtx, e)
	if err != nil {
		outcome = "error"
		s.pubFailures.Add(1, observability.L("event", e.EventName()))
		run.Span().RecordError(err)
		run.Logger().Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	} else {
		run.Span().AddEvent(e.EventName(), trace.WithAttributes(attribute.String("event", e.EventName())))
	}

	s.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
	return err
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domain.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
