package payment

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/kiosk-orders/internal/application"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	paymentService        = "payment-service"
	useCasePaymentRequest = "payment.request"
	gatewayPeer           = "payment_gateway"
)

type RequestPaymentInput struct {
	OrderID int64
	Amount  decimal.Decimal
}

// RequestPaymentUseCase asks the gateway to open a payment for a registered order.
type RequestPaymentUseCase struct {
	gateway Gateway
	ins     application.Instruments

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

var _ application.UseCase[RequestPaymentInput, struct{}] = (*RequestPaymentUseCase)(nil)

func NewRequestPaymentUseCase(gateway Gateway, tel observability.Observability) *RequestPaymentUseCase {
	ins := application.NewInstruments(tel, paymentService)
	return &RequestPaymentUseCase{
		gateway:      gateway,
		ins:          ins,
		extCounter:   ins.Metrics.Counter(observability.MExternalRequests),
		extHistogram: ins.Metrics.Histogram(observability.MExternalRequestDuration),
	}
}

func (uc *RequestPaymentUseCase) Execute(ctx context.Context, cmd RequestPaymentInput) (_ struct{}, err error) {
	ctx, run := uc.ins.Start(ctx, useCasePaymentRequest, "RequestPayment",
		attribute.Int64("order.id", cmd.OrderID),
		attribute.String("payment.amount", cmd.Amount.String()),
	)
	defer func() { run.End(err) }()
	run.Note("order_id", cmd.OrderID)
	run.Note("amount", cmd.Amount.String())

	if cmd.OrderID <= 0 {
		run.Fail("ORDER_ID_REQUIRED")
		return struct{}{}, application.Validation("order id is required")
	}
	if cmd.Amount.IsNegative() {
		run.Fail("AMOUNT_INVALID")
		return struct{}{}, application.Validation("amount must be zero or greater")
	}

	start := time.Now()
	err = uc.gateway.RequestPayment(ctx, Request(cmd))
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	uc.extCounter.Add(1,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", "payment_remittance"),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", "payment_remittance"),
	)
	if err != nil {
		run.Fail("GATEWAY_REQUEST_FAILED")
		return struct{}{}, application.Upstream(gatewayPeer, err)
	}
	return struct{}{}, nil
}
