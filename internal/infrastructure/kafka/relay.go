package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/kiosk-orders/internal/domain/outbox"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability/logctx"

	"github.com/segmentio/kafka-go"
)

const componentRelay = "kafka_relay"

// Writer is the subset of *kafka.Writer the relay needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

type envelope struct {
	Event      string    `json:"event"`
	OrderID    int64     `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Relay forwards order events from the in-process bus to a Kafka topic, keyed
// by order id so one order's events stay in one partition.
type Relay struct {
	writer Writer
	log    observability.Logger
	errors observability.Counter
}

func NewRelay(writer Writer, tel observability.Observability) *Relay {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Relay{
		writer: writer,
		log:    tel.Logger().With(observability.F("component", componentRelay)),
		errors: tel.Metrics().Counter(observability.MEventPublishFailures),
	}
}

func (r *Relay) Start(sub domoutbox.Subscriber, eventNames ...string) {
	for _, name := range eventNames {
		sub.Subscribe(name, r.Handle)
	}
}

func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		r.errors.Add(1, observability.L("event", e.EventName()))
		logctx.FromOr(ctx, r.log).Warn("kafka_write_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
		return fmt.Errorf("kafka relay: %w", err)
	}
	return nil
}

func (r *Relay) Close() error {
	return r.writer.Close()
}

func encode(e domoutbox.Event) (kafka.Message, error) {
	var (
		key      string
		orderID  int64
		occurred = time.Now().UTC()
	)
	if k, ok := e.(domoutbox.Keyed); ok {
		key, occurred = k.PartitionKey(), k.OccurredOn()
		orderID, _ = strconv.ParseInt(key, 10, 64)
	}
	data, err := json.Marshal(envelope{
		Event:      e.EventName(),
		OrderID:    orderID,
		OccurredAt: occurred,
		Payload:    e,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka relay: encode %s: %w", e.EventName(), err)
	}
	msg := kafka.Message{
		Value: data,
		Time:  occurred,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(e.EventName())},
		},
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

// OrderEvents lists every event name the relay forwards.
func OrderEvents() []string {
	return []string{
		domorder.OrderRegisteredEvent{}.EventName(),
		domorder.PaymentStatusChangedEvent{}.EventName(),
		domorder.SentToKitchenEvent{}.EventName(),
		domorder.KitchenDispatchFailedEvent{}.EventName(),
		domorder.StatusChangedEvent{}.EventName(),
	}
}
