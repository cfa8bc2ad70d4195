package outbox

import (
	"context"
	"time"
)

// Event is a named domain fact, e.g. "order.registered".
type Event interface {
	EventName() string
}

// Keyed is an event that belongs to one aggregate. Transports that partition
// or order by key use PartitionKey; OccurredOn is the time of the state change.
type Keyed interface {
	Event
	PartitionKey() string
	OccurredOn() time.Time
}

type Handler func(ctx context.Context, e Event) error

// Publisher queues an event. Publishing is best-effort for callers: the state
// change that produced the event is already committed.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers a handler for one event name.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
