package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/kiosk-orders/internal/domain/outbox"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability"
	"github.com/Zhima-Mochi/kiosk-orders/internal/observability/logctx"
)

const (
	componentOutbox = "outbox"

	// AllEvents subscribes a handler to every published event.
	AllEvents = "*"

	defaultQueueSize      = 1024
	defaultConcurrency    = 8
	defaultHandlerTimeout = 30 * time.Second
)

var ErrBusClosed = errors.New("outbox: bus closed")

// Bus is an in-memory, non-durable event bus. Events are queued by Publish and
// fanned out to subscribers by a single dispatch goroutine.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]domoutbox.Handler
	closed  bool
	queue   chan domoutbox.Event
	done    chan struct{}
	started bool
	cancel  context.CancelFunc

	concurrency    int
	handlerTimeout time.Duration
	log            observability.Logger
}

type Option func(*Bus)

func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan domoutbox.Event, n)
		}
	}
}

// WithConcurrency caps how many handlers of one event run at once.
func WithConcurrency(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func WithHandlerTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

func NewBus(logger observability.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	b := &Bus{
		subs:           make(map[string][]domoutbox.Handler),
		queue:          make(chan domoutbox.Event, defaultQueueSize),
		done:           make(chan struct{}),
		concurrency:    defaultConcurrency,
		handlerTimeout: defaultHandlerTimeout,
		log:            logger.With(observability.F("component", componentOutbox)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	go b.dispatchLoop(bg)
	logctx.FromOr(ctx, b.log).Info("event_bus_started")
}

// Stop refuses new events, drains what is queued and waits for the dispatch
// loop until ctx expires.
func (b *Bus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	started := b.started
	close(b.queue)
	b.mu.Unlock()

	logger := logctx.FromOr(ctx, b.log)
	if !started {
		logger.Info("event_bus_stopped")
		return nil
	}
	select {
	case <-b.done:
		logger.Info("event_bus_stopped")
		return nil
	case <-ctx.Done():
		b.cancel()
		logger.Warn("event_bus_stop_timeout", observability.F("error", ctx.Err()))
		return ctx.Err()
	}
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- e:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted", observability.F("error", ctx.Err()))
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-b.queue:
			if !ok {
				return
			}
			b.fanout(ctx, e)
		}
	}
}

func (b *Bus) handlersFor(name string) []domoutbox.Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]domoutbox.Handler, 0, len(b.subs[name])+len(b.subs[AllEvents]))
	handlers = append(handlers, b.subs[name]...)
	return append(handlers, b.subs[AllEvents]...)
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()
	logger := b.log.With(observability.F("event", name))

	handlers := b.handlersFor(name)
	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		return
	}

	ctx = logctx.With(ctx, logger)
	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				logger.Warn("event_handler_error", observability.F("error", err))
			}
		}()
	}

	wg.Wait()
	logger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
}
