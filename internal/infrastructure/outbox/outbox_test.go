package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/kiosk-orders/internal/domain/outbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

type collector struct {
	mu   sync.Mutex
	got  []string
	done chan struct{}
	want int
}

func newCollector(want int) *collector {
	return &collector{done: make(chan struct{}), want: want}
}

func (c *collector) handle(_ context.Context, e domoutbox.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, e.EventName())
	if len(c.got) == c.want {
		close(c.done)
	}
	return nil
}

func (c *collector) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.got...)
}

func TestBusDeliversToNamedAndWildcardSubscribers(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(nil, WithQueueSize(4))
	named := newCollector(1)
	all := newCollector(2)
	bus.Subscribe("a", named.handle)
	bus.Subscribe(AllEvents, all.handle)
	bus.Start(ctx)

	require.NoError(t, bus.Publish(ctx, namedEvent("a")))
	require.NoError(t, bus.Publish(ctx, namedEvent("b")))

	assert.Equal(t, []string{"a"}, named.wait(t))
	assert.Equal(t, []string{"a", "b"}, all.wait(t))
	require.NoError(t, bus.Stop(ctx))
}

func TestBusSurvivesFailingHandlers(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(nil)
	ok := newCollector(2)
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { panic("boom") })
	bus.Subscribe("x", func(context.Context, domoutbox.Event) error { return errors.New("nope") })
	bus.Subscribe("x", ok.handle)
	bus.Start(ctx)

	require.NoError(t, bus.Publish(ctx, namedEvent("x")))
	require.NoError(t, bus.Publish(ctx, namedEvent("x")))
	assert.Len(t, ok.wait(t), 2)
	require.NoError(t, bus.Stop(ctx))
}

func TestBusStopDrainsAndRejects(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(nil)
	c := newCollector(3)
	bus.Subscribe("e", c.handle)

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, namedEvent("e")))
	}
	bus.Start(ctx)
	require.NoError(t, bus.Stop(ctx))
	assert.Len(t, c.wait(t), 3)

	assert.ErrorIs(t, bus.Publish(ctx, namedEvent("e")), ErrBusClosed)
	assert.NoError(t, bus.Stop(ctx), "second stop is a no-op")
}

func TestBusHandlerTimeout(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(nil, WithHandlerTimeout(20*time.Millisecond))
	expired := make(chan error, 1)
	bus.Subscribe("slow", func(hctx context.Context, _ domoutbox.Event) error {
		<-hctx.Done()
		expired <- hctx.Err()
		return hctx.Err()
	})
	bus.Start(ctx)
	require.NoError(t, bus.Publish(ctx, namedEvent("slow")))

	select {
	case err := <-expired:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("handler context never expired")
	}
	require.NoError(t, bus.Stop(ctx))
}
