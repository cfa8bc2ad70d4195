package order

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilerRetriesPendingDispatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DispatchTwoPhase)
	a := f.registerPaid(t)
	b := f.registerPaid(t)

	f.kitchen.setErr(errors.New("kitchen offline"))
	for _, o := range []*domain.Order{a, b} {
		_, err := f.svc.SendToKitchenQueue(ctx, o.ID)
		require.Error(t, err)
	}

	r := NewDispatchReconciler(f.repo, f.svc, 0, nil)

	recovered, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, recovered, "kitchen still down")

	f.kitchen.setErr(nil)
	recovered, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, recovered)

	for _, o := range []*domain.Order{a, b} {
		stored, err := f.svc.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusReceived, stored.Status)
		assert.Equal(t, 3, stored.DispatchAttempts)
	}

	recovered, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, recovered)
}

func TestReconcilerLeavesInFlightDispatchToItsOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DispatchTwoPhase)
	o := f.registerPaid(t)

	// second replica: same store, its own process-local locks
	replica := NewService(f.repo, f.solicitations, f.kitchen, f.pub, DispatchTwoPhase, nil)
	r := NewDispatchReconciler(f.repo, replica, 0, nil)

	entered, release := f.kitchen.hold()
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.SendToKitchenQueue(ctx, o.ID)
		done <- err
	}()
	<-entered

	recovered, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, recovered)

	_, err = replica.RetryKitchenDispatch(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrDispatchInFlight)

	release()
	require.NoError(t, <-done)

	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, stored.Status)
	assert.Equal(t, 1, stored.DispatchAttempts)
	assert.Nil(t, stored.DispatchStartedAt)
	assert.Len(t, f.kitchen.calls(), 1)
}

func TestReconcilerTakesOverExpiredDispatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DispatchTwoPhase)
	o := f.registerPaid(t)

	// a worker stored DispatchPending and never reported back
	stuck, err := f.repo.Get(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, stuck.BeginKitchenDispatch())
	require.NoError(t, f.repo.Update(ctx, stuck))

	lease := time.Minute
	fresh := NewService(f.repo, f.solicitations, f.kitchen, f.pub, DispatchTwoPhase, nil, WithDispatchLease(lease))
	recovered, err := NewDispatchReconciler(f.repo, fresh, 0, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, recovered)
	assert.Empty(t, f.kitchen.calls())

	later := NewService(f.repo, f.solicitations, f.kitchen, f.pub, DispatchTwoPhase, nil,
		WithDispatchLease(lease),
		WithClock(func() time.Time { return time.Now().Add(lease + time.Second) }),
	)
	recovered, err = NewDispatchReconciler(f.repo, later, 0, nil).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, stored.Status)
	assert.Equal(t, 2, stored.DispatchAttempts)
	assert.Len(t, f.kitchen.calls(), 1)
}

func TestReconcilerRunStopsOnCancel(t *testing.T) {
	f := newFixture(DispatchTwoPhase)
	r := NewDispatchReconciler(f.repo, f.svc, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
}
