package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/customer"
	domorder "github.com/Zhima-Mochi/kiosk-orders/internal/domain/order"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/product"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/solicitation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "kiosk",
			"POSTGRES_PASSWORD": "kiosk",
			"POSTGRES_DB":       "kiosk",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := Open(ctx, Options{
		URL:             fmt.Sprintf("postgres://kiosk:kiosk@%s:%s/kiosk?sslmode=disable", host, port.Port()),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "migrations must be re-runnable")
	return db
}

func TestRepositories(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	catalog := NewCatalog(db)
	burger := product.Product{
		ID: 1, Name: "X-Burger", Description: "Beef", Value: decimal.RequireFromString("18.90"),
		Available: true, Category: product.CategorySnack,
	}
	require.NoError(t, catalog.Seed(ctx, burger))

	t.Run("catalog lookup", func(t *testing.T) {
		got, err := catalog.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "X-Burger", got.Name)
		assert.True(t, got.Value.Equal(burger.Value))

		_, err = catalog.Get(ctx, 999)
		assert.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("customer directory", func(t *testing.T) {
		dir := NewCustomerDirectory(db)
		c := customer.Customer{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", CPF: "12345678900"}
		require.NoError(t, dir.Insert(ctx, c))
		assert.ErrorIs(t, dir.Insert(ctx, c), ErrDuplicateCPF)

		got, err := dir.FindByCPF(ctx, c.CPF)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)

		_, err = dir.FindByCPF(ctx, "000")
		assert.ErrorIs(t, err, customer.ErrNotFound)
	})

	t.Run("solicitation round trip", func(t *testing.T) {
		repo := NewSolicitationRepository(db)
		s := solicitation.New()
		require.NoError(t, repo.Insert(ctx, s))
		require.NotZero(t, s.ID)

		require.NoError(t, s.AssociateAnonymous())
		require.NoError(t, s.AddItem(burger, 2, "no onion"))
		require.NoError(t, repo.Update(ctx, s))

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, solicitation.StatusInProgress, got.Status)
		assert.Equal(t, s.AnonymousID, got.AnonymousID)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "no onion", got.Items[0].Observation)
		assert.True(t, got.TotalValue.Equal(decimal.RequireFromString("37.80")))

		_, err = repo.Get(ctx, 999)
		assert.ErrorIs(t, err, solicitation.ErrNotFound)
	})

	t.Run("order versioning and listing", func(t *testing.T) {
		repo := NewOrderRepository(db)
		s := solicitation.New()
		require.NoError(t, s.AssociateAnonymous())
		require.NoError(t, s.AddItem(burger, 1, ""))
		s.ID = 42

		o, err := domorder.NewFromSolicitation(s)
		require.NoError(t, err)
		require.NoError(t, repo.Insert(ctx, o))
		assert.Equal(t, 1, o.Version)

		stale := o.Clone()
		_, err = o.ApplyPayment(domorder.PaymentPayed, false)
		require.NoError(t, err)
		require.NoError(t, repo.Update(ctx, o))
		assert.Equal(t, 2, o.Version)

		_, err = stale.ApplyPayment(domorder.PaymentNotPayed, true)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Update(ctx, stale), domorder.ErrConflict)

		require.NoError(t, o.ChangeStatus(domorder.StatusReady, true))
		require.NoError(t, repo.Update(ctx, o))

		got, err := repo.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, domorder.PaymentPayed, got.PaymentStatus)
		assert.Equal(t, domorder.StatusReady, got.Status)
		assert.Equal(t, int64(42), got.SolicitationID)
		require.Len(t, got.Items, 1)

		listed, err := repo.ListByStatus(ctx, domorder.StatusReady, domorder.StatusReceived)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, o.ID, listed[0].ID)

		_, err = repo.Get(ctx, 9999)
		assert.ErrorIs(t, err, domorder.ErrNotFound)
		missing := o.Clone()
		missing.ID = 9999
		assert.ErrorIs(t, repo.Update(ctx, missing), domorder.ErrNotFound)
	})
	t.Run("rolled back attempt leaves version for the retry", func(t *testing.T) {
		repo := NewOrderRepository(db)
		s := solicitation.New()
		require.NoError(t, s.AssociateAnonymous())
		require.NoError(t, s.AddItem(burger, 1, ""))
		s.ID = 43

		o, err := domorder.NewFromSolicitation(s)
		require.NoError(t, err)
		require.NoError(t, repo.Insert(ctx, o))
		_, err = o.ApplyPayment(domorder.PaymentPayed, false)
		require.NoError(t, err)
		require.NoError(t, o.BeginKitchenDispatch())

		items, err := encodeItems(o.Items, fromOrderItem)
		require.NoError(t, err)
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, updateOrder(ctx, tx, o, items))
		require.NoError(t, tx.Rollback())
		assert.Equal(t, 1, o.Version)

		require.NoError(t, repo.Update(ctx, o))
		assert.Equal(t, 2, o.Version)

		got, err := repo.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
		assert.Equal(t, domorder.StatusDispatchPending, got.Status)
		require.NotNil(t, got.DispatchStartedAt)
		assert.WithinDuration(t, *o.DispatchStartedAt, *got.DispatchStartedAt, time.Millisecond)

		require.NoError(t, o.ConfirmKitchenDispatch())
		require.NoError(t, repo.Update(ctx, o))
		got, err = repo.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Version)
		assert.Nil(t, got.DispatchStartedAt)
	})
}
