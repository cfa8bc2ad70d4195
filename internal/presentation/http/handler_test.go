package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	apporder "github.com/Zhima-Mochi/kiosk-orders/internal/application/order"
	apppayment "github.com/Zhima-Mochi/kiosk-orders/internal/application/payment"
	appsolicitation "github.com/Zhima-Mochi/kiosk-orders/internal/application/solicitation"
	"github.com/Zhima-Mochi/kiosk-orders/internal/domain/product"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/kitchen"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remote records what the fake gateway and kitchen received.
type remote struct {
	mu            sync.Mutex
	kitchenStatus int
	kitchenBodies []map[string]any
	paymentBodies chan map[string]any
	gatewayServer *httptest.Server
	kitchenServer *httptest.Server
}

func newRemote(t *testing.T) *remote {
	t.Helper()
	rm := &remote{kitchenStatus: http.StatusCreated, paymentBodies: make(chan map[string]any, 8)}
	rm.gatewayServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		rm.paymentBodies <- body
		w.WriteHeader(http.StatusOK)
	}))
	rm.kitchenServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		rm.mu.Lock()
		rm.kitchenBodies = append(rm.kitchenBodies, body)
		status := rm.kitchenStatus
		rm.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(rm.gatewayServer.Close)
	t.Cleanup(rm.kitchenServer.Close)
	return rm
}

func (rm *remote) setKitchenStatus(code int) {
	rm.mu.Lock()
	rm.kitchenStatus = code
	rm.mu.Unlock()
}

func (rm *remote) kitchenCalls() []map[string]any {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return append([]map[string]any(nil), rm.kitchenBodies...)
}

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	remote *remote
}

var productA = product.Product{ID: 1, Name: "Product A", Value: decimal.RequireFromString("5.00"), Available: true}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	rm := newRemote(t)
	client := httpclient.New(httpclient.Options{Timeout: 2 * time.Second})

	bus := outbox.NewBus(nil)
	solicitations := appsolicitation.NewService(
		memory.NewSolicitationRepository(),
		memory.NewCatalog(productA, product.Product{ID: 2, Name: "Off menu", Value: decimal.NewFromInt(3)}),
		memory.NewCustomerDirectory(),
		nil,
	)
	orders := apporder.NewService(
		memory.NewOrderRepository(),
		solicitations,
		kitchen.NewClient(client, rm.kitchenServer.URL),
		bus,
		apporder.DispatchTwoPhase,
		nil,
	)
	gateway := payment.NewGateway(client, rm.gatewayServer.URL, "http://kiosk/payment-status")
	apppayment.NewWorker(bus, apppayment.NewRequestPaymentUseCase(gateway, nil), nil).Start()
	bus.Start(context.Background())
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	srv := httptest.NewServer(NewHandler(solicitations, orders, nil, nil).Router())
	t.Cleanup(srv.Close)
	return &testAPI{t: t, server: srv, remote: rm}
}

func (a *testAPI) do(method, path string, body any, out any) int {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// confirmedOrder drives a cart through anonymous identification, one line of
// product A (qty 2) and confirmation.
func (a *testAPI) confirmedOrder() orderResponse {
	a.t.Helper()
	var sol solicitationResponse
	require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, "/order-solicitations", nil, &sol))
	base := "/order-solicitations/" + strconv.FormatInt(sol.ID, 10)

	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, base+"/anonymous", nil, &sol))
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, base+"/items",
		map[string]any{"product_id": productA.ID, "quantity": 2}, &sol))
	require.True(a.t, sol.TotalValue.Equal(decimal.RequireFromString("10.00")))

	var confirmed confirmResponse
	require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, base+"/confirm", nil, &confirmed))
	return confirmed.Order
}

func webhookBody(orderID int64, status string) map[string]any {
	return map[string]any{"paymentId": "pay-" + strconv.FormatInt(orderID, 10), "orderId": orderID, "paymentStatus": status}
}

func TestAnonymousOrderReachesKitchen(t *testing.T) {
	api := newTestAPI(t)
	o := api.confirmedOrder()
	assert.Equal(t, "Emitted", o.Status)
	assert.Equal(t, "NotPayed", o.PaymentStatus)
	assert.True(t, o.TotalValue.Equal(decimal.NewFromInt(10)))

	select {
	case body := <-api.remote.paymentBodies:
		assert.EqualValues(t, o.ID, body["orderId"])
		assert.Equal(t, "http://kiosk/payment-status", body["webhookCallbackUrl"])
	case <-time.After(2 * time.Second):
		t.Fatal("payment gateway was not called")
	}

	var ack paymentStatusResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/payment-status", webhookBody(o.ID, "Payed"), &ack))
	assert.Equal(t, "Received", ack.Status)

	var stored orderResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/orders/"+strconv.FormatInt(o.ID, 10), nil, &stored))
	assert.Equal(t, "Received", stored.Status)
	assert.Equal(t, "Payed", stored.PaymentStatus)

	calls := api.remote.kitchenCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Received", calls[0]["status"])
	assert.Equal(t, stored.AnonymousID.String(), calls[0]["anonymousIdentification"])
	products, ok := calls[0]["products"].([]any)
	require.True(t, ok)
	assert.Len(t, products, 1)

	t.Run("duplicate webhook is acknowledged without a second dispatch", func(t *testing.T) {
		var again paymentStatusResponse
		require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/payment-status", webhookBody(o.ID, "Payed"), &again))
		assert.Equal(t, "Received", again.Status)
		assert.Len(t, api.remote.kitchenCalls(), 1)
	})

	t.Run("current board", func(t *testing.T) {
		var board []orderResponse
		require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/orders/current", nil, &board))
		require.Len(t, board, 1)
		assert.Equal(t, o.ID, board[0].ID)
	})

	t.Run("status progression", func(t *testing.T) {
		path := "/orders/" + strconv.FormatInt(o.ID, 10) + "/status"
		var got orderResponse
		assert.Equal(t, http.StatusConflict, api.do(http.MethodPatch, path, map[string]any{"status": "Finished"}, nil))
		require.Equal(t, http.StatusOK, api.do(http.MethodPatch, path, map[string]any{"status": "InProgress"}, &got))
		assert.Equal(t, "InProgress", got.Status)
		require.Equal(t, http.StatusOK, api.do(http.MethodPatch, path, map[string]any{"status": "Finished", "force": true}, &got))
		assert.Equal(t, "Finished", got.Status)
		assert.NotNil(t, got.CompletedAt)
	})
}

func TestPaymentStatusWebhook(t *testing.T) {
	api := newTestAPI(t)

	t.Run("unknown order", func(t *testing.T) {
		var e errorResponse
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/payment-status", webhookBody(404, "Payed"), &e))
		assert.NotEmpty(t, e.Error)
	})

	t.Run("pending is acknowledged for any order", func(t *testing.T) {
		var ack paymentStatusResponse
		assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/payment-status", webhookBody(404, "PendingPayment"), &ack))
		assert.Equal(t, "PendingPayment", ack.PaymentStatus)
	})

	t.Run("unknown status", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/payment-status", webhookBody(1, "Refunded"), nil))
	})

	t.Run("malformed body", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/payment-status", map[string]any{"unexpected": true}, nil))
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/payment-status", "Payed", nil))
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/payment-status", nil, nil))
	})

	t.Run("extra gateway fields are ignored", func(t *testing.T) {
		o := api.confirmedOrder()
		body := webhookBody(o.ID, "Payed")
		body["transactionId"] = "tx-981"
		body["amount"] = 10.0
		body["paidAt"] = "2024-05-01T12:00:00Z"

		var ack paymentStatusResponse
		require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/payment-status", body, &ack))
		assert.Equal(t, "Received", ack.Status)

		t.Run("force is not honored", func(t *testing.T) {
			rollback := webhookBody(o.ID, "NotPayed")
			rollback["force"] = true
			assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/payment-status", rollback, nil))

			var stored orderResponse
			require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/orders/"+strconv.FormatInt(o.ID, 10), nil, &stored))
			assert.Equal(t, "Payed", stored.PaymentStatus)
		})
	})

	t.Run("kitchen failure leaves the order pending", func(t *testing.T) {
		o := api.confirmedOrder()
		api.remote.setKitchenStatus(http.StatusServiceUnavailable)

		var e errorResponse
		require.Equal(t, http.StatusBadGateway, api.do(http.MethodPost, "/payment-status", webhookBody(o.ID, "Payed"), &e))
		assert.Contains(t, e.Error, "Service Unavailable")

		var stored orderResponse
		require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/orders/"+strconv.FormatInt(o.ID, 10), nil, &stored))
		assert.Equal(t, "DispatchPending", stored.Status)
		assert.Equal(t, "Payed", stored.PaymentStatus)

		api.remote.setKitchenStatus(http.StatusCreated)
		require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/orders/"+strconv.FormatInt(o.ID, 10)+"/kitchen-dispatch", nil, &stored))
		assert.Equal(t, "Received", stored.Status)
	})
}

func TestOperatorPaymentCorrection(t *testing.T) {
	api := newTestAPI(t)
	o := api.confirmedOrder()
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/payment-status", webhookBody(o.ID, "Payed"), nil))
	path := "/orders/" + strconv.FormatInt(o.ID, 10) + "/payment-status"

	assert.Equal(t, http.StatusConflict, api.do(http.MethodPatch, path,
		map[string]any{"payment_id": "manual-1", "payment_status": "NotPayed"}, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, path,
		map[string]any{"payment_id": "manual-1", "payment_status": "NotPayed", "reason": "x"}, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPatch, "/orders/999/payment-status",
		map[string]any{"payment_id": "manual-1", "payment_status": "Payed"}, nil))

	var got orderResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, path,
		map[string]any{"payment_id": "manual-1", "payment_status": "NotPayed", "force": true}, &got))
	assert.Equal(t, "NotPayed", got.PaymentStatus)
	assert.Equal(t, "Received", got.Status)
	assert.Len(t, api.remote.kitchenCalls(), 1)
}

func TestSolicitationErrors(t *testing.T) {
	api := newTestAPI(t)

	var sol solicitationResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/order-solicitations", nil, &sol))
	base := "/order-solicitations/" + strconv.FormatInt(sol.ID, 10)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/order-solicitations/999", nil, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/order-solicitations/abc", nil, nil))
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, base+"/items",
		map[string]any{"product_id": productA.ID, "quantity": 1}, nil), "cart must be identified first")
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, base+"/customer", map[string]any{"cpf": "000"}, nil))

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, base+"/anonymous", nil, nil))
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, base+"/items",
		map[string]any{"product_id": 2, "quantity": 1}, nil), "unavailable product")
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, base+"/items",
		map[string]any{"product_id": 99, "quantity": 1}, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, base+"/confirm", nil, nil), "empty cart")

	var health bytes.Buffer
	resp, err := http.Get(api.server.URL + "/health")
	require.NoError(t, err)
	_, _ = health.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", health.String())
}
