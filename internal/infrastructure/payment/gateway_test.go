package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apppayment "github.com/Zhima-Mochi/kiosk-orders/internal/application/payment"
	"github.com/Zhima-Mochi/kiosk-orders/internal/infrastructure/httpclient"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayPostsRemittanceRequest(t *testing.T) {
	var got remittanceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	gw := NewGateway(httpclient.New(httpclient.Options{}), srv.URL, "http://kiosk/payment-status")
	err := gw.RequestPayment(context.Background(), apppayment.Request{OrderID: 42, Amount: decimal.RequireFromString("10.00")})
	require.NoError(t, err)

	assert.EqualValues(t, 42, got.OrderID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "http://kiosk/payment-status", got.WebhookCallbackURL)
}

func TestGatewayReportsReasonPhrase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw := NewGateway(srv.Client(), srv.URL, "")
	err := gw.RequestPayment(context.Background(), apppayment.Request{OrderID: 1, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrRequestRejected)
	assert.ErrorContains(t, err, "Service Unavailable")
}

func TestGatewayUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewGateway(httpclient.New(httpclient.Options{}), url, "").
		RequestPayment(context.Background(), apppayment.Request{OrderID: 1, Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRequestRejected)
}
