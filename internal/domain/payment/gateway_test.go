// internal/domain/payment/gateway_test.go
package payment

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
)

func newTestGateway(baseURL string) Gateway {
	return NewSnapGateway(&config.Config{
		Gateway: config.GatewayConfig{
			BaseURL:     baseURL,
			ServerKey:   "server-key-test",
			CallbackURL: "https://feedmarket.local/payments/return",
			Timeout:     time.Second,
		},
	})
}

func TestMapGatewayStatus(t *testing.T) {
	cases := []struct {
		gateway GatewayStatus
		want    order.PaymentStatus
	}{
		{GatewaySettlement, order.PaymentStatusPaid},
		{GatewayCapture, order.PaymentStatusPaid},
		{GatewayDeny, order.PaymentStatusFailed},
		{GatewayCancel, order.PaymentStatusFailed},
		{GatewayFailure, order.PaymentStatusFailed},
		{GatewayExpire, order.PaymentStatusExpired},
		{GatewayPending, order.PaymentStatusPending},
		{GatewayStatus("authorize"), order.PaymentStatusPending},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, MapGatewayStatus(tc.gateway), "status %s", tc.gateway)
	}
}

func TestVerifyNotification(t *testing.T) {
	g := newTestGateway("http://unused")

	n := &Notification{
		OrderCode:         "ORD-20260828-CCCC3333",
		TransactionStatus: GatewaySettlement,
		StatusCode:        "200",
		GrossAmount:       "151500.00",
	}
	sum := sha512.Sum512([]byte(n.OrderCode + n.StatusCode + n.GrossAmount + "server-key-test"))
	n.SignatureKey = hex.EncodeToString(sum[:])

	assert.NoError(t, g.VerifyNotification(n))

	n.GrossAmount = "1.00" // tampered payload
	assert.ErrorIs(t, g.VerifyNotification(n), ErrInvalidSignature)

	n.GrossAmount = "151500.00"
	n.SignatureKey = "deadbeef"
	assert.ErrorIs(t, g.VerifyNotification(n), ErrInvalidSignature)
}

func TestCreateTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/snap/v1/transactions", r.URL.Path)
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "server-key-test", user)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		details := body["transaction_details"].(map[string]interface{})
		assert.Equal(t, "ORD-20260828-CCCC3333", details["order_id"])
		assert.Equal(t, float64(151500), details["gross_amount"])

		w.Write([]byte(`{"token":"snap-abc","redirect_url":"https://app.gateway/snap-abc"}`))
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	session, err := g.CreateTransaction(context.Background(), &TransactionRequest{
		OrderCode:    "ORD-20260828-CCCC3333",
		GrossAmount:  151500,
		CustomerName: "Budi Santoso",
		Email:        "buyer@feedmarket.local",
		Expiry:       30 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, "snap-abc", session.ID)
	assert.Equal(t, "https://app.gateway/snap-abc", session.RedirectURL)
	require.NotNil(t, session.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), *session.ExpiresAt, time.Minute)
}

func TestCreateTransactionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error_messages":["unauthorized"]}`))
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	_, err := g.CreateTransaction(context.Background(), &TransactionRequest{
		OrderCode:   "ORD-20260828-CCCC3333",
		GrossAmount: 151500,
		Expiry:      30 * time.Minute,
	})
	assert.ErrorIs(t, err, ErrGatewayRejected)
}

func TestGetTransactionStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/ORD-20260828-CCCC3333/status", r.URL.Path)
		w.Write([]byte(`{"transaction_status":"settlement","status_code":"200","gross_amount":"151500.00"}`))
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	status, err := g.GetTransactionStatus(context.Background(), "ORD-20260828-CCCC3333")
	require.NoError(t, err)
	assert.Equal(t, GatewaySettlement, status)
}

func TestGetTransactionStatusChallengeIsNotSettled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transaction_status":"capture","fraud_status":"challenge"}`))
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	status, err := g.GetTransactionStatus(context.Background(), "ORD-20260828-CCCC3333")
	require.NoError(t, err)
	assert.Equal(t, GatewayPending, status)
}

func TestGetTransactionStatusServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := newTestGateway(server.URL)
	_, err := g.GetTransactionStatus(context.Background(), "ORD-20260828-CCCC3333")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}
