// internal/domain/payment/session_service_test.go
package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
)

func newTestSessionManager(store Store, gateway Gateway) *SessionManager {
	cfg := &config.Config{
		Gateway: config.GatewayConfig{SessionExpiry: 30 * time.Minute},
	}
	return NewSessionManager(store, gateway, nil, cfg, quietLogger())
}

func TestCreateSessionRejectsPaidPayable(t *testing.T) {
	paid := pendingOrder("ORD-20260828-BBBB2222", 151500)
	paid.PaymentStatus = order.PaymentStatusPaid

	m := newTestSessionManager(newFakeStore(paid), &fakeGateway{})

	_, err := m.CreateSession(context.Background(), "ORD-20260828-BBBB2222", buyerID, 151500)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestCreateSessionRejectsResolvedPayable(t *testing.T) {
	failed := pendingOrder("ORD-20260828-BBBB2222", 151500)
	failed.PaymentStatus = order.PaymentStatusFailed

	gateway := &fakeGateway{}
	m := newTestSessionManager(newFakeStore(failed), gateway)

	_, err := m.CreateSession(context.Background(), "ORD-20260828-BBBB2222", buyerID, 151500)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already resolved")
	assert.Zero(t, gateway.createCalls)
}

func TestCreateSessionAmountMismatchIsFatal(t *testing.T) {
	gateway := &fakeGateway{}
	m := newTestSessionManager(newFakeStore(pendingOrder("ORD-20260828-BBBB2222", 151500)), gateway)

	_, err := m.CreateSession(context.Background(), "ORD-20260828-BBBB2222", buyerID, 150000)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	// Never forwarded to the gateway, never auto-corrected
	assert.Zero(t, gateway.createCalls)
}

func TestCreateSessionReusesActiveSession(t *testing.T) {
	payable := withSession(pendingOrder("ORD-20260828-BBBB2222", 151500))
	gateway := &fakeGateway{}
	m := newTestSessionManager(newFakeStore(payable), gateway)

	got, err := m.CreateSession(context.Background(), "ORD-20260828-BBBB2222", buyerID, 151500)
	require.NoError(t, err)

	assert.Equal(t, "snap-token-1", got.SessionID)
	assert.Equal(t, "https://gateway.example/pay/snap-token-1", got.RedirectURL)
	assert.Zero(t, gateway.createCalls, "a live session is reused, not reminted")
}

func TestCreateSessionRejectsForeignUser(t *testing.T) {
	gateway := &fakeGateway{}
	m := newTestSessionManager(newFakeStore(pendingOrder("ORD-20260828-BBBB2222", 151500)), gateway)

	// Someone else's order reads as not-found; no session is minted and
	// no payment details leak
	_, err := m.CreateSession(context.Background(), "ORD-20260828-BBBB2222", 99, 151500)
	assert.ErrorIs(t, err, ErrPayableNotFound)
	assert.Zero(t, gateway.createCalls)
}

func TestCreateSessionUnknownPayable(t *testing.T) {
	m := newTestSessionManager(newFakeStore(), &fakeGateway{})

	_, err := m.CreateSession(context.Background(), "ORD-20260828-NOPE0000", buyerID, 151500)
	assert.ErrorIs(t, err, ErrPayableNotFound)
}
