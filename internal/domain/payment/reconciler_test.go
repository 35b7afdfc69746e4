// internal/domain/payment/reconciler_test.go
package payment

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
)

// fakeStore holds payables in memory with the same CAS semantics as the
// database-backed store
type fakeStore struct {
	payables   map[string]*Payable
	applyCalls int
}

func newFakeStore(payables ...*Payable) *fakeStore {
	s := &fakeStore{payables: make(map[string]*Payable)}
	for _, p := range payables {
		s.payables[p.Code] = p
	}
	return s
}

func (s *fakeStore) GetPayable(ctx context.Context, code string) (*Payable, error) {
	p, ok := s.payables[code]
	if !ok {
		return nil, ErrPayableNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *fakeStore) SaveSession(ctx context.Context, code string, session *Session) error {
	p, ok := s.payables[code]
	if !ok {
		return ErrPayableNotFound
	}
	p.SessionID = session.ID
	p.RedirectURL = session.RedirectURL
	p.SessionExpiresAt = session.ExpiresAt
	return nil
}

func (s *fakeStore) ApplyStatus(ctx context.Context, code string, to order.PaymentStatus) (bool, error) {
	s.applyCalls++
	p, ok := s.payables[code]
	if !ok {
		return false, nil
	}
	if p.PaymentStatus != order.PaymentStatusPending {
		return false, nil
	}
	p.PaymentStatus = to
	return true, nil
}

// fakeGateway scripts gateway responses; the last status repeats
type fakeGateway struct {
	statuses    []GatewayStatus
	statusCalls int
	createCalls int
	session     *Session
	createErr   error
	statusErr   error
	verifyErr   error
}

func (g *fakeGateway) CreateTransaction(ctx context.Context, req *TransactionRequest) (*Session, error) {
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.session, nil
}

func (g *fakeGateway) GetTransactionStatus(ctx context.Context, orderCode string) (GatewayStatus, error) {
	g.statusCalls++
	if g.statusErr != nil {
		return "", g.statusErr
	}
	if len(g.statuses) == 0 {
		return GatewayPending, nil
	}
	status := g.statuses[0]
	if len(g.statuses) > 1 {
		g.statuses = g.statuses[1:]
	}
	return status, nil
}

func (g *fakeGateway) VerifyNotification(n *Notification) error {
	return g.verifyErr
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// buyerID owns every payable built by pendingOrder
const buyerID uint = 7

func pendingOrder(code string, amount int64) *Payable {
	return &Payable{
		Code:          code,
		UserID:        buyerID,
		Amount:        amount,
		Email:         "buyer@feedmarket.local",
		CustomerName:  "Budi Santoso",
		PaymentStatus: order.PaymentStatusPending,
	}
}

func withSession(p *Payable) *Payable {
	expires := time.Now().Add(time.Hour)
	p.SessionID = "snap-token-1"
	p.RedirectURL = "https://gateway.example/pay/snap-token-1"
	p.SessionExpiresAt = &expires
	return p
}

func TestApplyGatewayStatusSettlesPayment(t *testing.T) {
	store := newFakeStore(pendingOrder("ORD-20260828-AAAA1111", 151500))
	r := NewReconciler(store, &fakeGateway{}, quietLogger())

	var hookCodes []string
	r.RegisterPaidHook(func(ctx context.Context, code string) {
		hookCodes = append(hookCodes, code)
	})

	payable, err := r.ApplyGatewayStatus(context.Background(), "ORD-20260828-AAAA1111", GatewaySettlement)
	require.NoError(t, err)

	assert.Equal(t, order.PaymentStatusPaid, payable.PaymentStatus)
	assert.Equal(t, []string{"ORD-20260828-AAAA1111"}, hookCodes)
}

func TestApplyGatewayStatusIdempotent(t *testing.T) {
	store := newFakeStore(pendingOrder("ORD-20260828-AAAA1111", 151500))
	r := NewReconciler(store, &fakeGateway{}, quietLogger())

	hooks := 0
	r.RegisterPaidHook(func(ctx context.Context, code string) { hooks++ })

	_, err := r.ApplyGatewayStatus(context.Background(), "ORD-20260828-AAAA1111", GatewaySettlement)
	require.NoError(t, err)
	payable, err := r.ApplyGatewayStatus(context.Background(), "ORD-20260828-AAAA1111", GatewaySettlement)
	require.NoError(t, err)

	assert.Equal(t, order.PaymentStatusPaid, payable.PaymentStatus)
	assert.Equal(t, 1, hooks, "replayed signal must not re-run side effects")
}

func TestApplyGatewayStatusPaidIsMonotonic(t *testing.T) {
	store := newFakeStore(pendingOrder("ORD-20260828-AAAA1111", 151500))
	r := NewReconciler(store, &fakeGateway{}, quietLogger())

	_, err := r.ApplyGatewayStatus(context.Background(), "ORD-20260828-AAAA1111", GatewaySettlement)
	require.NoError(t, err)

	// A stale expire signal lands after settlement
	payable, err := r.ApplyGatewayStatus(context.Background(), "ORD-20260828-AAAA1111", GatewayExpire)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, payable.PaymentStatus)
}

func TestApplyGatewayStatusPendingIsNoOp(t *testing.T) {
	store := newFakeStore(pendingOrder("ORD-20260828-AAAA1111", 151500))
	r := NewReconciler(store, &fakeGateway{}, quietLogger())

	payable, err := r.ApplyGatewayStatus(context.Background(), "ORD-20260828-AAAA1111", GatewayPending)
	require.NoError(t, err)

	assert.Equal(t, order.PaymentStatusPending, payable.PaymentStatus)
	assert.Zero(t, store.applyCalls)
}

func TestResolveRequiresSession(t *testing.T) {
	store := newFakeStore(pendingOrder("ORD-20260828-AAAA1111", 151500))
	gateway := &fakeGateway{}
	r := NewReconciler(store, gateway, quietLogger())

	_, err := r.Resolve(context.Background(), "ORD-20260828-AAAA1111")
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Zero(t, gateway.statusCalls)
}

func TestResolveTerminalSkipsGateway(t *testing.T) {
	paid := withSession(pendingOrder("ORD-20260828-AAAA1111", 151500))
	paid.PaymentStatus = order.PaymentStatusPaid

	gateway := &fakeGateway{}
	r := NewReconciler(newFakeStore(paid), gateway, quietLogger())

	payable, err := r.Resolve(context.Background(), "ORD-20260828-AAAA1111")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, payable.PaymentStatus)
	assert.Zero(t, gateway.statusCalls)
}

func TestResolveAppliesGatewayStatus(t *testing.T) {
	store := newFakeStore(withSession(pendingOrder("ORD-20260828-AAAA1111", 151500)))
	gateway := &fakeGateway{statuses: []GatewayStatus{GatewayExpire}}
	r := NewReconciler(store, gateway, quietLogger())

	payable, err := r.Resolve(context.Background(), "ORD-20260828-AAAA1111")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusExpired, payable.PaymentStatus)
	assert.Equal(t, 1, gateway.statusCalls)
}

func TestResolveForRejectsForeignUser(t *testing.T) {
	store := newFakeStore(withSession(pendingOrder("ORD-20260828-AAAA1111", 151500)))
	gateway := &fakeGateway{statuses: []GatewayStatus{GatewaySettlement}}
	r := NewReconciler(store, gateway, quietLogger())

	// A stranger refreshing someone else's order gets not-found and
	// never reaches the gateway
	_, err := r.ResolveFor(context.Background(), "ORD-20260828-AAAA1111", 99)
	assert.ErrorIs(t, err, ErrPayableNotFound)
	assert.Zero(t, gateway.statusCalls)

	_, err = r.PollUntilResolvedFor(context.Background(), "ORD-20260828-AAAA1111", 99)
	assert.ErrorIs(t, err, ErrPayableNotFound)
	assert.Zero(t, gateway.statusCalls)
	assert.Zero(t, store.applyCalls)
}

func TestResolveForOwner(t *testing.T) {
	store := newFakeStore(withSession(pendingOrder("ORD-20260828-AAAA1111", 151500)))
	gateway := &fakeGateway{statuses: []GatewayStatus{GatewaySettlement}}
	r := NewReconciler(store, gateway, quietLogger())

	payable, err := r.ResolveFor(context.Background(), "ORD-20260828-AAAA1111", buyerID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, payable.PaymentStatus)
}

func TestHandleNotificationRejectsBadSignature(t *testing.T) {
	store := newFakeStore(withSession(pendingOrder("ORD-20260828-AAAA1111", 151500)))
	gateway := &fakeGateway{verifyErr: ErrInvalidSignature}
	r := NewReconciler(store, gateway, quietLogger())

	_, err := r.HandleNotification(context.Background(), &Notification{
		OrderCode:         "ORD-20260828-AAAA1111",
		TransactionStatus: GatewaySettlement,
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	payable, err := store.GetPayable(context.Background(), "ORD-20260828-AAAA1111")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPending, payable.PaymentStatus)
}

func TestHandleNotificationAppliesVerifiedStatus(t *testing.T) {
	store := newFakeStore(withSession(pendingOrder("ORD-20260828-AAAA1111", 151500)))
	r := NewReconciler(store, &fakeGateway{}, quietLogger())

	payable, err := r.HandleNotification(context.Background(), &Notification{
		OrderCode:         "ORD-20260828-AAAA1111",
		TransactionStatus: GatewaySettlement,
	})
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, payable.PaymentStatus)
}

func TestHandleReturnTreatsReportedStatusAsAdvisory(t *testing.T) {
	store := newFakeStore(withSession(pendingOrder("ORD-20260828-AAAA1111", 151500)))
	// The browser claims settlement, the gateway still says pending
	gateway := &fakeGateway{statuses: []GatewayStatus{GatewayPending}}
	r := NewReconciler(store, gateway, quietLogger())

	payable, err := r.HandleReturn(context.Background(), "ORD-20260828-AAAA1111", "settlement")
	require.NoError(t, err)

	assert.Equal(t, order.PaymentStatusPending, payable.PaymentStatus)
	assert.Equal(t, 1, gateway.statusCalls)
}

func TestPollUntilResolvedStopsOnTerminal(t *testing.T) {
	store := newFakeStore(withSession(pendingOrder("ORD-20260828-AAAA1111", 151500)))
	gateway := &fakeGateway{statuses: []GatewayStatus{GatewayPending, GatewayPending, GatewaySettlement}}
	r := NewReconciler(store, gateway, quietLogger())
	r.SetPollPolicy(PollPolicy{MaxAttempts: 10, Interval: time.Millisecond})

	payable, err := r.PollUntilResolved(context.Background(), "ORD-20260828-AAAA1111")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, payable.PaymentStatus)
	assert.Equal(t, 3, gateway.statusCalls)
}

func TestPollUntilResolvedExhaustionStaysPending(t *testing.T) {
	store := newFakeStore(withSession(pendingOrder("ORD-20260828-AAAA1111", 151500)))
	gateway := &fakeGateway{}
	r := NewReconciler(store, gateway, quietLogger())
	r.SetPollPolicy(PollPolicy{MaxAttempts: 3, Interval: time.Millisecond})

	// Exhaustion is not a failure: the payable stays pending and payable
	payable, err := r.PollUntilResolved(context.Background(), "ORD-20260828-AAAA1111")
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPending, payable.PaymentStatus)
	assert.Equal(t, 3, gateway.statusCalls)
}
