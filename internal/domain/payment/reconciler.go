// internal/domain/payment/reconciler.go
package payment

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
)

// PaidHook runs after a payable is confirmed paid. Hooks are side
// effects (fulfillment advance, confirmation email); payment state is
// already committed when they run.
type PaidHook func(ctx context.Context, code string)

// PollPolicy bounds the synchronous status poll
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPollPolicy gives the gateway roughly thirty seconds to settle
var DefaultPollPolicy = PollPolicy{
	MaxAttempts: 15,
	Interval:    2 * time.Second,
}

// Reconciler is the single funnel for payment state changes. Webhook,
// redirect return and polling all converge on ApplyGatewayStatus, so
// duplicated and out-of-order signals collapse into one transition.
type Reconciler struct {
	store     Store
	gateway   Gateway
	logger    *logrus.Logger
	policy    PollPolicy
	paidHooks []PaidHook
}

// NewReconciler creates a payment reconciler
func NewReconciler(store Store, gateway Gateway, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		gateway: gateway,
		logger:  logger,
		policy:  DefaultPollPolicy,
	}
}

// SetPollPolicy overrides the default poll bounds
func (r *Reconciler) SetPollPolicy(policy PollPolicy) {
	r.policy = policy
}

// RegisterPaidHook adds a side effect to run when a payable settles
func (r *Reconciler) RegisterPaidHook(hook PaidHook) {
	r.paidHooks = append(r.paidHooks, hook)
}

// ApplyGatewayStatus applies a verified gateway status to the payable.
// Idempotent: replays and signals arriving after resolution change
// nothing. Paid is authoritative and never overwritten.
func (r *Reconciler) ApplyGatewayStatus(ctx context.Context, code string, gs GatewayStatus) (*Payable, error) {
	target := MapGatewayStatus(gs)
	if target == order.PaymentStatusPending {
		return r.store.GetPayable(ctx, code)
	}

	applied, err := r.store.ApplyStatus(ctx, code, target)
	if err != nil {
		return nil, err
	}

	if !applied {
		// Already resolved; a late or duplicate signal is dropped
		payable, err := r.store.GetPayable(ctx, code)
		if err != nil {
			return nil, err
		}
		if payable.PaymentStatus != target {
			r.logger.WithFields(logrus.Fields{
				"code":     code,
				"stored":   payable.PaymentStatus,
				"incoming": target,
			}).Warn("Ignoring stale payment signal")
		}
		return payable, nil
	}

	r.logger.WithFields(logrus.Fields{
		"code":   code,
		"status": target,
	}).Info("Payment resolved")

	if target == order.PaymentStatusPaid {
		for _, hook := range r.paidHooks {
			hook(ctx, code)
		}
	}

	return r.store.GetPayable(ctx, code)
}

// Resolve queries the gateway for the authoritative status and applies
// it. This is the only trusted source besides signed notifications.
func (r *Reconciler) Resolve(ctx context.Context, code string) (*Payable, error) {
	payable, err := r.store.GetPayable(ctx, code)
	if err != nil {
		return nil, err
	}
	if payable.PaymentStatus.IsTerminal() {
		return payable, nil
	}
	if payable.SessionID == "" {
		return nil, ErrNoActiveSession
	}

	gs, err := r.gateway.GetTransactionStatus(ctx, code)
	if err != nil {
		return nil, err
	}
	return r.ApplyGatewayStatus(ctx, code, gs)
}

// ResolveFor resolves on behalf of a buyer. Codes the buyer does not
// own are reported as not found, never forwarded to the gateway.
func (r *Reconciler) ResolveFor(ctx context.Context, code string, userID uint) (*Payable, error) {
	if err := r.checkOwner(ctx, code, userID); err != nil {
		return nil, err
	}
	return r.Resolve(ctx, code)
}

// PollUntilResolvedFor is PollUntilResolved behind the same ownership
// gate as ResolveFor.
func (r *Reconciler) PollUntilResolvedFor(ctx context.Context, code string, userID uint) (*Payable, error) {
	if err := r.checkOwner(ctx, code, userID); err != nil {
		return nil, err
	}
	return r.PollUntilResolved(ctx, code)
}

func (r *Reconciler) checkOwner(ctx context.Context, code string, userID uint) error {
	payable, err := r.store.GetPayable(ctx, code)
	if err != nil {
		return err
	}
	if !payable.OwnedBy(userID) {
		return ErrPayableNotFound
	}
	return nil
}

// HandleNotification processes a server-to-server webhook. The
// signature is verified before anything is applied.
func (r *Reconciler) HandleNotification(ctx context.Context, n *Notification) (*Payable, error) {
	if err := r.gateway.VerifyNotification(n); err != nil {
		r.logger.WithField("code", n.OrderCode).Warn("Rejected webhook with bad signature")
		return nil, err
	}
	return r.ApplyGatewayStatus(ctx, n.OrderCode, n.TransactionStatus)
}

// HandleReturn processes the customer's redirect back from the hosted
// page. Redirect parameters are advisory: the reported status is logged
// but the gateway is queried for the truth.
func (r *Reconciler) HandleReturn(ctx context.Context, code string, reportedStatus string) (*Payable, error) {
	r.logger.WithFields(logrus.Fields{
		"code":     code,
		"reported": reportedStatus,
	}).Debug("Customer returned from payment page")
	return r.Resolve(ctx, code)
}

// PollUntilResolved polls the gateway until the payment reaches a
// terminal state or the policy is exhausted. Exhaustion is not an
// error: the payable simply stays pending and a later webhook or
// refresh will resolve it.
func (r *Reconciler) PollUntilResolved(ctx context.Context, code string) (*Payable, error) {
	var payable *Payable
	var err error

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		payable, err = r.Resolve(ctx, code)
		if err != nil {
			return nil, err
		}
		if payable.PaymentStatus.IsTerminal() {
			return payable, nil
		}

		select {
		case <-ctx.Done():
			return payable, ctx.Err()
		case <-time.After(r.policy.Interval):
		}
	}

	return payable, nil
}
