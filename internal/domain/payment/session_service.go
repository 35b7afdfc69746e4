// internal/domain/payment/session_service.go
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
)

// sessionLockTTL bounds how long a session mint may hold the per-code
// lock before it is presumed dead
const sessionLockTTL = 15 * time.Second

// SessionManager mints and reuses hosted payment sessions. At most one
// non-expired session exists per payable at any time.
type SessionManager struct {
	store   Store
	gateway Gateway
	redis   *redis.Client
	config  *config.Config
	logger  *logrus.Logger
}

// NewSessionManager creates a new payment session manager
func NewSessionManager(store Store, gateway Gateway, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) *SessionManager {
	return &SessionManager{
		store:   store,
		gateway: gateway,
		redis:   redisClient,
		config:  cfg,
		logger:  logger,
	}
}

// CreateSession returns a payment session for the payable, reusing the
// existing one while it is still live. Codes the user does not own are
// reported as not found. The expected amount must equal the stored
// total exactly; a mismatch is fatal, never adjusted.
func (m *SessionManager) CreateSession(ctx context.Context, code string, userID uint, expectedAmount int64) (*Payable, error) {
	payable, err := m.store.GetPayable(ctx, code)
	if err != nil {
		return nil, err
	}
	if !payable.OwnedBy(userID) {
		return nil, ErrPayableNotFound
	}

	if payable.PaymentStatus == order.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}
	if payable.PaymentStatus.IsTerminal() {
		return nil, fmt.Errorf("payment already resolved as %s", payable.PaymentStatus)
	}
	if expectedAmount != payable.Amount {
		return nil, fmt.Errorf("%w: offered %d, total %d", ErrAmountMismatch, expectedAmount, payable.Amount)
	}

	if payable.HasActiveSession(time.Now()) {
		return payable, nil
	}

	// Per-code lock so concurrent requests cannot mint two sessions
	lockKey := fmt.Sprintf("payment:lock:%s", code)
	locked, err := m.redis.SetNX(ctx, lockKey, "1", sessionLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !locked {
		// Another request is minting; it may already have finished
		payable, err = m.store.GetPayable(ctx, code)
		if err != nil {
			return nil, err
		}
		if payable.HasActiveSession(time.Now()) {
			return payable, nil
		}
		return nil, fmt.Errorf("payment session creation in progress for %s", code)
	}
	defer m.redis.Del(ctx, lockKey)

	session, err := m.gateway.CreateTransaction(ctx, &TransactionRequest{
		OrderCode:    code,
		GrossAmount:  payable.Amount,
		CustomerName: payable.CustomerName,
		Email:        payable.Email,
		Expiry:       m.config.Gateway.SessionExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	if err := m.store.SaveSession(ctx, code, session); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"code":       code,
		"session_id": session.ID,
		"amount":     payable.Amount,
	}).Info("Payment session created")

	payable.SessionID = session.ID
	payable.RedirectURL = session.RedirectURL
	payable.SessionExpiresAt = session.ExpiresAt
	return payable, nil
}
