// internal/domain/payment/store.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/feedmarket-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Payable is the payment-facing view of anything that can be paid for:
// orders and appointments share one session and reconciliation flow
type Payable struct {
	Code             string              `json:"code"`
	UserID           uint                `json:"-"`
	Amount           int64               `json:"amount"`
	Email            string              `json:"email"`
	CustomerName     string              `json:"customer_name"`
	PaymentStatus    order.PaymentStatus `json:"payment_status"`
	SessionID        string              `json:"session_id,omitempty"`
	RedirectURL      string              `json:"redirect_url,omitempty"`
	SessionExpiresAt *time.Time          `json:"session_expires_at,omitempty"`
}

// OwnedBy reports whether the payable belongs to the user
func (p *Payable) OwnedBy(userID uint) bool {
	return p.UserID == userID
}

// HasActiveSession reports whether a non-expired session exists
func (p *Payable) HasActiveSession(now time.Time) bool {
	if p.SessionID == "" || p.SessionExpiresAt == nil {
		return false
	}
	return now.Before(*p.SessionExpiresAt)
}

// Store persists payment state for payables. The single write path for
// payment status is ApplyStatus, a compare-and-set from pending.
type Store interface {
	// GetPayable loads the payment view of an order or appointment.
	GetPayable(ctx context.Context, code string) (*Payable, error)

	// SaveSession records the freshly minted session on the payable.
	SaveSession(ctx context.Context, code string, session *Session) error

	// ApplyStatus transitions payment status from pending to the given
	// terminal state. Returns false without error when the stored
	// status was no longer pending, making replays harmless.
	ApplyStatus(ctx context.Context, code string, to order.PaymentStatus) (bool, error)
}

// gormStore dispatches on the code prefix: ORD- rows live in orders,
// APT- rows in appointments
type gormStore struct {
	db *gorm.DB
}

// NewStore creates the database-backed payment store
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

const appointmentCodePrefix = "APT-"

// IsAppointmentPayable reports whether a payable code belongs to an
// appointment rather than an order
func IsAppointmentPayable(code string) bool {
	return strings.HasPrefix(code, appointmentCodePrefix)
}

func (s *gormStore) GetPayable(ctx context.Context, code string) (*Payable, error) {
	if IsAppointmentPayable(code) {
		return s.getAppointmentPayable(ctx, code)
	}
	return s.getOrderPayable(ctx, code)
}

func (s *gormStore) getOrderPayable(ctx context.Context, code string) (*Payable, error) {
	var o order.Order
	err := s.db.WithContext(ctx).Where("order_code = ?", code).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayableNotFound
		}
		return nil, fmt.Errorf("failed to load order for payment: %w", err)
	}

	return &Payable{
		Code:             o.OrderCode,
		UserID:           o.UserID,
		Amount:           o.TotalAmount,
		Email:            o.Email,
		CustomerName:     o.ShippingAddress.RecipientName,
		PaymentStatus:    o.PaymentStatus,
		SessionID:        o.PaymentSessionID,
		RedirectURL:      o.PaymentRedirectURL,
		SessionExpiresAt: o.PaymentSessionExpiresAt,
	}, nil
}

// appointmentRow mirrors the payment columns of the appointments table
type appointmentRow struct {
	AppointmentCode         string
	UserID                  uint
	TotalAmount             int64
	Email                   string
	CustomerName            string
	PaymentStatus           string
	PaymentSessionID        string
	PaymentRedirectURL      string
	PaymentSessionExpiresAt *time.Time
}

func (s *gormStore) getAppointmentPayable(ctx context.Context, code string) (*Payable, error) {
	var row appointmentRow
	err := s.db.WithContext(ctx).Table("appointments").
		Where("appointment_code = ?", code).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayableNotFound
		}
		return nil, fmt.Errorf("failed to load appointment for payment: %w", err)
	}

	return &Payable{
		Code:             row.AppointmentCode,
		UserID:           row.UserID,
		Amount:           row.TotalAmount,
		Email:            row.Email,
		CustomerName:     row.CustomerName,
		PaymentStatus:    order.PaymentStatus(row.PaymentStatus),
		SessionID:        row.PaymentSessionID,
		RedirectURL:      row.PaymentRedirectURL,
		SessionExpiresAt: row.PaymentSessionExpiresAt,
	}, nil
}

func (s *gormStore) SaveSession(ctx context.Context, code string, session *Session) error {
	updates := map[string]interface{}{
		"payment_session_id":         session.ID,
		"payment_redirect_url":       session.RedirectURL,
		"payment_session_expires_at": session.ExpiresAt,
	}

	result := s.payableQuery(ctx, code).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to save payment session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPayableNotFound
	}
	return nil
}

func (s *gormStore) ApplyStatus(ctx context.Context, code string, to order.PaymentStatus) (bool, error) {
	updates := map[string]interface{}{"payment_status": to}
	if to == order.PaymentStatusPaid {
		updates["paid_at"] = time.Now()
	}

	// Compare-and-set: only a pending payable can move. Anything else
	// already resolved and stays as it is.
	result := s.payableQuery(ctx, code).
		Where("payment_status = ?", order.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to apply payment status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *gormStore) payableQuery(ctx context.Context, code string) *gorm.DB {
	if IsAppointmentPayable(code) {
		return s.db.WithContext(ctx).Table("appointments").Where("appointment_code = ?", code)
	}
	return s.db.WithContext(ctx).Model(&order.Order{}).Where("order_code = ?", code)
}
