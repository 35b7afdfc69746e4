// internal/domain/appointment/entity.go
package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Status represents the booking state of an appointment
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Consultant is a bookable livestock nutrition consultant
type Consultant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Specialty string         `gorm:"size:100" json:"specialty"`
	Bio       string         `gorm:"type:text" json:"bio"`
	Fee       int64          `gorm:"not null" json:"fee"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Appointment is a consultation booking. Confirmation is payment-gated:
// a booking holds no claim on its slot until it is paid.
type Appointment struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	AppointmentCode string              `gorm:"uniqueIndex;not null;size:50" json:"appointment_code"`
	UserID          uint                `gorm:"not null;index" json:"user_id"`
	ConsultantID    uint                `gorm:"not null;index" json:"consultant_id"`
	Email           string              `gorm:"not null;size:255" json:"email"`
	CustomerName    string              `gorm:"size:100" json:"customer_name"`
	ScheduledDate   string              `gorm:"not null;size:10;index:idx_appointment_slot" json:"scheduled_date"`
	ScheduledTime   string              `gorm:"not null;size:5;index:idx_appointment_slot" json:"scheduled_time"`
	Status          Status              `gorm:"not null;default:'pending'" json:"status"`
	PaymentStatus   order.PaymentStatus `gorm:"not null;default:'pending'" json:"payment_status"`
	TotalAmount     int64               `gorm:"not null" json:"total_amount"`

	// Active payment session (at most one non-expired at a time)
	PaymentSessionID        string     `gorm:"size:100" json:"payment_session_id,omitempty"`
	PaymentRedirectURL      string     `gorm:"size:500" json:"payment_redirect_url,omitempty"`
	PaymentSessionExpiresAt *time.Time `json:"payment_session_expires_at,omitempty"`

	Notes string `gorm:"type:text" json:"notes"`

	PaidAt      *time.Time     `json:"paid_at"`
	ConfirmedAt *time.Time     `json:"confirmed_at"`
	CancelledAt *time.Time     `json:"cancelled_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Consultant Consultant `gorm:"foreignKey:ConsultantID" json:"consultant,omitempty"`
}

// TableName overrides
func (Appointment) TableName() string { return "appointments" }
func (Consultant) TableName() string  { return "consultants" }

// GenerateAppointmentCode allocates a new externally-visible code.
// Format: APT-YYYYMMDD-XXXXXXXX
func GenerateAppointmentCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("APT-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

// SlotKey identifies a consultant's slot for conflict checks
func (a *Appointment) SlotKey() string {
	return fmt.Sprintf("%d/%s/%s", a.ConsultantID, a.ScheduledDate, a.ScheduledTime)
}
