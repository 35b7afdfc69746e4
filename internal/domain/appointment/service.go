// internal/domain/appointment/service.go
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
	"github.com/your-org/feedmarket-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Service handles appointment business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
	store  store
}

// NewService creates a new appointment service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
		store:  &gormStore{db: db},
	}
}

// BookRequest books a consultation slot
type BookRequest struct {
	ConsultantID  uint   `json:"consultant_id" binding:"required"`
	ScheduledDate string `json:"scheduled_date" binding:"required"` // YYYY-MM-DD
	ScheduledTime string `json:"scheduled_time" binding:"required"` // HH:MM
	Notes         string `json:"notes"`
}

// Book creates a pending appointment for the slot. The slot-conflict
// check here is advisory only: several buyers may hold pending bookings
// for the same slot, and the first one to pay wins it. Losing bookings
// stay unpaid until their payment session expires.
func (s *Service) Book(ctx context.Context, userID uint, req *BookRequest) (*Appointment, error) {
	if _, err := time.Parse("2006-01-02", req.ScheduledDate); err != nil {
		return nil, fmt.Errorf("invalid scheduled date: %w", err)
	}
	if _, err := time.Parse("15:04", req.ScheduledTime); err != nil {
		return nil, fmt.Errorf("invalid scheduled time: %w", err)
	}

	var consultant Consultant
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", req.ConsultantID, true).
		First(&consultant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConsultantNotFound
		}
		return nil, fmt.Errorf("failed to load consultant: %w", err)
	}

	taken, err := s.slotConfirmed(ctx, req.ConsultantID, req.ScheduledDate, req.ScheduledTime, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	var buyer user.User
	if err := s.db.WithContext(ctx).First(&buyer, userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	appointment := &Appointment{
		AppointmentCode: GenerateAppointmentCode(),
		UserID:          userID,
		ConsultantID:    req.ConsultantID,
		Email:           buyer.Email,
		CustomerName:    buyer.GetFullName(),
		ScheduledDate:   req.ScheduledDate,
		ScheduledTime:   req.ScheduledTime,
		Status:          StatusPending,
		PaymentStatus:   order.PaymentStatusPending,
		TotalAmount:     consultant.Fee,
		Notes:           req.Notes,
	}

	if err := s.db.WithContext(ctx).Create(appointment).Error; err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"appointment_code": appointment.AppointmentCode,
		"consultant_id":    req.ConsultantID,
		"slot":             appointment.SlotKey(),
	}).Info("Appointment booked")

	appointment.Consultant = consultant
	return appointment, nil
}

// Confirm settles a paid booking's claim on its slot. Called by the
// payment reconciler after the payment is committed. The first paid
// booking wins the slot; a booking paid after the slot is gone is
// cancelled with a warning. The partial unique index on confirmed
// slots is the arbiter when two settlements race, so two bookings can
// never both confirm the same slot.
func (s *Service) Confirm(ctx context.Context, code string) error {
	appointment, err := s.store.getByCode(ctx, code)
	if err != nil {
		return err
	}
	if appointment.Status != StatusPending {
		return nil
	}

	taken, err := s.store.slotConfirmed(ctx, appointment.ConsultantID,
		appointment.ScheduledDate, appointment.ScheduledTime, appointment.ID)
	if err != nil {
		return err
	}

	if !taken {
		claimed, err := s.store.claimSlot(ctx, appointment)
		if err == nil {
			if claimed {
				s.logger.WithFields(logrus.Fields{
					"appointment_code": code,
					"slot":             appointment.SlotKey(),
				}).Info("Appointment confirmed")
			}
			return nil
		}
		if !errors.Is(err, ErrSlotTaken) {
			return err
		}
		// A concurrent settlement confirmed the slot between the check
		// and the claim; fall through to the lost-slot branch
	}

	s.logger.WithFields(logrus.Fields{
		"appointment_code": code,
		"slot":             appointment.SlotKey(),
	}).Warn("Paid booking lost its slot, cancelling")

	return s.store.cancelPending(ctx, appointment.ID)
}

// GetAppointments retrieves the user's appointments, newest first
func (s *Service) GetAppointments(ctx context.Context, userID uint) ([]Appointment, error) {
	var appointments []Appointment
	err := s.db.WithContext(ctx).
		Preload("Consultant").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve appointments: %w", err)
	}
	return appointments, nil
}

// GetByCode retrieves an appointment visible to the given user
func (s *Service) GetByCode(ctx context.Context, userID uint, code string) (*Appointment, error) {
	appointment, err := s.getByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if appointment.UserID != userID {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

// Lookup loads an appointment by code without an ownership check, for
// internal consumers like payment hooks
func (s *Service) Lookup(ctx context.Context, code string) (*Appointment, error) {
	return s.getByCode(ctx, code)
}

func (s *Service) getByCode(ctx context.Context, code string) (*Appointment, error) {
	return s.store.getByCode(ctx, code)
}

// Cancel cancels a pending or confirmed appointment before its date
func (s *Service) Cancel(ctx context.Context, userID uint, code string) (*Appointment, error) {
	appointment, err := s.GetByCode(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	if appointment.Status != StatusPending && appointment.Status != StatusConfirmed {
		return nil, ErrNotCancellable
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&Appointment{}).
		Where("id = ? AND status = ?", appointment.ID, appointment.Status).
		Updates(map[string]interface{}{
			"status":       StatusCancelled,
			"cancelled_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotCancellable
	}

	appointment.Status = StatusCancelled
	appointment.CancelledAt = &now
	return appointment, nil
}

// ListConsultants lists active consultants
func (s *Service) ListConsultants(ctx context.Context) ([]Consultant, error) {
	var consultants []Consultant
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&consultants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve consultants: %w", err)
	}
	return consultants, nil
}

// GetTakenSlots returns the confirmed slot times for a consultant on a
// given date, for client-side availability display
func (s *Service) GetTakenSlots(ctx context.Context, consultantID uint, date string) ([]string, error) {
	var times []string
	err := s.db.WithContext(ctx).Model(&Appointment{}).
		Where("consultant_id = ? AND scheduled_date = ? AND status = ?",
			consultantID, date, StatusConfirmed).
		Pluck("scheduled_time", &times).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve taken slots: %w", err)
	}
	return times, nil
}

// slotConfirmed reports whether the slot has a confirmed booking other
// than excludeID
func (s *Service) slotConfirmed(ctx context.Context, consultantID uint, date, slot string, excludeID uint) (bool, error) {
	return s.store.slotConfirmed(ctx, consultantID, date, slot, excludeID)
}
