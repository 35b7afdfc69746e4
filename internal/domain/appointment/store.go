// internal/domain/appointment/store.go
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// store is the persistence seam for the settlement-time confirmation
// path, so slot arbitration can be exercised without a database.
type store interface {
	getByCode(ctx context.Context, code string) (*Appointment, error)
	slotConfirmed(ctx context.Context, consultantID uint, date, slot string, excludeID uint) (bool, error)

	// claimSlot moves the pending booking to confirmed. The partial
	// unique index on confirmed slots arbitrates concurrent claims:
	// losing the race returns ErrSlotTaken. False without error means
	// the booking was no longer pending.
	claimSlot(ctx context.Context, a *Appointment) (bool, error)

	// cancelPending cancels the booking if it is still pending.
	cancelPending(ctx context.Context, id uint) error
}

type gormStore struct {
	db *gorm.DB
}

func (g *gormStore) getByCode(ctx context.Context, code string) (*Appointment, error) {
	var appointment Appointment
	err := g.db.WithContext(ctx).
		Preload("Consultant").
		Where("appointment_code = ?", code).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to retrieve appointment: %w", err)
	}
	return &appointment, nil
}

func (g *gormStore) slotConfirmed(ctx context.Context, consultantID uint, date, slot string, excludeID uint) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&Appointment{}).
		Where("consultant_id = ? AND scheduled_date = ? AND scheduled_time = ? AND status = ? AND id <> ?",
			consultantID, date, slot, StatusConfirmed, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return count > 0, nil
}

func (g *gormStore) claimSlot(ctx context.Context, a *Appointment) (bool, error) {
	result := g.db.WithContext(ctx).Model(&Appointment{}).
		Where("id = ? AND status = ?", a.ID, StatusPending).
		Updates(map[string]interface{}{
			"status":       StatusConfirmed,
			"confirmed_at": time.Now(),
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, ErrSlotTaken
		}
		return false, fmt.Errorf("failed to confirm appointment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (g *gormStore) cancelPending(ctx context.Context, id uint) error {
	err := g.db.WithContext(ctx).Model(&Appointment{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":       StatusCancelled,
			"cancelled_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}
	return nil
}
