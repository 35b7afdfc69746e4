// internal/domain/appointment/errors.go
package appointment

import "errors"

var (
	// ErrSlotTaken indicates the slot already has a confirmed booking.
	// The check at booking time is advisory: the real claim is payment.
	ErrSlotTaken = errors.New("appointment slot already taken")

	// ErrAppointmentNotFound indicates the appointment does not exist or
	// is not visible to the requesting user.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrConsultantNotFound indicates the consultant does not exist or
	// is inactive.
	ErrConsultantNotFound = errors.New("consultant not found")

	// ErrNotCancellable indicates the appointment is past cancellation.
	ErrNotCancellable = errors.New("appointment cannot be cancelled")
)
