// internal/domain/appointment/entity_test.go
package appointment

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAppointmentCode(t *testing.T) {
	pattern := regexp.MustCompile(`^APT-\d{8}-[0-9A-F]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateAppointmentCode()
		assert.Regexp(t, pattern, code)
		assert.False(t, seen[code], "duplicate appointment code %s", code)
		seen[code] = true
	}
}

func TestSlotKey(t *testing.T) {
	a := &Appointment{
		ConsultantID:  3,
		ScheduledDate: "2026-09-01",
		ScheduledTime: "10:00",
	}
	assert.Equal(t, "3/2026-09-01/10:00", a.SlotKey())

	other := &Appointment{
		ConsultantID:  4,
		ScheduledDate: "2026-09-01",
		ScheduledTime: "10:00",
	}
	assert.NotEqual(t, a.SlotKey(), other.SlotKey(), "different consultants never collide")
}
