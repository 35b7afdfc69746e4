// internal/domain/payment/store_test.go
package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsAppointmentPayable(t *testing.T) {
	assert.True(t, IsAppointmentPayable("APT-20260828-AAAA1111"))
	assert.False(t, IsAppointmentPayable("ORD-20260828-AAAA1111"))
	assert.False(t, IsAppointmentPayable(""))
}

func TestPayableHasActiveSession(t *testing.T) {
	now := time.Now()

	p := &Payable{}
	assert.False(t, p.HasActiveSession(now), "no session at all")

	future := now.Add(time.Hour)
	p = &Payable{SessionID: "snap-1", SessionExpiresAt: &future}
	assert.True(t, p.HasActiveSession(now))

	past := now.Add(-time.Minute)
	p = &Payable{SessionID: "snap-1", SessionExpiresAt: &past}
	assert.False(t, p.HasActiveSession(now), "expired session")

	p = &Payable{SessionExpiresAt: &future}
	assert.False(t, p.HasActiveSession(now), "expiry without session id")
}
