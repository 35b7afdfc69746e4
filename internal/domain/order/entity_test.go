// internal/domain/order/entity_test.go
package order

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidStatusTransition(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusDelivered, false},
		{StatusProcessing, StatusShipped, true},
		// Seller single-step completion skips shipped
		{StatusProcessing, StatusDelivered, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		// Terminal states never move
		{StatusDelivered, StatusShipped, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusProcessing, false},
		// No backward moves
		{StatusProcessing, StatusPending, false},
		{StatusShipped, StatusProcessing, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, IsValidStatusTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestIsValidPaymentTransition(t *testing.T) {
	cases := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentStatusPending, PaymentStatusPaid, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusExpired, true},
		{PaymentStatusPending, PaymentStatusPending, false},
		// Paid is terminal and authoritative
		{PaymentStatusPaid, PaymentStatusFailed, false},
		{PaymentStatusPaid, PaymentStatusExpired, false},
		{PaymentStatusPaid, PaymentStatusPending, false},
		{PaymentStatusFailed, PaymentStatusPaid, false},
		{PaymentStatusExpired, PaymentStatusPaid, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, IsValidPaymentTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.True(t, PaymentStatusPaid.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
	assert.True(t, PaymentStatusExpired.IsTerminal())
}

func TestGenerateOrderCode(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateOrderCode()
		assert.Regexp(t, pattern, code)
		assert.False(t, seen[code], "duplicate order code %s", code)
		seen[code] = true
	}
}

func TestCanBeCompletedBy(t *testing.T) {
	processing := &Order{Status: StatusProcessing}
	// A buyer holds neither the store nor admin rights
	assert.False(t, processing.CanBeCompletedBy(false, false))
	assert.True(t, processing.CanBeCompletedBy(true, false))
	assert.True(t, processing.CanBeCompletedBy(false, true))

	for _, status := range []Status{StatusPending, StatusShipped, StatusDelivered, StatusCancelled} {
		o := &Order{Status: status}
		assert.False(t, o.CanBeCompletedBy(true, false), "seller completing %s", status)
		assert.False(t, o.CanBeCompletedBy(false, true), "admin completing %s", status)
	}
}

func TestCanBeCancelledBy(t *testing.T) {
	pending := &Order{Status: StatusPending}
	assert.True(t, pending.CanBeCancelledBy(false))
	assert.True(t, pending.CanBeCancelledBy(true))

	processing := &Order{Status: StatusProcessing}
	assert.False(t, processing.CanBeCancelledBy(false))
	assert.True(t, processing.CanBeCancelledBy(true))

	for _, status := range []Status{StatusShipped, StatusDelivered, StatusCancelled} {
		o := &Order{Status: status}
		assert.False(t, o.CanBeCancelledBy(false), "owner cancelling %s", status)
		assert.False(t, o.CanBeCancelledBy(true), "admin cancelling %s", status)
	}
}
