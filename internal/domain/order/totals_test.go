// internal/domain/order/totals_test.go
package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	// Two items: 50,000 x 2 + 30,000 x 1 = 130,000 subtotal, 15,000
	// shipping, 10% tax, 5% member discount
	totals := ComputeTotals(130000, 15000, 10, 5)

	assert.Equal(t, int64(130000), totals.Subtotal)
	assert.Equal(t, int64(15000), totals.Shipping)
	assert.Equal(t, int64(13000), totals.Tax)
	assert.Equal(t, int64(6500), totals.Discount)
	assert.Equal(t, int64(151500), totals.Total)
}

func TestComputeTotalsInvariant(t *testing.T) {
	cases := []struct {
		subtotal int64
		shipping int64
		tax      float64
		discount float64
	}{
		{130000, 15000, 10, 5},
		{1, 0, 10, 5},
		{999999, 25000, 11, 0},
		{0, 0, 0, 0},
	}

	for _, tc := range cases {
		totals := ComputeTotals(tc.subtotal, tc.shipping, tc.tax, tc.discount)
		assert.Equal(t, totals.Subtotal+totals.Shipping-totals.Discount+totals.Tax, totals.Total)
	}
}

func TestComputeTotalsZeroRates(t *testing.T) {
	totals := ComputeTotals(100000, 12000, 0, 0)

	assert.Zero(t, totals.Tax)
	assert.Zero(t, totals.Discount)
	assert.Equal(t, int64(112000), totals.Total)
}
