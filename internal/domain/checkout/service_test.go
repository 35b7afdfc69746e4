// internal/domain/checkout/service_test.go
package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/feedmarket-backend/internal/domain/shipping"
)

func TestFindQuote(t *testing.T) {
	quotes := []shipping.Quote{
		{Courier: "jne", Service: "REG", Cost: 15000},
		{Courier: "jne", Service: "YES", Cost: 28000},
		{Courier: "sicepat", Service: "BEST", Cost: 21000},
	}

	chosen, err := findQuote(quotes, "jne", "YES")
	require.NoError(t, err)
	assert.Equal(t, int64(28000), chosen.Cost)

	// The chosen option must come from the quoted set; anything else is
	// a stale or fabricated reference
	_, err = findQuote(quotes, "jne", "OKE")
	assert.Error(t, err)

	_, err = findQuote(nil, "jne", "REG")
	assert.Error(t, err)
}
