// internal/domain/shipping/service_test.go
package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/feedmarket-backend/internal/config"
)

// fakeProvider scripts provider responses per call
type fakeProvider struct {
	calls    int
	errs     []error
	quotes   []Quote
	lastRate *RateRequest
}

func (f *fakeProvider) GetRates(ctx context.Context, req *RateRequest) ([]Quote, error) {
	f.calls++
	f.lastRate = req
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.quotes, nil
}

func (f *fakeProvider) SearchLocations(ctx context.Context, query string) ([]Location, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func newTestService(provider RateProvider, maxRetries int) *Service {
	cfg := &config.Config{
		Shipping: config.ShippingConfig{
			MaxRetries:     maxRetries,
			RetryBaseDelay: time.Millisecond,
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewService(provider, logger, cfg)
}

func rateRequest(weight int) *RateRequest {
	return &RateRequest{
		OriginID:      "5819",
		DestinationID: "1391",
		WeightGrams:   weight,
		DeclaredValue: 130000,
	}
}

func TestGetRatesRetriesTransientFailure(t *testing.T) {
	provider := &fakeProvider{
		errs:   []error{ErrProviderUnavailable, ErrProviderUnavailable, nil},
		quotes: []Quote{{Courier: "jne", Service: "REG", Cost: 15000}},
	}
	svc := newTestService(provider, 3)

	quotes, err := svc.GetRates(context.Background(), rateRequest(20000))
	require.NoError(t, err)
	assert.Equal(t, 3, provider.calls)
	assert.Len(t, quotes, 1)
}

func TestGetRatesExhaustsRetryBudget(t *testing.T) {
	provider := &fakeProvider{
		errs: []error{ErrProviderUnavailable, ErrProviderUnavailable, ErrProviderUnavailable},
	}
	svc := newTestService(provider, 3)

	_, err := svc.GetRates(context.Background(), rateRequest(20000))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 3, provider.calls)
}

func TestGetRatesDoesNotRetryPermanentFailure(t *testing.T) {
	rejected := errors.New("rate lookup rejected with status 400")
	provider := &fakeProvider{errs: []error{rejected}}
	svc := newTestService(provider, 3)

	_, err := svc.GetRates(context.Background(), rateRequest(20000))
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 1, provider.calls)
}

func TestGetRatesAppliesWeightFloor(t *testing.T) {
	provider := &fakeProvider{quotes: []Quote{{Courier: "jne", Service: "REG"}}}
	svc := newTestService(provider, 1)

	req := rateRequest(40)
	_, err := svc.GetRates(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, MinChargeableWeightGrams, provider.lastRate.WeightGrams)
	// The caller's request is left untouched
	assert.Equal(t, 40, req.WeightGrams)
}

func TestGetRatesForwardsCashOnDelivery(t *testing.T) {
	provider := &fakeProvider{quotes: []Quote{{Courier: "jne", Service: "REG"}}}
	svc := newTestService(provider, 1)

	req := rateRequest(20000)
	req.CashOnDelivery = true
	_, err := svc.GetRates(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, provider.lastRate.CashOnDelivery)
}

func TestGetRatesEmptyResultIsNotAnError(t *testing.T) {
	provider := &fakeProvider{quotes: nil}
	svc := newTestService(provider, 3)

	quotes, err := svc.GetRates(context.Background(), rateRequest(20000))
	require.NoError(t, err)
	assert.Empty(t, quotes)
	// No serviceable route is a valid outcome, never retried
	assert.Equal(t, 1, provider.calls)
}

func TestGetRatesValidatesRoute(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, 3)

	_, err := svc.GetRates(context.Background(), &RateRequest{DestinationID: "1391"})
	assert.ErrorIs(t, err, ErrInvalidRateRequest)

	_, err = svc.GetRates(context.Background(), &RateRequest{OriginID: "5819"})
	assert.ErrorIs(t, err, ErrInvalidRateRequest)

	assert.Zero(t, provider.calls)
}

func TestGetRatesAbortsOnContextCancel(t *testing.T) {
	provider := &fakeProvider{
		errs: []error{ErrProviderUnavailable, ErrProviderUnavailable, ErrProviderUnavailable},
	}
	svc := newTestService(provider, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetRates(ctx, rateRequest(20000))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, provider.calls)
}
