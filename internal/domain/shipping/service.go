// internal/domain/shipping/service.go
package shipping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/feedmarket-backend/internal/config"
)

// Service resolves shipping rates and locations against the external
// provider, retrying transient failures with bounded backoff
type Service struct {
	provider       RateProvider
	logger         *logrus.Logger
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewService creates a new shipping service
func NewService(provider RateProvider, logger *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		provider:       provider,
		logger:         logger,
		maxRetries:     cfg.Shipping.MaxRetries,
		retryBaseDelay: cfg.Shipping.RetryBaseDelay,
	}
}

// GetRates obtains shipping quotes for a route, floored at the minimum
// chargeable weight. Quotes come back in the provider's own ranking.
// An empty slice means no serviceable route, which the caller surfaces
// as "no shipping option", not as a failure.
func (s *Service) GetRates(ctx context.Context, req *RateRequest) ([]Quote, error) {
	if req.OriginID == "" || req.DestinationID == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", ErrInvalidRateRequest)
	}

	floored := *req
	if floored.WeightGrams < MinChargeableWeightGrams {
		floored.WeightGrams = MinChargeableWeightGrams
	}

	var quotes []Quote
	err := s.withRetry(ctx, "rate lookup", func() error {
		var lookupErr error
		quotes, lookupErr = s.provider.GetRates(ctx, &floored)
		return lookupErr
	})
	if err != nil {
		return nil, err
	}

	return quotes, nil
}

// SearchLocations looks up location candidates for a free-text query
func (s *Service) SearchLocations(ctx context.Context, query string) ([]Location, error) {
	var locations []Location
	err := s.withRetry(ctx, "location search", func() error {
		var searchErr error
		locations, searchErr = s.provider.SearchLocations(ctx, query)
		return searchErr
	})
	if err != nil {
		return nil, err
	}

	return locations, nil
}

// withRetry runs an idempotent provider call, retrying transient
// failures with exponential backoff up to the configured bound. Only
// ErrProviderUnavailable is retried; anything else propagates at once.
func (s *Service) withRetry(ctx context.Context, operation string, fn func() error) error {
	delay := s.retryBaseDelay

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrProviderUnavailable) {
			return lastErr
		}

		if attempt == s.maxRetries {
			break
		}

		s.logger.WithFields(logrus.Fields{
			"operation": operation,
			"attempt":   attempt,
			"delay":     delay.String(),
		}).Warn("Shipping provider unavailable, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s aborted: %w", operation, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, s.maxRetries, lastErr)
}
