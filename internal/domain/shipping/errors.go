// internal/domain/shipping/errors.go
package shipping

import "errors"

var (
	// ErrProviderUnavailable indicates a transient provider failure
	// (timeout, 5xx). Rate lookups are idempotent reads, so callers
	// retry these with bounded backoff before giving up.
	ErrProviderUnavailable = errors.New("shipping provider unavailable")

	// ErrInvalidRateRequest indicates the request is missing an origin
	// or destination and was never sent to the provider.
	ErrInvalidRateRequest = errors.New("invalid rate request")
)
