// internal/domain/order/errors.go
package order

import "errors"

var (
	// ErrOrderNotFound indicates the order does not exist or is not
	// visible to the requesting user.
	ErrOrderNotFound = errors.New("order not found")

	// ErrStaleQuote indicates the chosen shipping quote was not
	// re-resolved within the current checkout session. Never
	// auto-corrected: the caller must fetch fresh quotes.
	ErrStaleQuote = errors.New("stale shipping quote")

	// ErrInvalidTransition indicates a fulfillment transition outside
	// the state table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotCancellable indicates the order is past the point where the
	// caller may cancel it.
	ErrNotCancellable = errors.New("order cannot be cancelled")

	// ErrNotStoreOwner indicates the caller does not own the store a
	// seller action was attempted against.
	ErrNotStoreOwner = errors.New("not the store owner")
)
