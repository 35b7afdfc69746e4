// internal/domain/cart/errors.go
package cart

import "errors"

var (
	// ErrEmptySelection indicates that none of the selected cart item
	// ids survived materialization.
	ErrEmptySelection = errors.New("empty cart selection")

	// ErrMixedStores indicates a selection spanning more than one
	// seller store. Orders are placed per store.
	ErrMixedStores = errors.New("selection spans multiple stores")

	// ErrItemNotFound indicates the cart item does not exist or does
	// not belong to the requesting user.
	ErrItemNotFound = errors.New("cart item not found")
)
