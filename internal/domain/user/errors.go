// internal/domain/user/errors.go
package user

import "errors"

var (
	// ErrAddressNotFound indicates the address does not exist or does
	// not belong to the requesting user.
	ErrAddressNotFound = errors.New("address not found")

	// ErrNoPrimaryAddress indicates the user has no primary address to
	// resolve a checkout against.
	ErrNoPrimaryAddress = errors.New("no primary address")

	// ErrAmbiguousLocation indicates a free-text location matched more
	// than one provider record. The caller must present the candidates
	// for disambiguation rather than guessing.
	ErrAmbiguousLocation = errors.New("ambiguous location")

	// ErrLocationNotFound indicates a free-text location matched no
	// provider record.
	ErrLocationNotFound = errors.New("location not found")
)
