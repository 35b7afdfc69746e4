// internal/domain/payment/errors.go
package payment

import "errors"

var (
	// ErrAmountMismatch indicates the amount offered for payment does
	// not equal the stored total. Never retried: the checkout snapshot
	// is authoritative.
	ErrAmountMismatch = errors.New("payment amount does not match order total")

	// ErrGatewayRejected indicates the gateway refused the request
	// (4xx). Retrying the same request will not help.
	ErrGatewayRejected = errors.New("payment gateway rejected request")

	// ErrGatewayUnavailable indicates a transient gateway failure (5xx
	// or network).
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrNoActiveSession indicates the payable has no live payment
	// session to refresh or resolve.
	ErrNoActiveSession = errors.New("no active payment session")

	// ErrPayableNotFound indicates the order or appointment code is
	// unknown.
	ErrPayableNotFound = errors.New("payable not found")

	// ErrAlreadyPaid indicates the payable is already settled; minting
	// another session would double-charge.
	ErrAlreadyPaid = errors.New("already paid")

	// ErrInvalidSignature indicates a webhook notification whose
	// signature does not verify against the server key.
	ErrInvalidSignature = errors.New("invalid notification signature")
)
