package stripepay

import "errors"

var (
	// ErrNotConfigured is returned when the Stripe keys are missing
	ErrNotConfigured = errors.New("payment provider not configured")

	// ErrInvalidRequest is returned when the session parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrProvider is returned when Stripe rejects or fails a call
	ErrProvider = errors.New("payment provider error")

	// ErrInvalidSignature is returned when a webhook payload fails signature verification
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrUnsupportedEvent is returned for webhook events the shop does not act on
	ErrUnsupportedEvent = errors.New("unsupported webhook event")
)
