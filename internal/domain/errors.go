package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRecipient = errors.New("recipient email must not be empty")
	ErrInvalidStatus    = errors.New("invalid status: must be pending, processing, sent, failed, or cancelled")
)
