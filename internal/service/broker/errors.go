package broker

import "errors"

// Sentinel errors for the broker service layer.
var (
	// ErrNotFound means the broker or carrier does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateBroker means a broker with the same MC number already
	// exists in this carrier's CRM.
	ErrDuplicateBroker = errors.New("broker with this MC number already exists")

	// ErrInvalidInput wraps validation failures on caller-supplied fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition means the requested outreach_status change is not
	// allowed by the status state machine.
	ErrInvalidTransition = errors.New("invalid outreach status transition")
)
