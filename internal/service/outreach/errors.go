package outreach

import "errors"

// Sentinel errors for the outreach service layer.
var (
	// ErrNotFound means the referenced broker, carrier, or step does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOutreach means a non-cancelled initial step already exists
	// for this carrier/broker pair. Initiation is rejected, never retried.
	ErrDuplicateOutreach = errors.New("outreach already initiated for this broker")

	// ErrBrokerBlacklisted means no outreach may be scheduled or sent.
	ErrBrokerBlacklisted = errors.New("broker is blacklisted")

	// ErrInvalidInput wraps validation failures on caller-supplied fields.
	ErrInvalidInput = errors.New("invalid input")
)
