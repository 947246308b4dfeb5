package bacnet

import "errors"

// Domain errors for protocol primitives.
//
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidObjectID is returned when an object identifier cannot be parsed.
	ErrInvalidObjectID = errors.New("bacnet: invalid object identifier")

	// ErrInvalidAddress is returned when a network address cannot be parsed.
	ErrInvalidAddress = errors.New("bacnet: invalid address")

	// ErrInvalidTime is returned when a time-of-day string cannot be parsed.
	ErrInvalidTime = errors.New("bacnet: invalid time of day")

	// ErrInvalidEnum is returned when an enumerated name is not recognised.
	ErrInvalidEnum = errors.New("bacnet: invalid enumeration value")

	// ErrInvalidNotification is returned when an event notification payload
	// cannot be decoded.
	ErrInvalidNotification = errors.New("bacnet: invalid event notification")
)
