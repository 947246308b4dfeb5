package notification

import "errors"

// Domain errors for the notification package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, notification.ErrClassNotFound) {
//	    // handle not found case
//	}
var (
	// ErrInvalidArity is returned when a flat recipient list is not a
	// multiple of seven values long.
	ErrInvalidArity = errors.New("notification: recipient list length is not a multiple of 7")

	// ErrInvalidValue is returned when a slot in a flat recipient list has
	// the wrong type.
	ErrInvalidValue = errors.New("notification: invalid recipient value")

	// ErrClassNotFound is returned when a notification class instance does
	// not exist.
	ErrClassNotFound = errors.New("notification: class not found")

	// ErrInvalidClass is returned when a class fails validation.
	ErrInvalidClass = errors.New("notification: invalid class")

	// ErrInvalidTransition is returned when a state-transition message
	// cannot be decoded.
	ErrInvalidTransition = errors.New("notification: invalid transition message")

	// ErrInvalidProvisioning is returned when a class provisioning file
	// cannot be parsed or fails validation.
	ErrInvalidProvisioning = errors.New("notification: invalid provisioning file")

	// ErrEngineClosed is reported to observers for deliveries abandoned
	// during shutdown.
	ErrEngineClosed = errors.New("notification: engine closed")
)
