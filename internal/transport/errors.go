package transport

import "errors"

var (
	// ErrEmptyAddress is returned when a notification has no destination MAC.
	ErrEmptyAddress = errors.New("transport: destination address is empty")

	// ErrEncode is returned when a notification cannot be encoded.
	ErrEncode = errors.New("transport: encoding event notification")
)
