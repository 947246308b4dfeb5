package directory

import "errors"

// Domain errors for the directory package.
var (
	// ErrInvalidAnnouncement is returned when an announcement payload cannot
	// be decoded or names an out-of-range device.
	ErrInvalidAnnouncement = errors.New("directory: invalid announcement")

	// ErrTopicMismatch is returned when the device instance in the topic
	// disagrees with the one in the payload.
	ErrTopicMismatch = errors.New("directory: topic and payload device differ")
)
