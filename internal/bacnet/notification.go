package bacnet

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// EventNotification is the record delivered to one recipient for one state
// transition.
//
// It contains no slices, maps or pointers: assigning an
// EventNotification produces an independent copy, which is what lets the
// dispatch engine hand every delivery task its own record.
type EventNotification struct {
	// ProcessID is the recipient's correlation token.
	ProcessID uint32 `cbor:"1,keyasint" json:"process_id"`

	// InitiatingDevice is the device that owns the notification class.
	InitiatingDevice ObjectID `cbor:"2,keyasint" json:"initiating_device"`

	// EventObject is the object whose state changed.
	EventObject ObjectID `cbor:"3,keyasint" json:"event_object"`

	Timestamp         time.Time  `cbor:"4,keyasint" json:"timestamp"`
	NotificationClass uint32     `cbor:"5,keyasint" json:"notification_class"`
	Priority          uint8      `cbor:"6,keyasint" json:"priority"`
	EventType         EventType  `cbor:"7,keyasint" json:"event_type"`
	NotifyType        NotifyType `cbor:"8,keyasint" json:"notify_type"`
	AckRequired       bool       `cbor:"9,keyasint" json:"ack_required"`
	FromState         EventState `cbor:"10,keyasint" json:"from_state"`
	ToState           EventState `cbor:"11,keyasint" json:"to_state"`
}

// encMode is the CBOR encoder mode for event notifications.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for event notifications.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Unknown keys are ignored so newer senders stay readable.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Validate checks the identifiers carried by the notification.
func (n EventNotification) Validate() error {
	if n.InitiatingDevice.Type != ObjectDevice || !n.InitiatingDevice.IsValid() {
		return fmt.Errorf("%w: initiating object %s is not a device", ErrInvalidNotification, n.InitiatingDevice)
	}
	if !n.EventObject.IsValid() {
		return fmt.Errorf("%w: event object %s out of range", ErrInvalidNotification, n.EventObject)
	}
	return nil
}

// EncodeEventNotification encodes a notification to CBOR bytes.
func EncodeEventNotification(n EventNotification) ([]byte, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding event notification: %w", err)
	}
	return data, nil
}

// DecodeEventNotification decodes CBOR bytes into a notification.
func DecodeEventNotification(data []byte) (EventNotification, error) {
	var n EventNotification
	if err := decMode.Unmarshal(data, &n); err != nil {
		return EventNotification{}, fmt.Errorf("%w: %w", ErrInvalidNotification, err)
	}
	if err := n.Validate(); err != nil {
		return EventNotification{}, err
	}
	return n, nil
}
