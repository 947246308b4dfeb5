package bacnet

import (
	"fmt"
	"strconv"
	"strings"
)

// ObjectType is the BACnet object type enumeration.
type ObjectType uint16

// Object types used by the alarm subsystem. The numbering follows the
// protocol's BACnetObjectType enumeration.
const (
	ObjectAnalogInput       ObjectType = 0
	ObjectAnalogOutput      ObjectType = 1
	ObjectAnalogValue       ObjectType = 2
	ObjectBinaryInput       ObjectType = 3
	ObjectBinaryOutput      ObjectType = 4
	ObjectBinaryValue       ObjectType = 5
	ObjectCalendar          ObjectType = 6
	ObjectDevice            ObjectType = 8
	ObjectEventEnrollment   ObjectType = 9
	ObjectMultiStateInput   ObjectType = 13
	ObjectMultiStateOutput  ObjectType = 14
	ObjectNotificationClass ObjectType = 15
	ObjectSchedule          ObjectType = 17
	ObjectMultiStateValue   ObjectType = 19
)

// Object identifier limits.
const (
	// MaxInstance is the largest encodable instance number (22 bits).
	MaxInstance = 1<<22 - 1

	// maxObjectType is the largest encodable object type (10 bits).
	maxObjectType = 1<<10 - 1

	// objectIDParts is the number of ":"-separated parts in "type:instance".
	objectIDParts = 2
)

var objectTypeNames = map[ObjectType]string{
	ObjectAnalogInput:       "analog-input",
	ObjectAnalogOutput:      "analog-output",
	ObjectAnalogValue:       "analog-value",
	ObjectBinaryInput:       "binary-input",
	ObjectBinaryOutput:      "binary-output",
	ObjectBinaryValue:       "binary-value",
	ObjectCalendar:          "calendar",
	ObjectDevice:            "device",
	ObjectEventEnrollment:   "event-enrollment",
	ObjectMultiStateInput:   "multi-state-input",
	ObjectMultiStateOutput:  "multi-state-output",
	ObjectNotificationClass: "notification-class",
	ObjectSchedule:          "schedule",
	ObjectMultiStateValue:   "multi-state-value",
}

// String returns the hyphenated protocol name, or the number for types
// without a registered name.
func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// ParseObjectType accepts either a registered name ("analog-input") or a
// decimal type number.
func ParseObjectType(s string) (ObjectType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range objectTypeNames {
		if name == s {
			return t, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n > maxObjectType {
		return 0, fmt.Errorf("%w: unknown object type %q", ErrInvalidObjectID, s)
	}
	return ObjectType(n), nil
}

// ObjectID identifies one object within a device.
type ObjectID struct {
	Type     ObjectType `cbor:"1,keyasint" json:"type"`
	Instance uint32     `cbor:"2,keyasint" json:"instance"`
}

// DeviceID returns the identifier of the device object with the given instance.
func DeviceID(instance uint32) ObjectID {
	return ObjectID{Type: ObjectDevice, Instance: instance}
}

// String returns the identifier as "type:instance", e.g. "device:1234".
func (id ObjectID) String() string {
	return fmt.Sprintf("%s:%d", id.Type, id.Instance)
}

// IsValid reports whether the identifier fits the protocol's encoding.
func (id ObjectID) IsValid() bool {
	return id.Type <= maxObjectType && id.Instance <= MaxInstance
}

// ParseObjectID parses "type:instance" where type is a name or number.
//
// Example:
//
//	id, err := ParseObjectID("analog-input:3")
func ParseObjectID(s string) (ObjectID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != objectIDParts {
		return ObjectID{}, fmt.Errorf("%w: expected type:instance, got %q", ErrInvalidObjectID, s)
	}

	t, err := ParseObjectType(parts[0])
	if err != nil {
		return ObjectID{}, err
	}

	instance, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || instance > MaxInstance {
		return ObjectID{}, fmt.Errorf("%w: instance must be 0-%d, got %q", ErrInvalidObjectID, MaxInstance, parts[1])
	}

	return ObjectID{Type: t, Instance: uint32(instance)}, nil
}
