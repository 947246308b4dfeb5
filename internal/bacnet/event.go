package bacnet

import (
	"fmt"
	"strings"
)

// EventState is the event state of a monitored object.
type EventState uint8

// Event states.
const (
	EventStateNormal          EventState = 0
	EventStateFault           EventState = 1
	EventStateOffNormal       EventState = 2
	EventStateHighLimit       EventState = 3
	EventStateLowLimit        EventState = 4
	EventStateLifeSafetyAlarm EventState = 5
)

var eventStateNames = map[EventState]string{
	EventStateNormal:          "normal",
	EventStateFault:           "fault",
	EventStateOffNormal:       "offnormal",
	EventStateHighLimit:       "high-limit",
	EventStateLowLimit:        "low-limit",
	EventStateLifeSafetyAlarm: "life-safety-alarm",
}

// String returns the protocol name of the state.
func (s EventState) String() string { return enumString(eventStateNames, s) }

// ParseEventState parses a state name such as "offnormal".
func ParseEventState(s string) (EventState, error) {
	return parseEnum(eventStateNames, s, "event state")
}

// NotifyType distinguishes alarms from events and acknowledgments.
type NotifyType uint8

// Notify types.
const (
	NotifyAlarm           NotifyType = 0
	NotifyEvent           NotifyType = 1
	NotifyAckNotification NotifyType = 2
)

var notifyTypeNames = map[NotifyType]string{
	NotifyAlarm:           "alarm",
	NotifyEvent:           "event",
	NotifyAckNotification: "ack-notification",
}

// String returns the protocol name of the notify type.
func (n NotifyType) String() string { return enumString(notifyTypeNames, n) }

// ParseNotifyType parses a notify type name such as "alarm".
func ParseNotifyType(s string) (NotifyType, error) {
	return parseEnum(notifyTypeNames, s, "notify type")
}

// EventType is the event algorithm that produced a notification.
type EventType uint8

// Event types.
const (
	EventChangeOfBitstring   EventType = 0
	EventChangeOfState       EventType = 1
	EventChangeOfValue       EventType = 2
	EventCommandFailure      EventType = 3
	EventFloatingLimit       EventType = 4
	EventOutOfRange          EventType = 5
	EventChangeOfLifeSafety  EventType = 8
	EventExtended            EventType = 9
	EventBufferReady         EventType = 10
	EventUnsignedRange       EventType = 11
	EventChangeOfReliability EventType = 19
	EventNone                EventType = 20
)

var eventTypeNames = map[EventType]string{
	EventChangeOfBitstring:   "change-of-bitstring",
	EventChangeOfState:       "change-of-state",
	EventChangeOfValue:       "change-of-value",
	EventCommandFailure:      "command-failure",
	EventFloatingLimit:       "floating-limit",
	EventOutOfRange:          "out-of-range",
	EventChangeOfLifeSafety:  "change-of-life-safety",
	EventExtended:            "extended",
	EventBufferReady:         "buffer-ready",
	EventUnsignedRange:       "unsigned-range",
	EventChangeOfReliability: "change-of-reliability",
	EventNone:                "none",
}

// String returns the protocol name of the event type.
func (e EventType) String() string { return enumString(eventTypeNames, e) }

// ParseEventType parses an event type name such as "out-of-range".
func ParseEventType(s string) (EventType, error) {
	return parseEnum(eventTypeNames, s, "event type")
}

// enumString looks up a name, falling back to the number.
func enumString[T ~uint8](names map[T]string, v T) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("%d", uint8(v))
}

// parseEnum is the case-insensitive inverse of enumString.
func parseEnum[T ~uint8](names map[T]string, s, kind string) (T, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, name := range names {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q", ErrInvalidEnum, kind, s)
}
