package notification

import (
	"time"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// InWindow reports whether the wall-clock time of now lies within
// [rec.From, rec.To], inclusive at both ends. now should already be in the
// site's local time zone.
//
// A window whose From is later than its To (for example 22:00-06:00) never
// matches. Overnight windows must be configured as two recipients.
func InWindow(now time.Time, rec RecipientRecord) bool {
	t := bacnet.TimeOfDayFrom(now)
	return rec.From.Compare(t) <= 0 && t.Compare(rec.To) <= 0
}

// OnValidDay reports whether the weekday of now is set in rec.ValidDays.
func OnValidDay(now time.Time, rec RecipientRecord) bool {
	return rec.ValidDays.Bit(dayBit(now.Weekday()))
}

// dayBit maps time.Weekday (Sunday = 0) onto the ValidDays layout
// (Monday = 0 .. Sunday = 6).
func dayBit(wd time.Weekday) int {
	return (int(wd) + daysInWeek - 1) % daysInWeek
}

// TransitionEnabled reports whether rec subscribes to transitions into the
// given state. Only Offnormal, Normal and Fault have a bit in the
// transitions mask; any other target state is never enabled.
func TransitionEnabled(to bacnet.EventState, rec RecipientRecord) bool {
	switch to {
	case bacnet.EventStateOffNormal:
		return rec.Transitions.Bit(TransitionToOffNormal)
	case bacnet.EventStateNormal:
		return rec.Transitions.Bit(TransitionToNormal)
	case bacnet.EventStateFault:
		return rec.Transitions.Bit(TransitionToFault)
	default:
		return false
	}
}

// ackBit selects the AckRequired bit for a transition into to. Every
// off-normal state, limit and life-safety alarms included, acknowledges
// through the to-offnormal bit.
func ackBit(to bacnet.EventState) int {
	switch to {
	case bacnet.EventStateNormal:
		return TransitionToNormal
	case bacnet.EventStateFault:
		return TransitionToFault
	default:
		return TransitionToOffNormal
	}
}

// Eligible reports whether a transition into to, happening at now, should
// be sent to rec. All three predicates must hold.
func Eligible(now time.Time, to bacnet.EventState, rec RecipientRecord) bool {
	return InWindow(now, rec) && OnValidDay(now, rec) && TransitionEnabled(to, rec)
}
