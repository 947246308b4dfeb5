package bacnet

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with hundredth-of-a-second resolution,
// independent of any date.
type TimeOfDay struct {
	Hour       uint8 `json:"hour"`
	Minute     uint8 `json:"minute"`
	Second     uint8 `json:"second"`
	Hundredths uint8 `json:"hundredths"`
}

// Time-of-day limits.
const (
	maxHour       = 23
	maxMinute     = 59
	maxSecond     = 59
	maxHundredths = 99

	nanosPerHundredth = int(10 * time.Millisecond)
)

// EndOfDay is the last representable instant of a day (23:59:59.99).
var EndOfDay = TimeOfDay{Hour: maxHour, Minute: maxMinute, Second: maxSecond, Hundredths: maxHundredths}

// TimeOfDayFrom extracts the wall-clock time of t in t's own location.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	//nolint:gosec // clock fields are bounded (0-23, 0-59, 0-99)
	return TimeOfDay{
		Hour:       uint8(t.Hour()),
		Minute:     uint8(t.Minute()),
		Second:     uint8(t.Second()),
		Hundredths: uint8(t.Nanosecond() / nanosPerHundredth),
	}
}

// hundredths returns the time as hundredths of a second since midnight.
func (t TimeOfDay) hundredths() int {
	return ((int(t.Hour)*60+int(t.Minute))*60+int(t.Second))*100 + int(t.Hundredths)
}

// Compare returns -1, 0 or +1 as t is before, equal to or after u.
func (t TimeOfDay) Compare(u TimeOfDay) int {
	a, b := t.hundredths(), u.hundredths()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether every field is within range.
func (t TimeOfDay) IsValid() bool {
	return t.Hour <= maxHour && t.Minute <= maxMinute && t.Second <= maxSecond && t.Hundredths <= maxHundredths
}

// String renders "HH:MM:SS.hh".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%02d", t.Hour, t.Minute, t.Second, t.Hundredths)
}

// ParseTimeOfDay accepts "HH:MM", "HH:MM:SS" or "HH:MM:SS.hh".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	clock, frac, hasFrac := strings.Cut(strings.TrimSpace(s), ".")
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: expected HH:MM[:SS[.hh]], got %q", ErrInvalidTime, s)
	}
	if hasFrac && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("%w: hundredths require seconds, got %q", ErrInvalidTime, s)
	}

	fields := []string{parts[0], parts[1], "0", "0"}
	if len(parts) == 3 {
		fields[2] = parts[2]
	}
	if hasFrac {
		fields[3] = frac
	}

	limits := []uint64{maxHour, maxMinute, maxSecond, maxHundredths}
	var values [4]uint8
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 8)
		if err != nil || n > limits[i] {
			return TimeOfDay{}, fmt.Errorf("%w: field %q out of range in %q", ErrInvalidTime, f, s)
		}
		values[i] = uint8(n)
	}

	return TimeOfDay{Hour: values[0], Minute: values[1], Second: values[2], Hundredths: values[3]}, nil
}
