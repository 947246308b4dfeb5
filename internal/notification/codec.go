package notification

import (
	"fmt"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// FieldsPerRecipient is the number of flat-list slots one recipient uses.
const FieldsPerRecipient = 7

// Slot offsets within one recipient group.
const (
	fieldValidDays = iota
	fieldFromTime
	fieldToTime
	fieldRecipient
	fieldProcessID
	fieldConfirmed
	fieldTransitions
)

// EncodeRecipients flattens records into the seven-values-per-recipient
// form. Records with a nil Recipient encode a null in the recipient slot.
func EncodeRecipients(records []RecipientRecord) []bacnet.Value {
	out := make([]bacnet.Value, 0, len(records)*FieldsPerRecipient)
	for _, r := range records {
		recipient := bacnet.NewNull()
		if r.Recipient != nil {
			recipient = r.Recipient.value()
		}
		out = append(out,
			bacnet.NewBitStringValue(r.ValidDays),
			bacnet.NewTime(r.From),
			bacnet.NewTime(r.To),
			recipient,
			bacnet.NewUnsigned(r.ProcessID),
			bacnet.NewBoolean(r.Confirmed),
			bacnet.NewBitStringValue(r.Transitions),
		)
	}
	return out
}

// DecodeRecipients parses a flat value list into records. It fails with
// ErrInvalidArity when the length is not a multiple of FieldsPerRecipient
// and with ErrInvalidValue when any slot carries the wrong type. An empty
// list decodes to an empty, non-nil slice.
func DecodeRecipients(values []bacnet.Value) ([]RecipientRecord, error) {
	if len(values)%FieldsPerRecipient != 0 {
		return nil, fmt.Errorf("%w: got %d values", ErrInvalidArity, len(values))
	}

	records := make([]RecipientRecord, 0, len(values)/FieldsPerRecipient)
	for i := 0; i < len(values); i += FieldsPerRecipient {
		rec, err := decodeRecipient(values[i : i+FieldsPerRecipient])
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i/FieldsPerRecipient, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecipient(group []bacnet.Value) (RecipientRecord, error) {
	var (
		rec RecipientRecord
		ok  bool
	)

	if rec.ValidDays, ok = group[fieldValidDays].BitString(); !ok {
		return rec, slotError("validDays", group[fieldValidDays])
	}
	if rec.ValidDays.Len != daysInWeek {
		return rec, widthError("validDays", rec.ValidDays, daysInWeek)
	}
	if rec.From, ok = group[fieldFromTime].Time(); !ok {
		return rec, slotError("fromTime", group[fieldFromTime])
	}
	if rec.To, ok = group[fieldToTime].Time(); !ok {
		return rec, slotError("toTime", group[fieldToTime])
	}

	slot := group[fieldRecipient]
	if id, isID := slot.ObjectID(); isID {
		rec.Recipient = DeviceRecipient{Device: id}
	} else if addr, isAddr := slot.Address(); isAddr {
		rec.Recipient = AddressRecipient{Address: addr}
	} else {
		return rec, slotError("recipient", slot)
	}

	if rec.ProcessID, ok = group[fieldProcessID].Unsigned(); !ok {
		return rec, slotError("processIdentifier", group[fieldProcessID])
	}
	if rec.Confirmed, ok = group[fieldConfirmed].Boolean(); !ok {
		return rec, slotError("issueConfirmedNotifications", group[fieldConfirmed])
	}
	if rec.Transitions, ok = group[fieldTransitions].BitString(); !ok {
		return rec, slotError("transitions", group[fieldTransitions])
	}
	if rec.Transitions.Len != transitionCount {
		return rec, widthError("transitions", rec.Transitions, transitionCount)
	}
	return rec, nil
}

func slotError(field string, v bacnet.Value) error {
	return fmt.Errorf("%w: %s is %s", ErrInvalidValue, field, v.Tag)
}

func widthError(field string, b bacnet.BitString, want int) error {
	return fmt.Errorf("%w: %s has %d bits, want %d", ErrInvalidValue, field, b.Len, want)
}
