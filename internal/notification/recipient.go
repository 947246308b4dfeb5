package notification

import (
	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// Recipient is either a DeviceRecipient or an AddressRecipient. The
// interface is sealed; no other implementations exist.
type Recipient interface {
	// value returns the flat-list representation of the recipient slot.
	value() bacnet.Value

	// clone returns a copy that shares no memory with the receiver.
	clone() Recipient

	String() string
}

// DeviceRecipient addresses a recipient by device identifier. Its endpoint
// is resolved through the device location directory at dispatch time.
type DeviceRecipient struct {
	Device bacnet.ObjectID
}

func (r DeviceRecipient) value() bacnet.Value { return bacnet.NewObjectID(r.Device) }
func (r DeviceRecipient) clone() Recipient    { return r }

// String returns the device identifier.
func (r DeviceRecipient) String() string { return r.Device.String() }

// AddressRecipient addresses a recipient by explicit network address. It is
// delivered over the direct endpoint transport.
type AddressRecipient struct {
	Address bacnet.Address
}

func (r AddressRecipient) value() bacnet.Value { return bacnet.NewAddress(r.Address) }
func (r AddressRecipient) clone() Recipient    { return AddressRecipient{Address: r.Address.Clone()} }

// String returns the network address.
func (r AddressRecipient) String() string { return "address:" + r.Address.String() }

// Day-of-week bit positions in RecipientRecord.ValidDays.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday

	daysInWeek = 7
)

// Transition bit positions in RecipientRecord.Transitions.
const (
	TransitionToOffNormal = iota
	TransitionToNormal
	TransitionToFault

	transitionCount = 3
)

// EveryDay is a ValidDays mask with all seven days set.
var EveryDay = bacnet.NewBitString(daysInWeek, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday)

// AllTransitions is a Transitions mask with all three transitions set.
var AllTransitions = bacnet.NewBitString(transitionCount, TransitionToOffNormal, TransitionToNormal, TransitionToFault)

// RecipientRecord is one subscriber of a notification class.
type RecipientRecord struct {
	// ValidDays has bit 0 = Monday .. bit 6 = Sunday.
	ValidDays bacnet.BitString

	// From and To bound the daily delivery window, both inclusive.
	From bacnet.TimeOfDay
	To   bacnet.TimeOfDay

	// Recipient is the device or address to deliver to. Never nil in a
	// record produced by DecodeRecipients.
	Recipient Recipient

	// ProcessID is returned to the recipient in every notification.
	ProcessID uint32

	// Confirmed is the issue-confirmed-notifications flag. It is carried
	// through the recipient list but deliveries are always unconfirmed.
	Confirmed bool

	// Transitions has bit 0 = to-offnormal, bit 1 = to-normal,
	// bit 2 = to-fault.
	Transitions bacnet.BitString
}

// Clone returns a deep copy of the record.
func (r RecipientRecord) Clone() RecipientRecord {
	if r.Recipient != nil {
		r.Recipient = r.Recipient.clone()
	}
	return r
}

// Equal reports whether two records are identical field by field.
func (r RecipientRecord) Equal(o RecipientRecord) bool {
	if r.ValidDays != o.ValidDays || r.From != o.From || r.To != o.To ||
		r.ProcessID != o.ProcessID || r.Confirmed != o.Confirmed || r.Transitions != o.Transitions {
		return false
	}

	switch a := r.Recipient.(type) {
	case DeviceRecipient:
		b, ok := o.Recipient.(DeviceRecipient)
		return ok && a == b
	case AddressRecipient:
		b, ok := o.Recipient.(AddressRecipient)
		return ok && a.Address.Equal(b.Address)
	default:
		return o.Recipient == nil
	}
}
