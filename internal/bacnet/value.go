package bacnet

import "fmt"

// ApplicationTag identifies the type carried by a Value.
type ApplicationTag uint8

// Application tags. TagAddress is not a protocol application tag; it marks
// the address arm of a recipient so that a flat value list can carry either
// a device identifier or an address in the same slot.
const (
	TagNull      ApplicationTag = 0
	TagBoolean   ApplicationTag = 1
	TagUnsigned  ApplicationTag = 2
	TagBitString ApplicationTag = 8
	TagTime      ApplicationTag = 11
	TagObjectID  ApplicationTag = 12
	TagAddress   ApplicationTag = 0xF0
)

var tagNames = map[ApplicationTag]string{
	TagNull:      "null",
	TagBoolean:   "boolean",
	TagUnsigned:  "unsigned",
	TagBitString: "bit-string",
	TagTime:      "time",
	TagObjectID:  "object-identifier",
	TagAddress:   "address",
}

// String returns the tag name.
func (t ApplicationTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Value is one application-tagged property value.
//
// The dynamic type of Value.Value is fixed by Tag:
//
//	TagNull      nil
//	TagBoolean   bool
//	TagUnsigned  uint32
//	TagBitString BitString
//	TagTime      TimeOfDay
//	TagObjectID  ObjectID
//	TagAddress   Address
type Value struct {
	Tag   ApplicationTag
	Value any
}

// NewNull returns a null value.
func NewNull() Value { return Value{Tag: TagNull} }

// NewBoolean returns a boolean value.
func NewBoolean(b bool) Value { return Value{Tag: TagBoolean, Value: b} }

// NewUnsigned returns an unsigned integer value.
func NewUnsigned(n uint32) Value { return Value{Tag: TagUnsigned, Value: n} }

// NewBitStringValue returns a bit string value.
func NewBitStringValue(b BitString) Value { return Value{Tag: TagBitString, Value: b} }

// NewTime returns a time-of-day value.
func NewTime(t TimeOfDay) Value { return Value{Tag: TagTime, Value: t} }

// NewObjectID returns an object identifier value.
func NewObjectID(id ObjectID) Value { return Value{Tag: TagObjectID, Value: id} }

// NewAddress returns an address value. The MAC is copied.
func NewAddress(a Address) Value { return Value{Tag: TagAddress, Value: a.Clone()} }

// Boolean returns the value as a bool if it carries TagBoolean.
func (v Value) Boolean() (bool, bool) {
	b, ok := v.Value.(bool)
	return b, ok && v.Tag == TagBoolean
}

// Unsigned returns the value as a uint32 if it carries TagUnsigned.
func (v Value) Unsigned() (uint32, bool) {
	n, ok := v.Value.(uint32)
	return n, ok && v.Tag == TagUnsigned
}

// BitString returns the value as a BitString if it carries TagBitString.
func (v Value) BitString() (BitString, bool) {
	b, ok := v.Value.(BitString)
	return b, ok && v.Tag == TagBitString
}

// Time returns the value as a TimeOfDay if it carries TagTime.
func (v Value) Time() (TimeOfDay, bool) {
	t, ok := v.Value.(TimeOfDay)
	return t, ok && v.Tag == TagTime
}

// ObjectID returns the value as an ObjectID if it carries TagObjectID.
func (v Value) ObjectID() (ObjectID, bool) {
	id, ok := v.Value.(ObjectID)
	return id, ok && v.Tag == TagObjectID
}

// Address returns a copy of the value as an Address if it carries TagAddress.
func (v Value) Address() (Address, bool) {
	a, ok := v.Value.(Address)
	if !ok || v.Tag != TagAddress {
		return Address{}, false
	}
	return a.Clone(), true
}

// String renders the value for logs.
func (v Value) String() string {
	if v.Tag == TagNull {
		return "null"
	}
	return fmt.Sprintf("%s(%v)", v.Tag, v.Value)
}
