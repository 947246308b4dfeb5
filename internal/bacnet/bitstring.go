package bacnet

import "strings"

// BitString is a fixed-length bit string of up to 32 bits. Bit 0 is the
// first bit of the protocol encoding.
type BitString struct {
	Len  uint8  `json:"len"`
	Bits uint32 `json:"bits"`
}

// maxBitStringLen is the capacity of BitString.Bits.
const maxBitStringLen = 32

// NewBitString returns a bit string of the given length with the listed
// bit positions set. Positions at or beyond length are ignored.
func NewBitString(length uint8, set ...int) BitString {
	if length > maxBitStringLen {
		length = maxBitStringLen
	}
	b := BitString{Len: length}
	for _, i := range set {
		b = b.SetBit(i, true)
	}
	return b
}

// Bit reports whether bit i is set. Bits outside the string read as false.
func (b BitString) Bit(i int) bool {
	if i < 0 || i >= int(b.Len) {
		return false
	}
	return b.Bits&(1<<uint(i)) != 0
}

// SetBit returns a copy with bit i set to v. Out-of-range positions are a
// no-op.
func (b BitString) SetBit(i int, v bool) BitString {
	if i < 0 || i >= int(b.Len) {
		return b
	}
	if v {
		b.Bits |= 1 << uint(i)
	} else {
		b.Bits &^= 1 << uint(i)
	}
	return b
}

// String renders the bits in protocol order, e.g. "1010000".
func (b BitString) String() string {
	var sb strings.Builder
	for i := 0; i < int(b.Len); i++ {
		if b.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
