// Package bacnet holds the protocol primitives shared by the alarm and event
// subsystem: object identifiers, network addresses, time-of-day values, bit
// strings, application-tagged values and the event notification record.
//
// Nothing in this package performs I/O. The event notification record has a
// compact CBOR encoding (integer map keys, deterministic ordering) that the
// MQTT transport uses as its payload:
//
//	payload, err := bacnet.EncodeEventNotification(ev)
//	ev, err := bacnet.DecodeEventNotification(payload)
//
// # Value types
//
// Property values travel as flat, ordered []Value sequences where each Value
// carries its ApplicationTag. Typed accessors report whether the tag matched:
//
//	v := bacnet.NewUnsigned(42)
//	n, ok := v.Unsigned() // 42, true
//	_, ok = v.Boolean()   // false
//
// Thread Safety: all types are plain values. Address contains a byte slice;
// use Address.Clone when a copy must not alias the original.
package bacnet
