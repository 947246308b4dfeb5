// Package transport holds the directory.Transport implementations that carry
// event notifications off the controller.
//
// MQTT publishes each notification as a CBOR document on
// graylogic/bacnet/event/{net}/{station}, where a protocol gateway picks it
// up and puts it on the wire.
package transport
