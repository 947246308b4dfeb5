// Package mqtt is the alarm service's broker connection.
//
// The client consumes two inbound streams, each a Role: device
// announcements feeding the directory and event state transitions feeding
// the dispatch engine. Attached roles are restored after a reconnect,
// announcements first. Outbound event notifications go through
// PublishContext, bounded by the caller's send timeout.
//
// A retained status message tracks the service's lifecycle: online after
// every connect, draining once transitions are detached at shutdown, and
// offline on Close or, through the will, on an unexpected disconnect. When
// a state source is set the message carries the engine's in-flight count
// and the number of known devices and classes.
//
// # Topics
//
//	graylogic/discovery/iam/{device}        device announcements (in)
//	graylogic/transition/{class}            event state transitions (in)
//	graylogic/bacnet/event/{net}/{station}  event notifications (out, CBOR)
//	graylogic/system/status                 service status (retained)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Attach(mqtt.RoleTransitions, listener.Handle)
//
// TLS should be enabled for any broker reachable off the controller
// (cfg.Broker.TLS=true). Payloads are not encrypted beyond the transport.
package mqtt
