package transport

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
	"github.com/nerrad567/gray-logic-alarms/internal/directory"
	"github.com/nerrad567/gray-logic-alarms/internal/infrastructure/mqtt"
)

// KindMQTT is the transport kind of MQTT.
const KindMQTT = "mqtt"

// Publisher is the part of the MQTT client the transport needs.
// *mqtt.Client satisfies it.
type Publisher interface {
	PublishContext(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error
}

// MQTT delivers event notifications by publishing them to the broker.
// It is safe for concurrent use if the Publisher is.
type MQTT struct {
	name      string
	publisher Publisher
	qos       byte
}

// Compile-time check.
var _ directory.Transport = (*MQTT)(nil)

// NewMQTT creates an MQTT transport. name identifies it in logs and history.
func NewMQTT(name string, publisher Publisher, qos byte) *MQTT {
	return &MQTT{name: name, publisher: publisher, qos: qos}
}

// Name returns the transport instance name.
func (t *MQTT) Name() string { return t.name }

// Kind returns KindMQTT.
func (t *MQTT) Kind() string { return KindMQTT }

// Send encodes ev and publishes it, not retained, to the station's event
// topic. A cancelled ctx stops the send before anything is published.
func (t *MQTT) Send(ctx context.Context, dest bacnet.Address, ev bacnet.EventNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(dest.MAC) == 0 {
		return ErrEmptyAddress
	}

	payload, err := bacnet.EncodeEventNotification(ev)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	topic := EventTopic(dest)
	if err := t.publisher.PublishContext(ctx, topic, payload, t.qos, false); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// EventTopic returns the topic notifications for dest are published on. The
// network number is its own level; the station is the MAC part of the
// address alone.
func EventTopic(dest bacnet.Address) string {
	station := bacnet.Address{MAC: dest.MAC}.String()
	return mqtt.Topics{}.EventNotification(dest.Net, station)
}
