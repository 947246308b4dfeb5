package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Role names one inbound stream of the alarm service.
type Role int

const (
	// RoleAnnouncements carries device identity announcements into the
	// directory.
	RoleAnnouncements Role = iota

	// RoleTransitions carries event state transitions into the dispatch
	// engine.
	RoleTransitions
)

// roleOrder is the order roles are restored in after a reconnect, so the
// directory is being refilled before transitions resume.
var roleOrder = [...]Role{RoleAnnouncements, RoleTransitions}

func (r Role) String() string {
	switch r {
	case RoleAnnouncements:
		return "announcements"
	case RoleTransitions:
		return "transitions"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Topic returns the wildcard filter the role subscribes to, or "" for an
// unknown role.
func (r Role) Topic() string {
	switch r {
	case RoleAnnouncements:
		return Topics{}.AllAnnouncements()
	case RoleTransitions:
		return Topics{}.AllTransitions()
	default:
		return ""
	}
}

// Attach subscribes handler to the role's topic at the configured QoS.
// A role has at most one handler; attaching again replaces it. Attached
// roles are re-subscribed after every reconnect.
func (c *Client) Attach(role Role, handler MessageHandler) error {
	topic := role.Topic()
	if topic == "" {
		return fmt.Errorf("%w: unknown %s", ErrInvalidTopic, role)
	}
	if handler == nil {
		return fmt.Errorf("%w: %s handler is nil", ErrSubscribeFailed, role)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	if err := c.subscribe(topic, c.wrapHandler(role, handler)); err != nil {
		return fmt.Errorf("attaching %s: %w", role, err)
	}
	c.handlers[role] = handler
	return nil
}

// Detach stops the role's stream. The role is forgotten even when the
// broker cannot be reached, so it is not restored on reconnect. Detaching
// a role that is not attached does nothing.
func (c *Client) Detach(role Role) error {
	c.subMu.Lock()
	_, ok := c.handlers[role]
	delete(c.handlers, role)
	c.subMu.Unlock()

	if !ok {
		return nil
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Unsubscribe(role.Topic())
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrUnsubscribeFailed, role, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, role, err)
	}
	return nil
}

// Attached reports whether role currently has a handler.
func (c *Client) Attached(role Role) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	_, ok := c.handlers[role]
	return ok
}

// restoreRoles re-subscribes every attached role in roleOrder and returns
// the names of those the broker accepted.
func (c *Client) restoreRoles() []string {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	var restored []string
	for _, role := range roleOrder {
		handler, ok := c.handlers[role]
		if !ok {
			continue
		}
		if err := c.subscribe(role.Topic(), c.wrapHandler(role, handler)); err != nil {
			c.logger.Error("MQTT re-subscribe failed", "role", role.String(), "error", err)
			continue
		}
		restored = append(restored, role.String())
	}
	return restored
}

// subscribe waits for the broker to acknowledge one subscription.
func (c *Client) subscribe(topic string, handler pahomqtt.MessageHandler) error {
	token := c.client.Subscribe(topic, c.qos(), handler)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// wrapHandler logs handler errors and contains handler panics so one bad
// message cannot stop the stream.
func (c *Client) wrapHandler(role Role, handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("MQTT handler panic recovered",
					"role", role.String(),
					"topic", msg.Topic(),
					"panic", r,
				)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("MQTT message rejected",
				"role", role.String(),
				"topic", msg.Topic(),
				"error", err,
			)
		}
	}
}
