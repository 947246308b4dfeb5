package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// ServiceState summarises the dispatch engine for the status topic.
type ServiceState struct {
	// Accepting is false once the engine has begun shutting down.
	Accepting bool `json:"accepting"`
	InFlight  int  `json:"in_flight"`
	Devices   int  `json:"devices"`
	Classes   int  `json:"classes"`
}

// statusMessage is published retained on graylogic/system/status.
type statusMessage struct {
	Status    string        `json:"status"`
	ClientID  string        `json:"client_id"`
	Reason    string        `json:"reason,omitempty"`
	Engine    *ServiceState `json:"engine,omitempty"`
	Timestamp string        `json:"timestamp"`
}

const (
	statusOnline   = "online"
	statusDraining = "draining"
	statusOffline  = "offline"

	reasonUnexpected = "unexpected_disconnect"
	reasonGraceful   = "graceful_shutdown"
)

// SetStateSource registers the function that reports the engine state
// embedded in every status message. A nil fn omits the engine section.
func (c *Client) SetStateSource(fn func() ServiceState) {
	c.stateMu.Lock()
	c.state = fn
	c.stateMu.Unlock()
}

// MarkDraining publishes a draining status. Call it once transitions have
// been detached and in-flight notifications are being allowed to finish.
func (c *Client) MarkDraining() error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(Topics{}.SystemStatus(), c.qos(), true,
		c.statusPayload(statusDraining, ""))
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// publishStatus publishes without waiting; it runs on paho's connect
// goroutine.
func (c *Client) publishStatus(status, reason string) {
	c.client.Publish(Topics{}.SystemStatus(), c.qos(), true, c.statusPayload(status, reason))
}

func (c *Client) statusPayload(status, reason string) []byte {
	c.stateMu.RLock()
	fn := c.state
	c.stateMu.RUnlock()

	var state *ServiceState
	if fn != nil {
		s := fn()
		state = &s
	}
	return buildStatusPayload(status, c.cfg.Broker.ClientID, reason, state)
}

// configureLWT has the broker publish an offline status with no engine
// section if the service disconnects without calling Close.
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetWill(Topics{}.SystemStatus(),
		string(buildStatusPayload(statusOffline, clientID, reasonUnexpected, nil)), 1, true)
}

func buildStatusPayload(status, clientID, reason string, state *ServiceState) []byte {
	data, err := json.Marshal(statusMessage{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Engine:    state,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return []byte(fmt.Sprintf(`{"status":%q}`, status))
	}
	return data
}
