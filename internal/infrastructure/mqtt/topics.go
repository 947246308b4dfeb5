package mqtt

import (
	"fmt"
	"net/url"
	"strings"
)

// Topic prefixes for the alarm service.
const (
	// TopicPrefix is the root of every Gray Logic topic.
	TopicPrefix = "graylogic"

	// TopicPrefixDiscovery carries device identity announcements.
	TopicPrefixDiscovery = "graylogic/discovery"

	// TopicPrefixTransition carries event state transitions from the
	// objects that detect them.
	TopicPrefixTransition = "graylogic/transition"

	// TopicPrefixEvent carries outbound event notifications.
	TopicPrefixEvent = "graylogic/bacnet/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for the alarm service's MQTT topics.
// Using these helpers keeps publishers and subscribers in agreement.
//
//	topics := mqtt.Topics{}
//	topic := topics.Transition(5)
//	// Returns: "graylogic/transition/5"
type Topics struct{}

// Announcement returns the topic a device identity announcement is
// published on.
//
// Example: graylogic/discovery/iam/1234
func (Topics) Announcement(deviceInstance uint32) string {
	return fmt.Sprintf("%s/iam/%d", TopicPrefixDiscovery, deviceInstance)
}

// Transition returns the topic event state transitions for a notification
// class are published on.
//
// Example: graylogic/transition/5
func (Topics) Transition(classInstance uint32) string {
	return fmt.Sprintf("%s/%d", TopicPrefixTransition, classInstance)
}

// EventNotification returns the topic an event notification for one station
// is published on. The station is path-escaped so it always forms a single
// topic level and never contains a wildcard.
//
// Example: graylogic/bacnet/event/0/192.168.1.20:47808
func (Topics) EventNotification(network uint16, station string) string {
	return fmt.Sprintf("%s/%d/%s", TopicPrefixEvent, network, escapeLevel(station))
}

// SystemStatus returns the topic for service online/offline status.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllAnnouncements returns a wildcard for every device announcement.
//
// Pattern: graylogic/discovery/iam/+
func (Topics) AllAnnouncements() string {
	return TopicPrefixDiscovery + "/iam/+"
}

// AllTransitions returns a wildcard for transitions of every class.
//
// Pattern: graylogic/transition/+
func (Topics) AllTransitions() string {
	return TopicPrefixTransition + "/+"
}

// AllEventNotifications returns a wildcard for every outbound notification.
//
// Pattern: graylogic/bacnet/event/+/+
func (Topics) AllEventNotifications() string {
	return TopicPrefixEvent + "/+/+"
}

// AllTopics returns a wildcard for every Gray Logic topic.
//
// Pattern: graylogic/#
// Warning: high volume. Use only for debugging.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// escapeLevel makes s safe as a single topic level. url.PathEscape leaves
// '+' alone, which MQTT treats as a wildcard.
func escapeLevel(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), "+", "%2B")
}
