package directory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// AnnouncementMessage is the identity announcement published by the
// discovery collaborator whenever it observes a device's I-Am broadcast.
// Topic: graylogic/discovery/iam/{device_instance}
type AnnouncementMessage struct {
	// DeviceInstance is the announcing device's instance number.
	DeviceInstance uint32 `json:"device_instance"`

	// Address is the station address the broadcast came from, in
	// bacnet.Address string form (e.g. "192.168.1.20:47808", "5@0a").
	Address string `json:"address"`

	// MaxAPDU, Segmentation and VendorID are informational only.
	MaxAPDU      uint32 `json:"max_apdu,omitempty"`
	Segmentation string `json:"segmentation,omitempty"`
	VendorID     uint16 `json:"vendor_id,omitempty"`

	// Timestamp is when the broadcast was observed (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`
}

// Logger is the logging interface used by the announcement handler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// AnnouncementHandler feeds a Directory from announcement messages that
// arrive over one transport. Every device it registers is bound to that
// transport, the same way a reply would go back out the interface the
// broadcast came in on.
type AnnouncementHandler struct {
	dir       *Directory
	transport Transport
	logger    Logger
}

// NewAnnouncementHandler creates a handler that registers devices against t.
func NewAnnouncementHandler(dir *Directory, t Transport) *AnnouncementHandler {
	return &AnnouncementHandler{dir: dir, transport: t, logger: noopLogger{}}
}

// SetLogger sets the logger for the handler.
func (h *AnnouncementHandler) SetLogger(logger Logger) {
	h.logger = logger
}

// Handle decodes one announcement and registers it. The signature matches
// mqtt.MessageHandler so the handler can be subscribed directly.
func (h *AnnouncementHandler) Handle(topic string, payload []byte) error {
	var msg AnnouncementMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnnouncement, err)
	}

	if msg.DeviceInstance > bacnet.MaxInstance {
		return fmt.Errorf("%w: device instance %d out of range", ErrInvalidAnnouncement, msg.DeviceInstance)
	}

	if instance, ok := instanceFromTopic(topic); ok && instance != msg.DeviceInstance {
		return fmt.Errorf("%w: topic %s, payload %d", ErrTopicMismatch, topic, msg.DeviceInstance)
	}

	addr, err := bacnet.ParseAddress(msg.Address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnnouncement, err)
	}

	h.dir.RegisterAnnouncement(msg.DeviceInstance, h.transport, addr)
	h.logger.Debug("device announced",
		"device", msg.DeviceInstance,
		"address", addr.String(),
		"transport", h.transport.Name(),
		"vendor_id", msg.VendorID,
	)
	return nil
}

// instanceFromTopic extracts the trailing device instance from a topic.
// Topics without a numeric last segment are accepted as-is.
func instanceFromTopic(topic string) (uint32, bool) {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 || idx == len(topic)-1 {
		return 0, false
	}
	n, err := strconv.ParseUint(topic[idx+1:], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
