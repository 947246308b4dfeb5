package notification

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// TransitionMessage is published by the event-detection collaborator each
// time a monitored object changes event state.
// Topic: graylogic/transition/{notification_class}
type TransitionMessage struct {
	// NotificationClass is the class the object reports to.
	NotificationClass uint32 `json:"notification_class"`

	// Object is the monitored object in "type:instance" form,
	// e.g. "analog-input:3".
	Object string `json:"object"`

	FromState  string `json:"from_state"`
	ToState    string `json:"to_state"`
	NotifyType string `json:"notify_type"`
	EventType  string `json:"event_type"`

	Timestamp time.Time `json:"timestamp"`
}

// transition is a decoded TransitionMessage.
type transition struct {
	class      uint32
	object     bacnet.ObjectID
	from, to   bacnet.EventState
	notifyType bacnet.NotifyType
	eventType  bacnet.EventType
}

func (m TransitionMessage) decode() (transition, error) {
	var (
		tr  transition
		err error
	)
	tr.class = m.NotificationClass
	if tr.object, err = bacnet.ParseObjectID(m.Object); err != nil {
		return tr, err
	}
	if tr.from, err = bacnet.ParseEventState(m.FromState); err != nil {
		return tr, err
	}
	if tr.to, err = bacnet.ParseEventState(m.ToState); err != nil {
		return tr, err
	}

	tr.notifyType = bacnet.NotifyAlarm
	if m.NotifyType != "" {
		if tr.notifyType, err = bacnet.ParseNotifyType(m.NotifyType); err != nil {
			return tr, err
		}
	}

	tr.eventType = bacnet.EventChangeOfState
	if m.EventType != "" {
		if tr.eventType, err = bacnet.ParseEventType(m.EventType); err != nil {
			return tr, err
		}
	}
	return tr, nil
}

// Listener turns transition messages into Dispatch calls.
type Listener struct {
	registry *Registry
	engine   *Engine
	logger   Logger
}

// NewListener creates a listener dispatching through engine to the classes
// held by registry.
func NewListener(registry *Registry, engine *Engine) *Listener {
	return &Listener{registry: registry, engine: engine, logger: noopLogger{}}
}

// SetLogger sets the logger for the listener.
func (l *Listener) SetLogger(logger Logger) {
	l.logger = logger
}

// Handle decodes one transition message and dispatches it. The signature
// matches mqtt.MessageHandler.
func (l *Listener) Handle(topic string, payload []byte) error {
	var msg TransitionMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	if n, ok := classFromTopic(topic); ok && n != msg.NotificationClass {
		return fmt.Errorf("%w: topic %s names class %d, payload %d",
			ErrInvalidTransition, topic, n, msg.NotificationClass)
	}

	tr, err := msg.decode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	class, err := l.registry.Get(tr.class)
	if err != nil {
		return fmt.Errorf("transition of %s: %w", tr.object, err)
	}

	outcomes := l.engine.Dispatch(class, tr.object, tr.notifyType, tr.eventType, tr.from, tr.to)

	counts := make(map[Result]int, len(resultNames))
	for _, o := range outcomes {
		counts[o.Result]++
	}
	l.logger.Debug("transition dispatched",
		"class", tr.class,
		"object", tr.object.String(),
		"from", tr.from.String(),
		"to", tr.to.String(),
		"recipients", len(outcomes),
		"scheduled", counts[ResultScheduled],
		"ineligible", counts[ResultSkippedIneligible],
		"unreachable", counts[ResultSkippedUnreachable],
	)
	return nil
}

// classFromTopic extracts the trailing class number from a topic.
func classFromTopic(topic string) (uint32, bool) {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(topic[idx+1:], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
