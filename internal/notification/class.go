package notification

import (
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// DefaultPriority is the priority used for every transition unless
// configured otherwise.
const DefaultPriority uint8 = 127

// Class is a notification class object: a named group of recipients that
// event-generating objects report their transitions to.
//
// The descriptive fields are set before a class is shared and treated as
// read-only afterwards. The recipient list is guarded by its own lock and
// may be replaced at any time, including while Dispatch is iterating it.
type Class struct {
	// Instance is the notification class number.
	Instance uint32

	// Device is the instance of the device that owns the class. It becomes
	// the initiating device of every notification the class sends.
	Device uint32

	Name        string
	Description string

	// Priorities holds the per-transition priorities, indexed by
	// TransitionToOffNormal, TransitionToNormal and TransitionToFault.
	// They are stored and reported but not used when dispatching; every
	// notification carries the engine's configured priority.
	Priorities [transitionCount]uint8

	// AckRequired uses the same bit layout as RecipientRecord.Transitions.
	AckRequired bacnet.BitString

	mu         sync.RWMutex
	recipients []RecipientRecord
}

// NewClass returns an empty class with default priorities and no
// acknowledgments required.
func NewClass(instance, device uint32) *Class {
	return &Class{
		Instance:    instance,
		Device:      device,
		Priorities:  [transitionCount]uint8{DefaultPriority, DefaultPriority, DefaultPriority},
		AckRequired: bacnet.NewBitString(transitionCount),
		recipients:  []RecipientRecord{},
	}
}

// ID returns the object identifier of the class.
func (c *Class) ID() bacnet.ObjectID {
	return bacnet.ObjectID{Type: bacnet.ObjectNotificationClass, Instance: c.Instance}
}

// DeviceID returns the object identifier of the owning device.
func (c *Class) DeviceID() bacnet.ObjectID {
	return bacnet.DeviceID(c.Device)
}

// Validate checks the class identifiers.
func (c *Class) Validate() error {
	if c.Instance > bacnet.MaxInstance {
		return fmt.Errorf("%w: instance %d out of range", ErrInvalidClass, c.Instance)
	}
	if c.Device > bacnet.MaxInstance {
		return fmt.Errorf("%w: device %d out of range", ErrInvalidClass, c.Device)
	}
	return nil
}

// AddRecipient appends a recipient to the list.
func (c *Class) AddRecipient(rec RecipientRecord) {
	rec = rec.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipients = append(c.recipients, rec)
}

// ReplaceRecipients replaces the whole list with copies of records.
func (c *Class) ReplaceRecipients(records []RecipientRecord) {
	next := cloneRecords(records)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipients = next
}

// SetRecipientList applies a flat recipient list. A nil or empty list
// clears the recipients. A malformed list leaves the current recipients
// untouched and reports false; the caller gets no further detail.
func (c *Class) SetRecipientList(values []bacnet.Value) bool {
	records, err := DecodeRecipients(values)
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipients = records
	return true
}

// RecipientList returns the current recipients in flat form.
func (c *Class) RecipientList() []bacnet.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return EncodeRecipients(c.recipients)
}

// Recipients returns a snapshot of the current recipients. The snapshot
// shares no memory with the class.
func (c *Class) Recipients() []RecipientRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneRecords(c.recipients)
}

// RecipientCount returns the number of recipients.
func (c *Class) RecipientCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.recipients)
}

func cloneRecords(records []RecipientRecord) []RecipientRecord {
	out := make([]RecipientRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
