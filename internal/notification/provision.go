package notification

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// ProvisioningFile is the YAML layout of a class provisioning file.
//
// Example:
//
//	classes:
//	  - instance: 1
//	    name: Fire alarms
//	    priorities: {to_offnormal: 10, to_fault: 10}
//	    ack_required: [to-offnormal]
//	    recipients:
//	      - device: 1234
//	        process_id: 7
//	      - address: "5@0a"
//	        valid_days: [monday, tuesday, wednesday, thursday, friday]
//	        from: "08:00"
//	        to: "18:00"
//	        transitions: [to-offnormal, to-fault]
type ProvisioningFile struct {
	Classes []ClassSpec `yaml:"classes"`
}

// ClassSpec describes one notification class.
type ClassSpec struct {
	Instance uint32 `yaml:"instance"`

	// Device is the owning device. Defaults to the site device instance.
	Device *uint32 `yaml:"device"`

	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Priorities  PrioritySpec `yaml:"priorities"`

	// AckRequired lists transitions ("to-offnormal", "to-normal",
	// "to-fault") that require acknowledgment.
	AckRequired []string `yaml:"ack_required"`

	Recipients []RecipientSpec `yaml:"recipients"`
}

// PrioritySpec overrides per-transition priorities. Unset entries keep
// DefaultPriority.
type PrioritySpec struct {
	ToOffNormal *uint8 `yaml:"to_offnormal"`
	ToNormal    *uint8 `yaml:"to_normal"`
	ToFault     *uint8 `yaml:"to_fault"`
}

// RecipientSpec describes one recipient. Exactly one of Device and Address
// must be set.
type RecipientSpec struct {
	Device  *uint32 `yaml:"device"`
	Address string  `yaml:"address"`

	// ValidDays defaults to every day.
	ValidDays []string `yaml:"valid_days"`

	// From and To default to the whole day.
	From string `yaml:"from"`
	To   string `yaml:"to"`

	ProcessID uint32 `yaml:"process_id"`
	Confirmed bool   `yaml:"confirmed"`

	// Transitions defaults to all three.
	Transitions []string `yaml:"transitions"`
}

var dayNames = map[string]int{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
	"sunday":    Sunday,
}

var transitionNames = map[string]int{
	"to-offnormal": TransitionToOffNormal,
	"to-normal":    TransitionToNormal,
	"to-fault":     TransitionToFault,
}

// LoadProvisioning reads a provisioning file and builds its classes.
// defaultDevice owns classes that do not name a device.
func LoadProvisioning(path string, defaultDevice uint32) ([]*Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provisioning file: %w", err)
	}
	return ParseProvisioning(data, defaultDevice)
}

// ParseProvisioning builds classes from provisioning YAML. Every problem
// in the file is reported in one error wrapping ErrInvalidProvisioning.
func ParseProvisioning(data []byte, defaultDevice uint32) ([]*Class, error) {
	var file ProvisioningFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProvisioning, err)
	}

	var errs []string
	seen := make(map[uint32]bool, len(file.Classes))
	classes := make([]*Class, 0, len(file.Classes))

	for i, spec := range file.Classes {
		if seen[spec.Instance] {
			errs = append(errs, fmt.Sprintf("classes[%d].instance %d is duplicate", i, spec.Instance))
			continue
		}
		seen[spec.Instance] = true

		c, classErrs := spec.build(fmt.Sprintf("classes[%d]", i), defaultDevice)
		if len(classErrs) > 0 {
			errs = append(errs, classErrs...)
			continue
		}
		classes = append(classes, c)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvisioning, strings.Join(errs, "; "))
	}
	return classes, nil
}

func (s ClassSpec) build(path string, defaultDevice uint32) (*Class, []string) {
	var errs []string

	device := defaultDevice
	if s.Device != nil {
		device = *s.Device
	}

	c := NewClass(s.Instance, device)
	c.Name = s.Name
	c.Description = s.Description
	if err := c.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", path, err))
	}

	for idx, p := range map[int]*uint8{
		TransitionToOffNormal: s.Priorities.ToOffNormal,
		TransitionToNormal:    s.Priorities.ToNormal,
		TransitionToFault:     s.Priorities.ToFault,
	} {
		if p != nil {
			c.Priorities[idx] = *p
		}
	}

	if len(s.AckRequired) > 0 {
		ack, err := parseNamedBits(s.AckRequired, transitionNames, transitionCount)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s.ack_required: %v", path, err))
		}
		c.AckRequired = ack
	}

	records := make([]RecipientRecord, 0, len(s.Recipients))
	for j, rs := range s.Recipients {
		rec, err := rs.build()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s.recipients[%d]: %v", path, j, err))
			continue
		}
		records = append(records, rec)
	}
	c.ReplaceRecipients(records)

	return c, errs
}

func (s RecipientSpec) build() (RecipientRecord, error) {
	rec := RecipientRecord{
		ValidDays:   EveryDay,
		To:          bacnet.EndOfDay,
		ProcessID:   s.ProcessID,
		Confirmed:   s.Confirmed,
		Transitions: AllTransitions,
	}

	switch {
	case s.Device != nil && s.Address != "":
		return rec, errors.New("device and address are mutually exclusive")
	case s.Device != nil:
		if *s.Device > bacnet.MaxInstance {
			return rec, fmt.Errorf("device %d out of range", *s.Device)
		}
		rec.Recipient = DeviceRecipient{Device: bacnet.DeviceID(*s.Device)}
	case s.Address != "":
		addr, err := bacnet.ParseAddress(s.Address)
		if err != nil {
			return rec, err
		}
		rec.Recipient = AddressRecipient{Address: addr}
	default:
		return rec, errors.New("device or address is required")
	}

	var err error
	if len(s.ValidDays) > 0 {
		if rec.ValidDays, err = parseNamedBits(s.ValidDays, dayNames, daysInWeek); err != nil {
			return rec, fmt.Errorf("valid_days: %w", err)
		}
	}
	if s.From != "" {
		if rec.From, err = bacnet.ParseTimeOfDay(s.From); err != nil {
			return rec, fmt.Errorf("from: %w", err)
		}
	}
	if s.To != "" {
		if rec.To, err = bacnet.ParseTimeOfDay(s.To); err != nil {
			return rec, fmt.Errorf("to: %w", err)
		}
	}
	if rec.From.Compare(rec.To) > 0 {
		return rec, fmt.Errorf("from %s is after to %s", rec.From, rec.To)
	}
	if len(s.Transitions) > 0 {
		if rec.Transitions, err = parseNamedBits(s.Transitions, transitionNames, transitionCount); err != nil {
			return rec, fmt.Errorf("transitions: %w", err)
		}
	}
	return rec, nil
}

// parseNamedBits sets one bit per name.
func parseNamedBits(names []string, positions map[string]int, length uint8) (bacnet.BitString, error) {
	bits := bacnet.NewBitString(length)
	for _, name := range names {
		pos, ok := positions[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return bits, fmt.Errorf("unknown name %q", name)
		}
		bits = bits.SetBit(pos, true)
	}
	return bits, nil
}
