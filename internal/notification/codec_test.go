package notification

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

func sampleRecords() []RecipientRecord {
	weekdays := bacnet.NewBitString(7, Monday, Tuesday, Wednesday, Thursday, Friday)
	return []RecipientRecord{
		{
			ValidDays:   weekdays,
			From:        tod(8, 0),
			To:          tod(17, 30),
			Recipient:   DeviceRecipient{Device: bacnet.DeviceID(1234)},
			ProcessID:   42,
			Confirmed:   true,
			Transitions: bacnet.NewBitString(3, TransitionToOffNormal, TransitionToFault),
		},
		{
			ValidDays:   EveryDay,
			From:        bacnet.TimeOfDay{},
			To:          bacnet.EndOfDay,
			Recipient:   AddressRecipient{Address: mustAddress("192.168.1.20:47808")},
			ProcessID:   7,
			Transitions: AllTransitions,
		},
	}
}

func TestEncodeDecodeRecipients(t *testing.T) {
	records := sampleRecords()

	values := EncodeRecipients(records)
	if len(values) != len(records)*FieldsPerRecipient {
		t.Fatalf("EncodeRecipients() len = %d, want %d", len(values), len(records)*FieldsPerRecipient)
	}
	if values[fieldRecipient].Tag != bacnet.TagObjectID {
		t.Errorf("device recipient tag = %s, want %s", values[fieldRecipient].Tag, bacnet.TagObjectID)
	}
	if values[FieldsPerRecipient+fieldRecipient].Tag != bacnet.TagAddress {
		t.Errorf("address recipient tag = %s, want %s", values[FieldsPerRecipient+fieldRecipient].Tag, bacnet.TagAddress)
	}

	got, err := DecodeRecipients(values)
	if err != nil {
		t.Fatalf("DecodeRecipients() error = %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("DecodeRecipients() len = %d, want %d", len(got), len(records))
	}
	for i := range records {
		if !got[i].Equal(records[i]) {
			t.Errorf("record %d = %+v, want %+v", i, got[i], records[i])
		}
	}
}

func TestDecodeRecipients_Empty(t *testing.T) {
	got, err := DecodeRecipients(nil)
	if err != nil {
		t.Fatalf("DecodeRecipients(nil) error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("DecodeRecipients(nil) = %v, want empty non-nil slice", got)
	}
}

func TestDecodeRecipients_Arity(t *testing.T) {
	values := EncodeRecipients(sampleRecords())

	for _, n := range []int{1, 6, 8, 13} {
		_, err := DecodeRecipients(values[:n])
		if !errors.Is(err, ErrInvalidArity) {
			t.Errorf("DecodeRecipients(len %d) error = %v, want ErrInvalidArity", n, err)
		}
	}
}

func TestDecodeRecipients_WrongType(t *testing.T) {
	tests := []struct {
		name  string
		field int
		value bacnet.Value
	}{
		{"validDays not bit string", fieldValidDays, bacnet.NewUnsigned(127)},
		{"fromTime not time", fieldFromTime, bacnet.NewNull()},
		{"toTime not time", fieldToTime, bacnet.NewBoolean(true)},
		{"recipient null", fieldRecipient, bacnet.NewNull()},
		{"recipient unsigned", fieldRecipient, bacnet.NewUnsigned(1234)},
		{"processId not unsigned", fieldProcessID, bacnet.NewBoolean(false)},
		{"confirmed not boolean", fieldConfirmed, bacnet.NewUnsigned(1)},
		{"transitions not bit string", fieldTransitions, bacnet.NewTime(tod(1, 0))},
		{"tag and payload disagree", fieldProcessID, bacnet.Value{Tag: bacnet.TagUnsigned, Value: "42"}},
		{"validDays too short", fieldValidDays, bacnet.NewBitStringValue(bacnet.NewBitString(2, 0))},
		{"validDays too long", fieldValidDays, bacnet.NewBitStringValue(bacnet.NewBitString(8, 0))},
		{"transitions too short", fieldTransitions, bacnet.NewBitStringValue(bacnet.NewBitString(2, 0))},
		{"transitions too long", fieldTransitions, bacnet.NewBitStringValue(bacnet.NewBitString(7, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := EncodeRecipients(sampleRecords())
			values[FieldsPerRecipient+tt.field] = tt.value

			_, err := DecodeRecipients(values)
			if !errors.Is(err, ErrInvalidValue) {
				t.Errorf("DecodeRecipients() error = %v, want ErrInvalidValue", err)
			}
		})
	}
}

func TestSetRecipientList(t *testing.T) {
	c := NewClass(5, 100)

	if !c.SetRecipientList(EncodeRecipients(sampleRecords())) {
		t.Fatal("SetRecipientList(valid) = false, want true")
	}
	if c.RecipientCount() != 2 {
		t.Fatalf("RecipientCount() = %d, want 2", c.RecipientCount())
	}

	t.Run("bad arity leaves list unchanged", func(t *testing.T) {
		before := c.RecipientList()
		if c.SetRecipientList(before[:FieldsPerRecipient+3]) {
			t.Error("SetRecipientList(bad arity) = true, want false")
		}
		assertSameValues(t, c.RecipientList(), before)
	})

	t.Run("bad type leaves list unchanged", func(t *testing.T) {
		before := c.RecipientList()
		bad := EncodeRecipients(sampleRecords()[:1])
		bad[fieldFromTime] = bacnet.NewUnsigned(0)
		if c.SetRecipientList(bad) {
			t.Error("SetRecipientList(bad type) = true, want false")
		}
		assertSameValues(t, c.RecipientList(), before)
	})

	t.Run("nil clears", func(t *testing.T) {
		if !c.SetRecipientList(nil) {
			t.Error("SetRecipientList(nil) = false, want true")
		}
		if c.RecipientCount() != 0 {
			t.Errorf("RecipientCount() = %d, want 0", c.RecipientCount())
		}
		if got := c.RecipientList(); len(got) != 0 {
			t.Errorf("RecipientList() len = %d, want 0", len(got))
		}
	})
}

func TestRecipientList_RoundTrip(t *testing.T) {
	c := NewClass(1, 100)
	for _, rec := range sampleRecords() {
		c.AddRecipient(rec)
	}

	other := NewClass(2, 100)
	if !other.SetRecipientList(c.RecipientList()) {
		t.Fatal("SetRecipientList(RecipientList()) = false, want true")
	}
	assertSameValues(t, other.RecipientList(), c.RecipientList())
}

func TestRecipients_SnapshotIsIndependent(t *testing.T) {
	c := NewClass(1, 100)
	c.AddRecipient(addressRecord("10.0.0.5:47808", 1))

	snap := c.Recipients()
	snap[0].Recipient.(AddressRecipient).Address.MAC[0] = 99
	snap[0].ProcessID = 1000

	again := c.Recipients()
	if got := again[0].Recipient.(AddressRecipient).Address.String(); got != "10.0.0.5:47808" {
		t.Errorf("address after snapshot mutation = %s, want 10.0.0.5:47808", got)
	}
	if again[0].ProcessID != 1 {
		t.Errorf("ProcessID after snapshot mutation = %d, want 1", again[0].ProcessID)
	}
}

func TestNewClass_Defaults(t *testing.T) {
	c := NewClass(9, 100)

	for i, p := range c.Priorities {
		if p != DefaultPriority {
			t.Errorf("Priorities[%d] = %d, want %d", i, p, DefaultPriority)
		}
	}
	for i := 0; i < transitionCount; i++ {
		if c.AckRequired.Bit(i) {
			t.Errorf("AckRequired bit %d = true, want false", i)
		}
	}
	if c.ID() != (bacnet.ObjectID{Type: bacnet.ObjectNotificationClass, Instance: 9}) {
		t.Errorf("ID() = %s", c.ID())
	}
	if c.DeviceID() != bacnet.DeviceID(100) {
		t.Errorf("DeviceID() = %s, want device:100", c.DeviceID())
	}
}

func assertSameValues(t *testing.T, got, want []bacnet.Value) {
	t.Helper()

	gotRecs, err := DecodeRecipients(got)
	if err != nil {
		t.Fatalf("decoding got: %v", err)
	}
	wantRecs, err := DecodeRecipients(want)
	if err != nil {
		t.Fatalf("decoding want: %v", err)
	}
	if len(gotRecs) != len(wantRecs) {
		t.Fatalf("recipient count = %d, want %d", len(gotRecs), len(wantRecs))
	}
	for i := range wantRecs {
		if !gotRecs[i].Equal(wantRecs[i]) {
			t.Errorf("recipient %d = %+v, want %+v", i, gotRecs[i], wantRecs[i])
		}
	}
}
