package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
	"github.com/nerrad567/gray-logic-alarms/internal/directory"
)

var sensor = bacnet.ObjectID{Type: bacnet.ObjectAnalogInput, Instance: 3}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	if _, err := NewEngine(Options{Direct: directory.NewDirectEndpoints()}); err == nil {
		t.Error("NewEngine() without directory error = nil")
	}
	if _, err := NewEngine(Options{Directory: directory.New()}); err == nil {
		t.Error("NewEngine() without direct registry error = nil")
	}
}

func TestDispatch_DeviceRecipient(t *testing.T) {
	e, dir, _ := newTestEngine(Options{})
	tr := newRecordingTransport("mqtt")
	dir.RegisterAnnouncement(1234, tr, mustAddress("192.168.1.20:47808"))

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1234, 42))

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventOutOfRange,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(outcomes) != 1 || outcomes[0].Result != ResultScheduled {
		t.Fatalf("outcomes = %+v, want one scheduled", outcomes)
	}
	if outcomes[0].DeliveryID == "" {
		t.Error("scheduled outcome has no delivery ID")
	}

	sent := tr.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(sent))
	}
	if got := sent[0].dest.String(); got != "192.168.1.20:47808" {
		t.Errorf("dest = %s, want 192.168.1.20:47808", got)
	}

	want := bacnet.EventNotification{
		ProcessID:         42,
		InitiatingDevice:  bacnet.DeviceID(100),
		EventObject:       sensor,
		Timestamp:         monday0930,
		NotificationClass: 5,
		Priority:          DefaultPriority,
		EventType:         bacnet.EventOutOfRange,
		NotifyType:        bacnet.NotifyAlarm,
		FromState:         bacnet.EventStateNormal,
		ToState:           bacnet.EventStateOffNormal,
	}
	got := sent[0].ev
	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want.Timestamp)
	}
	got.Timestamp = want.Timestamp
	if got != want {
		t.Errorf("notification = %+v, want %+v", got, want)
	}
}

func TestDispatch_AddressRecipient(t *testing.T) {
	e, _, direct := newTestEngine(Options{})
	tr := newRecordingTransport("direct")
	direct.Set(tr)

	c := NewClass(5, 100)
	c.AddRecipient(addressRecord("7@0a", 9))

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyEvent, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if outcomes[0].Result != ResultScheduled {
		t.Fatalf("Result = %s, want scheduled", outcomes[0].Result)
	}
	sent := tr.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(sent))
	}
	if !sent[0].dest.Equal(mustAddress("7@0a")) {
		t.Errorf("dest = %s, want 7@0a", sent[0].dest)
	}
	if sent[0].ev.ProcessID != 9 {
		t.Errorf("ProcessID = %d, want 9", sent[0].ev.ProcessID)
	}
}

func TestDispatch_Unreachable(t *testing.T) {
	e, _, _ := newTestEngine(Options{})

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(999, 1))
	c.AddRecipient(addressRecord("10.0.0.1:47808", 2))

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	for i, o := range outcomes {
		if o.Result != ResultSkippedUnreachable {
			t.Errorf("outcome %d = %s, want skipped_unreachable", i, o.Result)
		}
	}
}

func TestDispatch_Ineligible(t *testing.T) {
	e, dir, _ := newTestEngine(Options{})
	tr := newRecordingTransport("mqtt")
	dir.RegisterAnnouncement(1, tr, mustAddress("10.0.0.1:47808"))

	outOfHours := deviceRecord(1, 1)
	outOfHours.From = tod(18, 0)
	outOfHours.To = tod(23, 0)

	weekendOnly := deviceRecord(1, 2)
	weekendOnly.ValidDays = bacnet.NewBitString(7, Saturday, Sunday)

	faultsOnly := deviceRecord(1, 3)
	faultsOnly.Transitions = bacnet.NewBitString(3, TransitionToFault)

	c := NewClass(5, 100)
	c.AddRecipient(outOfHours)
	c.AddRecipient(weekendOnly)
	c.AddRecipient(faultsOnly)

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	for i, o := range outcomes {
		if o.Result != ResultSkippedIneligible {
			t.Errorf("outcome %d = %s, want skipped_ineligible", i, o.Result)
		}
	}
	if n := len(tr.Sent()); n != 0 {
		t.Errorf("sent %d notifications, want 0", n)
	}
}

func TestDispatch_NilTransportIsUnreachable(t *testing.T) {
	e, dir, _ := newTestEngine(Options{})
	dir.RegisterAnnouncement(1234, nil, mustAddress("192.168.1.20:47808"))

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1234, 1))

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if outcomes[0].Result != ResultSkippedUnreachable {
		t.Errorf("Result = %s, want skipped_unreachable", outcomes[0].Result)
	}
}

// An ineligible recipient is reported as ineligible even when it is also
// unreachable.
func TestDispatch_IneligibleBeforeUnreachable(t *testing.T) {
	e, _, _ := newTestEngine(Options{})

	rec := deviceRecord(404, 1)
	rec.Transitions = bacnet.NewBitString(3)

	c := NewClass(5, 100)
	c.AddRecipient(rec)

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	_ = drain(e)

	if outcomes[0].Result != ResultSkippedIneligible {
		t.Errorf("Result = %s, want skipped_ineligible", outcomes[0].Result)
	}
}

// Limit and life-safety states have no transitions bit, so even a
// recipient subscribed to everything is skipped.
func TestDispatch_UnmaskedStateIsIneligible(t *testing.T) {
	e, dir, _ := newTestEngine(Options{})
	tr := newRecordingTransport("mqtt")
	dir.RegisterAnnouncement(1, tr, mustAddress("10.0.0.1:47808"))

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1, 1))

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventOutOfRange,
		bacnet.EventStateNormal, bacnet.EventStateHighLimit)
	_ = drain(e)

	if outcomes[0].Result != ResultSkippedIneligible {
		t.Errorf("Result = %s, want skipped_ineligible", outcomes[0].Result)
	}
	if n := len(tr.Sent()); n != 0 {
		t.Errorf("sent %d notifications, want 0", n)
	}
}

func TestDispatch_EachRecipientGetsItsOwnProcessID(t *testing.T) {
	e, dir, _ := newTestEngine(Options{MaxInFlight: 4})
	tr := newRecordingTransport("mqtt")

	const recipients = 200
	c := NewClass(5, 100)
	for i := uint32(0); i < recipients; i++ {
		dir.RegisterAnnouncement(i, tr, mustAddress("10.0.0.1:47808"))
		c.AddRecipient(deviceRecord(i, 1000+i))
	}

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(outcomes) != recipients {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), recipients)
	}

	sent := tr.Sent()
	if len(sent) != recipients {
		t.Fatalf("sent %d notifications, want %d", len(sent), recipients)
	}

	ids := make([]int, 0, len(sent))
	for _, s := range sent {
		ids = append(ids, int(s.ev.ProcessID))
	}
	sort.Ints(ids)
	for i, id := range ids {
		if id != 1000+i {
			t.Fatalf("process IDs sent = %v..., want each of 1000..%d exactly once", ids[:i+1], 1000+recipients-1)
		}
	}
}

func TestDispatch_MixedOutcomesKeepListOrder(t *testing.T) {
	e, dir, _ := newTestEngine(Options{})
	tr := newRecordingTransport("mqtt")
	dir.RegisterAnnouncement(1, tr, mustAddress("10.0.0.1:47808"))

	masked := deviceRecord(1, 2)
	masked.Transitions = bacnet.NewBitString(3, TransitionToNormal)

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1, 1))
	c.AddRecipient(masked)
	c.AddRecipient(deviceRecord(2, 3))

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	_ = drain(e)

	want := []Result{ResultScheduled, ResultSkippedIneligible, ResultSkippedUnreachable}
	for i, o := range outcomes {
		if o.Result != want[i] {
			t.Errorf("outcome %d = %s, want %s", i, o.Result, want[i])
		}
		if o.Recipient.ProcessID != uint32(i+1) {
			t.Errorf("outcome %d recipient ProcessID = %d, want %d", i, o.Recipient.ProcessID, i+1)
		}
	}
}

func TestDispatch_UsesSiteTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)

	// 09:30 UTC Monday is 19:30 in UTC+10.
	e, dir, _ := newTestEngine(Options{Location: loc})
	tr := newRecordingTransport("mqtt")
	dir.RegisterAnnouncement(1, tr, mustAddress("10.0.0.1:47808"))

	evening := deviceRecord(1, 1)
	evening.From = tod(19, 0)
	evening.To = tod(20, 0)

	morning := deviceRecord(1, 2)
	morning.From = tod(9, 0)
	morning.To = tod(10, 0)

	c := NewClass(5, 100)
	c.AddRecipient(evening)
	c.AddRecipient(morning)

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	_ = drain(e)

	if outcomes[0].Result != ResultScheduled {
		t.Errorf("evening recipient = %s, want scheduled", outcomes[0].Result)
	}
	if outcomes[1].Result != ResultSkippedIneligible {
		t.Errorf("morning recipient = %s, want skipped_ineligible", outcomes[1].Result)
	}
}

func TestDispatch_AckRequiredFollowsTransition(t *testing.T) {
	e, dir, _ := newTestEngine(Options{Priority: 50})
	tr := newRecordingTransport("mqtt")
	dir.RegisterAnnouncement(1, tr, mustAddress("10.0.0.1:47808"))

	c := NewClass(5, 100)
	c.AckRequired = bacnet.NewBitString(3, TransitionToFault)
	c.AddRecipient(deviceRecord(1, 1))

	e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfReliability,
		bacnet.EventStateNormal, bacnet.EventStateFault)
	e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfReliability,
		bacnet.EventStateFault, bacnet.EventStateNormal)
	_ = drain(e)

	sent := tr.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d notifications, want 2", len(sent))
	}
	for _, s := range sent {
		wantAck := s.ev.ToState == bacnet.EventStateFault
		if s.ev.AckRequired != wantAck {
			t.Errorf("to %s: AckRequired = %v, want %v", s.ev.ToState, s.ev.AckRequired, wantAck)
		}
		if s.ev.Priority != 50 {
			t.Errorf("Priority = %d, want 50", s.ev.Priority)
		}
	}
}

func TestDispatch_ObserverSeesEveryDelivery(t *testing.T) {
	obs := &collectingObserver{}
	e, dir, _ := newTestEngine(Options{Observer: obs})

	ok := newRecordingTransport("ok")
	failing := newRecordingTransport("failing")
	failing.err = errSendFailed
	dir.RegisterAnnouncement(1, ok, mustAddress("10.0.0.1:47808"))
	dir.RegisterAnnouncement(2, failing, mustAddress("10.0.0.2:47808"))

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1, 1))
	c.AddRecipient(deviceRecord(2, 2))

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	// Send failures never change the outcome.
	for i, o := range outcomes {
		if o.Result != ResultScheduled {
			t.Errorf("outcome %d = %s, want scheduled", i, o.Result)
		}
	}

	deliveries := obs.All()
	if len(deliveries) != 2 {
		t.Fatalf("observed %d deliveries, want 2", len(deliveries))
	}
	byTransport := map[string]Delivery{}
	for _, d := range deliveries {
		byTransport[d.Transport] = d
	}
	if d := byTransport["ok"]; d.Err != nil || d.Notification.ProcessID != 1 {
		t.Errorf("ok delivery = %+v", d)
	}
	if d := byTransport["failing"]; !errors.Is(d.Err, errSendFailed) || d.Notification.ProcessID != 2 {
		t.Errorf("failing delivery = %+v", d)
	}
}

func TestDispatch_SendTimeout(t *testing.T) {
	obs := &collectingObserver{}
	e, dir, _ := newTestEngine(Options{Observer: obs, SendTimeout: 20 * time.Millisecond})

	slow := newRecordingTransport("slow")
	slow.block = true
	dir.RegisterAnnouncement(1, slow, mustAddress("10.0.0.1:47808"))

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1, 1))

	e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	deliveries := obs.All()
	if len(deliveries) != 1 || !errors.Is(deliveries[0].Err, context.DeadlineExceeded) {
		t.Errorf("deliveries = %+v, want one DeadlineExceeded", deliveries)
	}
}

func TestDispatch_TransportPanicIsContained(t *testing.T) {
	obs := &collectingObserver{}
	e, dir, _ := newTestEngine(Options{Observer: obs})

	bad := newRecordingTransport("bad")
	bad.panic = true
	good := newRecordingTransport("good")
	dir.RegisterAnnouncement(1, bad, mustAddress("10.0.0.1:47808"))
	dir.RegisterAnnouncement(2, good, mustAddress("10.0.0.2:47808"))

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1, 1))
	c.AddRecipient(deviceRecord(2, 2))

	e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if n := len(good.Sent()); n != 1 {
		t.Errorf("good transport sent %d, want 1", n)
	}
	var failed int
	for _, d := range obs.All() {
		if d.Err != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("failed deliveries = %d, want 1", failed)
	}
}

func TestDispatch_AfterShutdown(t *testing.T) {
	e, dir, _ := newTestEngine(Options{})
	tr := newRecordingTransport("mqtt")
	dir.RegisterAnnouncement(1, tr, mustAddress("10.0.0.1:47808"))

	if err := drain(e); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1, 1))

	outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)
	if outcomes[0].Result != ResultSkippedClosed {
		t.Errorf("Result = %s, want skipped_closed", outcomes[0].Result)
	}
	if n := len(tr.Sent()); n != 0 {
		t.Errorf("sent %d after shutdown, want 0", n)
	}
}

func TestShutdown_DeadlineExpires(t *testing.T) {
	e, dir, _ := newTestEngine(Options{SendTimeout: time.Minute})
	slow := newRecordingTransport("slow")
	slow.block = true
	dir.RegisterAnnouncement(1, slow, mustAddress("10.0.0.1:47808"))

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1, 1))
	e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() error = %v, want DeadlineExceeded", err)
	}
}

func TestEngine_InFlightAndAccepting(t *testing.T) {
	e, dir, _ := newTestEngine(Options{SendTimeout: time.Minute})
	slow := newRecordingTransport("slow")
	slow.block = true
	dir.RegisterAnnouncement(1, slow, mustAddress("10.0.0.1:47808"))

	if !e.Accepting() || e.InFlight() != 0 {
		t.Fatalf("new engine: Accepting() = %v, InFlight() = %d", e.Accepting(), e.InFlight())
	}

	c := NewClass(5, 100)
	c.AddRecipient(deviceRecord(1, 1))
	c.AddRecipient(deviceRecord(1, 2))
	e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal)

	if got := e.InFlight(); got != 2 {
		t.Errorf("InFlight() = %d, want 2", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = e.Shutdown(ctx)

	if e.Accepting() {
		t.Error("Accepting() = true after Shutdown()")
	}
	if got := e.InFlight(); got != 0 {
		t.Errorf("InFlight() after Shutdown() = %d, want 0", got)
	}
}

// Replacing the recipient list while dispatches are running must neither
// race nor tear records.
func TestDispatch_ConcurrentRecipientListUpdates(t *testing.T) {
	e, dir, _ := newTestEngine(Options{})
	tr := newRecordingTransport("mqtt")
	for i := uint32(0); i < 10; i++ {
		dir.RegisterAnnouncement(i, tr, mustAddress("10.0.0.1:47808"))
	}

	listA := make([]RecipientRecord, 0, 10)
	listB := make([]RecipientRecord, 0, 5)
	for i := uint32(0); i < 10; i++ {
		listA = append(listA, deviceRecord(i, 100+i))
		if i < 5 {
			listB = append(listB, deviceRecord(i, 200+i))
		}
	}
	flatA, flatB := EncodeRecipients(listA), EncodeRecipients(listB)

	c := NewClass(5, 100)
	c.ReplaceRecipients(listA)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				c.SetRecipientList(flatB)
			} else {
				c.SetRecipientList(flatA)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			outcomes := e.Dispatch(c, sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
				bacnet.EventStateNormal, bacnet.EventStateOffNormal)
			if len(outcomes) != 10 && len(outcomes) != 5 {
				t.Errorf("dispatch saw %d recipients, want 10 or 5", len(outcomes))
				return
			}
		}
	}()
	wg.Wait()
	_ = drain(e)

	for _, s := range tr.Sent() {
		id := s.ev.ProcessID
		if (id < 100 || id >= 110) && (id < 200 || id >= 205) {
			t.Fatalf("sent ProcessID %d belongs to neither list", id)
		}
	}
}

func TestResultString(t *testing.T) {
	tests := map[Result]string{
		ResultScheduled:          "scheduled",
		ResultSkippedIneligible:  "skipped_ineligible",
		ResultSkippedUnreachable: "skipped_unreachable",
		ResultSkippedClosed:      "skipped_closed",
		Result(99):               "result(99)",
	}
	for r, want := range tests {
		if got := r.String(); got != want {
			t.Errorf("Result(%d).String() = %q, want %q", uint8(r), got, want)
		}
	}
}

func TestDispatch_EmptyRecipientList(t *testing.T) {
	e, _, _ := newTestEngine(Options{})
	defer drain(e) //nolint:errcheck // Test cleanup

	if got := e.Dispatch(NewClass(5, 100), sensor, bacnet.NotifyAlarm, bacnet.EventChangeOfState,
		bacnet.EventStateNormal, bacnet.EventStateOffNormal); got != nil {
		t.Errorf("Dispatch() = %v, want nil", got)
	}
}
