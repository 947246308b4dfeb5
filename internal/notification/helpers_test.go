package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
	"github.com/nerrad567/gray-logic-alarms/internal/directory"
)

// sentNotification is one call captured by recordingTransport.
type sentNotification struct {
	dest bacnet.Address
	ev   bacnet.EventNotification
}

// recordingTransport captures every Send. err, when set, is returned from
// each call; block, when set, makes Send wait for ctx.
type recordingTransport struct {
	name  string
	kind  string
	err   error
	block bool
	panic bool

	mu   sync.Mutex
	sent []sentNotification
}

func newRecordingTransport(name string) *recordingTransport {
	return &recordingTransport{name: name, kind: "test"}
}

func (r *recordingTransport) Name() string { return r.name }
func (r *recordingTransport) Kind() string { return r.kind }

func (r *recordingTransport) Send(ctx context.Context, dest bacnet.Address, ev bacnet.EventNotification) error {
	if r.panic {
		panic("transport exploded")
	}
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}

	r.mu.Lock()
	r.sent = append(r.sent, sentNotification{dest: dest.Clone(), ev: ev})
	r.mu.Unlock()
	return r.err
}

func (r *recordingTransport) Sent() []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentNotification, len(r.sent))
	copy(out, r.sent)
	return out
}

// observerFunc adapts a function to DeliveryObserver.
type observerFunc func(Delivery)

func (f observerFunc) ObserveDelivery(d Delivery) { f(d) }

// collectingObserver keeps every delivery it sees.
type collectingObserver struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func (c *collectingObserver) ObserveDelivery(d Delivery) {
	c.mu.Lock()
	c.deliveries = append(c.deliveries, d)
	c.mu.Unlock()
}

func (c *collectingObserver) All() []Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Delivery, len(c.deliveries))
	copy(out, c.deliveries)
	return out
}

// monday0930 is Monday 19 October 2026, 09:30 UTC.
var monday0930 = time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func tod(h, m int) bacnet.TimeOfDay {
	return bacnet.TimeOfDay{Hour: uint8(h), Minute: uint8(m)}
}

// deviceRecord returns an always-eligible record for a device recipient.
func deviceRecord(device, processID uint32) RecipientRecord {
	return RecipientRecord{
		ValidDays:   EveryDay,
		From:        bacnet.TimeOfDay{},
		To:          bacnet.EndOfDay,
		Recipient:   DeviceRecipient{Device: bacnet.DeviceID(device)},
		ProcessID:   processID,
		Transitions: AllTransitions,
	}
}

// addressRecord returns an always-eligible record for an address recipient.
func addressRecord(addr string, processID uint32) RecipientRecord {
	rec := deviceRecord(0, processID)
	rec.Recipient = AddressRecipient{Address: mustAddress(addr)}
	return rec
}

func mustAddress(s string) bacnet.Address {
	a, err := bacnet.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// newTestEngine returns an engine over a fresh directory and direct
// registry, with the clock fixed at monday0930.
func newTestEngine(opts Options) (*Engine, *directory.Directory, *directory.DirectEndpoints) {
	if opts.Directory == nil {
		opts.Directory = directory.New()
	}
	if opts.Direct == nil {
		opts.Direct = directory.NewDirectEndpoints()
	}
	if opts.Clock == nil {
		opts.Clock = fixedClock(monday0930)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	e, err := NewEngine(opts)
	if err != nil {
		panic(err)
	}
	return e, opts.Directory, opts.Direct
}

// drain shuts the engine down, waiting for every scheduled send.
func drain(e *Engine) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}

var errSendFailed = errors.New("send failed")
