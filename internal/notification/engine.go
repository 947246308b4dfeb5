package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
	"github.com/nerrad567/gray-logic-alarms/internal/directory"
)

// Engine defaults.
const (
	DefaultMaxInFlight = 64
	DefaultSendTimeout = 5 * time.Second
)

// Result is the dispatch decision for one recipient.
type Result uint8

// Dispatch results.
const (
	ResultScheduled Result = iota
	ResultSkippedIneligible
	ResultSkippedUnreachable
	ResultSkippedClosed
)

var resultNames = map[Result]string{
	ResultScheduled:          "scheduled",
	ResultSkippedIneligible:  "skipped_ineligible",
	ResultSkippedUnreachable: "skipped_unreachable",
	ResultSkippedClosed:      "skipped_closed",
}

// String returns the snake_case result name.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("result(%d)", uint8(r))
}

// Outcome records what Dispatch did for one recipient.
type Outcome struct {
	Recipient RecipientRecord
	Result    Result

	// Endpoint and DeliveryID are set only for ResultScheduled.
	Endpoint   directory.Endpoint
	DeliveryID string
}

// Delivery reports the completion of one send task.
type Delivery struct {
	ID           string
	Class        uint32
	Transport    string
	Address      bacnet.Address
	Notification bacnet.EventNotification
	Started      time.Time
	Duration     time.Duration
	Err          error
}

// DeliveryObserver receives every completed delivery. Implementations must
// be safe for concurrent use.
type DeliveryObserver interface {
	ObserveDelivery(d Delivery)
}

// Logger is the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures an Engine. Directory and Direct are required.
type Options struct {
	Directory *directory.Directory
	Direct    *directory.DirectEndpoints

	// Clock returns the current instant. Defaults to time.Now.
	Clock func() time.Time

	// Location is the site time zone used for window and weekday checks.
	// Defaults to time.Local.
	Location *time.Location

	// Priority is stamped on every notification. Zero means
	// DefaultPriority.
	Priority uint8

	// MaxInFlight bounds concurrent send tasks.
	MaxInFlight int64

	// SendTimeout bounds a single Transport.Send call.
	SendTimeout time.Duration

	Observer DeliveryObserver
	Logger   Logger
}

// Engine fans event notifications out to the recipients of a class.
type Engine struct {
	dir      *directory.Directory
	direct   *directory.DirectEndpoints
	clock    func() time.Time
	loc      *time.Location
	priority uint8
	timeout  time.Duration
	observer DeliveryObserver
	logger   Logger

	sem      *semaphore.Weighted
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inFlight atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewEngine creates an engine from opts.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Directory == nil {
		return nil, errors.New("notification: engine requires a directory")
	}
	if opts.Direct == nil {
		return nil, errors.New("notification: engine requires a direct endpoint registry")
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Priority == 0 {
		opts.Priority = DefaultPriority
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = DefaultMaxInFlight
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		dir:      opts.Directory,
		direct:   opts.Direct,
		clock:    opts.Clock,
		loc:      opts.Location,
		priority: opts.Priority,
		timeout:  opts.SendTimeout,
		observer: opts.Observer,
		logger:   opts.Logger,
		sem:      semaphore.NewWeighted(opts.MaxInFlight),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Dispatch reports one state transition of an object to every recipient of
// class. It returns one Outcome per recipient, in list order, as soon as the
// eligible sends have been scheduled, or nil for an empty list. Send results
// are delivered to the Observer, never to the caller.
//
// The recipient list is snapshotted on entry, so a concurrent
// SetRecipientList does not affect an in-progress dispatch.
func (e *Engine) Dispatch(
	class *Class,
	sender bacnet.ObjectID,
	notifyType bacnet.NotifyType,
	eventType bacnet.EventType,
	from, to bacnet.EventState,
) []Outcome {
	recipients := class.Recipients()
	if len(recipients) == 0 {
		return nil
	}

	now := e.clock().In(e.loc)
	template := e.template(class, sender, notifyType, eventType, from, to, now)

	outcomes := make([]Outcome, 0, len(recipients))
	for _, rec := range recipients {
		outcomes = append(outcomes, e.dispatchOne(class, template, now, to, rec))
	}
	return outcomes
}

// template builds the notification shared by every recipient of one
// transition. Only ProcessID varies per recipient.
func (e *Engine) template(
	class *Class,
	sender bacnet.ObjectID,
	notifyType bacnet.NotifyType,
	eventType bacnet.EventType,
	from, to bacnet.EventState,
	now time.Time,
) bacnet.EventNotification {
	return bacnet.EventNotification{
		InitiatingDevice:  class.DeviceID(),
		EventObject:       sender,
		Timestamp:         now,
		NotificationClass: class.Instance,
		Priority:          e.priority,
		EventType:         eventType,
		NotifyType:        notifyType,
		AckRequired:       class.AckRequired.Bit(ackBit(to)),
		FromState:         from,
		ToState:           to,
	}
}

func (e *Engine) dispatchOne(
	class *Class,
	template bacnet.EventNotification,
	now time.Time,
	to bacnet.EventState,
	rec RecipientRecord,
) Outcome {
	out := Outcome{Recipient: rec}

	if !Eligible(now, to, rec) {
		out.Result = ResultSkippedIneligible
		return out
	}

	ep, ok := e.resolve(rec)
	if !ok {
		out.Result = ResultSkippedUnreachable
		return out
	}

	// Each task owns its copy; the template is never written again.
	ev := template
	ev.ProcessID = rec.ProcessID

	id := uuid.NewString()
	if !e.schedule(class.Instance, id, ep, ev) {
		out.Result = ResultSkippedClosed
		return out
	}

	out.Result = ResultScheduled
	out.Endpoint = ep
	out.DeliveryID = id
	return out
}

// resolve finds the endpoint for a recipient.
func (e *Engine) resolve(rec RecipientRecord) (directory.Endpoint, bool) {
	switch r := rec.Recipient.(type) {
	case DeviceRecipient:
		ep, ok := e.dir.Lookup(r.Device.Instance)
		if !ok || ep.Transport == nil {
			return directory.Endpoint{}, false
		}
		return ep, true
	case AddressRecipient:
		t, ok := e.direct.Get()
		if !ok {
			return directory.Endpoint{}, false
		}
		return directory.Endpoint{Transport: t, Address: r.Address.Clone()}, true
	default:
		return directory.Endpoint{}, false
	}
}

// schedule starts the send task unless the engine is shutting down.
func (e *Engine) schedule(classInstance uint32, id string, ep directory.Endpoint, ev bacnet.EventNotification) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}

	e.wg.Add(1)
	e.inFlight.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.inFlight.Add(-1)
		e.deliver(classInstance, id, ep, ev)
	}()
	return true
}

// InFlight returns the number of send tasks scheduled and not yet
// finished, including those waiting for a concurrency slot.
func (e *Engine) InFlight() int {
	return int(e.inFlight.Load())
}

// Accepting reports whether Dispatch still schedules sends. It turns false
// once Shutdown has been called.
func (e *Engine) Accepting() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// deliver runs one send task.
func (e *Engine) deliver(classInstance uint32, id string, ep directory.Endpoint, ev bacnet.EventNotification) {
	d := Delivery{
		ID:           id,
		Class:        classInstance,
		Transport:    ep.Transport.Name(),
		Address:      ep.Address,
		Notification: ev,
	}

	if err := e.sem.Acquire(e.ctx, 1); err != nil {
		d.Err = ErrEngineClosed
		e.report(d)
		return
	}
	defer e.sem.Release(1)

	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()

	d.Started = time.Now()
	d.Err = e.send(ctx, ep, ev)
	d.Duration = time.Since(d.Started)
	e.report(d)
}

// send calls the transport, converting a panic into an error.
func (e *Engine) send(ctx context.Context, ep directory.Endpoint, ev bacnet.EventNotification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport %s panicked: %v", ep.Transport.Name(), r)
		}
	}()
	return ep.Transport.Send(ctx, ep.Address, ev)
}

func (e *Engine) report(d Delivery) {
	if d.Err != nil {
		e.logger.Warn("event notification delivery failed",
			"delivery_id", d.ID,
			"class", d.Class,
			"endpoint", d.Transport+"/"+d.Address.String(),
			"process_id", d.Notification.ProcessID,
			"error", d.Err,
		)
	}
	if e.observer != nil {
		e.observer.ObserveDelivery(d)
	}
}

// Shutdown stops scheduling new sends and waits for in-flight sends to
// finish or for ctx to expire. Sends still waiting for a slot when ctx
// expires are abandoned and reported with ErrEngineClosed.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		return fmt.Errorf("shutting down notification engine: %w", ctx.Err())
	}
}
