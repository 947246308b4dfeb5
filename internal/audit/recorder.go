package audit

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-alarms/internal/notification"
)

// writeTimeout bounds one trail insert.
const writeTimeout = 2 * time.Second

// Logger is the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder is a notification.DeliveryObserver that appends every delivery
// to the trail. A failed insert is logged and dropped.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// ObserveDelivery implements notification.DeliveryObserver.
func (r *Recorder) ObserveDelivery(d notification.Delivery) {
	e := EntryFromDelivery(d)

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, &e); err != nil {
		r.logger.Warn("recording delivery failed", "delivery_id", d.ID, "error", err)
	}
}

// EntryFromDelivery converts an engine delivery report into a trail entry.
func EntryFromDelivery(d notification.Delivery) Entry {
	e := Entry{
		ID:          d.ID,
		Class:       d.Class,
		Transport:   d.Transport,
		Address:     d.Address.String(),
		ProcessID:   d.Notification.ProcessID,
		EventObject: d.Notification.EventObject.String(),
		ToState:     d.Notification.ToState.String(),
		Outcome:     OutcomeSent,
		DurationMS:  float64(d.Duration) / float64(time.Millisecond),
		CreatedAt:   d.Started,
	}
	if d.Err != nil {
		e.Outcome = OutcomeFailed
		e.Error = d.Err.Error()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = d.Notification.Timestamp
	}
	return e
}
