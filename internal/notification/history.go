package notification

import (
	"strconv"
	"time"
)

// MeasurementEventNotifications is the time-series measurement written for
// every completed delivery.
const MeasurementEventNotifications = "event_notifications"

// PointWriter writes one time-series point. *influxdb.Client satisfies it.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time)
}

// HistoryRecorder is a DeliveryObserver that records deliveries as
// time-series points.
//
// Tags: class, transport, outcome ("sent" or "failed").
// Fields: delivery_id, process_id, to_state, duration_ms and, on failure,
// error.
type HistoryRecorder struct {
	w PointWriter
}

// NewHistoryRecorder creates a recorder writing through w.
func NewHistoryRecorder(w PointWriter) *HistoryRecorder {
	return &HistoryRecorder{w: w}
}

// ObserveDelivery implements DeliveryObserver.
func (h *HistoryRecorder) ObserveDelivery(d Delivery) {
	outcome := "sent"
	if d.Err != nil {
		outcome = "failed"
	}

	tags := map[string]string{
		"class":     strconv.FormatUint(uint64(d.Class), 10),
		"transport": d.Transport,
		"outcome":   outcome,
	}
	fields := map[string]interface{}{
		"delivery_id": d.ID,
		"process_id":  int64(d.Notification.ProcessID),
		"to_state":    d.Notification.ToState.String(),
		"duration_ms": float64(d.Duration) / float64(time.Millisecond),
	}
	if d.Err != nil {
		fields["error"] = d.Err.Error()
	}

	ts := d.Started
	if ts.IsZero() {
		ts = d.Notification.Timestamp
	}
	h.w.WritePointWithTime(MeasurementEventNotifications, tags, fields, ts)
}

// Observers fans one delivery out to several observers in order. Nil
// entries are skipped.
type Observers []DeliveryObserver

// ObserveDelivery implements DeliveryObserver.
func (o Observers) ObserveDelivery(d Delivery) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveDelivery(d)
		}
	}
}
