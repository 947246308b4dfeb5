// Package influxdb provides InfluxDB connectivity for delivery history.
//
// It wraps influxdb-client-go v2 with connection checks, batched
// non-blocking writes and an error callback. The notification package's
// HistoryRecorder writes one event_notifications point per completed
// delivery through WritePointWithTime.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history off
//	}
//	defer client.Close()
//
// Writes are batched according to batch_size and flush_interval.
package influxdb
