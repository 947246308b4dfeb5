// Package audit keeps a queryable trail of event notification deliveries
// in the delivery_log table.
//
// The Recorder observes the dispatch engine and writes one row per
// completed send, successful or not. The diagnostics API reads the trail
// back through Repository.List; Prune enforces the retention window.
package audit
