package directory

import (
	"context"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// Transport delivers event notifications to a network address.
//
// Implementations must be safe for concurrent use: the dispatch engine calls
// Send from many goroutines at once, each with its own notification value.
type Transport interface {
	// Name identifies this transport instance in logs and history.
	Name() string

	// Kind is the transport family (e.g. "mqtt", "bacnet-ip"). The direct
	// endpoint registry only accepts the configured kind.
	Kind() string

	// Send delivers one notification. Failures are reported to the caller
	// but never retried by the directory or the dispatch engine.
	Send(ctx context.Context, dest bacnet.Address, ev bacnet.EventNotification) error
}

// Endpoint is a resolved delivery target.
type Endpoint struct {
	Transport Transport
	Address   bacnet.Address
}

// String renders "transport/address" for logs.
func (e Endpoint) String() string {
	if e.Transport == nil {
		return "<none>/" + e.Address.String()
	}
	return e.Transport.Name() + "/" + e.Address.String()
}
