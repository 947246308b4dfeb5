package directory

import (
	"context"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// fakeTransport is a Transport that records nothing; tests compare it by
// identity.
type fakeTransport struct {
	name string
	kind string
}

func (f *fakeTransport) Name() string { return f.name }
func (f *fakeTransport) Kind() string { return f.kind }

func (f *fakeTransport) Send(context.Context, bacnet.Address, bacnet.EventNotification) error {
	return nil
}

func mustAddress(s string) bacnet.Address {
	a, err := bacnet.ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}
