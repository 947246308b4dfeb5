package directory

import (
	"sync"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// Directory maps device instances to their last announced endpoint.
type Directory struct {
	mu      sync.RWMutex
	entries map[uint32]Endpoint
}

// New creates an empty directory.
func New() *Directory {
	return &Directory{entries: make(map[uint32]Endpoint)}
}

// RegisterAnnouncement records that deviceID is reachable at addr via t,
// replacing any previous entry for the same device.
//
// The address is copied, so callers may reuse their buffer. An
// announcement without a transport is ignored.
func (d *Directory) RegisterAnnouncement(deviceID uint32, t Transport, addr bacnet.Address) {
	if t == nil {
		return
	}
	ep := Endpoint{Transport: t, Address: addr.Clone()}

	d.mu.Lock()
	delete(d.entries, deviceID)
	d.entries[deviceID] = ep
	d.mu.Unlock()
}

// Lookup returns the endpoint last announced for deviceID.
//
// A miss is not an error: it means the device is currently unreachable.
// The returned endpoint owns its address bytes.
func (d *Directory) Lookup(deviceID uint32) (Endpoint, bool) {
	d.mu.RLock()
	ep, ok := d.entries[deviceID]
	d.mu.RUnlock()

	if !ok {
		return Endpoint{}, false
	}
	ep.Address = ep.Address.Clone()
	return ep, true
}

// Forget removes the entry for deviceID, if any.
func (d *Directory) Forget(deviceID uint32) {
	d.mu.Lock()
	delete(d.entries, deviceID)
	d.mu.Unlock()
}

// Len returns the number of known devices.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}
