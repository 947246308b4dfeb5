package directory

import (
	"sync"
	"testing"
)

func TestDirectory_LastAnnouncementWins(t *testing.T) {
	dir := New()
	t1 := &fakeTransport{name: "first", kind: "mqtt"}
	t2 := &fakeTransport{name: "second", kind: "mqtt"}
	a1 := mustAddress("10.0.0.1:47808")
	a2 := mustAddress("10.0.0.2:47808")

	dir.RegisterAnnouncement(1234, t1, a1)
	dir.RegisterAnnouncement(1234, t2, a2)

	ep, ok := dir.Lookup(1234)
	if !ok {
		t.Fatal("Lookup(1234) missed after registration")
	}
	if ep.Transport != t2 {
		t.Errorf("Transport = %s, want second", ep.Transport.Name())
	}
	if !ep.Address.Equal(a2) {
		t.Errorf("Address = %s, want %s", ep.Address, a2)
	}
	if dir.Len() != 1 {
		t.Errorf("Len() = %d, want 1", dir.Len())
	}
}

func TestDirectory_LookupMiss(t *testing.T) {
	dir := New()

	if _, ok := dir.Lookup(42); ok {
		t.Error("Lookup on empty directory should miss")
	}
}

func TestDirectory_NilTransportIgnored(t *testing.T) {
	dir := New()
	first := &fakeTransport{name: "a"}
	dir.RegisterAnnouncement(7, first, mustAddress("0a"))

	dir.RegisterAnnouncement(7, nil, mustAddress("0b"))
	dir.RegisterAnnouncement(8, nil, mustAddress("0c"))

	ep, ok := dir.Lookup(7)
	if !ok || ep.Transport != first {
		t.Errorf("Lookup(7) = %+v, %v; want the earlier entry", ep, ok)
	}
	if _, ok := dir.Lookup(8); ok {
		t.Error("Lookup(8) should miss after a nil-transport announcement")
	}
	if dir.Len() != 1 {
		t.Errorf("Len() = %d, want 1", dir.Len())
	}
}

func TestDirectory_Forget(t *testing.T) {
	dir := New()
	dir.RegisterAnnouncement(7, &fakeTransport{name: "a"}, mustAddress("0a"))

	dir.Forget(7)

	if _, ok := dir.Lookup(7); ok {
		t.Error("Lookup should miss after Forget")
	}
}

func TestDirectory_AddressIsolation(t *testing.T) {
	dir := New()
	addr := mustAddress("10.0.0.1:47808")
	dir.RegisterAnnouncement(1, &fakeTransport{name: "a"}, addr)

	// Mutating the caller's buffer must not reach the directory.
	addr.MAC[0] = 99

	ep, _ := dir.Lookup(1)
	if ep.Address.MAC[0] != 10 {
		t.Fatalf("stored address aliased caller buffer: %s", ep.Address)
	}

	// Mutating a lookup result must not reach the directory either.
	ep.Address.MAC[0] = 77
	again, _ := dir.Lookup(1)
	if again.Address.MAC[0] != 10 {
		t.Errorf("lookup result aliased stored address: %s", again.Address)
	}
}

func TestDirectory_ConcurrentAnnounceAndLookup(t *testing.T) {
	dir := New()
	t1 := &fakeTransport{name: "one"}
	t2 := &fakeTransport{name: "two"}
	a1 := mustAddress("10.0.0.1:47808")
	a2 := mustAddress("10.0.0.2:47808")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			dir.RegisterAnnouncement(5, t1, a1)
			dir.RegisterAnnouncement(5, t2, a2)
		}()
		go func() {
			defer wg.Done()
			ep, ok := dir.Lookup(5)
			if !ok {
				return
			}
			// A lookup sees one whole pair, never a mix.
			if ep.Transport == t1 && !ep.Address.Equal(a1) {
				t.Errorf("torn read: transport one with %s", ep.Address)
			}
			if ep.Transport == t2 && !ep.Address.Equal(a2) {
				t.Errorf("torn read: transport two with %s", ep.Address)
			}
		}()
	}
	wg.Wait()
}

func TestDirectEndpoints(t *testing.T) {
	r := NewDirectEndpoints()

	if _, ok := r.Get(); ok {
		t.Fatal("new registry should hold nothing")
	}

	ip := &fakeTransport{name: "udp", kind: "bacnet-ip"}
	bus := &fakeTransport{name: "bus", kind: "mqtt"}

	if r.SetIfKind(ip, "mqtt") {
		t.Error("SetIfKind accepted a transport of the wrong kind")
	}
	if _, ok := r.Get(); ok {
		t.Error("rejected registration should leave registry empty")
	}

	if !r.SetIfKind(bus, "mqtt") {
		t.Error("SetIfKind rejected a matching transport")
	}
	if got, _ := r.Get(); got != bus {
		t.Errorf("Get() = %v, want bus", got)
	}

	// Set replaces unconditionally.
	r.Set(ip)
	if got, _ := r.Get(); got != ip {
		t.Errorf("Get() after Set = %v, want udp", got)
	}

	r.Set(nil)
	if _, ok := r.Get(); ok {
		t.Error("Set(nil) should clear the registry")
	}
}
