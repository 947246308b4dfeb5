package directory

import "sync/atomic"

// DirectEndpoints holds the transport used for recipients addressed by an
// explicit network address. The zero value holds nothing.
type DirectEndpoints struct {
	current atomic.Pointer[transportHolder]
}

// transportHolder boxes the interface so it can live in an atomic.Pointer.
type transportHolder struct {
	t Transport
}

// NewDirectEndpoints creates an empty registry.
func NewDirectEndpoints() *DirectEndpoints {
	return &DirectEndpoints{}
}

// Set replaces the held transport unconditionally. Passing nil clears it.
func (r *DirectEndpoints) Set(t Transport) {
	if t == nil {
		r.current.Store(nil)
		return
	}
	r.current.Store(&transportHolder{t: t})
}

// SetIfKind registers t only when its kind matches. It reports whether the
// registration happened.
func (r *DirectEndpoints) SetIfKind(t Transport, kind string) bool {
	if t == nil || t.Kind() != kind {
		return false
	}
	r.Set(t)
	return true
}

// Get returns the held transport, if any.
func (r *DirectEndpoints) Get() (Transport, bool) {
	h := r.current.Load()
	if h == nil {
		return nil, false
	}
	return h.t, true
}
