package credentials

import "sync"

// DemoToken is the access token used for every resource call while demo mode is on.
const DemoToken = "demo"

// Record is the in-memory credential state for one client.
// A field that was never set (or was cleaned) reads as unset, which is distinct
// from a field explicitly set to the empty string.
type Record struct {
	mu     sync.RWMutex
	values map[Field]string
	demo   bool
}

// NewRecord creates an empty record.
func NewRecord(demo bool) *Record {
	return &Record{
		values: make(map[Field]string, len(Fields)),
		demo:   demo,
	}
}

// Demo reports whether demo mode is active.
func (r *Record) Demo() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.demo
}

// SetDemo toggles demo mode.
func (r *Record) SetDemo(demo bool) {
	r.mu.Lock()
	r.demo = demo
	r.mu.Unlock()
}

// Get returns the value of f and whether it is set.
func (r *Record) Get(f Field) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[f]
	return v, ok
}

// Set stores v for f.
func (r *Record) Set(f Field, v string) {
	r.mu.Lock()
	r.values[f] = v
	r.mu.Unlock()
}

// Clean unsets every field. Demo mode is left untouched.
func (r *Record) Clean() {
	r.mu.Lock()
	clear(r.values)
	r.mu.Unlock()
}

// Snapshot returns a copy of the set fields.
func (r *Record) Snapshot() map[Field]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Field]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
