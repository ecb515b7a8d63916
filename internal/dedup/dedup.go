// Package dedup tracks recently accepted source paths so repeated create
// events for the same file are processed once.
//
// A Record is not safe for concurrent use. The dispatcher owns it from a
// single goroutine.
package dedup

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 20

// Record is a fixed-capacity FIFO of paths. Once full, recording a new path
// evicts the oldest one.
type Record struct {
	entries []string
	index   map[string]struct{}
	head    int
	size    int
}

// New returns a Record holding up to capacity paths. Capacities below 1 fall
// back to DefaultCapacity.
func New(capacity int) *Record {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Record{
		entries: make([]string, capacity),
		index:   make(map[string]struct{}, capacity),
	}
}

// Seen reports whether path is currently in the window.
func (r *Record) Seen(path string) bool {
	_, ok := r.index[path]
	return ok
}

// Record adds path to the window. A path already present is left where it is.
func (r *Record) Record(path string) {
	if r.Seen(path) {
		return
	}
	if r.size == len(r.entries) {
		delete(r.index, r.entries[r.head])
	} else {
		r.size++
	}
	r.entries[r.head] = path
	r.index[path] = struct{}{}
	r.head = (r.head + 1) % len(r.entries)
}

// Len returns the number of paths in the window.
func (r *Record) Len() int {
	return r.size
}

// Capacity returns the window size.
func (r *Record) Capacity() int {
	return len(r.entries)
}
