package tailer

import (
	"sync"
)

// Offsets is the in-memory table of read positions for tailed files. It is not
// persisted; every restart re-tails from end-of-file.
type Offsets struct {
	mu      sync.RWMutex
	offsets map[string]int64
}

// NewOffsets creates an empty offset table.
func NewOffsets() *Offsets {
	return &Offsets{offsets: make(map[string]int64)}
}

// Get returns the saved offset for a file path.
func (o *Offsets) Get(path string) (int64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.offsets[path]
	return v, ok
}

// Set records the current offset for a file path.
func (o *Offsets) Set(path string, offset int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.offsets[path] = offset
}

// All returns a copy of every recorded offset.
func (o *Offsets) All() map[string]int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]int64, len(o.offsets))
	for k, v := range o.offsets {
		out[k] = v
	}
	return out
}
