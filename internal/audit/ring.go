package audit

import "sync"

// Ring keeps the most recent entries in memory.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewRing creates a Ring holding up to capacity entries. A capacity below
// one is raised to one.
func NewRing(capacity int) *Ring {
	return &Ring{entries: make([]Entry, max(capacity, 1))}
}

// RecordEntry implements Logger.
func (r *Ring) RecordEntry(serverID, category string, typ EntryType, rec Record) {
	e := newEntry(serverID, category, typ, rec)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Entries returns a snapshot of the retained entries, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]Entry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}
