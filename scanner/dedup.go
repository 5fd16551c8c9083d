package scanner

import "github.com/srg/beacond/internal/beacon"

// DefaultDedupCapacity is the number of distinct beacons one cycle remembers.
const DefaultDedupCapacity = 20

// InsertResult is the outcome of DedupWindow.Insert.
type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadySeen
	WindowFull
)

// DedupWindow is the per-cycle set of beacon identities already reported.
// Storage is allocated once; Reset and Insert never allocate.
type DedupWindow struct {
	ids []beacon.ID
}

// NewDedupWindow creates a window holding at most capacity identities.
func NewDedupWindow(capacity int) *DedupWindow {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &DedupWindow{ids: make([]beacon.ID, 0, capacity)}
}

// Contains reports whether id was inserted since the last Reset.
func (w *DedupWindow) Contains(id beacon.ID) bool {
	for _, seen := range w.ids {
		if seen == id {
			return true
		}
	}
	return false
}

// Insert records id. A full window refuses new identities for the rest of
// the cycle.
func (w *DedupWindow) Insert(id beacon.ID) InsertResult {
	if w.Contains(id) {
		return AlreadySeen
	}
	if len(w.ids) == cap(w.ids) {
		return WindowFull
	}
	w.ids = append(w.ids, id)
	return Inserted
}

// Reset empties the window.
func (w *DedupWindow) Reset() {
	w.ids = w.ids[:0]
}

func (w *DedupWindow) Len() int { return len(w.ids) }
func (w *DedupWindow) Cap() int { return cap(w.ids) }
