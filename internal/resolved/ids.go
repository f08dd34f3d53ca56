// Package resolved holds the tagged-variant transformation step model and
// the resolved device/control/mapping records the router and pipeline
// operate on. None of it is owned by a step instance: runtime state lives
// in engine-owned tables keyed by the ids assigned here.
package resolved

// StateID is an opaque monotonically assigned integer used to key per-step
// runtime state in engine-owned tables. The zero value means "no state" and
// is never handed out by an Allocator.
type StateID int

// IDAllocator assigns unique, monotonically increasing StateIDs at
// resolution time. A fresh Allocator is created per engine build so that two
// instances (e.g. across a hot reload) never share ids.
type IDAllocator struct {
	next StateID
}

// NewIDAllocator returns an allocator whose first Next() call yields 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: 1}
}

// Next hands out the next unique StateID.
func (a *IDAllocator) Next() StateID {
	id := a.next
	a.next++
	return id
}
