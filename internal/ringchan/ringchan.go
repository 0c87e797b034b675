// Package ringchan provides a bounded channel that drops its oldest element
// instead of blocking the producer.
package ringchan

import "sync/atomic"

// Ring is a buffered channel with overwrite-oldest semantics.
//
// Producers call Send, which never blocks. Consumers read from C like any
// other channel:
//
//	r := ringchan.New[bluez.Notification](64)
//	go func() { r.Send(n) }()
//	for n := range r.C() {
//	    handle(n)
//	}
//
// Concurrent producers are safe; the drop-oldest step is best effort when
// several producers race on a full buffer.
type Ring[T any] struct {
	ch      chan T
	written atomic.Int64
	dropped atomic.Int64
	closed  atomic.Bool
}

// New creates a Ring with the given capacity.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &Ring[T]{ch: make(chan T, capacity)}
}

// C returns the receive side of the ring.
func (r *Ring[T]) C() <-chan T {
	return r.ch
}

// Send enqueues v, discarding the oldest element if the buffer is full.
// It reports whether an element was dropped. Send after Close is a no-op.
func (r *Ring[T]) Send(v T) (dropped bool) {
	if r.closed.Load() {
		return false
	}
	for {
		select {
		case r.ch <- v:
			r.written.Add(1)
			return dropped
		default:
		}
		select {
		case <-r.ch:
			r.dropped.Add(1)
			dropped = true
		default:
		}
	}
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	return len(r.ch)
}

// Written returns the number of elements accepted so far.
func (r *Ring[T]) Written() int64 {
	return r.written.Load()
}

// Dropped returns the number of elements discarded to make room.
func (r *Ring[T]) Dropped() int64 {
	return r.dropped.Load()
}

// Close closes the ring. It must only be called by the producing side once
// all Send calls have returned.
func (r *Ring[T]) Close() {
	if r.closed.CompareAndSwap(false, true) {
		close(r.ch)
	}
}
