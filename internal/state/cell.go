// Package state is the reactive core of sparcl. Settings and session
// values live in cells; interested parties subscribe and get called on
// every change. Persistent cells write through to a storage backend and
// rehydrate from it, so a setting survives restarts the same way
// browser storage would.
package state

import (
	"sync"
)

// Unsubscribe removes a subscription. Safe to call more than once.
type Unsubscribe func()

// Readable is the read side of a cell: current value plus change
// notifications. Both Cell and DerivedCell satisfy it.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func(T)) Unsubscribe
}

// Cell holds a single value and notifies subscribers when it changes.
//
// Notifications run synchronously on the goroutine that called Set,
// outside the cell lock and in subscription order. A subscriber may
// read or write cells from its callback. With concurrent writers the
// delivery order between their notifications is unspecified; the cell
// value itself is always the last write.
type Cell[T any] struct {
	mu     sync.Mutex
	value  T
	eq     func(a, b T) bool
	subs   []subscriber[T]
	nextID int
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// CellOption configures a cell at construction.
type CellOption[T any] func(*Cell[T])

// WithEqual suppresses notifications when eq reports the new value
// equal to the current one.
func WithEqual[T any](eq func(a, b T) bool) CellOption[T] {
	return func(c *Cell[T]) { c.eq = eq }
}

// Comparable is a ready-made equality func for comparable types.
func Comparable[T comparable]() func(a, b T) bool {
	return func(a, b T) bool { return a == b }
}

// NewCell creates a cell holding initial.
func NewCell[T any](initial T, opts ...CellOption[T]) *Cell[T] {
	c := &Cell[T]{value: initial}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current value. Slice and map values are shared;
// treat them as immutable.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores a new value and notifies subscribers.
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	if c.eq != nil && c.eq(c.value, value) {
		c.mu.Unlock()
		return
	}
	c.value = value
	subs := c.snapshotSubs()
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(value)
	}
}

// Update applies fn to the current value atomically and notifies
// subscribers. fn runs under the cell lock and must not touch cells.
func (c *Cell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	value := fn(c.value)
	if c.eq != nil && c.eq(c.value, value) {
		c.mu.Unlock()
		return
	}
	c.value = value
	subs := c.snapshotSubs()
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(value)
	}
}

// Subscribe registers fn and calls it immediately with the current
// value. The returned Unsubscribe stops future notifications.
func (c *Cell[T]) Subscribe(fn func(T)) Unsubscribe {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})
	value := c.value
	c.mu.Unlock()

	fn(value)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// snapshotSubs copies the subscriber list. Caller must hold the lock.
// The copy lets callbacks subscribe and unsubscribe without corrupting
// an in-flight notification pass.
func (c *Cell[T]) snapshotSubs() []subscriber[T] {
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)
	return subs
}

// subscriberCount reports active subscriptions.
func (c *Cell[T]) subscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
