// Package state provides a single-slot latest-value cell. Readers always see
// the most recent value; watchers are woken without queueing old values.
package state

import "sync"

type Cell[T any] struct {
	mu       sync.RWMutex
	value    T
	set      bool
	version  uint64
	watchers map[chan struct{}]struct{}
}

// NewCell returns an unset cell.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{watchers: make(map[chan struct{}]struct{})}
}

// NewCellWith returns a cell holding v.
func NewCellWith[T any](v T) *Cell[T] {
	c := NewCell[T]()
	c.value = v
	c.set = true
	return c
}

// Load returns the current value and whether the cell holds one.
func (c *Cell[T]) Load() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.set
}

// Version increments on every Store and Reset.
func (c *Cell[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Cell[T]) Store(v T) {
	c.mu.Lock()
	c.value = v
	c.set = true
	c.version++
	c.notifyLocked()
	c.mu.Unlock()
}

// Reset returns the cell to the unset state.
func (c *Cell[T]) Reset() {
	var zero T
	c.mu.Lock()
	c.value = zero
	c.set = false
	c.version++
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Cell[T]) notifyLocked() {
	for ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch returns a channel that receives a signal after each change, coalesced
// to at most one pending signal, and a func that stops the watch. Call Load
// after each signal to read the latest value.
func (c *Cell[T]) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, ch)
			c.mu.Unlock()
		})
	}
}
