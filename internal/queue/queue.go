// Package queue provides the thread-safe write buffer used by the storage
// layer to batch trajectory writes.
package queue

import (
	"sync"
)

// Buffer is a generic thread-safe accumulate-then-drain buffer.
type Buffer[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewBuffer creates an empty buffer.
func NewBuffer[T any]() *Buffer[T] {
	return &Buffer[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the buffer.
func (b *Buffer[T]) Push(items ...T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, items...)
}

// Drain returns all buffered items in insertion order and empties the buffer.
func (b *Buffer[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := b.items
	b.items = make([]T, 0, cap(b.items))
	return result
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Empty reports whether the buffer holds no items.
func (b *Buffer[T]) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items) == 0
}
