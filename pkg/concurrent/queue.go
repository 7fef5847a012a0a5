// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned by TryPush when the queue has no free capacity.
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueClosed is returned by TryPush after Close.
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue is a bounded FIFO that never blocks producers.
type Queue[T any] struct {
	mu     sync.RWMutex
	items  chan T
	closed bool
}

// NewQueue creates a queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{items: make(chan T, capacity)}
}

// TryPush enqueues item or fails immediately when the queue is full or closed.
func (q *Queue[T]) TryPush(item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.items <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Items returns the receive side. It is closed once Close is called and the
// remaining items have been drained.
func (q *Queue[T]) Items() <-chan T {
	return q.items
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.items)
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Close stops accepting items. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
}
