// Package queue implements the bounded FIFO channel that carries commands,
// transport events, and display lines between producers and the single-consumer
// processing loops. It is a mutex-guarded slice with a broadcast wakeup, not a
// raw Go channel, because consumers need TryPop, point-in-time Len, and a
// cancellation signal that is distinct from end-of-stream.
package queue

import (
	"context"
	"errors"
	"sync"
)

// Sentinel errors returned by Push and Pop.
var (
	// ErrFull is returned by Push when the queue is at capacity. The overflow
	// policy is deliberate rejection: the producer is told and decides whether
	// to retry, drop, or surface the condition. Values are never dropped
	// silently.
	ErrFull = errors.New("queue full")

	// ErrClosed is returned by Push after Close, and by Pop once the queue is
	// closed and drained.
	ErrClosed = errors.New("queue closed")

	// ErrCanceled is returned by Pop when Cancel has been called and no
	// buffered value is immediately available.
	ErrCanceled = errors.New("queue canceled")
)

// Queue is a capacity-bounded multi-producer FIFO of values of one type.
// All methods are safe for concurrent use.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	closed   bool
	canceled bool
	wake     chan struct{} // closed and replaced on every state change
}

// New creates a queue holding at most capacity values. Capacity must be
// positive.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
		wake:     make(chan struct{}),
	}
}

// Push enqueues v. It never blocks: a queue at capacity returns ErrFull and a
// closed queue returns ErrClosed.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if len(q.items) >= q.capacity {
		return ErrFull
	}
	q.items = append(q.items, v)
	q.broadcast()
	return nil
}

// Pop returns the oldest value, blocking until one is available. FIFO order is
// preserved relative to all prior successful Push calls. Pop returns
// ErrCanceled after Cancel, ErrClosed once the queue is closed and drained,
// and ctx.Err() if the context ends first. Buffered values are always
// delivered before either terminal error.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, nil
		}
		if q.canceled {
			q.mu.Unlock()
			return zero, ErrCanceled
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-wake:
		}
	}
}

// TryPop returns the oldest value without blocking. The second return is false
// when the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, true
}

// Len returns the number of buffered values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue currently holds no values.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Cancel wakes every suspended Pop with ErrCanceled. Buffered values are not
// discarded: they remain available to TryPop, and to Pop calls that find a
// value immediately.
func (q *Queue[T]) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.canceled {
		return
	}
	q.canceled = true
	q.broadcast()
}

// Close disallows further Push. Buffered values remain poppable; once drained,
// Pop returns ErrClosed.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.broadcast()
}

// broadcast wakes all waiters. Caller must hold q.mu.
func (q *Queue[T]) broadcast() {
	close(q.wake)
	q.wake = make(chan struct{})
}
