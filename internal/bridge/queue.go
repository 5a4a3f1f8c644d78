package bridge

import (
	"sync"
)

// queue is an unbounded FIFO with any number of producers and exactly one
// consumer. push never blocks; pop blocks until an item arrives or done closes.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	ready  chan struct{}
	closed bool
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{ready: make(chan struct{}, 1)}
}

func (q *queue[T]) push(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	// Wake the consumer; a pending token is enough.
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

func (q *queue[T]) pop(done <-chan struct{}) (T, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-done:
			var zero T
			return zero, false
		}
	}
}

// close rejects further pushes and returns whatever was still queued.
func (q *queue[T]) close() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	rest := q.items
	q.items = nil
	return rest
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
