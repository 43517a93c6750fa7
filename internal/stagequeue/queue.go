// Package stagequeue provides the unbounded FIFO that hands jobs from one
// pipeline stage to the next.
package stagequeue

import (
	"context"
	"sync"
)

// Queue is an order-preserving FIFO with a one-way completed state. Once
// completed and drained, consumers stop instead of blocking.
type Queue[T any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	items     []T
	completed bool
	waiting   int
	pushed    int
}

// New constructs an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends item and wakes one waiting consumer.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.pushed++
	if q.waiting > 0 {
		q.cond.Signal()
	}
	q.mu.Unlock()
}

// TryPop removes the head without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// MarkCompleted records that no more items will be pushed and wakes every
// waiter. Calling it again is a no-op.
func (q *Queue[T]) MarkCompleted() {
	q.mu.Lock()
	if !q.completed {
		q.completed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

// Next blocks until an item is available or the queue is completed and
// empty, in which case ok is false.
func (q *Queue[T]) Next() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if item, ok = q.popLocked(); ok {
			return item, true
		}
		if q.completed {
			return item, false
		}
		q.waiting++
		q.cond.Wait()
		q.waiting--
	}
}

// NextContext is Next that also returns when ctx ends. Once ctx is done it
// reports ctx.Err() even if items remain queued.
func (q *Queue[T]) NextContext(ctx context.Context) (item T, ok bool, err error) {
	stop := make(chan struct{})
	defer close(stop)
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-stop:
			}
		}()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return item, false, err
		}
		if item, ok = q.popLocked(); ok {
			return item, true, nil
		}
		if q.completed {
			return item, false, nil
		}
		q.waiting++
		q.cond.Wait()
		q.waiting--
	}
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pushed reports how many items were ever pushed.
func (q *Queue[T]) Pushed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed
}

// Completed reports whether MarkCompleted has been called.
func (q *Queue[T]) Completed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.completed
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}
