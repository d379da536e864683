package container

import "iter"

// Queue is a first-in first-out queue over a singly linked chain.
// The zero value is an empty queue ready to use.
type Queue[T any] struct {
	head *node[T]
	tail *node[T]
	size int
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue appends item at the tail.
func (q *Queue[T]) Enqueue(item T) {
	n := &node[T]{value: item}
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.size++
}

// Dequeue removes and returns the item at the head.
func (q *Queue[T]) Dequeue() (T, error) {
	if q.head == nil {
		var zero T
		return zero, ErrEmpty
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.size--
	return n.value, nil
}

// Peek returns the item at the head without removing it.
func (q *Queue[T]) Peek() (T, error) {
	if q.head == nil {
		var zero T
		return zero, ErrEmpty
	}
	return q.head.value, nil
}

// IsEmpty reports whether the queue holds no items.
func (q *Queue[T]) IsEmpty() bool {
	return q.head == nil
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return q.size
}

// All yields items from head to tail without modifying the queue.
func (q *Queue[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := q.head; n != nil; n = n.next {
			if !yield(n.value) {
				return
			}
		}
	}
}

// Values returns the items from head to tail.
func (q *Queue[T]) Values() []T {
	out := make([]T, 0, q.size)
	for v := range q.All() {
		out = append(out, v)
	}
	return out
}
