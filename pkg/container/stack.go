package container

import "iter"

// Stack is a last-in first-out stack over a singly linked chain.
// The zero value is an empty stack ready to use.
type Stack[T any] struct {
	top  *node[T]
	size int
}

// NewStack returns an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push places item on top.
func (s *Stack[T]) Push(item T) {
	s.top = &node[T]{value: item, next: s.top}
	s.size++
}

// Pop removes and returns the top item.
func (s *Stack[T]) Pop() (T, error) {
	if s.top == nil {
		var zero T
		return zero, ErrEmpty
	}
	n := s.top
	s.top = n.next
	s.size--
	return n.value, nil
}

// Peek returns the top item without removing it.
func (s *Stack[T]) Peek() (T, error) {
	if s.top == nil {
		var zero T
		return zero, ErrEmpty
	}
	return s.top.value, nil
}

// IsEmpty reports whether the stack holds no items.
func (s *Stack[T]) IsEmpty() bool {
	return s.top == nil
}

// Len returns the number of stacked items.
func (s *Stack[T]) Len() int {
	return s.size
}

// All yields items from top to bottom without modifying the stack.
func (s *Stack[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := s.top; n != nil; n = n.next {
			if !yield(n.value) {
				return
			}
		}
	}
}

// Values returns the items from top to bottom.
func (s *Stack[T]) Values() []T {
	out := make([]T, 0, s.size)
	for v := range s.All() {
		out = append(out, v)
	}
	return out
}
