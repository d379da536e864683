package container

import (
	"fmt"
	"iter"
)

// DefaultCapacity is the number of slots a Sequence allocates on first use.
const DefaultCapacity = 10

// Sequence is a growable indexed container. Capacity starts at
// DefaultCapacity and doubles whenever an append finds it full; it never
// shrinks. The zero value is an empty sequence ready to use.
type Sequence[T any] struct {
	items []T
	size  int
}

// NewSequence returns an empty sequence with DefaultCapacity slots.
func NewSequence[T any]() *Sequence[T] {
	return &Sequence[T]{items: make([]T, DefaultCapacity)}
}

// Append adds item after the last element.
func (s *Sequence[T]) Append(item T) {
	if s.size == len(s.items) {
		s.grow()
	}
	s.items[s.size] = item
	s.size++
}

// Get returns the element at index.
func (s *Sequence[T]) Get(index int) (T, error) {
	if err := s.check(index); err != nil {
		var zero T
		return zero, err
	}
	return s.items[index], nil
}

// Set replaces the element at index.
func (s *Sequence[T]) Set(index int, item T) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.items[index] = item
	return nil
}

// Len returns the number of elements.
func (s *Sequence[T]) Len() int {
	return s.size
}

// Cap returns the number of allocated slots.
func (s *Sequence[T]) Cap() int {
	return len(s.items)
}

// IsEmpty reports whether the sequence holds no elements.
func (s *Sequence[T]) IsEmpty() bool {
	return s.size == 0
}

// All yields index/element pairs in order.
func (s *Sequence[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < s.size; i++ {
			if !yield(i, s.items[i]) {
				return
			}
		}
	}
}

// Values returns a copy of the elements in order.
func (s *Sequence[T]) Values() []T {
	out := make([]T, s.size)
	copy(out, s.items[:s.size])
	return out
}

func (s *Sequence[T]) check(index int) error {
	if index < 0 || index >= s.size {
		return fmt.Errorf("index %d, size %d: %w", index, s.size, ErrOutOfRange)
	}
	return nil
}

func (s *Sequence[T]) grow() {
	capacity := len(s.items) * 2
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	items := make([]T, capacity)
	copy(items, s.items[:s.size])
	s.items = items
}
