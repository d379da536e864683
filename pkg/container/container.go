// Package container provides the growable sequence, FIFO queue and LIFO stack
// that back the bookstore catalog and order lifecycle.
//
// None of the containers synchronize access. Owners that share a container
// between goroutines must serialize every call, including traversal.
package container

import "errors"

var (
	// ErrOutOfRange is returned when an index falls outside [0, Len()).
	ErrOutOfRange = errors.New("index out of range")
	// ErrEmpty is returned when removing from or peeking at an empty container.
	ErrEmpty = errors.New("container is empty")
)

// node is a link in the singly linked chains used by Queue and Stack.
type node[T any] struct {
	value T
	next  *node[T]
}
