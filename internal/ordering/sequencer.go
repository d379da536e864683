// internal/ordering/sequencer.go
package ordering

// DefaultFirstOrderID is the ID given to the first order when nothing else
// is configured.
const DefaultFirstOrderID = 1000

// Sequencer hands out increasing order IDs. It is not safe for concurrent
// use; the ordering service calls it under its own lock.
type Sequencer struct {
	next int
}

func NewSequencer(start int) *Sequencer {
	return &Sequencer{next: start}
}

// Next returns the next ID.
func (s *Sequencer) Next() int {
	id := s.next
	s.next++
	return id
}
