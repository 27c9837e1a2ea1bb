// Package latest implements a "last request wins" guard for asynchronous
// lookups whose responses may arrive out of order.
package latest

import "sync"

// Sequencer hands out monotonically increasing tickets. Only the most
// recently issued ticket is current; responses carrying an older ticket are
// stale and must be dropped on arrival.
type Sequencer struct {
	mu     sync.Mutex
	issued uint64
}

// Next issues a new ticket, superseding every earlier one.
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// IsLatest reports whether ticket is the most recently issued one.
func (s *Sequencer) IsLatest(ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ticket != 0 && ticket == s.issued
}

// Invalidate supersedes every outstanding ticket without issuing a new one.
func (s *Sequencer) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
}
