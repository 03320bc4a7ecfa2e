package sync

import "sync"

// Sequencer guards against out-of-order completion of overlapping
// queries. Callers take an index with Issue before starting a request
// and hand the response to Apply; a response whose index is not newer
// than the last applied one is discarded. Stale requests are never
// cancelled, just ignored on arrival.
//
// The very first issued query (index 0) is exempt from the staleness
// check until some response has been applied, so initial state can be
// established even if a newer query was already issued.
type Sequencer struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
	any     bool // true once any response has been applied
}

// Issue reserves the next query index.
func (s *Sequencer) Issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.issued
	s.issued++
	return idx
}

// Apply runs fn if the response for seq is still the newest one seen,
// and records it as applied. It returns false when the response was
// discarded as stale.
func (s *Sequencer) Apply(seq uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.any && seq <= s.applied {
		return false
	}

	fn()
	s.applied = seq
	s.any = true
	return true
}
