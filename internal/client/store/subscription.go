package store

import "sync"

// Entities reported by change notifications.
const (
	EntityItems      = "items"
	EntityHighlights = "highlights"
	EntityLabels     = "labels"
)

// Change describes a committed mutation. IDs may be empty for bulk
// operations (delta merges, resets).
type Change struct {
	Entity string
	IDs    []string
}

// Subscription is a handle to a registered change callback.
type Subscription struct {
	id     uint64
	cancel func(uint64)
	once   sync.Once
}

// Cancel unregisters the callback. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() { s.cancel(s.id) })
}

type subscribers struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func(Change)
}

func (s *subscribers) add(fn func(Change)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[uint64]func(Change))
	}
	s.next++
	id := s.next
	s.subs[id] = fn
	return &Subscription{id: id, cancel: s.remove}
}

func (s *subscribers) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// notify invokes every callback synchronously, after the originating
// transaction has committed.
func (s *subscribers) notify(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
