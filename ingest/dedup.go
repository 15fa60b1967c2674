// ingest/dedup.go
package ingest

import "sync"

// DedupSet is the bounded recent-events set guarding against duplicate
// delivery from the two overlapping device read paths. On overflow the
// whole set is cleared rather than evicted piecemeal; the worst case
// is one re-evaluation per credential, absorbed by the verdict cache.
type DedupSet struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	capacity int
}

func NewDedupSet(capacity int) *DedupSet {
	if capacity <= 0 {
		capacity = 1000
	}
	return &DedupSet{
		seen:     make(map[string]struct{}),
		capacity: capacity,
	}
}

// Observe records a key and reports whether it was seen for the first
// time.
func (s *DedupSet) Observe(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[key]; dup {
		return false
	}
	if len(s.seen) >= s.capacity {
		s.seen = make(map[string]struct{})
	}
	s.seen[key] = struct{}{}
	return true
}

// Len reports the number of remembered keys.
func (s *DedupSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
