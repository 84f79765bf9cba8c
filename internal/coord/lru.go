package coord

import (
	"container/list"
	"sync"
)

// DefaultLRUCapacity is the streaming-mode cache size. At 16 bytes per
// coordinate plus bookkeeping this keeps the cache well under 100 MB.
const DefaultLRUCapacity = 1_000_000

type lruEntry struct {
	id       int64
	lat, lon float64
}

// LRUStore is a capacity-bounded coordinate cache with
// least-recently-used eviction. A Get miss after eviction is expected;
// callers treat it as "geometry unavailable" for that reference.
type LRUStore struct {
	mu       sync.Mutex
	capacity int
	entries  map[int64]*list.Element
	order    *list.List // most recently used at front
}

// NewLRUStore creates a bounded store. Capacity values below 1 fall
// back to DefaultLRUCapacity.
func NewLRUStore(capacity int) *LRUStore {
	if capacity < 1 {
		capacity = DefaultLRUCapacity
	}
	return &LRUStore{
		capacity: capacity,
		entries:  make(map[int64]*list.Element, capacity),
		order:    list.New(),
	}
}

func (s *LRUStore) Put(id int64, lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[id]; ok {
		e := el.Value.(*lruEntry)
		e.lat, e.lon = lat, lon
		s.order.MoveToFront(el)
		return
	}

	s.entries[id] = s.order.PushFront(&lruEntry{id: id, lat: lat, lon: lon})
	if s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*lruEntry).id)
	}
}

func (s *LRUStore) Get(id int64) (float64, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[id]
	if !ok {
		return 0, 0, false
	}
	s.order.MoveToFront(el)
	e := el.Value.(*lruEntry)
	return e.lat, e.lon, true
}

func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *LRUStore) Flush() error { return nil }

func (s *LRUStore) Close() error { return nil }
