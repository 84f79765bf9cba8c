// Package coord provides the node coordinate stores used during
// geometry resolution. A store is populated during a node pass and read
// concurrently afterwards; entries are never mutated after insert.
package coord

import "sync"

// Store maps node ids to coordinates. Put is safe for concurrent use
// during the build phase; Get is safe once the build phase is done. A
// failed Get is a normal outcome for bounded backings, not an error.
type Store interface {
	Put(id int64, lat, lon float64)
	Get(id int64) (lat, lon float64, ok bool)
	Len() int
	// Flush makes all previous Puts visible to Get. Called once at the
	// barrier between the build pass and the first consuming pass.
	Flush() error
	Close() error
}

const shardCount = 64

type coordinate struct {
	lat, lon float64
}

type shard struct {
	mu sync.RWMutex
	m  map[int64]coordinate
}

// MemoryStore keeps every coordinate in lock-striped in-memory maps.
// Memory use grows with input node count, which is why it is limited to
// small and medium inputs.
type MemoryStore struct {
	shards [shardCount]shard
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i].m = make(map[int64]coordinate)
	}
	return s
}

func (s *MemoryStore) shard(id int64) *shard {
	return &s.shards[uint64(id)%shardCount]
}

func (s *MemoryStore) Put(id int64, lat, lon float64) {
	sh := s.shard(id)
	sh.mu.Lock()
	sh.m[id] = coordinate{lat, lon}
	sh.mu.Unlock()
}

func (s *MemoryStore) Get(id int64) (float64, float64, bool) {
	sh := s.shard(id)
	sh.mu.RLock()
	c, ok := sh.m[id]
	sh.mu.RUnlock()
	return c.lat, c.lon, ok
}

func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		s.shards[i].mu.RLock()
		n += len(s.shards[i].m)
		s.shards[i].mu.RUnlock()
	}
	return n
}

func (s *MemoryStore) Flush() error { return nil }

func (s *MemoryStore) Close() error { return nil }
